package handler

import (
	"errors"
	"net/http"

	"signalboard/internal/discord"
	"signalboard/internal/domain"
	"signalboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer        trace.Tracer
	signalService *service.SignalService
	marketService *service.MarketService
	symbolService *service.SymbolService
	botClient     *discord.Client
	coordinator   *discord.Coordinator
	sessions      *SessionCodec
}

func New(
	tracer trace.Tracer,
	signalService *service.SignalService,
	marketService *service.MarketService,
	symbolService *service.SymbolService,
	botClient *discord.Client,
	coordinator *discord.Coordinator,
	sessions *SessionCodec,
) *Handler {
	return &Handler{
		tracer:        tracer,
		signalService: signalService,
		marketService: marketService,
		symbolService: symbolService,
		botClient:     botClient,
		coordinator:   coordinator,
		sessions:      sessions,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api", h.RequireSession)
	api.POST("/signals", h.CreateSignal)
	api.GET("/signals", h.ListSignals)
	api.GET("/signals/:id", h.GetSignal)
	api.PATCH("/signals/:id", h.UpdateSignal)
	api.DELETE("/signals/:id", h.DeleteSignal)
	api.GET("/signals/:id/logs", h.GetSignalLogs)

	api.GET("/klines", h.GetCandles)
	api.GET("/price/:symbol", h.GetPrice)
	api.GET("/symbols", h.SearchSymbols)

	api.GET("/threads/:id/tags", h.GetThreadTags)
	api.PATCH("/threads/:id/tags", h.SetThreadTags)
	api.GET("/channels/:id/tags", h.GetChannelTags)

	api.GET("/admin/server-stats", h.GetServerStats)
}

// Health godoc
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps the domain error taxonomy onto HTTP statuses. Unclassified
// errors surface as 500 with their message.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidSymbol), errors.Is(err, domain.ErrTooManyTags):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRemoteSync):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
