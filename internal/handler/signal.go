package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"signalboard/internal/domain"
	"signalboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// CreateSignal godoc
// @Summary      Post a new trading signal
// @Description  Validates the signal, creates its forum thread and persists it
// @Tags         signals
// @Accept       json
// @Produce      json
// @Param        signal  body  service.NewSignalRequest  true  "Signal fields"
// @Success      201  {object}  domain.Signal
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/signals [post]
func (h *Handler) CreateSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.create-signal")
	defer span.End()

	var req service.NewSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	span.SetAttributes(attribute.String("coin_symbol", req.CoinSymbol))

	sig, err := h.signalService.Create(ctx, identity(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sig)
}

// ListSignals godoc
// @Summary      List the caller's signals
// @Tags         signals
// @Produce      json
// @Param        serverId  query  string  false  "Filter to one server"
// @Param        limit     query  int     false  "Max results (default 50, max 200)"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/signals [get]
func (h *Handler) ListSignals(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-signals")
	defer span.End()

	limit := 50
	if rawLimit := strings.TrimSpace(c.Query("limit")); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 || n > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
			return
		}
		limit = n
	}

	signals, err := h.signalService.List(ctx, identity(c), strings.TrimSpace(c.Query("serverId")), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

// GetSignal godoc
// @Summary      Get one of the caller's signals
// @Tags         signals
// @Produce      json
// @Param        id  path  string  true  "Signal ID"
// @Success      200  {object}  domain.Signal
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/signals/{id} [get]
func (h *Handler) GetSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signal")
	defer span.End()

	sig, err := h.signalService.Get(ctx, identity(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sig)
}

// UpdateSignal godoc
// @Summary      Patch a signal's take-profit/stop-loss
// @Description  Accepts only takeProfit and stopLoss; unknown fields are rejected
// @Tags         signals
// @Accept       json
// @Produce      json
// @Param        id     path  string              true  "Signal ID"
// @Param        patch  body  domain.SignalPatch  true  "Fields to change"
// @Success      200  {object}  domain.Signal
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/signals/{id} [patch]
func (h *Handler) UpdateSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.update-signal")
	defer span.End()

	// The patch surface is exactly two fields; anything else in the body is a
	// client bug, not something to ignore.
	var patch domain.SignalPatch
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "patch may only set takeProfit and stopLoss"})
		return
	}

	sig, err := h.signalService.Update(ctx, identity(c), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sig)
}

// DeleteSignal godoc
// @Summary      Delete one of the caller's signals
// @Tags         signals
// @Produce      json
// @Param        id  path  string  true  "Signal ID"
// @Success      204  "deleted"
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/signals/{id} [delete]
func (h *Handler) DeleteSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.delete-signal")
	defer span.End()

	if err := h.signalService.Delete(ctx, identity(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSignalLogs godoc
// @Summary      Get a signal's change history
// @Tags         signals
// @Produce      json
// @Param        id  path  string  true  "Signal ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/signals/{id}/logs [get]
func (h *Handler) GetSignalLogs(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signal-logs")
	defer span.End()

	logs, err := h.signalService.Logs(ctx, identity(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// GetServerStats godoc
// @Summary      Per-server usage summary
// @Tags         admin
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/admin/server-stats [get]
func (h *Handler) GetServerStats(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-server-stats")
	defer span.End()

	stats, err := h.signalService.AggregateByServer(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"servers": stats, "totalServers": len(stats)})
}
