package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetCandles godoc
// @Summary      Get OHLC candles for a symbol
// @Tags         market
// @Produce      json
// @Param        symbol    query  string  true   "Trading pair, e.g. BTCUSDT"
// @Param        interval  query  string  false  "Kline interval (default 1h)"
// @Param        limit     query  int     false  "Bar count (default 500, max 1500)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/klines [get]
func (h *Handler) GetCandles(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-candles")
	defer span.End()

	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	limit := 0
	if rawLimit := strings.TrimSpace(c.Query("limit")); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	candles, err := h.marketService.FetchCandles(ctx, symbol, c.Query("interval"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": strings.ToUpper(symbol), "candles": candles})
}

// GetPrice godoc
// @Summary      Get the latest traded price
// @Tags         market
// @Produce      json
// @Param        symbol  path  string  true  "Pair or bare base asset, e.g. BTCUSDT or BTC"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/price/{symbol} [get]
func (h *Handler) GetPrice(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price")
	defer span.End()

	symbol := c.Param("symbol")
	span.SetAttributes(attribute.String("symbol", symbol))

	price, err := h.marketService.FetchLatestPrice(ctx, symbol)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": strings.ToUpper(strings.TrimSpace(symbol)), "price": price})
}

// SearchSymbols godoc
// @Summary      Search the tradable pair directory
// @Description  Substring match on the base asset, ranked by 24h volume
// @Tags         market
// @Produce      json
// @Param        q  query  string  false  "Search text; empty returns the most active pairs"
// @Success      200  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]string
// @Router       /api/symbols [get]
func (h *Handler) SearchSymbols(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.search-symbols")
	defer span.End()

	symbols, err := h.symbolService.Search(ctx, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}
