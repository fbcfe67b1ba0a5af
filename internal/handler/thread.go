package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetThreadTags godoc
// @Summary      Get the tags applied to a forum thread
// @Tags         threads
// @Produce      json
// @Param        id  path  string  true  "Thread ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]string
// @Router       /api/threads/{id}/tags [get]
func (h *Handler) GetThreadTags(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-thread-tags")
	defer span.End()

	tags, err := h.botClient.ListThreadTags(ctx, identity(c).AccessToken, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appliedTags": tags})
}

// SetThreadTags godoc
// @Summary      Replace the tags applied to a forum thread
// @Description  Rejects more than five tags before any remote call is made
// @Tags         threads
// @Accept       json
// @Produce      json
// @Param        id    path  string    true  "Thread ID"
// @Param        tags  body  []string  true  "Tag IDs"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/threads/{id}/tags [patch]
func (h *Handler) SetThreadTags(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.set-thread-tags")
	defer span.End()

	var body struct {
		TagIDs []string `json:"tagIds"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	if err := h.coordinator.SetTags(ctx, identity(c), c.Param("id"), body.TagIDs); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appliedTags": body.TagIDs})
}

// GetChannelTags godoc
// @Summary      Get the tag definitions available on a forum channel
// @Tags         threads
// @Produce      json
// @Param        id  path  string  true  "Channel ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]string
// @Router       /api/channels/{id}/tags [get]
func (h *Handler) GetChannelTags(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-channel-tags")
	defer span.End()

	tags, err := h.botClient.ListChannelTags(ctx, identity(c).AccessToken, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availableTags": tags})
}
