package handlers

import (
	"net/http"
	"time"

	"pulse/response"

	"github.com/gin-gonic/gin"
)

// Health reports whether the store answers a ping.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := h.timeout(c, 5*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		h.fail(c, "health", err)
		return
	}
	response.OK(c, http.StatusOK, "Pulse API is running", gin.H{
		"database": h.Config.DatabaseDriver,
		"time":     time.Now().Unix(),
	})
}
