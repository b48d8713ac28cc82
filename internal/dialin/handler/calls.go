package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleListCalls lists the running call agents
func (h *Handler) HandleListCalls(c *gin.Context) {
	calls := h.agents.Active()
	c.JSON(http.StatusOK, gin.H{
		"calls": calls,
		"count": len(calls),
	})
}
