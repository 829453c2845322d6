package handlers

import (
	"net/http"
	"strconv"

	"github.com/contratofacil/platform/internal/database"
	"github.com/contratofacil/platform/internal/middleware"
	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	store *database.ContractStore
}

func NewActivityHandler(store *database.ContractStore) *ActivityHandler {
	return &ActivityHandler{store: store}
}

// ListActivities returns the current user's recent audit entries, newest first.
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	activities, err := h.store.ListActivities(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch activities"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": activities})
}
