package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"practice-service/internal/auth"
	"practice-service/internal/models"
	"practice-service/internal/service"
)

type ProgressHandler struct {
	Service *service.PracticeService
}

func NewProgressHandler(s *service.PracticeService) *ProgressHandler {
	return &ProgressHandler{Service: s}
}

// GetProgress returns the learner's gamification snapshot
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	snap, err := h.Service.GetProgress(context.Background(), auth.Token(c), auth.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SwitchCourse changes the learner's active course
func (h *ProgressHandler) SwitchCourse(c *gin.Context) {
	var req struct {
		Course models.Course `json:"course" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}
	if req.Course.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Course ID is required"})
		return
	}

	snap, err := h.Service.SwitchCourse(context.Background(), auth.Token(c), auth.UserID(c), req.Course)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// RefillHearts restores hearts to the maximum (shop / subscription flows)
func (h *ProgressHandler) RefillHearts(c *gin.Context) {
	snap, err := h.Service.RefillHearts(context.Background(), auth.Token(c), auth.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
