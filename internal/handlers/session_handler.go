package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"practice-service/internal/auth"
	"practice-service/internal/gateway"
	"practice-service/internal/service"
	"practice-service/internal/session"
)

type SessionHandler struct {
	Service *service.PracticeService
}

func NewSessionHandler(s *service.PracticeService) *SessionHandler {
	return &SessionHandler{Service: s}
}

// OpenSession starts (or resumes) a practice session for a lesson
func (h *SessionHandler) OpenSession(c *gin.Context) {
	lessonID := c.Param("lessonId")
	if lessonID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Lesson ID is required"})
		return
	}

	view, err := h.Service.OpenSession(context.Background(), auth.Token(c), auth.UserID(c), lessonID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetSession retrieves the current session view
func (h *SessionHandler) GetSession(c *gin.Context) {
	view, err := h.Service.GetSession(context.Background(), auth.Token(c), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitAnswer processes one answer for the session's current challenge
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var req struct {
		ChallengeID      string `json:"challenge_id" binding:"required"`
		SelectedOptionID string `json:"selected_option_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	outcome, err := h.Service.SubmitAnswer(
		context.Background(),
		auth.Token(c),
		auth.UserID(c),
		c.Param("id"),
		req.ChallengeID,
		req.SelectedOptionID,
	)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ExitSession abandons the session; without confirm it only proposes the exit
func (h *SessionHandler) ExitSession(c *gin.Context) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	// An empty body means an unconfirmed exit.
	_ = c.ShouldBindJSON(&req)

	m, err := h.Service.ExitSession(context.Background(), auth.UserID(c), c.Param("id"), req.Confirm)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modal": m})
}

// DismissModal acknowledges the session's current dialog
func (h *SessionHandler) DismissModal(c *gin.Context) {
	m, err := h.Service.DismissModal(context.Background(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modal": m})
}

// writeServiceError maps service and gateway errors onto HTTP statuses.
// Retryable failures surface as 502 with a retryable flag so the UI can show
// the try-again affordance without losing the retained selection.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Session belongs to another user"})
	case errors.Is(err, service.ErrSessionClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "Session is already finished"})
	case errors.Is(err, service.ErrWrongChallenge):
		c.JSON(http.StatusConflict, gin.H{"error": "Challenge is not the session's current one"})
	case errors.Is(err, service.ErrAnswerInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "Another answer is already being processed"})
	case errors.Is(err, session.ErrUnknownOption):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Option does not belong to the current challenge"})
	case errors.Is(err, gateway.ErrMissingToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication token is required"})
	case gateway.IsRetryable(err):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "Learning backend is unavailable",
			"retryable": true,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Request failed",
			"details": err.Error(),
		})
	}
}
