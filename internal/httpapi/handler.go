package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"dormguide/internal/index"
	"dormguide/internal/log"
	"dormguide/internal/service"
	"dormguide/internal/session"
)

// Guide is the service surface the API exposes.
type Guide interface {
	Ask(ctx context.Context, req service.AskRequest) (*service.AskResponse, error)
	Dorms() ([]service.DormEntry, error)
	Dorm(id string) (*service.DormEntry, error)
	Rebuild() (index.BuildResult, error)
	Status() index.Status
	History(sessionID string) []session.Turn
}

// Handler serves the dormguide endpoints.
type Handler struct {
	guide  Guide
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(guide Guide) *Handler {
	return &Handler{
		guide:  guide,
		logger: log.NewModuleLogger("http", "handler"),
	}
}

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
	Expand    bool   `json:"expand,omitempty"`
}

// Ask answers a question.
// POST /api/v1/ask
func (h *Handler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, CodeBadRequest, "invalid request: "+err.Error())
		return
	}
	resp, err := h.guide.Ask(c.Request.Context(), service.AskRequest{
		Question:  req.Question,
		SessionID: req.SessionID,
		Expand:    req.Expand,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuestion) {
			failure(c, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
		h.logger.Error("Ask failed", "error", err)
		failure(c, http.StatusInternalServerError, CodeInternal, "failed to answer question")
		return
	}
	success(c, resp)
}

// ListDorms lists the dorms found in the corpus.
// GET /api/v1/dorms
func (h *Handler) ListDorms(c *gin.Context) {
	dorms, err := h.guide.Dorms()
	if err != nil {
		h.logger.Error("List dorms failed", "error", err)
		failure(c, http.StatusInternalServerError, CodeInternal, "failed to list dorms")
		return
	}
	success(c, dorms)
}

// GetDorm returns one dorm.
// GET /api/v1/dorms/:id
func (h *Handler) GetDorm(c *gin.Context) {
	dorm, err := h.guide.Dorm(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDormNotFound) {
			failure(c, http.StatusNotFound, CodeNotFound, "dorm not found")
			return
		}
		h.logger.Error("Get dorm failed", "id", c.Param("id"), "error", err)
		failure(c, http.StatusInternalServerError, CodeInternal, "failed to load dorm")
		return
	}
	success(c, dorm)
}

// RebuildIndex rebuilds the index.
// POST /api/v1/index/rebuild
func (h *Handler) RebuildIndex(c *gin.Context) {
	res, err := h.guide.Rebuild()
	if err != nil {
		h.logger.Error("Rebuild failed", "error", err)
		failure(c, http.StatusInternalServerError, CodeInternal, "index rebuild failed: "+err.Error())
		return
	}
	success(c, res)
}

// IndexStatus reports the index state.
// GET /api/v1/index/status
func (h *Handler) IndexStatus(c *gin.Context) {
	success(c, h.guide.Status())
}

// SessionHistory returns the turns of a session.
// GET /api/v1/sessions/:id/history
func (h *Handler) SessionHistory(c *gin.Context) {
	id := c.Param("id")
	success(c, gin.H{
		"session_id": id,
		"history":    h.guide.History(id),
	})
}
