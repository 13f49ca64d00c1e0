// Package handler provides HTTP handlers for the course assistant.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/lectern/internal/lectern/biz"
	"github.com/kart-io/lectern/internal/lectern/chunker"
	"github.com/kart-io/lectern/internal/lectern/metrics"
	"github.com/kart-io/lectern/pkg/llm"
)

// queryTimeout caps one exchange including both model calls.
const queryTimeout = 120 * time.Second

// AssistantHandler handles assistant HTTP requests.
type AssistantHandler struct {
	service biz.Service
	metrics *metrics.AssistantMetrics
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(service biz.Service) *AssistantHandler {
	return &AssistantHandler{
		service: service,
		metrics: metrics.GetAssistantMetrics(),
	}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{Code: status, Message: msg})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: data})
}

// QueryRequest represents a query request.
type QueryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

// Query answers one question inside an optional session.
func (h *AssistantHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	result, err := h.service.Query(ctx, req.SessionID, req.Query)
	if err != nil {
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			fail(c, http.StatusRequestTimeout, "query timed out, please try again or simplify the question")
		case errors.Is(err, llm.ErrUnavailable):
			fail(c, http.StatusServiceUnavailable, err.Error())
		default:
			fail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	ok(c, result)
}

// IndexDocumentRequest carries one raw course document.
type IndexDocumentRequest struct {
	Document string `json:"document" binding:"required"`
}

// IndexDocument ingests a single course document.
func (h *AssistantHandler) IndexDocument(c *gin.Context) {
	var req IndexDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.service.Ingest(c.Request.Context(), req.Document)
	if err != nil {
		if errors.Is(err, chunker.ErrMalformedDocument) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	ok(c, course)
}

// IndexDirectoryRequest represents a directory index request.
type IndexDirectoryRequest struct {
	Directory string `json:"directory" binding:"required"`
}

// IndexDirectory ingests every course document in a local directory.
func (h *AssistantHandler) IndexDirectory(c *gin.Context) {
	var req IndexDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.service.IngestFolder(c.Request.Context(), req.Directory)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	ok(c, gin.H{"courses_ingested": count})
}

// Courses returns corpus analytics.
func (h *AssistantHandler) Courses(c *gin.Context) {
	analytics, err := h.service.Analytics(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	ok(c, analytics)
}

// ResetSession clears one session's history.
func (h *AssistantHandler) ResetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		fail(c, http.StatusBadRequest, "missing session id")
		return
	}

	if err := h.service.ResetSession(c.Request.Context(), sessionID); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	ok(c, nil)
}

// ClearIndex drops every indexed course.
func (h *AssistantHandler) ClearIndex(c *gin.Context) {
	if err := h.service.ClearIndex(c.Request.Context()); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	ok(c, nil)
}

// Stats returns assistant runtime counters.
func (h *AssistantHandler) Stats(c *gin.Context) {
	ok(c, h.metrics.Stats())
}

// Metrics serves the counters in Prometheus text format.
func (h *AssistantHandler) Metrics(c *gin.Context) {
	c.String(http.StatusOK, h.metrics.Export("lectern", "assistant"))
}

// Health reports liveness.
func (h *AssistantHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
