// internal/controller/message_controller.go
package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/helpflow-backend/internal/middleware"
	"github.com/unclebandit/helpflow-backend/internal/service"
)

type MessageController struct {
	MessageService *service.MessageService
	ProfileService *service.ProfileService
}

// GenerateMessage handles POST /api/ai/generate-message.
func (c *MessageController) GenerateMessage(w http.ResponseWriter, r *http.Request) {
	var req service.GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.OwnerClerkID = middleware.SubjectFromContext(r.Context())

	result, err := c.MessageService.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err, "Failed to generate message")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListMessages handles GET /api/messages?userId=&page=&page_size=&status=.
func (c *MessageController) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := c.ProfileService.ListMessages(r.Context(),
		q.Get("userId"),
		middleware.SubjectFromContext(r.Context()),
		page, pageSize,
		q.Get("status"),
	)
	if err != nil {
		writeError(w, r, err, "Failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetMessage handles GET /api/messages/{id}.
func (c *MessageController) GetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := c.MessageService.GetMessage(r.Context(), chi.URLParam(r, "id"), middleware.SubjectFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err, "Failed to load message")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
