package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/template-studio/internal/apperror"
	"github.com/sakif/template-studio/internal/pagination"
	"github.com/sakif/template-studio/internal/service"
	"github.com/sakif/template-studio/internal/validation"
)

// TemplateHandler exposes template CRUD over HTTP.
//
// Each handler follows the same three steps:
//  1. decode + validate the request (nothing reaches the service unvalidated)
//  2. call the service
//  3. writeJSON on success, writeError on failure
type TemplateHandler struct {
	svc    *service.TemplateService
	logger *slog.Logger
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(svc *service.TemplateService, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{
		svc:    svc,
		logger: logger,
	}
}

// DeleteResponse confirms a deletion by name.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// templateID reads the {id} URL parameter.
func templateID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "template ID must be a positive integer")
	}
	return id, nil
}

func (h *TemplateHandler) rejected(r *http.Request, err error) {
	h.logger.Debug("request rejected by validation",
		slog.String("path", r.URL.Path),
		slog.Int("errors", len(apperror.Details(err))),
	)
}

// HandleList returns one page of templates.
//
// HTTP: GET /api/templates?page=2&pageSize=50
//
// Malformed or out-of-range paging parameters are normalized, never rejected.
func (h *TemplateHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := pagination.Parse(q.Get("page"), q.Get("pageSize"))

	result, err := h.svc.List(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleCreate stores a new template.
//
// HTTP: POST /api/templates
// REQUEST BODY: {"name": "welcome", "content": {...}, "variables": [...]}
func (h *TemplateHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(w, r)
	if err != nil {
		h.rejected(r, err)
		writeError(w, err)
		return
	}

	req, err := validation.ValidateCreate(body)
	if err != nil {
		h.rejected(r, err)
		writeError(w, err)
		return
	}

	tmpl, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

// HandleGetByID returns a template with its variables.
//
// HTTP: GET /api/templates/{id}
func (h *TemplateHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := templateID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tmpl, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

// HandleUpdate replaces a template's content and variable set.
//
// HTTP: PUT /api/templates/{id}
// REQUEST BODY: {"content": {...}, "variables": [...]}
//
// A "name" field in the body is a 400: names are fixed at creation.
func (h *TemplateHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := templateID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := decodeBody(w, r)
	if err != nil {
		h.rejected(r, err)
		writeError(w, err)
		return
	}

	req, err := validation.ValidateUpdate(body)
	if err != nil {
		h.rejected(r, err)
		writeError(w, err)
		return
	}

	tmpl, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

// HandleDelete removes a template and its variables.
//
// HTTP: DELETE /api/templates/{id}
// RESPONSE: {"success": true, "message": "Template \"welcome\" deleted"}
func (h *TemplateHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := templateID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	name, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{
		Success: true,
		Message: fmt.Sprintf("Template %q deleted", name),
	})
}
