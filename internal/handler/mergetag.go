// Package handler contains the HTTP handlers of the template API.
//
// Handlers are the glue between HTTP and the service layer: they parse the
// request, run the request validators, call the service and write the
// response. They hold no business rules of their own.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/template-studio/internal/apperror"
	"github.com/sakif/template-studio/internal/mergetag"
	"github.com/sakif/template-studio/internal/model"
)

// MergeTagHandler runs the merge-tag extractor for clients that export HTML
// but do not scan it themselves.
type MergeTagHandler struct {
	logger *slog.Logger
}

// NewMergeTagHandler creates a new MergeTagHandler.
func NewMergeTagHandler(logger *slog.Logger) *MergeTagHandler {
	return &MergeTagHandler{logger: logger}
}

// MergeTagResponse lists the inferred variables. They are suggestions: the
// client submits them with the template and they are validated there.
type MergeTagResponse struct {
	Variables []model.TemplateVariable `json:"variables"`
}

// HandleExtract scans exported HTML for {{TOKEN}} placeholders.
//
// HTTP: POST /api/merge-tags
// REQUEST BODY: {"html": "<p>Hi {{NAME}}</p>"}
func (h *MergeTagHandler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	obj, ok := body.(map[string]any)
	if !ok {
		writeError(w, apperror.ValidationFailed("body", "request body must be a JSON object"))
		return
	}
	html, ok := obj["html"].(string)
	if !ok {
		writeError(w, apperror.ValidationFailed("html", "html must be a string"))
		return
	}

	vars := mergetag.Extract(html)
	h.logger.Debug("merge tags extracted", slog.Int("variables", len(vars)))
	writeJSON(w, http.StatusOK, MergeTagResponse{Variables: vars})
}
