// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → decodes JSON, runs the request validators, writes responses
//	Service (Business layer) → orchestrates persistence, logs business events
//	Repository (Data layer)  → reads/writes SQLite
//
// The service receives requests that have ALREADY been validated
// (validation.CreateRequest / UpdateRequest). It never re-checks fields; it
// only enforces what needs the database: existence and uniqueness.
//
// DEPENDENCY INJECTION:
// TemplateService takes a repository.TemplateRepository (interface), not a
// *sqlite.DB, so tests can hand it an in-memory fake.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/template-studio/internal/apperror"
	"github.com/sakif/template-studio/internal/model"
	"github.com/sakif/template-studio/internal/pagination"
	"github.com/sakif/template-studio/internal/repository"
	"github.com/sakif/template-studio/internal/validation"
)

// TemplateService handles business logic for email templates.
type TemplateService struct {
	repo   repository.TemplateRepository
	logger *slog.Logger
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(repo repository.TemplateRepository, logger *slog.Logger) *TemplateService {
	return &TemplateService{
		repo:   repo,
		logger: logger,
	}
}

// ListResult is one page of templates plus paging metadata.
type ListResult struct {
	Items      []model.Template `json:"items"`
	Pagination pagination.Meta  `json:"pagination"`
}

// storageErr passes typed application errors (NotFound, Conflict, ...)
// through unchanged and turns anything else into an opaque StorageError.
func storageErr(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Storage(op, err)
}

func validID(id int64) error {
	if id <= 0 {
		return apperror.ValidationFailed("id", "template ID must be a positive integer")
	}
	return nil
}

// Create stores a new template with its initial variables.
// Returns apperror.ErrConflict if the name is taken.
func (s *TemplateService) Create(ctx context.Context, req validation.CreateRequest) (*model.Template, error) {
	tmpl := &model.Template{
		Name:      req.Name,
		Content:   req.Content,
		Variables: req.Variables,
	}

	if err := s.repo.Create(ctx, tmpl); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.Info("template name already taken", slog.String("name", req.Name))
			return nil, err
		}
		s.logger.Error("failed to create template",
			slog.String("name", req.Name),
			slog.String("error", err.Error()),
		)
		return nil, storageErr("creating template", err)
	}

	s.logger.Info("template created",
		slog.Int64("id", tmpl.ID),
		slog.String("name", tmpl.Name),
		slog.Int("variables", len(tmpl.Variables)),
	)
	return tmpl, nil
}

// GetByID returns a template with its variables.
// Returns apperror.ErrNotFound if it doesn't exist.
func (s *TemplateService) GetByID(ctx context.Context, id int64) (*model.Template, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	tmpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		// NotFound is a normal outcome; only log real failures.
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to get template",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, storageErr("reading template", err)
	}
	return tmpl, nil
}

// List returns the requested page, most recently updated first. A page past
// the end is not an error: it has no items and normal metadata.
func (s *TemplateService) List(ctx context.Context, p pagination.Params) (*ListResult, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count templates", slog.String("error", err.Error()))
		return nil, storageErr("counting templates", err)
	}

	items := []model.Template{}
	if p.Offset < total {
		items, err = s.repo.List(ctx, repository.ListOptions{
			Limit:  p.PageSize,
			Offset: p.Offset,
		})
		if err != nil {
			s.logger.Error("failed to list templates", slog.String("error", err.Error()))
			return nil, storageErr("listing templates", err)
		}
	}

	return &ListResult{
		Items:      items,
		Pagination: pagination.NewMeta(p, total),
	}, nil
}

// Update replaces a template's content and its full variable set in one
// transaction, then returns the template as stored.
//
// STRATEGY: "check, write, re-read"
//  1. GetByID: a missing template is NotFound before any write starts
//  2. repo.Update: content + delete variables + insert variables, atomically
//  3. GetByID again: the response shows exactly what was committed
//
// There is no version check: two concurrent updates both succeed and the
// last commit wins.
func (s *TemplateService) Update(ctx context.Context, id int64, req validation.UpdateRequest) (*model.Template, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	tmpl := &model.Template{
		ID:        id,
		Content:   req.Content,
		Variables: req.Variables,
	}
	if err := s.repo.Update(ctx, tmpl); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("template update rolled back",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, storageErr("updating template", err)
	}

	updated, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("template updated",
		slog.Int64("id", updated.ID),
		slog.String("name", updated.Name),
		slog.Int("variables", len(updated.Variables)),
	)
	return updated, nil
}

// Delete removes a template and its variables and returns the template's name.
func (s *TemplateService) Delete(ctx context.Context, id int64) (string, error) {
	if err := validID(id); err != nil {
		return "", err
	}

	name, err := s.repo.Delete(ctx, id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to delete template",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return "", storageErr("deleting template", err)
	}

	s.logger.Info("template deleted", slog.Int64("id", id), slog.String("name", name))
	return name, nil
}

// Ping reports whether the store is reachable.
func (s *TemplateService) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return storageErr("pinging database", err)
	}
	return nil
}
