// Package repository defines the storage contract the service depends on.
// The SQLite implementation lives in repository/sqlite.
package repository

import (
	"context"

	"github.com/sakif/template-studio/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// TemplateRepository persists templates together with their variables.
//
// Implementations must make Create and Update all-or-nothing: a template's
// content and its variable set are never observable half-written.
type TemplateRepository interface {
	// Create inserts t and t.Variables, filling in IDs and timestamps.
	// A duplicate name is apperror.ErrConflict.
	Create(ctx context.Context, t *model.Template) error
	GetByID(ctx context.Context, id int64) (*model.Template, error)
	// List returns templates ordered by updated_at, newest first.
	List(ctx context.Context, opts ListOptions) ([]model.Template, error)
	Count(ctx context.Context) (int, error)
	// Update replaces t's content and its whole variable set and advances
	// updated_at. Name and created_at are left alone.
	Update(ctx context.Context, t *model.Template) error
	// Delete removes the template (variables cascade) and returns its name.
	Delete(ctx context.Context, id int64) (string, error)
	ListVariables(ctx context.Context, templateID int64) ([]model.TemplateVariable, error)
	Ping(ctx context.Context) error
}
