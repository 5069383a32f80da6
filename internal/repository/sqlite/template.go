package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/template-studio/internal/apperror"
	"github.com/sakif/template-studio/internal/model"
	"github.com/sakif/template-studio/internal/repository"
)

// Compile-time check that *DB implements repository.TemplateRepository.
var _ repository.TemplateRepository = (*DB)(nil)

// queryer is the part of *sql.DB and *sql.Tx the read helpers need, so the
// same code can run inside or outside a transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// now is UTC so that updated_at values stored as text sort chronologically.
func now() time.Time {
	return time.Now().UTC()
}

// Create inserts the template row and its variable rows in one transaction.
//
// On success t carries its new ID and timestamps, and every variable carries
// its ID and TemplateID. A name that is already taken returns
// apperror.ErrConflict and nothing is written.
func (db *DB) Create(ctx context.Context, t *model.Template) error {
	ts := now()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO templates (name, content, created_at, updated_at)
			 VALUES (?, ?, ?, ?)`,
			t.Name,
			string(t.Content),
			ts,
			ts,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("template", t.Name)
			}
			return fmt.Errorf("sqlite: creating template %q: %w", t.Name, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new template id: %w", err)
		}

		vars, err := insertVariables(ctx, tx, id, t.Variables)
		if err != nil {
			return err
		}

		t.ID = id
		t.Variables = vars
		return nil
	})
	if err != nil {
		return err
	}

	t.CreatedAt = ts
	t.UpdatedAt = ts
	return nil
}

// GetByID returns the template with its variables attached.
//
// Both reads run in one transaction so a concurrent Update can't slip in
// between them and pair old content with new variables.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Template, error) {
	var t *model.Template

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		found, err := getTemplate(ctx, tx, id)
		if err != nil {
			return err
		}
		vars, err := listVariables(ctx, tx, id)
		if err != nil {
			return err
		}
		found.Variables = vars
		t = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns one page of templates, most recently updated first.
// Ties on updated_at fall back to id, so the order is stable.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Template, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	templates := make([]model.Template, 0, limit)

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, name, content, created_at, updated_at
			 FROM templates
			 ORDER BY updated_at DESC, id ASC
			 LIMIT ? OFFSET ?`,
			limit,
			offset,
		)
		if err != nil {
			return fmt.Errorf("sqlite: listing templates: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTemplate(rows)
			if err != nil {
				return fmt.Errorf("sqlite: scanning template row: %w", err)
			}
			templates = append(templates, *t)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("sqlite: iterating templates: %w", err)
		}
		// Release the connection's statement before issuing the next query.
		rows.Close()

		return attachVariables(ctx, tx, templates)
	})
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// Count returns the total number of templates.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting templates: %w", err)
	}
	return n, nil
}

// Update is the content/variable re-sync transaction:
//
//  1. UPDATE the content and set updated_at to now
//  2. DELETE every variable row of the template
//  3. INSERT the new variable rows
//
// All three commit together or not at all. If any step fails the template
// keeps its old content, variables and updated_at.
//
// t.Name and t.CreatedAt are ignored. On success t.UpdatedAt and the
// variables' IDs are filled in.
func (db *DB) Update(ctx context.Context, t *model.Template) error {
	ts := now()

	var vars []model.TemplateVariable
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE templates SET content = ?, updated_at = ? WHERE id = ?`,
			string(t.Content),
			ts,
			t.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating template %d: %w", t.ID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("template", t.ID)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM template_variables WHERE template_id = ?`, t.ID,
		); err != nil {
			return fmt.Errorf("sqlite: clearing variables of template %d: %w", t.ID, err)
		}

		vars, err = insertVariables(ctx, tx, t.ID, t.Variables)
		return err
	})
	if err != nil {
		return err
	}

	t.UpdatedAt = ts
	t.Variables = vars
	return nil
}

// Delete removes a template and returns its name. The foreign key's
// ON DELETE CASCADE removes the variables in the same statement.
func (db *DB) Delete(ctx context.Context, id int64) (string, error) {
	var name string
	err := db.conn.QueryRowContext(ctx,
		`DELETE FROM templates WHERE id = ? RETURNING name`, id,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NotFound("template", id)
		}
		return "", fmt.Errorf("sqlite: deleting template %d: %w", id, err)
	}
	return name, nil
}

// ListVariables returns the variable rows of a template, in insertion order.
// It does not check that the template exists.
func (db *DB) ListVariables(ctx context.Context, templateID int64) ([]model.TemplateVariable, error) {
	return listVariables(ctx, db.conn, templateID)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(s scanner) (*model.Template, error) {
	var (
		t       model.Template
		content string
	)
	if err := s.Scan(&t.ID, &t.Name, &content, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Content = json.RawMessage(content)
	return &t, nil
}

func getTemplate(ctx context.Context, q queryer, id int64) (*model.Template, error) {
	t, err := scanTemplate(q.QueryRowContext(ctx,
		`SELECT id, name, content, created_at, updated_at
		 FROM templates
		 WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("template", id)
		}
		return nil, fmt.Errorf("sqlite: getting template %d: %w", id, err)
	}
	return t, nil
}

func scanVariable(s scanner) (model.TemplateVariable, error) {
	var (
		v        model.TemplateVariable
		typ      string
		fallback sql.NullString
	)
	if err := s.Scan(&v.ID, &v.TemplateID, &v.Key, &typ, &fallback, &v.IsRequired); err != nil {
		return v, err
	}
	v.Type = model.VariableType(typ)
	if fallback.Valid {
		fb := fallback.String
		v.FallbackValue = &fb
	}
	return v, nil
}

const variableColumns = `id, template_id, key, type, fallback_value, is_required`

func listVariables(ctx context.Context, q queryer, templateID int64) ([]model.TemplateVariable, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+variableColumns+`
		 FROM template_variables
		 WHERE template_id = ?
		 ORDER BY id`,
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing variables of template %d: %w", templateID, err)
	}
	defer rows.Close()

	vars := []model.TemplateVariable{}
	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning variable row: %w", err)
		}
		vars = append(vars, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating variables: %w", err)
	}
	return vars, nil
}

// attachVariables loads the variables of every template in one query.
func attachVariables(ctx context.Context, q queryer, templates []model.Template) error {
	if len(templates) == 0 {
		return nil
	}

	index := make(map[int64]int, len(templates))
	args := make([]any, 0, len(templates))
	for i := range templates {
		templates[i].Variables = []model.TemplateVariable{}
		index[templates[i].ID] = i
		args = append(args, templates[i].ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	rows, err := q.QueryContext(ctx,
		`SELECT `+variableColumns+`
		 FROM template_variables
		 WHERE template_id IN (`+placeholders+`)
		 ORDER BY id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: listing variables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return fmt.Errorf("sqlite: scanning variable row: %w", err)
		}
		i := index[v.TemplateID]
		templates[i].Variables = append(templates[i].Variables, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating variables: %w", err)
	}
	return nil
}

// insertVariables writes vars for templateID and returns copies carrying
// their new IDs. It must run inside the caller's transaction.
func insertVariables(ctx context.Context, tx *sql.Tx, templateID int64, vars []model.TemplateVariable) ([]model.TemplateVariable, error) {
	out := make([]model.TemplateVariable, 0, len(vars))
	if len(vars) == 0 {
		return out, nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO template_variables (template_id, key, type, fallback_value, is_required)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: preparing variable insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range vars {
		var fallback any // NULL unless a fallback was given
		if v.FallbackValue != nil {
			fallback = *v.FallbackValue
		}
		result, err := stmt.ExecContext(ctx, templateID, v.Key, string(v.Type), fallback, v.IsRequired)
		if err != nil {
			return nil, fmt.Errorf("sqlite: inserting variable %s of template %d: %w", v.Key, templateID, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("sqlite: reading new variable id: %w", err)
		}
		v.ID = id
		v.TemplateID = templateID
		out = append(out, v)
	}
	return out, nil
}
