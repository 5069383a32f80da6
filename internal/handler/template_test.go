package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/template-studio/internal/handler"
	"github.com/sakif/template-studio/internal/model"
	sqliteRepo "github.com/sakif/template-studio/internal/repository/sqlite"
	"github.com/sakif/template-studio/internal/service"
)

// newTestRouter wires a real in-memory database behind the handlers, the
// same way the server does.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := service.NewTemplateService(db, logger)
	th := handler.NewTemplateHandler(svc, logger)
	mh := handler.NewMergeTagHandler(logger)
	hh := handler.NewHealthHandler(svc, logger)

	r := chi.NewRouter()
	r.Get("/healthz", hh.HandleHealth)
	r.Get("/api/templates", th.HandleList)
	r.Post("/api/templates", th.HandleCreate)
	r.Get("/api/templates/{id}", th.HandleGetByID)
	r.Put("/api/templates/{id}", th.HandleUpdate)
	r.Delete("/api/templates/{id}", th.HandleDelete)
	r.Post("/api/merge-tags", mh.HandleExtract)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeTemplate(t *testing.T, rr *httptest.ResponseRecorder) model.Template {
	t.Helper()
	var tmpl model.Template
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&tmpl))
	return tmpl
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var res handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	return res
}

func createTemplate(t *testing.T, h http.Handler, body string) model.Template {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/api/templates", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeTemplate(t, rr)
}

const welcomeBody = `{
	"name": "welcome",
	"content": {"body": {"rows": []}, "counters": {"u_row": 12345678901234567890}},
	"variables": [{"key": "NAME", "type": "string", "fallbackValue": "Friend", "isRequired": false}]
}`

func TestTemplateHandler_Create(t *testing.T) {
	h := newTestRouter(t)

	t.Run("valid template", func(t *testing.T) {
		tmpl := createTemplate(t, h, welcomeBody)

		assert.NotZero(t, tmpl.ID)
		assert.Equal(t, "welcome", tmpl.Name)
		assert.JSONEq(t, `{"body":{"rows":[]},"counters":{"u_row":12345678901234567890}}`, string(tmpl.Content))
		require.Len(t, tmpl.Variables, 1)
		assert.Equal(t, "NAME", tmpl.Variables[0].Key)
		require.NotNil(t, tmpl.Variables[0].FallbackValue)
		assert.Equal(t, "Friend", *tmpl.Variables[0].FallbackValue)
	})

	t.Run("duplicate name", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/templates", welcomeBody)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "conflict", decodeError(t, rr).Error)
	})

	t.Run("collects every validation error", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/templates", `{
			"name": "bad name!",
			"content": [],
			"variables": [{"key": "lower", "type": "text"}]
		}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		res := decodeError(t, rr)
		assert.Equal(t, "validation_error", res.Error)
		assert.Len(t, res.Details, 4)
	})

	t.Run("required variable with fallback", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/templates", `{
			"name": "req",
			"content": {},
			"variables": [{"key": "CODE", "type": "string", "fallbackValue": "x", "isRequired": true}]
		}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/templates", `{"name":`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "request body must be valid JSON", decodeError(t, rr).Message)
	})

	t.Run("trailing data", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/templates", `{"name":"a","content":{}} {}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("body is not an object", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/templates", `[1,2]`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "request body must be a JSON object", decodeError(t, rr).Message)
	})
}

func TestTemplateHandler_Get(t *testing.T) {
	h := newTestRouter(t)
	created := createTemplate(t, h, welcomeBody)

	t.Run("found", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, fmt.Sprintf("/api/templates/%d", created.ID), "")

		assert.Equal(t, http.StatusOK, rr.Code)
		got := decodeTemplate(t, rr)
		assert.Equal(t, created.Name, got.Name)
		assert.Equal(t, created.Variables, got.Variables)
	})

	t.Run("not found", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/templates/9999", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "template not found with id 9999", decodeError(t, rr).Message)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/templates/abc", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("zero id", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/templates/0", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestTemplateHandler_List(t *testing.T) {
	h := newTestRouter(t)
	for i := 0; i < 3; i++ {
		createTemplate(t, h, fmt.Sprintf(`{"name":"t%d","content":{}}`, i))
	}

	type listResponse struct {
		Items      []model.Template `json:"items"`
		Pagination struct {
			Page       int `json:"page"`
			PageSize   int `json:"pageSize"`
			TotalCount int `json:"totalCount"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	}

	t.Run("default page", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/templates", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var res listResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		require.Len(t, res.Items, 3)
		names := []string{res.Items[0].Name, res.Items[1].Name, res.Items[2].Name}
		assert.ElementsMatch(t, []string{"t0", "t1", "t2"}, names)
		assert.Equal(t, 1, res.Pagination.Page)
		assert.Equal(t, 20, res.Pagination.PageSize)
		assert.Equal(t, 3, res.Pagination.TotalCount)
		assert.Equal(t, 1, res.Pagination.TotalPages)
	})

	t.Run("page size and page", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/templates?page=2&pageSize=2", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var res listResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Len(t, res.Items, 1)
		assert.Equal(t, 2, res.Pagination.TotalPages)
	})

	t.Run("past the end", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/templates?page=9", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var res listResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.NotNil(t, res.Items)
		assert.Empty(t, res.Items)
		assert.Equal(t, 9, res.Pagination.Page)
		assert.Equal(t, 3, res.Pagination.TotalCount)
	})

	t.Run("malformed parameters fall back to defaults", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/api/templates?page=x&pageSize=-4", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var res listResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, 1, res.Pagination.Page)
		assert.Equal(t, 20, res.Pagination.PageSize)
	})
}

func TestTemplateHandler_Update(t *testing.T) {
	h := newTestRouter(t)
	created := createTemplate(t, h, welcomeBody)
	path := fmt.Sprintf("/api/templates/%d", created.ID)

	t.Run("replaces content and variables", func(t *testing.T) {
		rr := do(t, h, http.MethodPut, path, `{
			"content": {"v": 2},
			"variables": [
				{"key": "ORDER_2", "type": "number", "isRequired": true},
				{"key": "DATE", "type": "date"}
			]
		}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		got := decodeTemplate(t, rr)
		assert.Equal(t, "welcome", got.Name)
		assert.JSONEq(t, `{"v":2}`, string(got.Content))
		require.Len(t, got.Variables, 2)
		assert.Equal(t, "ORDER_2", got.Variables[0].Key)
		assert.True(t, got.Variables[0].IsRequired)
		assert.Equal(t, "DATE", got.Variables[1].Key)
		assert.False(t, got.UpdatedAt.Before(created.UpdatedAt))
	})

	t.Run("omitted variables clear the set", func(t *testing.T) {
		rr := do(t, h, http.MethodPut, path, `{"content": {"v": 3}}`)
		require.Equal(t, http.StatusOK, rr.Code)

		assert.Empty(t, decodeTemplate(t, rr).Variables)
	})

	t.Run("invalid content", func(t *testing.T) {
		rr := do(t, h, http.MethodPut, path, `{"content": null}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("name cannot be changed", func(t *testing.T) {
		rr := do(t, h, http.MethodPut, path, `{"name": "renamed", "content": {"v": 9}}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "name cannot be changed after creation", decodeError(t, rr).Message)

		after := decodeTemplate(t, do(t, h, http.MethodGet, path, ""))
		assert.Equal(t, "welcome", after.Name)
		assert.JSONEq(t, `{"v":3}`, string(after.Content))
	})

	t.Run("duplicate keys are rejected before storage", func(t *testing.T) {
		rr := do(t, h, http.MethodPut, path, `{
			"content": {},
			"variables": [{"key": "A", "type": "string"}, {"key": "A", "type": "string"}]
		}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		after := decodeTemplate(t, do(t, h, http.MethodGet, path, ""))
		assert.JSONEq(t, `{"v":3}`, string(after.Content))
	})

	t.Run("not found", func(t *testing.T) {
		rr := do(t, h, http.MethodPut, "/api/templates/9999", `{"content": {}}`)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestTemplateHandler_Delete(t *testing.T) {
	h := newTestRouter(t)
	created := createTemplate(t, h, welcomeBody)
	path := fmt.Sprintf("/api/templates/%d", created.ID)

	rr := do(t, h, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var res handler.DeleteResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.True(t, res.Success)
	assert.Equal(t, `Template "welcome" deleted`, res.Message)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/api/templates/x", "").Code)
}

func TestMergeTagHandler_Extract(t *testing.T) {
	h := newTestRouter(t)

	t.Run("dedups in first-seen order", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/merge-tags",
			`{"html": "Hi {{NAME}}, your code is {{NAME}} and {{CODE}}"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		var res handler.MergeTagResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		require.Len(t, res.Variables, 2)
		assert.Equal(t, "NAME", res.Variables[0].Key)
		assert.Equal(t, "CODE", res.Variables[1].Key)
		assert.Equal(t, model.VariableString, res.Variables[1].Type)
		assert.Nil(t, res.Variables[1].FallbackValue)
	})

	t.Run("no tags", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/merge-tags", `{"html": "<p>plain</p>"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"variables":[]}`, rr.Body.String())
	})

	t.Run("html must be a string", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/api/merge-tags", `{"html": 5}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
