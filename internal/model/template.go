// Package model defines the template data shared by every layer.
package model

import (
	"encoding/json"
	"time"
)

// Template is an email template: a design document produced by the visual
// editor plus the merge-tag variables derived from it.
//
// Content is kept as raw JSON. The store never looks inside it; it only
// checks (at the request boundary) that it is a JSON object.
type Template struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"` // unique, case-sensitive lookup key
	Content   json.RawMessage    `json:"content"`
	Variables []TemplateVariable `json:"variables"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// VariableType is the declared type of a merge-tag variable.
type VariableType string

const (
	VariableString  VariableType = "string"
	VariableNumber  VariableType = "number"
	VariableBoolean VariableType = "boolean"
	VariableDate    VariableType = "date"
)

// VariableTypes lists every accepted VariableType, in display order.
var VariableTypes = []VariableType{VariableString, VariableNumber, VariableBoolean, VariableDate}

// Valid reports whether t is one of the four known types.
func (t VariableType) Valid() bool {
	switch t {
	case VariableString, VariableNumber, VariableBoolean, VariableDate:
		return true
	}
	return false
}

// TemplateVariable is one {{KEY}} placeholder of a template.
//
// WHY FallbackValue *string?
// "no fallback" (NULL) and "empty fallback" ("") are different things at
// render time, so a plain string can't represent both.
//
// A required variable never has a fallback: IsRequired ⇒ FallbackValue == nil.
type TemplateVariable struct {
	ID            int64        `json:"id,omitempty"`
	TemplateID    int64        `json:"templateId,omitempty"`
	Key           string       `json:"key"`
	Type          VariableType `json:"type"`
	FallbackValue *string      `json:"fallbackValue"`
	IsRequired    bool         `json:"isRequired"`
}
