package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bigyanadk07/BugTracker/query"
)

// Kind is how a field's values compare.
type Kind int

// Field kinds.
const (
	KindString Kind = iota
	KindTime
)

// Field maps a wire field name to its column.
type Field struct {
	Name   string
	Column string
	Kind   Kind
}

var bugFields = map[string]Field{
	"id":          {Name: "id", Column: "id", Kind: KindString},
	"title":       {Name: "title", Column: "title", Kind: KindString},
	"description": {Name: "description", Column: "description", Kind: KindString},
	"priority":    {Name: "priority", Column: "priority", Kind: KindString},
	"status":      {Name: "status", Column: "status", Kind: KindString},
	"createdBy":   {Name: "createdBy", Column: "created_by", Kind: KindString},
	"assignedTo":  {Name: "assignedTo", Column: "assigned_to", Kind: KindString},
	"createdAt":   {Name: "createdAt", Column: "created_at", Kind: KindTime},
	"updatedAt":   {Name: "updatedAt", Column: "updated_at", Kind: KindTime},
}

// BugField resolves a filterable or sortable bug field.
func BugField(name string) (Field, error) {
	field, ok := bugFields[name]
	if !ok {
		return Field{}, fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, name)
	}
	return field, nil
}

// CheckOperator rejects operators the stores do not evaluate.
func CheckOperator(op string) error {
	switch op {
	case query.OpEq, query.OpIn, query.OpGt, query.OpGte, query.OpLt, query.OpLte:
		return nil
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, op)
	}
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseTime reads a comparison value for a time field: RFC 3339, a bare
// date, or unix milliseconds.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a time", ErrInvalidQuery, raw)
}
