package models

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Record is a schema-less item of a market-data table. It is the escape hatch
// used by admin tooling and the generic data API; security-relevant entities
// (User, OTP) never travel as Records.
type Record map[string]any

// Reserved attributes managed by the repository and soft delete.
const (
	FieldID             = "id"
	FieldCreatedAt      = "created_at"
	FieldUpdatedAt      = "updated_at"
	FieldIsDeleted      = "is_deleted"
	FieldDeletedAt      = "deleted_at"
	FieldDeletedBy      = "deleted_by_admin"
	FieldCreatedBy      = "created_by"
	FieldCreatedByAdmin = "created_by_admin"
	FieldUpdatedByAdmin = "updated_by_admin"
)

func (r Record) ID() string {
	return r.String(FieldID)
}

// String renders field as a string, "" when absent.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Float reads a numeric field. Stored values may be numbers or strings with
// thousands separators ("1,234.5"); anything unparsable reads as 0.
func (r Record) Float(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Strings reads a list field, keeping only its string elements.
func (r Record) Strings(field string) []string {
	switch v := r[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (r Record) Bool(field string) bool {
	switch v := r[field].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Deleted reports whether the record was soft-deleted.
func (r Record) Deleted() bool {
	return r.Bool(FieldIsDeleted)
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// Contains reports whether the string form of field contains value,
// case-insensitively.
func (r Record) Contains(field, value string) bool {
	return strings.Contains(strings.ToLower(r.String(field)), strings.ToLower(value))
}
