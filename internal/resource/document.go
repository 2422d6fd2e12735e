// Package resource holds what the student and rockie resources share: the
// free-form JSON document stored next to the identity columns and the
// dotted-path patch rules applied to it.
package resource

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Document is a JSON object persisted as JSONB.
type Document map[string]any

// Value implements driver.Valuer.
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(map[string]any(d))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Scan implements sql.Scanner.
func (d *Document) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = Document{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("document: unsupported scan type %T", src)
	}
	out := Document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("document: %w", err)
		}
	}
	*d = out
	return nil
}

// Clone returns a deep copy so a patch can be applied without touching the
// record that was read.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return cloneMap(d)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Document:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
