package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is the open-ended stage_metadata map accumulated across every
// stage a lead has passed through. It is merge-only: transitions add keys
// via Merge, never delete prior ones.
type Metadata map[string]any

// Merge returns the union of m and update without touching either input.
// Keys in update win on conflict.
func (m Metadata) Merge(update Metadata) Metadata {
	out := make(Metadata, len(m)+len(update))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}

// Has reports whether key carries a usable value. Missing keys, nil and
// the empty string are absent; false and 0 are present.
func (m Metadata) Has(key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}

// Bool returns the value under key only when it is literally boolean true.
func (m Metadata) Bool(key string) bool {
	v, _ := m[key].(bool)
	return v
}

func (m Metadata) String(key string) string {
	v, _ := m[key].(string)
	return v
}

// Date parses the value under key as a calendar date.
func (m Metadata) Date(key string) (Date, bool) {
	if !m.Has(key) {
		return Date{}, false
	}
	s, ok := m[key].(string)
	if !ok {
		return Date{}, false
	}
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, false
	}
	return d, true
}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		if len(v) == 0 {
			*m = Metadata{}
			return nil
		}
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("cannot scan %T into Metadata", src)
}
