package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FieldConfig describes one mandatory-field entry on a pipeline stage.
// Label/Type/Options are passed through for form rendering; only Required
// matters to validation.
type FieldConfig struct {
	Label    string   `json:"label,omitempty"`
	Type     string   `json:"type,omitempty"`
	Options  []string `json:"options,omitempty"`
	Required *bool    `json:"required,omitempty"`
}

// IsRequired treats an unset flag as required; only an explicit
// required:false makes a field optional.
func (c FieldConfig) IsRequired() bool {
	return c.Required == nil || *c.Required
}

// FieldSpec is the normalized mandatory_fields form: field name -> config.
// The column stores either a JSON array of names (shorthand, every member
// required) or an object of name -> config; both decode into this one shape.
type FieldSpec map[string]FieldConfig

func (s *FieldSpec) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err == nil {
		out := make(FieldSpec, len(names))
		for _, name := range names {
			out[name] = FieldConfig{}
		}
		*s = out
		return nil
	}

	var byName map[string]FieldConfig
	if err := json.Unmarshal(b, &byName); err != nil {
		return fmt.Errorf("mandatory_fields must be a list of names or a name->config map: %w", err)
	}
	*s = FieldSpec(byName)
	return nil
}

func (s FieldSpec) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]FieldConfig(s))
}

func (s *FieldSpec) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = FieldSpec{}
		return nil
	case []byte:
		if len(v) == 0 {
			*s = FieldSpec{}
			return nil
		}
		return s.UnmarshalJSON(v)
	case string:
		return s.UnmarshalJSON([]byte(v))
	}
	return fmt.Errorf("cannot scan %T into FieldSpec", src)
}
