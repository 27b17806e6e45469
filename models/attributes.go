package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Attributes is the flattened attribute set of one element. Keys present in
// the map always carry a meaningful (non-null) value.
type Attributes map[string]Value

func (a Attributes) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return Object(a).MarshalJSON()
}

// UnmarshalJSON drops null members, so presence keeps meaning "has a value"
func (a *Attributes) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make(Attributes, len(raw))
	for k, msg := range raw {
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		var v Value
		if err := v.UnmarshalJSON(msg); err != nil {
			return fmt.Errorf("attribute %q: %w", k, err)
		}
		if v.IsValid() {
			result[k] = v
		}
	}
	*a = result
	return nil
}

func (a Attributes) Equal(o Attributes) bool {
	return Object(a).Equal(Object(o))
}

// Value implements the driver.Valuer interface for database storage
func (a Attributes) Value() (driver.Value, error) {
	b, err := a.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database retrieval
func (a *Attributes) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = Attributes{}
		return nil
	case []byte:
		return a.UnmarshalJSON(v)
	case string:
		return a.UnmarshalJSON([]byte(v))
	}
	return fmt.Errorf("cannot scan %T into Attributes", value)
}

func (Attributes) GormDataType() string {
	return "json"
}

func (Attributes) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	}
	return "TEXT"
}
