package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time interface assertions.
// These ensure all JSONB types implement both sql.Scanner and driver.Valuer,
// catching any method signature drift at compile time rather than at runtime.
// Scan is on pointer receivers; Value is on value receivers.
var (
	_ sql.Scanner   = (*PlanLimites)(nil)
	_ driver.Valuer = PlanLimites{}
	_ sql.Scanner   = (*Endereco)(nil)
	_ driver.Valuer = Endereco{}
	_ sql.Scanner   = (*Branding)(nil)
	_ driver.Valuer = Branding{}
	_ sql.Scanner   = (*IntegracaoConfig)(nil)
	_ driver.Valuer = IntegracaoConfig(nil)
)

// scanJSONB is a generic helper that scans a JSONB database value into a Go pointer.
// It handles nil values, []byte, and string representations from different database drivers.
func scanJSONB(dest interface{}, value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// valueJSONB is a generic helper that converts a Go value to a JSONB-compatible driver.Value.
// Returns nil for nil interface values; otherwise marshals to JSON bytes.
func valueJSONB(v interface{}) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (l *PlanLimites) Scan(value interface{}) error {
	return scanJSONB(l, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (l PlanLimites) Value() (driver.Value, error) {
	return valueJSONB(l)
}

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (e *Endereco) Scan(value interface{}) error {
	return scanJSONB(e, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (e Endereco) Value() (driver.Value, error) {
	return valueJSONB(e)
}

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (b *Branding) Scan(value interface{}) error {
	return scanJSONB(b, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (b Branding) Value() (driver.Value, error) {
	return valueJSONB(b)
}

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (c *IntegracaoConfig) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	return scanJSONB(c, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (c IntegracaoConfig) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}
