package domain

import (
	"database/sql/driver"
	"encoding/json"
)

// Metadata произвольные данные (JSONB) с поддержкой sql.Scanner
type Metadata map[string]interface{}

// Scan реализует sql.Scanner для сканирования JSONB из БД
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*m = make(Metadata)
		return nil
	}

	if len(bytes) == 0 {
		*m = make(Metadata)
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value реализует driver.Valuer для сохранения в БД
func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
