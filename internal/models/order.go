package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderRecord is one raw entry of the order feed. Amounts holds every numeric
// field of the record; which of them counts as the order value is decided by
// the comparator's configured field priority.
type OrderRecord struct {
	Timestamp string                     `json:"date"`
	Amounts   map[string]decimal.Decimal `json:"amounts,omitempty"`
}

// UnmarshalJSON accepts the flat feed shape, e.g.
// {"date":"2026-01-06T10:15:00","finishedPrice":150,"totalPrice":null}.
// Null and non-numeric fields are treated as absent.
func (o *OrderRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("order record: %w", err)
	}

	o.Timestamp = ""
	o.Amounts = make(map[string]decimal.Decimal)

	for key, value := range raw {
		if key == "date" {
			var ts string
			if err := json.Unmarshal(value, &ts); err == nil {
				o.Timestamp = ts
			}
			continue
		}
		if key == "amounts" {
			var nested map[string]json.RawMessage
			if err := json.Unmarshal(value, &nested); err == nil {
				for k, v := range nested {
					if d, ok := parseAmount(v); ok {
						o.Amounts[k] = d
					}
				}
			}
			continue
		}
		if d, ok := parseAmount(value); ok {
			o.Amounts[key] = d
		}
	}
	return nil
}

// MarshalJSON writes the flat feed shape back out.
func (o OrderRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(o.Amounts)+1)
	for k, v := range o.Amounts {
		flat[k] = v
	}
	flat["date"] = o.Timestamp
	return json.Marshal(flat)
}

func parseAmount(value json.RawMessage) (decimal.Decimal, bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.Decimal{}, false
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	d, err := decimal.NewFromString(string(trimmed))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
