package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ID identifies a table or kitchen order. Clients send ids either as JSON strings
// or JSON numbers; the kind is kept so that 5 and "5" stay distinct. Numbers are
// held in canonical form, so 5, 5.0 and 5e0 are the same id and encode as 5.
// The zero value means "no id".
type ID struct {
	value   string
	numeric bool
}

// StringID returns an ID that encodes as a JSON string.
func StringID(s string) ID {
	return ID{value: s}
}

// NumericID returns an ID that encodes as a JSON number.
func NumericID(n int64) ID {
	return ID{value: strconv.FormatInt(n, 10), numeric: true}
}

func (id ID) IsZero() bool {
	return id.value == "" && !id.numeric
}

func (id ID) String() string {
	return id.value
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ID{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID{value: s}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	value, err := canonicalNumber(n.String())
	if err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID{value: value, numeric: true}
	return nil
}

// canonicalNumber renders a JSON number by its float64 value. Integral values
// below 1e21 are written without exponent or fraction.
func canonicalNumber(text string) (string, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return "", err
	}
	if f == 0 {
		return "0", nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}
