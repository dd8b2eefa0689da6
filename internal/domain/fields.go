package domain

import (
	"encoding/json"
	"fmt"
)

// Fields holds top-level JSON attributes the hub does not model, plus modelled
// attributes whose JSON type did not match. They are kept verbatim so a full
// replacement round-trips them.
type Fields map[string]json.RawMessage

// objectDecoder takes a JSON object apart member by member. Members the hub acts on
// are decoded strictly; the rest are decoded leniently and spill into extra when
// their type does not match.
type objectDecoder struct {
	members map[string]json.RawMessage
	extra   Fields
}

func newObjectDecoder(data []byte) (*objectDecoder, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return &objectDecoder{members: members, extra: Fields{}}, nil
}

// take removes key from the pending members and returns its raw value.
func (d *objectDecoder) take(key string) (json.RawMessage, bool) {
	raw, ok := d.members[key]
	if ok {
		delete(d.members, key)
	}
	return raw, ok
}

// rest returns the spilled and unknown members, or nil when there are none.
func (d *objectDecoder) rest() Fields {
	for key, raw := range d.members {
		d.extra[key] = raw
	}
	if len(d.extra) == 0 {
		return nil
	}
	return d.extra
}

// decodeStrict decodes member key into dst and fails on a type mismatch.
func decodeStrict[T any](d *objectDecoder, key string, dst *T) error {
	raw, ok := d.take(key)
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

// decodeLenient decodes member key into dst. On a type mismatch dst is left
// untouched and the raw value is kept in the extra fields.
func decodeLenient[T any](d *objectDecoder, key string, dst *T) {
	raw, ok := d.take(key)
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		d.extra[key] = raw
		return
	}
	*dst = v
}

// withoutField returns extra minus key. The map is copied because snapshots share it.
func withoutField(extra Fields, key string) Fields {
	if _, ok := extra[key]; !ok {
		return extra
	}
	out := make(Fields, len(extra)-1)
	for k, v := range extra {
		if k != key {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// withFields marshals v (which must encode as a JSON object) and merges extra into
// it. Extra values replace modelled ones with the same key: such a key can only
// come from a spilled mismatch, and setters drop it once the hub writes the field.
func withFields(v any, extra Fields) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return data, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("merge fields: %w", err)
	}
	for key, value := range extra {
		merged[key] = value
	}
	return json.Marshal(merged)
}
