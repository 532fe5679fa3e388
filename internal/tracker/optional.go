package tracker

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes an absent JSON key from an explicit null and from a value.
// UnmarshalJSON only runs for keys present in the payload, so the zero value means absent.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a present Optional holding JSON null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Present reports a key that carries a non-null value.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// TagNames accepts either a JSON array of strings or a single bare string.
type TagNames []string

func (t *TagNames) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = TagNames{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*t = many
	return nil
}
