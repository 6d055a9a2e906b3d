package types

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Nullable tracks whether a field was explicitly present in JSON.
// Valid with a nil Value means the client sent null.
type Nullable[T any] struct {
	Valid bool
	Value *T
}

type (
	NullableUUID    = Nullable[uuid.UUID]
	NullableString  = Nullable[string]
	NullableDecimal = Nullable[decimal.Decimal]
)

// UnmarshalJSON implements json.Unmarshaler.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if bytes.Equal(trimmed, []byte("null")) {
		n.Valid = true
		n.Value = nil
		return nil
	}

	var parsed T
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Valid = true
	n.Value = &parsed
	return nil
}

// Some builds a present, non-null value.
func Some[T any](value T) Nullable[T] {
	return Nullable[T]{Valid: true, Value: &value}
}

// Null builds a present, explicitly null value.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Valid: true}
}

// Clone returns a copy that does not share the pointed-to value.
func (n Nullable[T]) Clone() Nullable[T] {
	if n.Value == nil {
		return Nullable[T]{Valid: n.Valid}
	}
	copy := *n.Value
	return Nullable[T]{Valid: n.Valid, Value: &copy}
}
