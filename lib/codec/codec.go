// Package codec serializes transaction snapshots for storage. Payloads
// are msgpack wrapped in a one-byte version envelope so the on-disk
// format can evolve without guessing.
package codec

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// version is the current envelope version.
const version = 1

// ErrEmpty is returned when decoding a zero-length payload.
var ErrEmpty = errors.New("codec: empty payload")

// Encode serializes v with a version prefix.
func Encode(v any) ([]byte, error) {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, version)
	return append(out, body...), nil
}

// Decode deserializes a payload produced by Encode into v.
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if data[0] != version {
		return fmt.Errorf("codec: unsupported version %d", data[0])
	}
	if err := msgpack.Unmarshal(data[1:], v); err != nil {
		return fmt.Errorf("codec: decode: %w", err)
	}
	return nil
}
