package codec

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Envelope wraps a stored record value with its collection sequence
// number. Seq is assigned once at insert and never changes, so sorting by
// Seq reproduces insertion order regardless of key order in the engine.
type Envelope[T any] struct {
	Seq  uint64 `json:"seq"`
	Data T      `json:"data"`
}

// EncodeEnvelope marshals a record value for storage.
func EncodeEnvelope[T any](seq uint64, data T) ([]byte, error) {
	b, err := json.Marshal(Envelope[T]{Seq: seq, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return b, nil
}

// DecodeEnvelope unmarshals a stored record value.
func DecodeEnvelope[T any](b []byte) (Envelope[T], error) {
	var env Envelope[T]
	if len(b) == 0 {
		return env, fmt.Errorf("decode envelope: empty value")
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
