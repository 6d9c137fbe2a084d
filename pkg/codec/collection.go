package codec

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// EncodeCollection writes a whole collection as an indented JSON array,
// the same layout as the legacy media.json and reviews.json files.
// A nil slice is written as an empty array.
func EncodeCollection[T any](w io.Writer, items []T) error {
	if items == nil {
		items = []T{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	return nil
}

// DecodeCollection reads a JSON array of records. Unknown fields are
// rejected so stray attributes never enter the store.
func DecodeCollection[T any](r io.Reader) ([]T, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var items []T
	if err := dec.Decode(&items); err != nil {
		if err == io.EOF {
			return []T{}, nil
		}
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
