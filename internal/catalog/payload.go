package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encode serializes a record into the compact JSON payload shared by every
// sink. The result never contains a raw newline and does not escape HTML
// characters.
func Encode(rec Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("encode record: nil record")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode %s: %w", rec.Kind(), err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a payload written by Encode back into a record of the given kind.
func Decode(kind Kind, data []byte) (Record, error) {
	switch kind {
	case KindProduct:
		var p Product
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return p, nil
	case KindCategory:
		var c Category
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("decode: unknown record kind %q", kind)
	}
}
