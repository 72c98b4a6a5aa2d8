package traces

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// ErrNotObject is returned by ParseLine for valid JSON that is not an object.
var ErrNotObject = errors.New("record is not a JSON object")

// ParseLine decodes one newline-delimited JSON row. String values are kept
// verbatim; numbers, booleans, arrays and nested objects are stored as their
// JSON text so the record stays a flat string mapping. The internal
// identifier is not assigned here.
func ParseLine(line []byte) (Record, error) {
	line = bytes.TrimSpace(line)
	if len(line) > 0 && line[0] != '{' && json.Valid(line) {
		return nil, ErrNotObject
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	if raw == nil {
		return nil, ErrNotObject
	}

	rec := make(Record, len(raw))
	for field, value := range raw {
		rec[field] = rawString(value)
	}
	return rec, nil
}

func rawString(value json.RawMessage) string {
	if len(value) > 0 && value[0] == '"' {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			return s
		}
	}
	if bytes.Equal(value, []byte("null")) {
		return ""
	}
	return string(value)
}
