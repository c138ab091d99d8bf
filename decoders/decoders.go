// Package decoders turns raw response bodies from external content sources
// into typed values. Decoders are pure: they never perform I/O.
package decoders

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeError(source string, format string, args ...any) *DecodeError {
	return &DecodeError{Source: source, Err: fmt.Errorf(format, args...)}
}

// DecodeJSON parses data into a value of type T.
func DecodeJSON[T any](source string, data []byte) (T, error) {
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return value, &DecodeError{Source: source, Err: err}
	}
	return value, nil
}

// DecodeText returns data as text. Invalid UTF-8 sequences are replaced.
func DecodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

func parseTimestamp(source string, layout string, index int, field string, value string) (time.Time, error) {
	parsed, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, decodeError(source, "item %d: malformed %s %q: %w", index, field, value, err)
	}
	return parsed.UTC(), nil
}
