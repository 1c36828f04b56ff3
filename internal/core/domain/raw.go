package domain

import (
	"fmt"
	"strconv"
	"time"
)

// RawRecord is a semantically untyped record as returned by a source
// connector. Keys are source-defined; normalisation gives them meaning.
type RawRecord map[string]any

// String returns the named field coerced to a string.
// Numeric values are formatted; a missing field yields ErrMalformedRecord.
func (r RawRecord) String(key string) (string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: missing field %q", ErrMalformedRecord, key)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// OptString returns the named field as a string, or "" when absent.
func (r RawRecord) OptString(key string) string {
	s, err := r.String(key)
	if err != nil {
		return ""
	}
	return s
}

// Float returns the named field coerced to a float64. JSON numbers,
// integers and numeric strings are accepted.
func (r RawRecord) Float(key string) (float64, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: missing field %q", ErrMalformedRecord, key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q is not numeric: %q", ErrMalformedRecord, key, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: field %q is not numeric (%T)", ErrMalformedRecord, key, v)
	}
}

// Bool returns the named field as a bool, or the fallback when the
// field is absent or not a bool.
func (r RawRecord) Bool(key string, fallback bool) bool {
	v, ok := r[key]
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}

// Time parses the named field as an RFC 3339 timestamp.
func (r RawRecord) Time(key string) (time.Time, error) {
	s, err := r.String(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: field %q is not a timestamp: %q", ErrMalformedRecord, key, s)
	}
	return t, nil
}
