package starapi

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Converter turns a path segment into a typed value. Regex returns the
// pattern a segment must match before Convert is attempted; it must not
// contain capturing groups.
type Converter interface {
	Regex() string
	Convert(value string) (any, error)
}

// StringConverter is the default converter. It accepts anything up to the
// next slash and returns the raw string.
type StringConverter struct{}

func (StringConverter) Regex() string { return "[^/]+" }

func (StringConverter) Convert(value string) (any, error) { return value, nil }

// IntConverter accepts decimal digits and returns an int.
type IntConverter struct{}

func (IntConverter) Regex() string { return "[0-9]+" }

func (IntConverter) Convert(value string) (any, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("convert %q to int: %w", value, err)
	}
	return n, nil
}

// FloatConverter accepts decimal numbers with an optional fraction and
// returns a float64.
type FloatConverter struct{}

func (FloatConverter) Regex() string { return `[0-9]+(?:\.[0-9]+)?` }

func (FloatConverter) Convert(value string) (any, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("convert %q to float: %w", value, err)
	}
	return f, nil
}

// UUIDConverter accepts canonical UUIDs and returns a uuid.UUID.
type UUIDConverter struct{}

func (UUIDConverter) Regex() string {
	return "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}"
}

func (UUIDConverter) Convert(value string) (any, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("convert %q to uuid: %w", value, err)
	}
	return id, nil
}

// DatetimeConverter returns a time.Time. It tries, in order: a unix
// timestamp in seconds, RFC 3339, and a plain 2006-01-02 date.
type DatetimeConverter struct{}

func (DatetimeConverter) Regex() string { return "[^/]+" }

func (DatetimeConverter) Convert(value string) (any, error) {
	if ts, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(ts, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return nil, fmt.Errorf("convert %q to datetime: unsupported format", value)
}

// PathConverter matches the rest of the path, slashes included.
type PathConverter struct{}

func (PathConverter) Regex() string { return ".*" }

func (PathConverter) Convert(value string) (any, error) { return value, nil }

func defaultConverters() map[string]Converter {
	return map[string]Converter{
		"str":      StringConverter{},
		"int":      IntConverter{},
		"float":    FloatConverter{},
		"uuid":     UUIDConverter{},
		"datetime": DatetimeConverter{},
		"path":     PathConverter{},
	}
}
