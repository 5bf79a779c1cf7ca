package urls

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
)

// Converter matches, parses and formats one typed path segment.
type Converter interface {
	// Regexp is the pattern a segment must match in full.
	Regexp() string
	// ToValue parses a matched segment.
	ToValue(segment string) (any, error)
	// ToURL formats a value back into a segment.
	ToURL(value any) (string, error)
}

// StringConverter matches any non-empty segment without a slash.
type StringConverter struct{}

func (StringConverter) Regexp() string { return `[^/]+` }

func (StringConverter) ToValue(segment string) (any, error) { return segment, nil }

func (StringConverter) ToURL(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", eris.Errorf("expected string, got %T", value)
	}
	return s, nil
}

// SlugConverter matches ASCII letters, digits, hyphens and underscores.
type SlugConverter struct{ StringConverter }

func (SlugConverter) Regexp() string { return `[-a-zA-Z0-9_]+` }

// IntConverter matches non-negative integers.
type IntConverter struct{}

func (IntConverter) Regexp() string { return `[0-9]+` }

func (IntConverter) ToValue(segment string) (any, error) {
	value, err := strconv.Atoi(segment)
	if err != nil {
		return nil, eris.Wrapf(err, "parsing integer segment %q", segment)
	}
	return value, nil
}

func (IntConverter) ToURL(value any) (string, error) {
	n, err := asInt(value)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", eris.Errorf("negative value %d", n)
	}
	return strconv.Itoa(n), nil
}

// FourDigitYearConverter matches exactly four decimal digits and yields the year as int.
type FourDigitYearConverter struct{}

func (FourDigitYearConverter) Regexp() string { return `[0-9]{4}` }

func (FourDigitYearConverter) ToValue(segment string) (any, error) {
	if len(segment) != 4 {
		return nil, eris.Errorf("year segment %q must have four digits", segment)
	}
	value, err := strconv.Atoi(segment)
	if err != nil {
		return nil, eris.Wrapf(err, "parsing year segment %q", segment)
	}
	return value, nil
}

func (FourDigitYearConverter) ToURL(value any) (string, error) {
	n, err := asInt(value)
	if err != nil {
		return "", err
	}
	if n < 0 || n > 9999 {
		return "", eris.Errorf("year %d does not fit four digits", n)
	}
	return fmt.Sprintf("%04d", n), nil
}

func asInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, eris.Wrapf(err, "parsing integer %q", v)
		}
		return n, nil
	default:
		return 0, eris.Errorf("expected integer, got %T", value)
	}
}
