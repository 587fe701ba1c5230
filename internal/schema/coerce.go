package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// dateLayouts are tried in order when reading a date from text.
var dateLayouts = []string{
	isoDate,
	"02.01.2006",
	"2.1.2006",
	"02.01.06",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Coercion errors, reported per row by the importer.
var (
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidBool = errors.New("invalid boolean")
)

var (
	trueTokens  = map[string]bool{"1": true, "true": true, "yes": true, "ja": true, "y": true, "x": true, "j": true}
	falseTokens = map[string]bool{"0": true, "false": true, "no": true, "nein": true, "n": true}
)

func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), true
		}
	}
	return "", false
}

// Date renders a stored date as ISO 8601. Text that is not a recognizable
// date is kept as is so that stored data is never lost.
func Date(v any) string {
	if t, ok := v.(time.Time); ok {
		return Text(t)
	}
	s := Text(v)
	if s == "" {
		return ""
	}
	if iso, ok := parseDate(s); ok {
		return iso
	}
	return s
}

// ParseDate is the strict form of Date used at the import boundary: blank
// input is absent, anything else must be a recognizable date.
func ParseDate(v any) (string, error) {
	if t, ok := v.(time.Time); ok {
		return Text(t), nil
	}
	s := Text(v)
	if s == "" {
		return "", nil
	}
	if iso, ok := parseDate(s); ok {
		return iso, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseBool coerces a flag value. Blank input is false; numbers are true
// when non-zero; text must be one of the known yes/no tokens.
func ParseBool(v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case int:
		return x != 0, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f != 0, nil
		}
	}
	s := strings.ToLower(Text(v))
	switch {
	case s == "":
		return false, nil
	case trueTokens[s]:
		return true, nil
	case falseTokens[s]:
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidBool, s)
}
