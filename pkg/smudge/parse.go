package smudge

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeLayouts are tried in order for KindTime cells.
var DefaultTimeLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
}

// ParseCell converts raw text to the Go value for kind. Empty text is a null
// and yields (nil, nil). String cells are returned untrimmed, so a
// whitespace-only string survives; for typed kinds it is a null.
func ParseCell(kind Kind, raw string, layouts []string) (any, error) {
	if kind == KindString {
		if raw == "" {
			return nil, nil
		}
		return strings.ToValidUTF8(raw, "?"), nil
	}
	val := strings.TrimSpace(raw)
	if val == "" {
		return nil, nil
	}
	switch kind {
	case KindFloat:
		x, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, errors.New("not a number")
		}
		return x, nil
	case KindInt:
		if x, err := strconv.ParseInt(val, 10, 64); err == nil {
			return x, nil
		}
		// integral floats such as "2.0" are accepted
		x, err := strconv.ParseFloat(val, 64)
		if err != nil || math.IsInf(x, 0) || x != math.Trunc(x) {
			return nil, errors.New("not an integer")
		}
		return int64(x), nil
	case KindBool:
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err != nil {
			return nil, errors.New("not a bool")
		}
		return b, nil
	case KindTime:
		if len(layouts) == 0 {
			layouts = DefaultTimeLayouts
		}
		for _, l := range layouts {
			if t, err := time.Parse(l, val); err == nil {
				return t, nil
			}
		}
		return nil, errors.New("no matching date layout")
	}
	return nil, errors.New("invalid kind")
}

// ParseNumber reads a float from a string cell, used where a numeric column
// has already been turned into text.
func ParseNumber(s string) (float64, bool) {
	x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}
