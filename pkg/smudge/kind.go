package smudge

import (
	"strconv"
	"time"
)

// Kind enumerates supported logical types.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "invalid"
	}
}

// DateLayout is used for times that fall on midnight UTC.
const DateLayout = "2006-01-02"

// FormatFloat renders floats without exponents so that scaled outliers stay
// readable in CSV output.
func FormatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// FormatTime renders dates as YYYY-MM-DD and anything with a clock part as RFC3339.
func FormatTime(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}
	return t.Format(time.RFC3339)
}

// FormatValue renders a non-null cell. Callers check IsNull first.
func FormatValue(c Column, i int) string {
	switch col := c.(type) {
	case *FloatColumn:
		v, _ := col.Get(i)
		return FormatFloat(v)
	case *IntColumn:
		v, _ := col.Get(i)
		return strconv.FormatInt(v, 10)
	case *BoolColumn:
		v, _ := col.Get(i)
		return strconv.FormatBool(v)
	case *StringColumn:
		v, _ := col.Get(i)
		return v
	case *TimeColumn:
		v, _ := col.Get(i)
		return FormatTime(v)
	}
	return ""
}
