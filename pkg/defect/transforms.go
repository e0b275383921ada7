package defect

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	sm "github.com/wdm0006/smudge/pkg/smudge"
)

const (
	KindNull         = "null"
	KindSetYear      = "set_year"
	KindScrambleCase = "scramble_case"
	KindNegate       = "negate"
	KindCorruptType  = "corrupt_type"
	KindScale        = "scale"
	KindOffset       = "offset"
)

// Kinds lists every defect kind in catalog order.
var Kinds = []string{KindNull, KindSetYear, KindScrambleCase, KindNegate, KindCorruptType, KindScale, KindOffset}

// Nullify sets the target cells to null.
type Nullify struct{ Target }

func (t *Nullify) Name() string { return KindNull }

func (t *Nullify) Apply(ctx context.Context, f *sm.Frame) (*sm.Frame, error) {
	hits, err := t.rows(f)
	if err != nil {
		return nil, err
	}
	col, _ := f.ColumnByName(t.Column)
	n := 0
	for _, h := range hits {
		if col.IsNull(h.row) {
			continue
		}
		before := snapshot(f, h.row, t.Column)
		col.SetNull(h.row)
		t.report(KindNull, h, before, cell{null: true})
		n++
	}
	t.done(KindNull, len(hits), n)
	return f, nil
}

// SetYear replaces the year of a date column, keeping month, day and clock.
// Feb 29 moved into a non-leap year becomes Feb 28.
type SetYear struct {
	Target
	Year int
}

func (t *SetYear) Name() string { return KindSetYear }

func (t *SetYear) Apply(ctx context.Context, f *sm.Frame) (*sm.Frame, error) {
	hits, err := t.rows(f)
	if err != nil {
		return nil, err
	}
	col, _ := f.ColumnByName(t.Column)
	tc, ok := col.(*sm.TimeColumn)
	if !ok {
		return nil, fmt.Errorf("set_year: column %s is %s, want time", t.Column, col.Kind())
	}
	n := 0
	for _, h := range hits {
		v, ok := tc.Get(h.row)
		if !ok {
			continue
		}
		nv := WithYear(v, t.Year)
		if nv.Equal(v) {
			continue
		}
		before := snapshot(f, h.row, t.Column)
		tc.Set(h.row, nv)
		t.report(KindSetYear, h, before, snapshot(f, h.row, t.Column))
		n++
	}
	t.done(KindSetYear, len(hits), n)
	return f, nil
}

// WithYear returns v moved to year, clamping Feb 29 to Feb 28.
func WithYear(v time.Time, year int) time.Time {
	day := v.Day()
	if v.Month() == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, v.Month(), day, v.Hour(), v.Minute(), v.Second(), v.Nanosecond(), v.Location())
}

func isLeap(y int) bool { return y%4 == 0 && (y%100 != 0 || y%400 == 0) }

// ScrambleCase flips a coin per rune to upper- or lower-case it.
type ScrambleCase struct{ Target }

func (t *ScrambleCase) Name() string { return KindScrambleCase }

func (t *ScrambleCase) Apply(ctx context.Context, f *sm.Frame) (*sm.Frame, error) {
	hits, err := t.rows(f)
	if err != nil {
		return nil, err
	}
	col, _ := f.ColumnByName(t.Column)
	sc, ok := col.(*sm.StringColumn)
	if !ok {
		return nil, fmt.Errorf("scramble_case: column %s is %s, want string", t.Column, col.Kind())
	}
	r := t.rand()
	n := 0
	for _, h := range hits {
		v, ok := sc.Get(h.row)
		if !ok {
			continue
		}
		nv := Scramble(r, v)
		if nv == v {
			continue
		}
		sc.Set(h.row, nv)
		t.report(KindScrambleCase, h, cell{text: v}, cell{text: nv})
		n++
	}
	t.done(KindScrambleCase, len(hits), n)
	return f, nil
}

// Scramble upper-cases each rune when r draws 1 and lower-cases it otherwise.
// Runes without case still consume a draw. A rune whose case mapping would
// change its lower-case form (such as the long s) is kept as is, so the
// lower-cased text never changes.
func Scramble(r Rand, s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		nc := unicode.ToLower(c)
		if r.Intn(2) == 1 {
			nc = unicode.ToUpper(c)
		}
		if unicode.ToLower(nc) != unicode.ToLower(c) {
			nc = c
		}
		b.WriteRune(nc)
	}
	return b.String()
}

// Negate flips the sign of a numeric cell.
type Negate struct{ Target }

func (t *Negate) Name() string { return KindNegate }

func (t *Negate) Apply(ctx context.Context, f *sm.Frame) (*sm.Frame, error) {
	return t.numeric(f, KindNegate, func() arith { return arith{mul: -1} })
}

// Scale multiplies each target cell by a factor drawn from Factors.
type Scale struct {
	Target
	Factors []float64
}

func (t *Scale) Name() string { return KindScale }

func (t *Scale) Apply(ctx context.Context, f *sm.Frame) (*sm.Frame, error) {
	if len(t.Factors) == 0 {
		return nil, fmt.Errorf("scale %s: no factors", t.Column)
	}
	r := t.rand()
	return t.numeric(f, KindScale, func() arith { return arith{mul: pick(r, t.Factors)} })
}

// Offset adds a value drawn from Offsets to each target cell.
type Offset struct {
	Target
	Offsets []float64
}

func (t *Offset) Name() string { return KindOffset }

func (t *Offset) Apply(ctx context.Context, f *sm.Frame) (*sm.Frame, error) {
	if len(t.Offsets) == 0 {
		return nil, fmt.Errorf("offset %s: no offsets", t.Column)
	}
	r := t.rand()
	return t.numeric(f, KindOffset, func() arith { return arith{mul: 1, add: pick(r, t.Offsets)} })
}

// Sentinel is a replacement value for a corrupted numeric cell.
type Sentinel struct {
	Value string
	Null  bool
}

func (s Sentinel) String() string {
	if s.Null {
		return "<null>"
	}
	return s.Value
}

// DefaultSentinels are the tokens written by CorruptType when none are given.
var DefaultSentinels = []Sentinel{{Null: true}, {Value: "N/A"}, {Value: "n/a"}, {Value: "?"}, {Value: "unknown"}, {Value: "#VALUE!"}}

// CorruptType turns the column into text and writes a randomly chosen sentinel
// into each target row. Untouched rows keep their rendered value.
type CorruptType struct {
	Target
	Sentinels []Sentinel
}

func (t *CorruptType) Name() string { return KindCorruptType }

func (t *CorruptType) Apply(ctx context.Context, f *sm.Frame) (*sm.Frame, error) {
	hits, err := t.rows(f)
	if err != nil {
		return nil, err
	}
	sentinels := t.Sentinels
	if len(sentinels) == 0 {
		sentinels = DefaultSentinels
	}
	sc, err := f.PromoteToString(t.Column)
	if err != nil {
		return nil, err
	}
	r := t.rand()
	n := 0
	for _, h := range hits {
		before := snapshot(f, h.row, t.Column)
		s := pick(r, sentinels)
		if s.Null {
			sc.SetNull(h.row)
		} else {
			sc.Set(h.row, s.Value)
		}
		after := cell{text: s.Value, null: s.Null}
		if after == before {
			continue
		}
		t.report(KindCorruptType, h, before, after)
		n++
	}
	t.done(KindCorruptType, len(hits), n)
	return f, nil
}

// numeric applies the operation drawn by next to every non-null target cell.
// next runs once per updated cell. Int columns stay exact for integral
// operands and round otherwise; text columns (left by CorruptType) update only
// the cells that parse as numbers.
func (t *Target) numeric(f *sm.Frame, kind string, next func() arith) (*sm.Frame, error) {
	hits, err := t.rows(f)
	if err != nil {
		return nil, err
	}
	col, _ := f.ColumnByName(t.Column)
	n := 0
	for _, h := range hits {
		if col.IsNull(h.row) {
			continue
		}
		before := snapshot(f, h.row, t.Column)
		switch c := col.(type) {
		case *sm.IntColumn:
			v, _ := c.Get(h.row)
			nv, err := next().int(v)
			if err != nil {
				return nil, fmt.Errorf("%s %s row id %d: %w", kind, t.Column, h.id, err)
			}
			c.Set(h.row, nv)
		case *sm.FloatColumn:
			v, _ := c.Get(h.row)
			c.Set(h.row, next().float(v))
		case *sm.StringColumn:
			v, _ := c.Get(h.row)
			x, ok := sm.ParseNumber(v)
			if !ok {
				continue
			}
			c.Set(h.row, sm.FormatFloat(next().float(x)))
		default:
			return nil, fmt.Errorf("%s: column %s is %s, want numeric", kind, t.Column, col.Kind())
		}
		after := snapshot(f, h.row, t.Column)
		if after == before {
			continue
		}
		t.report(kind, h, before, after)
		n++
	}
	t.done(kind, len(hits), n)
	return f, nil
}
