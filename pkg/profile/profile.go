package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"

	sm "github.com/wdm0006/smudge/pkg/smudge"
)

type NumStats struct {
	Count int     `json:"count"`
	Nulls int     `json:"nulls"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
}

func (s *NumStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

type TextStats struct {
	Count    int `json:"count"`
	Nulls    int `json:"nulls"`
	Distinct int `json:"distinct"`
	// NonNumeric counts cells of a text column that do not parse as numbers.
	NonNumeric int `json:"non_numeric"`
}

type ColumnProfile struct {
	Name string     `json:"name"`
	Kind string     `json:"kind"`
	Num  *NumStats  `json:"num,omitempty"`
	Text *TextStats `json:"text,omitempty"`
}

// Nulls returns the null count regardless of the column kind.
func (p ColumnProfile) Nulls() int {
	if p.Num != nil {
		return p.Num.Nulls
	}
	if p.Text != nil {
		return p.Text.Nulls
	}
	return 0
}

type Profile struct {
	Rows    int             `json:"rows"`
	Columns []ColumnProfile `json:"columns"`
}

// Lookup returns the profile of the named column.
func (p *Profile) Lookup(name string) (ColumnProfile, bool) {
	for _, c := range p.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}

// Of profiles every column of f. Bool and time columns are profiled as text.
func Of(f *sm.Frame) *Profile {
	p := &Profile{Rows: f.Rows(), Columns: make([]ColumnProfile, 0, f.Cols())}
	for _, cs := range f.Schema().Columns {
		col, _ := f.ColumnByName(cs.Name)
		cp := ColumnProfile{Name: cs.Name, Kind: cs.Type.String()}
		switch c := col.(type) {
		case *sm.FloatColumn:
			cp.Num = &NumStats{Min: math.Inf(1), Max: math.Inf(-1)}
			for i := 0; i < c.Len(); i++ {
				v, ok := c.Get(i)
				if !ok {
					cp.Num.Nulls++
					continue
				}
				cp.Num.add(v)
			}
		case *sm.IntColumn:
			cp.Num = &NumStats{Min: math.Inf(1), Max: math.Inf(-1)}
			for i := 0; i < c.Len(); i++ {
				v, ok := c.Get(i)
				if !ok {
					cp.Num.Nulls++
					continue
				}
				cp.Num.add(float64(v))
			}
		default:
			cp.Text = &TextStats{}
			seen := map[string]struct{}{}
			for i := 0; i < col.Len(); i++ {
				if col.IsNull(i) {
					cp.Text.Nulls++
					continue
				}
				v := sm.FormatValue(col, i)
				cp.Text.Count++
				seen[v] = struct{}{}
				if _, ok := sm.ParseNumber(v); !ok {
					cp.Text.NonNumeric++
				}
			}
			cp.Text.Distinct = len(seen)
		}
		if cp.Num != nil && cp.Num.Count == 0 {
			cp.Num.Min, cp.Num.Max = 0, 0
		}
		p.Columns = append(p.Columns, cp)
	}
	return p
}

func (s *NumStats) add(v float64) {
	s.Count++
	s.Sum += v
	if v < s.Min {
		s.Min = v
	}
	if v > s.Max {
		s.Max = v
	}
}

// NullChange is a column whose null count differs between two profiles.
type NullChange struct {
	Column string `json:"column"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// NullDiff compares null counts column by column, in after's column order.
// Columns missing from before count as having had no nulls.
func NullDiff(before, after *Profile) []NullChange {
	var out []NullChange
	for _, a := range after.Columns {
		b, _ := before.Lookup(a.Name)
		if b.Nulls() != a.Nulls() {
			out = append(out, NullChange{Column: a.Name, Before: b.Nulls(), After: a.Nulls()})
		}
	}
	return out
}

// ReportText renders a short per-column summary.
func (p *Profile) ReportText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Profile Summary (%d rows)\n", p.Rows)
	for _, cp := range p.Columns {
		fmt.Fprintf(&b, "- %s (%s): ", cp.Name, cp.Kind)
		if cp.Num != nil {
			fmt.Fprintf(&b, "count=%d nulls=%d min=%.6g max=%.6g mean=%.6g\n", cp.Num.Count, cp.Num.Nulls, cp.Num.Min, cp.Num.Max, cp.Num.Mean())
			continue
		}
		fmt.Fprintf(&b, "count=%d nulls=%d distinct=%d", cp.Text.Count, cp.Text.Nulls, cp.Text.Distinct)
		if cp.Text.NonNumeric > 0 && cp.Text.NonNumeric < cp.Text.Count {
			fmt.Fprintf(&b, " non_numeric=%d", cp.Text.NonNumeric)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// NullCounts returns the non-zero null counts keyed by column.
func (p *Profile) NullCounts() map[string]int {
	out := map[string]int{}
	for _, cp := range p.Columns {
		if n := cp.Nulls(); n > 0 {
			out[cp.Name] = n
		}
	}
	return out
}

// FormatNullChanges renders a diff as "column: before -> after" lines.
func FormatNullChanges(changes []NullChange) string {
	sorted := append([]NullChange(nil), changes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Column < sorted[j].Column })
	var b strings.Builder
	for _, c := range sorted {
		fmt.Fprintf(&b, "%s: %d -> %d\n", c.Column, c.Before, c.After)
	}
	return b.String()
}
