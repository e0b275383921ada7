// Package defect holds the transforms that inject data-quality defects into a
// frame: nulls, shifted years, scrambled case, sign flips, type corruption and
// numeric outliers. Each transform mutates only the rows whose key is listed in
// its RowIDs and reports every changed cell to an optional Recorder.
package defect

import (
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	sm "github.com/wdm0006/smudge/pkg/smudge"
)

// DefaultKey is the integer column used to address rows.
const DefaultKey = "Row ID"

// Rand is the source of every random choice a transform makes.
type Rand interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// NewRand returns the process-wide random source. It is not seeded by the
// caller, so repeated runs corrupt the same rows differently.
func NewRand() Rand { return globalRand{} }

// Sequence replays a fixed list of draws, wrapping around at the end. Each
// draw is reduced modulo n.
type Sequence struct {
	vals []int
	pos  int
}

func NewSequence(vals ...int) *Sequence { return &Sequence{vals: vals} }

func (s *Sequence) Intn(n int) int {
	if len(s.vals) == 0 || n <= 0 {
		return 0
	}
	v := s.vals[s.pos%len(s.vals)]
	s.pos++
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// Record describes one mutated cell.
type Record struct {
	Step       int
	Category   string
	Kind       string
	Column     string
	RowID      int64
	Before     string
	BeforeNull bool
	After      string
	AfterNull  bool
}

type Recorder interface {
	Record(r Record)
}

// Journal is an in-memory Recorder.
type Journal struct {
	records []Record
}

func (j *Journal) Record(r Record)   { j.records = append(j.records, r) }
func (j *Journal) Records() []Record { return append([]Record(nil), j.records...) }
func (j *Journal) Len() int          { return len(j.records) }

// Counts returns the number of mutated cells per category.
func (j *Journal) Counts() map[string]int {
	out := make(map[string]int)
	for _, r := range j.records {
		out[r.Category]++
	}
	return out
}

// Target is the part every transform shares: which column, which rows, and
// where mutations are reported.
type Target struct {
	Column string
	RowIDs []int64
	// Key defaults to DefaultKey.
	Key string

	Step     int
	Category string
	Rand     Rand
	Recorder Recorder
	Logger   *zap.Logger
}

func (t *Target) key() string {
	if t.Key == "" {
		return DefaultKey
	}
	return t.Key
}

func (t *Target) rand() Rand {
	if t.Rand == nil {
		return NewRand()
	}
	return t.Rand
}

func (t *Target) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

// hit is one frame row selected by a row id.
type hit struct {
	id  int64
	row int
}

// rows resolves RowIDs against the key column. Duplicate ids are collapsed and
// ids missing from the frame are skipped. Hits come back in ascending id order.
func (t *Target) rows(f *sm.Frame) ([]hit, error) {
	if _, ok := f.ColumnByName(t.Column); !ok {
		return nil, fmt.Errorf("%w: %s", sm.ErrUnknownColumn, t.Column)
	}
	idx, err := f.RowIndex(t.key())
	if err != nil {
		return nil, err
	}
	ids := append([]int64(nil), t.RowIDs...)
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	var out []hit
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		for _, r := range idx[id] {
			out = append(out, hit{id: id, row: r})
		}
	}
	return out, nil
}

// cell captures a cell's rendering so before/after can be reported.
type cell struct {
	text string
	null bool
}

func snapshot(f *sm.Frame, row int, column string) cell {
	s, ok := f.CellString(row, column)
	return cell{text: s, null: !ok}
}

func (t *Target) report(kind string, h hit, before, after cell) {
	t.logger().Debug("mutated cell",
		zap.Int("step", t.Step),
		zap.String("kind", kind),
		zap.String("column", t.Column),
		zap.Int64("row_id", h.id),
		zap.String("before", before.display()),
		zap.String("after", after.display()))
	if t.Recorder == nil {
		return
	}
	t.Recorder.Record(Record{
		Step:       t.Step,
		Category:   t.Category,
		Kind:       kind,
		Column:     t.Column,
		RowID:      h.id,
		Before:     before.text,
		BeforeNull: before.null,
		After:      after.text,
		AfterNull:  after.null,
	})
}

func (t *Target) done(kind string, selected, mutated int) {
	t.logger().Debug("applied defect",
		zap.Int("step", t.Step),
		zap.String("kind", kind),
		zap.String("column", t.Column),
		zap.Int("selected", selected),
		zap.Int("mutated", mutated))
}

func (c cell) display() string {
	if c.null {
		return "<null>"
	}
	return c.text
}

func pick[T any](r Rand, xs []T) T { return xs[r.Intn(len(xs))] }
