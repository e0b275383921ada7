package defect

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/smartystreets/goconvey/convey"

	sm "github.com/wdm0006/smudge/pkg/smudge"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func testFrame(t *testing.T) *sm.Frame {
	t.Helper()
	s := sm.Schema{Columns: []sm.ColumnSchema{
		{Name: "Row ID", Type: sm.KindInt},
		{Name: "Order ID", Type: sm.KindString, Nullable: true},
		{Name: "Ship Date", Type: sm.KindTime, Nullable: true},
		{Name: "Segment", Type: sm.KindString, Nullable: true},
		{Name: "Quantity", Type: sm.KindInt, Nullable: true},
		{Name: "Sales", Type: sm.KindFloat, Nullable: true},
		{Name: "Discount", Type: sm.KindFloat, Nullable: true},
	}}
	f := sm.NewFrame(s)
	rows := [][]any{
		{int64(1), "CA-2016-152156", day(2016, 11, 11), "Consumer", int64(2), 261.96, 0.0},
		{int64(2), "CA-2016-138688", day(2016, 2, 29), "Corporate", int64(3), 14.62, 0.2},
		{int64(3), nil, nil, "Home Office", nil, nil, nil},
		{int64(4), "US-2015-108966", day(2015, 10, 18), "Consumer", int64(5), 957.5, 0.45},
	}
	names := s.Names()
	for i, r := range rows {
		f.AppendNullRow()
		for c, v := range r {
			if err := f.SetCell(i, names[c], v); err != nil {
				t.Fatal(err)
			}
		}
	}
	return f
}

func cellOf(f *sm.Frame, row int, col string) string {
	s, ok := f.CellString(row, col)
	if !ok {
		return "<null>"
	}
	return s
}

func TestNullify(t *testing.T) {
	f := testFrame(t)
	j := &Journal{}
	tr := &Nullify{Target{Column: "Order ID", RowIDs: []int64{2, 2, 3, 99}, Category: "missing", Recorder: j}}
	if _, err := tr.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if got := cellOf(f, 1, "Order ID"); got != "<null>" {
		t.Fatalf("row id 2 not nulled: %q", got)
	}
	if got := cellOf(f, 0, "Order ID"); got != "CA-2016-152156" {
		t.Fatalf("untouched row changed: %q", got)
	}
	// duplicate id applied once, already-null row 3 and absent 99 not recorded
	if j.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", j.Len())
	}
	r := j.Records()[0]
	if r.RowID != 2 || r.Before != "CA-2016-138688" || !r.AfterNull || r.Category != "missing" || r.Kind != KindNull {
		t.Fatalf("unexpected record %+v", r)
	}
}

func TestUnknownColumn(t *testing.T) {
	f := testFrame(t)
	tr := &Nullify{Target{Column: "Nope", RowIDs: []int64{1}}}
	if _, err := tr.Apply(context.Background(), f); !errors.Is(err, sm.ErrUnknownColumn) {
		t.Fatalf("expected unknown column, got %v", err)
	}
}

func TestSetYear(t *testing.T) {
	f := testFrame(t)
	tr := &SetYear{Target: Target{Column: "Ship Date", RowIDs: []int64{1, 2, 3}}, Year: 2050}
	if _, err := tr.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	want := map[int]string{0: "2050-11-11", 1: "2050-02-28", 2: "<null>", 3: "2015-10-18"}
	for row, w := range want {
		if got := cellOf(f, row, "Ship Date"); got != w {
			t.Fatalf("row %d: got %s want %s", row, got, w)
		}
	}
	if got := WithYear(day(2016, 2, 29), 2000); !got.Equal(day(2000, 2, 29)) {
		t.Fatalf("leap year kept Feb 29 wrongly: %v", got)
	}
}

func TestSetYearWrongKind(t *testing.T) {
	f := testFrame(t)
	tr := &SetYear{Target: Target{Column: "Segment", RowIDs: []int64{1}}, Year: 1998}
	if _, err := tr.Apply(context.Background(), f); err == nil {
		t.Fatal("expected error for string column")
	}
}

func TestScrambleCase(t *testing.T) {
	f := testFrame(t)
	// "Consumer": draws 1,0,1,0,... -> "CoNsUmEr"
	tr := &ScrambleCase{Target{Column: "Segment", RowIDs: []int64{1}, Rand: NewSequence(1, 0)}}
	if _, err := tr.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if got := cellOf(f, 0, "Segment"); got != "CoNsUmEr" {
		t.Fatalf("got %q", got)
	}
	if got := cellOf(f, 3, "Segment"); got != "Consumer" {
		t.Fatalf("untouched row changed: %q", got)
	}
}

func TestScrambleProperty(t *testing.T) {
	r := NewRand()
	for _, s := range []string{"Same Day", "Home Office", "United States", "Ünïcödé straße"} {
		got := Scramble(r, s)
		if strings.ToLower(got) != strings.ToLower(s) {
			t.Fatalf("content changed: %q -> %q", s, got)
		}
		if utf8.RuneCountInString(got) != utf8.RuneCountInString(s) {
			t.Fatalf("rune count changed: %q -> %q", s, got)
		}
	}
}

func TestScrambleKeepsLowerForm(t *testing.T) {
	// upper-casing the long s gives 'S', whose lower form is 's'
	for _, s := range []string{"ſ", "straſſe", "ǅ", "ﬃ"} {
		got := Scramble(NewSequence(1), s)
		if strings.ToLower(got) != strings.ToLower(s) {
			t.Fatalf("lower form changed: %q -> %q", s, got)
		}
	}
	if got := Scramble(NewSequence(1), "ſa"); got != "ſA" {
		t.Fatalf("got %q", got)
	}
}

func TestNegate(t *testing.T) {
	f := testFrame(t)
	tr := &Negate{Target{Column: "Quantity", RowIDs: []int64{1, 3, 4}}}
	if _, err := tr.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	for row, w := range map[int]string{0: "-2", 1: "3", 2: "<null>", 3: "-5"} {
		if got := cellOf(f, row, "Quantity"); got != w {
			t.Fatalf("row %d: got %s want %s", row, got, w)
		}
	}
}

func TestIntArithmeticStaysExact(t *testing.T) {
	const big = int64(1)<<53 + 1
	f := testFrame(t)
	if err := f.SetCell(0, "Quantity", big); err != nil {
		t.Fatal(err)
	}
	if _, err := (&Negate{Target{Column: "Quantity", RowIDs: []int64{1}}}).Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if got := cellOf(f, 0, "Quantity"); got != "-9007199254740993" {
		t.Fatalf("negate = %s", got)
	}

	off := &Offset{Target: Target{Column: "Quantity", RowIDs: []int64{1}, Rand: NewSequence(0)}, Offsets: []float64{-1}}
	if _, err := off.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if got := cellOf(f, 0, "Quantity"); got != "-9007199254740994" {
		t.Fatalf("offset = %s", got)
	}

	half := &Scale{Target: Target{Column: "Quantity", RowIDs: []int64{2}, Rand: NewSequence(0)}, Factors: []float64{0.5}}
	if _, err := half.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if got := cellOf(f, 1, "Quantity"); got != "2" {
		t.Fatalf("fractional scale = %s", got)
	}

	huge := &Scale{Target: Target{Column: "Quantity", RowIDs: []int64{1}, Rand: NewSequence(0)}, Factors: []float64{1 << 20}}
	if _, err := huge.Apply(context.Background(), f); !errors.Is(err, errIntRange) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestScaleAndOffset(t *testing.T) {
	f := testFrame(t)
	j := &Journal{}
	scale := &Scale{Target: Target{Column: "Quantity", RowIDs: []int64{1, 2}, Rand: NewSequence(2, 0), Recorder: j}, Factors: []float64{500, 1000, 1500}}
	if _, err := scale.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if got := cellOf(f, 0, "Quantity"); got != "3000" {
		t.Fatalf("row id 1 quantity = %s", got)
	}
	if got := cellOf(f, 1, "Quantity"); got != "1500" {
		t.Fatalf("row id 2 quantity = %s", got)
	}

	sales := &Scale{Target: Target{Column: "Sales", RowIDs: []int64{4}, Rand: NewSequence(0)}, Factors: []float64{-1000, 1000}}
	if _, err := sales.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if got := cellOf(f, 3, "Sales"); got != "-957500" {
		t.Fatalf("sales = %s", got)
	}

	off := &Offset{Target: Target{Column: "Discount", RowIDs: []int64{2, 3}, Rand: NewSequence(3)}, Offsets: []float64{-2, -1, 1, 2}}
	if _, err := off.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if got := cellOf(f, 1, "Discount"); got != "2.2" {
		t.Fatalf("discount = %s", got)
	}
	if got := cellOf(f, 2, "Discount"); got != "<null>" {
		t.Fatalf("null discount changed: %s", got)
	}
	if j.Len() != 2 || j.Records()[0].Before != "2" || j.Records()[0].After != "3000" {
		t.Fatalf("unexpected journal %+v", j.Records())
	}

	if _, err := (&Scale{Target: Target{Column: "Sales", RowIDs: []int64{1}}}).Apply(context.Background(), f); err == nil {
		t.Fatal("expected error for empty factors")
	}
}

func TestCorruptType(t *testing.T) {
	convey.Convey("Given a float Sales column", t, func() {
		f := testFrame(t)
		j := &Journal{}
		tr := &CorruptType{Target: Target{Column: "Sales", RowIDs: []int64{1, 2}, Rand: NewSequence(1, 0), Recorder: j, Category: "nan_sales"}}
		_, err := tr.Apply(context.Background(), f)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("the column becomes text and targets hold sentinels", func() {
			cs, _ := f.Schema().Lookup("Sales")
			convey.So(cs.Type, convey.ShouldEqual, sm.KindString)
			convey.So(cellOf(f, 0, "Sales"), convey.ShouldEqual, "N/A")
			convey.So(cellOf(f, 1, "Sales"), convey.ShouldEqual, "<null>")
			convey.So(cellOf(f, 3, "Sales"), convey.ShouldEqual, "957.5")
			convey.So(cellOf(f, 2, "Sales"), convey.ShouldEqual, "<null>")
			convey.So(j.Counts()["nan_sales"], convey.ShouldEqual, 2)
		})

		convey.Convey("later numeric defects skip the sentinels", func() {
			sc := &Scale{Target: Target{Column: "Sales", RowIDs: []int64{1, 4}, Rand: NewSequence(0)}, Factors: []float64{100}}
			_, err := sc.Apply(context.Background(), f)
			convey.So(err, convey.ShouldBeNil)
			convey.So(cellOf(f, 0, "Sales"), convey.ShouldEqual, "N/A")
			convey.So(cellOf(f, 3, "Sales"), convey.ShouldEqual, "95750")
		})
	})
}

func TestSequenceWraps(t *testing.T) {
	s := NewSequence(5, -1)
	if got := s.Intn(3); got != 2 {
		t.Fatalf("got %d", got)
	}
	if got := s.Intn(3); got != 2 {
		t.Fatalf("got %d", got)
	}
	if got := s.Intn(4); got != 1 {
		t.Fatalf("got %d", got)
	}
}
