package catalog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/wdm0006/smudge/pkg/defect"
	"github.com/wdm0006/smudge/pkg/io/structio"
	sm "github.com/wdm0006/smudge/pkg/smudge"
)

func TestDefaultCatalog(t *testing.T) {
	convey.Convey("Given the default Superstore catalog", t, func() {
		c := Default()
		convey.So(c.Validate(), convey.ShouldBeNil)

		convey.Convey("it keeps the declared order of all sixteen defects", func() {
			convey.So(len(c.Defects), convey.ShouldEqual, 16)
			kinds := make([]string, len(c.Defects))
			for i, d := range c.Defects {
				kinds[i] = d.Kind
			}
			convey.So(strings.Join(kinds, ","), convey.ShouldEqual,
				"null,null,null,null,set_year,set_year,set_year,scramble_case,scramble_case,scramble_case,negate,corrupt_type,corrupt_type,scale,scale,offset")
		})

		convey.Convey("type corruption targets Sales then Profit", func() {
			convey.So(c.Defects[11].Column, convey.ShouldEqual, "Sales")
			convey.So(c.Defects[12].Column, convey.ShouldEqual, "Profit")
			convey.So(c.Defects[12].Sentinels[0], convey.ShouldEqual, "")
		})

		convey.Convey("each numeric outlier carries its own parameters", func() {
			convey.So(c.Defects[13].Factors, convey.ShouldResemble, []float64{500, 1000, 1500})
			convey.So(c.Defects[14].Factors, convey.ShouldResemble, []float64{-1000, -100, 100, 1000})
			convey.So(c.Defects[15].Offsets, convey.ShouldResemble, []float64{-2, -1, 1, 2})
			convey.So(c.Defects[5].Year, convey.ShouldEqual, 2050)
		})

		convey.Convey("the pipeline has one step per defect", func() {
			p, err := c.Build(BuildOptions{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(p.Len(), convey.ShouldEqual, 16)
			convey.So(p.Steps()[0].Name(), convey.ShouldEqual, defect.KindNull)
		})
	})
}

func TestValidate(t *testing.T) {
	c := &Catalog{Defects: []Defect{
		{Kind: "explode", Column: "Sales", RowIDs: []int64{1}},
		{Kind: defect.KindNull, Column: "", RowIDs: nil},
		{Kind: defect.KindSetYear, Column: "Ship Date", RowIDs: []int64{1}},
		{Kind: defect.KindScale, Column: "Sales", RowIDs: []int64{1}},
		{Kind: defect.KindOffset, Column: "Discount", RowIDs: []int64{1}},
		{Kind: defect.KindCorruptType, Column: "Profit", RowIDs: []int64{1}},
	}}
	err := c.Validate()
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("expected invalid catalog, got %v", err)
	}
	for _, want := range []string{"unknown kind", "column is empty", "row_ids is empty", "year 0", "factors is empty", "offsets is empty", "sentinels is empty"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("missing %q in %v", want, err)
		}
	}
	if err := (&Catalog{}).Validate(); !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("empty catalog should be invalid, got %v", err)
	}
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []string{structio.YAML, structio.TOML, structio.JSON} {
		var buf bytes.Buffer
		if err := Default().Encode(&buf, format); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		p := filepath.Join(dir, "catalog."+format)
		if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
			t.Fatal(err)
		}
		c, err := Load(p)
		if err != nil {
			t.Fatalf("%s: %v\n%s", format, err, buf.String())
		}
		if len(c.Defects) != 16 || c.Defects[0].Kind != defect.KindNull || c.Defects[11].Sentinels[0] != "" {
			t.Fatalf("%s: catalog changed on round trip", format)
		}
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("defects:\n  - kind: scale\n    column: Sales\n    row_ids: [1]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("expected invalid catalog, got %v", err)
	}
}

func TestCategoriesAndOnly(t *testing.T) {
	c := Default()
	cats := c.Categories()
	if len(cats) != 16 || cats[0] != "missing_order_ids" || cats[15] != "outlier_discount" {
		t.Fatalf("categories = %v", cats)
	}
	sub := c.Only("negative_quantities", "missing_order_ids")
	if len(sub.Defects) != 2 || sub.Defects[0].Category != "missing_order_ids" {
		t.Fatalf("Only kept wrong defects: %+v", sub.Defects)
	}
}

func TestBuildRunsInOrder(t *testing.T) {
	s := sm.Schema{Columns: []sm.ColumnSchema{
		{Name: "Row ID", Type: sm.KindInt},
		{Name: "Quantity", Type: sm.KindInt, Nullable: true},
	}}
	f := sm.NewFrame(s)
	f.AppendNullRow()
	_ = f.SetCell(0, "Row ID", int64(7))
	_ = f.SetCell(0, "Quantity", int64(2))

	c := &Catalog{Defects: []Defect{
		{Category: "neg", Kind: defect.KindNegate, Column: "Quantity", RowIDs: []int64{7}},
		{Category: "big", Kind: defect.KindScale, Column: "Quantity", RowIDs: []int64{7}, Factors: []float64{500, 1000}},
	}}
	j := &defect.Journal{}
	p, err := c.Build(BuildOptions{Rand: defect.NewSequence(1), Recorder: j})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if v, _ := f.CellString(0, "Quantity"); v != "-2000" {
		t.Fatalf("quantity = %s", v)
	}
	recs := j.Records()
	if len(recs) != 2 || recs[0].Step != 1 || recs[1].Step != 2 || recs[1].Before != "-2" {
		t.Fatalf("records = %+v", recs)
	}
}
