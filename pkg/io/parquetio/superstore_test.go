package parquetio

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	sm "github.com/wdm0006/smudge/pkg/smudge"
	"github.com/wdm0006/smudge/pkg/superstore"
)

func superstoreFrame(t *testing.T, rows int) *sm.Frame {
	t.Helper()
	f := sm.NewFrame(superstore.Schema())
	day := time.Date(2016, 11, 8, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		f.AppendNullRow()
		cells := map[string]any{
			"Row ID":                      int64(i + 1),
			"Order ID":                    "CA-2016-152156",
			"Order Date":                  day.AddDate(0, 0, i),
			"Ship Date":                   day.AddDate(0, 0, i+3),
			"Shipping Placement Duration": int64(3),
			"Ship Mode":                   "Second Class",
			"Customer ID":                 "CG-12520",
			"Customer Name":               "Claire Gute",
			"Segment":                     "Consumer",
			"Country/Region":              "United States",
			"City":                        "Henderson",
			"State/Province":              "Kentucky",
			"Postal Code":                 "42420",
			"Region":                      "South",
			"Product ID":                  "FUR-BO-10001798",
			"Category":                    "Furniture",
			"Sub-Category":                "Bookcases",
			"Product Name":                "Bush Somerset Collection Bookcase",
			"Sales":                       261.96 + float64(i),
			"Quantity":                    int64(i%9 + 1),
			"Discount":                    0.2,
			"Profit":                      41.9136 - float64(i),
			"Loss/Profit?":                "Profit",
		}
		// every third row loses a value in each nullable column
		for name, v := range cells {
			if cs, _ := f.Schema().Lookup(name); cs.Nullable && (i+len(name))%3 == 0 {
				continue
			}
			if err := f.SetCell(i, name, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	return f
}

func TestSuperstoreRoundTrip(t *testing.T) {
	src := superstoreFrame(t, 300)
	p := filepath.Join(t.TempDir(), "superstore.parquet")
	if err := WriteAll(p, src); err != nil {
		t.Fatal(err)
	}
	r, err := OpenReader(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()
	if got, want := r.Columns(), src.Schema().Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("column order = %v, want %v", got, want)
	}
	back, err := r.ReadAll(superstore.Schema())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Schema(), src.Schema()) {
		t.Fatalf("schema = %+v", back.Schema())
	}
	if back.Rows() != src.Rows() {
		t.Fatalf("rows = %d, want %d", back.Rows(), src.Rows())
	}
	for row := 0; row < src.Rows(); row++ {
		for _, name := range src.Schema().Names() {
			want, wok := src.CellString(row, name)
			got, gok := back.CellString(row, name)
			if want != got || wok != gok {
				t.Fatalf("row %d %s: got %q/%v want %q/%v", row, name, got, gok, want, wok)
			}
		}
	}
}

func TestWriteRejectsNullInRequiredColumn(t *testing.T) {
	f := superstoreFrame(t, 2)
	id, _ := f.ColumnByName("Row ID")
	id.SetNull(1)
	err := WriteAll(filepath.Join(t.TempDir(), "bad.parquet"), f)
	if err == nil {
		t.Fatal("expected error for null Row ID")
	}
}
