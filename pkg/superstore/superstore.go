// Package superstore declares the Superstore retail dataset: its typed columns
// and where its files live.
package superstore

import (
	"path/filepath"

	sm "github.com/wdm0006/smudge/pkg/smudge"
)

const (
	RawFile      = "superstore.csv"
	PreparedFile = "superstore_prep.csv"
	ActivityFile = "superstore_activity_dataset.csv"

	KeyColumn = "Row ID"
)

// Columns is the declared schema in the source file's order. Only Row ID is
// required; every other column may hold nulls.
var Columns = []sm.ColumnSchema{
	{Name: "Row ID", Type: sm.KindInt},
	{Name: "Order ID", Type: sm.KindString, Nullable: true},
	{Name: "Order Date", Type: sm.KindTime, Nullable: true},
	{Name: "Ship Date", Type: sm.KindTime, Nullable: true},
	{Name: "Shipping Placement Duration", Type: sm.KindInt, Nullable: true},
	{Name: "Ship Mode", Type: sm.KindString, Nullable: true},
	{Name: "Customer ID", Type: sm.KindString, Nullable: true},
	{Name: "Customer Name", Type: sm.KindString, Nullable: true},
	{Name: "Segment", Type: sm.KindString, Nullable: true},
	{Name: "Country/Region", Type: sm.KindString, Nullable: true},
	{Name: "City", Type: sm.KindString, Nullable: true},
	{Name: "State/Province", Type: sm.KindString, Nullable: true},
	{Name: "Postal Code", Type: sm.KindString, Nullable: true},
	{Name: "Region", Type: sm.KindString, Nullable: true},
	{Name: "Product ID", Type: sm.KindString, Nullable: true},
	{Name: "Category", Type: sm.KindString, Nullable: true},
	{Name: "Sub-Category", Type: sm.KindString, Nullable: true},
	{Name: "Product Name", Type: sm.KindString, Nullable: true},
	{Name: "Sales", Type: sm.KindFloat, Nullable: true},
	{Name: "Quantity", Type: sm.KindInt, Nullable: true},
	{Name: "Discount", Type: sm.KindFloat, Nullable: true},
	{Name: "Profit", Type: sm.KindFloat, Nullable: true},
	{Name: "Loss/Profit?", Type: sm.KindString, Nullable: true},
}

// Schema returns a fresh copy of the declared schema.
func Schema() sm.Schema {
	return sm.Schema{Columns: append([]sm.ColumnSchema(nil), Columns...)}
}

// Paths are the three dataset files of a run.
type Paths struct {
	Raw      string
	Prepared string
	Activity string
}

// DefaultPaths places the standard file names under dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		Raw:      filepath.Join(dir, RawFile),
		Prepared: filepath.Join(dir, PreparedFile),
		Activity: filepath.Join(dir, ActivityFile),
	}
}
