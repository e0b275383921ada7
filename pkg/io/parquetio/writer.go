package parquetio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	parquet "github.com/segmentio/parquet-go"

	sm "github.com/wdm0006/smudge/pkg/smudge"
)

// columnOrderKey holds the frame's column order in the file footer. Parquet
// groups store their fields sorted by name, so the order is restored on read.
const columnOrderKey = "smudge.columns"

func leafNode(cs sm.ColumnSchema) parquet.Node {
	var n parquet.Node
	switch cs.Type {
	case sm.KindFloat:
		n = parquet.Leaf(parquet.DoubleType)
	case sm.KindInt:
		n = parquet.Int(64)
	case sm.KindBool:
		n = parquet.Leaf(parquet.BooleanType)
	default:
		// dates are stored as text so they read back in any engine
		n = parquet.String()
	}
	if cs.Nullable {
		return parquet.Optional(n)
	}
	return parquet.Required(n)
}

func frameSchema(s sm.Schema) (*parquet.Schema, []int, error) {
	g := make(parquet.Group, len(s.Columns))
	for _, cs := range s.Columns {
		if _, dup := g[cs.Name]; dup {
			return nil, nil, fmt.Errorf("parquet: duplicate column %q", cs.Name)
		}
		g[cs.Name] = leafNode(cs)
	}
	index := make(map[string]int, len(s.Columns))
	for i, cs := range s.Columns {
		index[cs.Name] = i
	}
	schema := parquet.NewSchema("smudge", g)
	// leaf index in the file -> column index in the frame
	leaves := make([]int, len(s.Columns))
	for i, path := range schema.Columns() {
		leaves[i] = index[path[0]]
	}
	return schema, leaves, nil
}

// WriteAll writes a Frame to a Snappy-compressed Parquet file with one
// top-level leaf per column.
func WriteAll(path string, f *sm.Frame) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	cols := f.Schema().Columns
	schema, leaves, err := frameSchema(f.Schema())
	if err != nil {
		return err
	}
	order, err := json.Marshal(f.Schema().Names())
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	w := parquet.NewWriter(out, schema,
		parquet.Compression(&parquet.Snappy),
		parquet.KeyValueMetadata(columnOrderKey, string(order)))
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("parquet close: %w", cerr)
		}
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	frameCols := make([]sm.Column, len(cols))
	for i, cs := range cols {
		frameCols[i], _ = f.ColumnByName(cs.Name)
	}
	batch := make([]parquet.Row, 0, 256)
	flush := func() error {
		if _, err := w.WriteRows(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}
	for r := 0; r < f.Rows(); r++ {
		row := make(parquet.Row, len(leaves))
		for leaf, ci := range leaves {
			c, def := frameCols[ci], 0
			switch {
			case !c.IsNull(r) && cols[ci].Nullable:
				def = 1
			case c.IsNull(r) && !cols[ci].Nullable:
				return &sm.SchemaMismatchError{Column: cols[ci].Name, Want: cols[ci].Type, Line: r + 1, Reason: "null in non-nullable column"}
			}
			row[leaf] = cellValue(c, r).Level(0, def, leaf)
		}
		batch = append(batch, row)
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return fmt.Errorf("parquet write rows: %w", err)
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return fmt.Errorf("parquet write rows: %w", err)
		}
	}
	return nil
}

func cellValue(c sm.Column, r int) parquet.Value {
	if c.IsNull(r) {
		return parquet.NullValue()
	}
	switch col := c.(type) {
	case *sm.FloatColumn:
		v, _ := col.Get(r)
		return parquet.DoubleValue(v)
	case *sm.IntColumn:
		v, _ := col.Get(r)
		return parquet.Int64Value(v)
	case *sm.BoolColumn:
		v, _ := col.Get(r)
		return parquet.BooleanValue(v)
	default:
		return parquet.ByteArrayValue([]byte(sm.FormatValue(c, r)))
	}
}
