package parquetio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	parquet "github.com/segmentio/parquet-go"

	sm "github.com/wdm0006/smudge/pkg/smudge"
)

type Reader struct {
	file   *os.File
	reader *parquet.Reader
	names  []string // leaf order
	order  []string // frame order
	layout []string
}

func OpenReader(path string, timeLayouts []string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("parquet open %s: %w", path, err)
	}
	cols := pf.Root().Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		if !c.Leaf() || c.Index() != i {
			_ = f.Close()
			return nil, fmt.Errorf("parquet: nested column %q is not supported", c.Name())
		}
		names[i] = c.Name()
	}
	if len(timeLayouts) == 0 {
		timeLayouts = sm.DefaultTimeLayouts
	}
	return &Reader{file: f, reader: parquet.NewReader(pf), names: names, order: columnOrder(pf, names), layout: timeLayouts}, nil
}

// columnOrder returns the column order recorded by WriteAll, or the leaf
// order for files written elsewhere.
func columnOrder(pf *parquet.File, names []string) []string {
	v, ok := pf.Lookup(columnOrderKey)
	if !ok {
		return names
	}
	var order []string
	if err := json.Unmarshal([]byte(v), &order); err != nil || len(order) != len(names) {
		return names
	}
	leaf := make(map[string]bool, len(names))
	for _, n := range names {
		leaf[n] = true
	}
	for _, n := range order {
		if !leaf[n] {
			return names
		}
		delete(leaf, n)
	}
	return order
}

func (r *Reader) Close() error {
	_ = r.reader.Close()
	return r.file.Close()
}

// Columns returns the file's column names in the order they were written.
func (r *Reader) Columns() []string { return r.order }

// ReadAll loads every row typed by the declared schema. Row numbers stand in
// for line numbers in mismatch errors.
func (r *Reader) ReadAll(declared sm.Schema) (*sm.Frame, error) {
	schema := sm.Schema{Columns: make([]sm.ColumnSchema, len(r.order))}
	seen := make(map[string]bool, len(r.order))
	for i, n := range r.order {
		seen[n] = true
		if cs, ok := declared.Lookup(n); ok {
			schema.Columns[i] = cs
			continue
		}
		schema.Columns[i] = sm.ColumnSchema{Name: n, Type: sm.KindString, Nullable: true}
	}
	for _, cs := range declared.Columns {
		if !seen[cs.Name] {
			return nil, &sm.SchemaMismatchError{Column: cs.Name, Want: cs.Type, Reason: "declared column missing from file"}
		}
	}

	f := sm.NewFrame(schema)
	leaves := make([]sm.ColumnSchema, len(r.names))
	for i, n := range r.names {
		leaves[i], _ = schema.Lookup(n)
	}
	buf := make([]parquet.Row, 256)
	for {
		n, err := r.reader.ReadRows(buf)
		for i := 0; i < n; i++ {
			f.AppendNullRow()
			if err := r.setRow(f, leaves, f.Rows()-1, buf[i]); err != nil {
				return nil, err
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}
	for i, cs := range schema.Columns {
		if cs.Nullable {
			continue
		}
		c, _ := f.ColumnByName(cs.Name)
		for row := 0; row < f.Rows(); row++ {
			if c.IsNull(row) {
				return nil, &sm.SchemaMismatchError{Column: schema.Columns[i].Name, Want: cs.Type, Line: row + 1, Reason: "null in non-nullable column"}
			}
		}
	}
	return f, nil
}

func (r *Reader) setRow(f *sm.Frame, leaves []sm.ColumnSchema, row int, vals parquet.Row) error {
	for _, v := range vals {
		ci := v.Column()
		if ci < 0 || ci >= len(leaves) || v.IsNull() {
			continue
		}
		cs := leaves[ci]
		cell, raw, err := r.convert(cs.Type, v)
		if err != nil {
			return &sm.SchemaMismatchError{Column: cs.Name, Want: cs.Type, Line: row + 1, Value: raw, Reason: err.Error()}
		}
		if cell == nil {
			continue
		}
		if err := f.SetCell(row, cs.Name, cell); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) convert(k sm.Kind, v parquet.Value) (any, string, error) {
	var raw string
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		raw = string(v.ByteArray())
		cell, err := sm.ParseCell(k, raw, r.layout)
		return cell, raw, err
	case parquet.Boolean:
		raw = strconv.FormatBool(v.Boolean())
		if k == sm.KindBool {
			return v.Boolean(), raw, nil
		}
	case parquet.Int32, parquet.Int64:
		raw = strconv.FormatInt(v.Int64(), 10)
		switch k {
		case sm.KindInt:
			return v.Int64(), raw, nil
		case sm.KindFloat:
			return float64(v.Int64()), raw, nil
		}
	case parquet.Float, parquet.Double:
		x := v.Double()
		if v.Kind() == parquet.Float {
			x = float64(v.Float())
		}
		raw = sm.FormatFloat(x)
		switch k {
		case sm.KindFloat:
			return x, raw, nil
		case sm.KindInt:
			cell, err := sm.ParseCell(k, raw, nil)
			return cell, raw, err
		}
	default:
		return nil, raw, fmt.Errorf("unsupported parquet type %v", v.Kind())
	}
	if k == sm.KindString {
		return raw, raw, nil
	}
	return nil, raw, fmt.Errorf("cannot read %v as %s", v.Kind(), k)
}
