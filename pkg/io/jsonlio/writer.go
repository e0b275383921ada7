package jsonlio

import (
	"bufio"
	"encoding/json"
	"io"
	"math"
	"strconv"

	iox "github.com/wdm0006/smudge/pkg/io/ioutils"
	sm "github.com/wdm0006/smudge/pkg/smudge"
)

func WriteAll(path string, f *sm.Frame) error {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return err
	}
	if err := Write(out, f); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Write emits one object per row with keys in schema order. Nulls are written
// as JSON null and dates as strings.
func Write(out io.Writer, f *sm.Frame) error {
	w := bufio.NewWriter(out)
	cols := f.Schema().Columns
	keys := make([][]byte, len(cols))
	for i, cs := range cols {
		b, err := json.Marshal(cs.Name)
		if err != nil {
			return err
		}
		keys[i] = b
	}
	var buf []byte
	for r := 0; r < f.Rows(); r++ {
		buf = append(buf[:0], '{')
		for i, cs := range cols {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, keys[i]...)
			buf = append(buf, ':')
			col, _ := f.ColumnByName(cs.Name)
			v, err := appendValue(buf, col, r)
			if err != nil {
				return err
			}
			buf = v
		}
		buf = append(buf, '}', '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

func appendValue(buf []byte, col sm.Column, r int) ([]byte, error) {
	if col.IsNull(r) {
		return append(buf, "null"...), nil
	}
	switch c := col.(type) {
	case *sm.FloatColumn:
		v, _ := c.Get(r)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return append(buf, "null"...), nil
		}
		return append(buf, sm.FormatFloat(v)...), nil
	case *sm.IntColumn:
		v, _ := c.Get(r)
		return strconv.AppendInt(buf, v, 10), nil
	case *sm.BoolColumn:
		v, _ := c.Get(r)
		return strconv.AppendBool(buf, v), nil
	}
	b, err := json.Marshal(sm.FormatValue(col, r))
	if err != nil {
		return nil, err
	}
	return append(buf, b...), nil
}
