package csvio

import (
	"encoding/csv"
	"io"

	iox "github.com/wdm0006/smudge/pkg/io/ioutils"
	sm "github.com/wdm0006/smudge/pkg/smudge"
)

type WriterOptions struct {
	Delimiter rune // default ','
}

// WriteAll writes a Frame to a CSV file with headers, truncating any existing
// file. A .gz path is compressed.
func WriteAll(path string, f *sm.Frame, opt WriterOptions) error {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return err
	}
	if err := Write(out, f, opt); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Write renders a Frame as CSV. Nulls are written as empty fields.
func Write(out io.Writer, f *sm.Frame, opt WriterOptions) error {
	w := csv.NewWriter(out)
	if opt.Delimiter != 0 {
		w.Comma = opt.Delimiter
	}

	// header
	hdr := f.Schema().Names()
	if err := w.Write(hdr); err != nil {
		return err
	}

	cols := make([]sm.Column, len(hdr))
	for i, name := range hdr {
		cols[i], _ = f.ColumnByName(name)
	}
	row := make([]string, len(hdr))
	for r := 0; r < f.Rows(); r++ {
		for c, col := range cols {
			if col.IsNull(r) {
				row[c] = ""
				continue
			}
			row[c] = sm.FormatValue(col, r)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
