package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	iox "github.com/wdm0006/smudge/pkg/io/ioutils"
	sm "github.com/wdm0006/smudge/pkg/smudge"
)

type ReaderOptions struct {
	Delimiter   rune // 0 = sniff, default ','
	TimeLayouts []string
}

type Reader struct {
	r      *csv.Reader
	opt    ReaderOptions
	header []string
}

// Open opens a (possibly gzip compressed) CSV file. The returned closer owns
// the underlying file.
func Open(path string, opt ReaderOptions) (*Reader, io.Closer, error) {
	rc, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return nil, nil, err
	}
	return NewReaderFrom(rc, opt), rc, nil
}

// NewReaderFrom constructs a Reader from an arbitrary io.Reader.
func NewReaderFrom(r io.Reader, opt ReaderOptions) *Reader {
	br := bufio.NewReader(r)
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(br)
	}
	if len(opt.TimeLayouts) == 0 {
		opt.TimeLayouts = sm.DefaultTimeLayouts
	}
	rr := csv.NewReader(br)
	rr.Comma = opt.Delimiter
	rr.FieldsPerRecord = -1
	rr.ReuseRecord = true
	return &Reader{r: rr, opt: opt}
}

// Header reads the header record once and returns the column names.
func (r *Reader) Header() ([]string, error) {
	if r.header != nil {
		return r.header, nil
	}
	rec, err := r.r.Read()
	if err == io.EOF {
		return nil, errors.New("csv: empty input, no header")
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, len(rec))
	for i := range rec {
		names[i] = strings.TrimSpace(strings.ToValidUTF8(rec[i], "?"))
	}
	// strip BOM on first header cell if present
	if len(names) > 0 {
		names[0] = strings.TrimPrefix(names[0], "\ufeff")
	}
	r.header = names
	return names, nil
}

// ResolveSchema lays the declared schema over the file header. The result is
// in file order; columns the declaration does not mention are carried as
// nullable strings. A declared column absent from the header is a schema
// mismatch.
func (r *Reader) ResolveSchema(declared sm.Schema) (sm.Schema, error) {
	names, err := r.Header()
	if err != nil {
		return sm.Schema{}, err
	}
	seen := make(map[string]bool, len(names))
	out := sm.Schema{Columns: make([]sm.ColumnSchema, len(names))}
	for i, n := range names {
		if seen[n] {
			return sm.Schema{}, &sm.SchemaMismatchError{Column: n, Reason: "duplicate header"}
		}
		seen[n] = true
		if cs, ok := declared.Lookup(n); ok {
			out.Columns[i] = cs
			continue
		}
		out.Columns[i] = sm.ColumnSchema{Name: n, Type: sm.KindString, Nullable: true}
	}
	for _, cs := range declared.Columns {
		if !seen[cs.Name] {
			return sm.Schema{}, &sm.SchemaMismatchError{Column: cs.Name, Want: cs.Type, Reason: "declared column missing from header"}
		}
	}
	return out, nil
}

// ReadAll loads the rest of the CSV into a Frame typed by the declared schema.
func (r *Reader) ReadAll(declared sm.Schema) (*sm.Frame, error) {
	schema, err := r.ResolveSchema(declared)
	if err != nil {
		return nil, err
	}
	f := sm.NewFrame(schema)
	for {
		rec, err := r.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := r.r.FieldPos(0)
		// ragged records are rejected rather than padded or truncated
		if n := len(rec); n != len(schema.Columns) {
			at := schema.Columns[len(schema.Columns)-1].Name
			if n < len(schema.Columns) {
				at = schema.Columns[n].Name
			}
			return nil, &sm.SchemaMismatchError{Column: at, Line: line,
				Reason: fmt.Sprintf("record has %d fields, header has %d", n, len(schema.Columns))}
		}
		f.AppendNullRow()
		row := f.Rows() - 1
		for i, cs := range schema.Columns {
			v, err := sm.ParseCell(cs.Type, rec[i], r.opt.TimeLayouts)
			if err != nil {
				return nil, &sm.SchemaMismatchError{Column: cs.Name, Want: cs.Type, Line: line, Value: rec[i], Reason: err.Error()}
			}
			if v == nil {
				continue
			}
			if err := f.SetCell(row, cs.Name, v); err != nil {
				return nil, err
			}
		}
		for i, cs := range schema.Columns {
			if cs.Nullable {
				continue
			}
			if c, _ := f.ColumnByName(cs.Name); c.IsNull(row) {
				return nil, &sm.SchemaMismatchError{Column: schema.Columns[i].Name, Want: cs.Type, Line: line, Reason: "null in non-nullable column"}
			}
		}
	}
	return f, nil
}

func sniffDelimiter(br *bufio.Reader) rune {
	sample, _ := br.Peek(4096)
	if len(sample) == 0 {
		return ','
	}
	// only the header line is considered; data lines carry free text
	if i := strings.IndexByte(string(sample), '\n'); i > 0 {
		sample = sample[:i]
	}
	candidates := []byte{',', '\t', ';', '|'}
	best := byte(',')
	bestCount := 0
	for _, c := range candidates {
		cnt := 0
		for _, b := range sample {
			if b == c {
				cnt++
			}
		}
		if cnt > bestCount {
			bestCount = cnt
			best = c
		}
	}
	return rune(best)
}
