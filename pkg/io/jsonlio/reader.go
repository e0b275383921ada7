package jsonlio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	iox "github.com/wdm0006/smudge/pkg/io/ioutils"
	sm "github.com/wdm0006/smudge/pkg/smudge"
)

type ReaderOptions struct {
	TimeLayouts []string
	// MaxLineBytes bounds a single record; default 4 MiB.
	MaxLineBytes int
}

type Reader struct {
	sc  *bufio.Scanner
	opt ReaderOptions
}

// record is one decoded line with its keys in file order.
type record struct {
	line   int
	keys   []string
	values map[string]any
}

func Open(path string, opt ReaderOptions) (*Reader, io.Closer, error) {
	rc, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return nil, nil, err
	}
	return NewReaderFrom(rc, opt), rc, nil
}

func NewReaderFrom(r io.Reader, opt ReaderOptions) *Reader {
	if len(opt.TimeLayouts) == 0 {
		opt.TimeLayouts = sm.DefaultTimeLayouts
	}
	if opt.MaxLineBytes <= 0 {
		opt.MaxLineBytes = 4 << 20
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), opt.MaxLineBytes)
	return &Reader{sc: sc, opt: opt}
}

// ReadAll decodes every object and types it by the declared schema. Column
// order follows first appearance in the input; keys the declaration does not
// mention are carried as nullable strings. A key absent from a line is a null.
func (r *Reader) ReadAll(declared sm.Schema) (*sm.Frame, error) {
	var recs []record
	line := 0
	for r.sc.Scan() {
		line++
		raw := bytes.TrimSpace(r.sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		rec, err := decodeOrdered(raw)
		if err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
		rec.line = line
		recs = append(recs, rec)
	}
	if err := r.sc.Err(); err != nil {
		return nil, err
	}

	schema, err := resolveSchema(declared, recs)
	if err != nil {
		return nil, err
	}
	f := sm.NewFrame(schema)
	for _, rec := range recs {
		f.AppendNullRow()
		row := f.Rows() - 1
		for _, cs := range schema.Columns {
			v, ok := rec.values[cs.Name]
			if !ok || v == nil {
				if !cs.Nullable {
					return nil, &sm.SchemaMismatchError{Column: cs.Name, Want: cs.Type, Line: rec.line, Reason: "null in non-nullable column"}
				}
				continue
			}
			cell, err := r.convert(cs, v)
			if err != nil {
				return nil, &sm.SchemaMismatchError{Column: cs.Name, Want: cs.Type, Line: rec.line, Value: fmt.Sprint(v), Reason: err.Error()}
			}
			if cell == nil {
				if !cs.Nullable {
					return nil, &sm.SchemaMismatchError{Column: cs.Name, Want: cs.Type, Line: rec.line, Reason: "null in non-nullable column"}
				}
				continue
			}
			if err := f.SetCell(row, cs.Name, cell); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func (r *Reader) convert(cs sm.ColumnSchema, v any) (any, error) {
	switch t := v.(type) {
	case string:
		return sm.ParseCell(cs.Type, t, r.opt.TimeLayouts)
	case json.Number:
		if cs.Type == sm.KindTime || cs.Type == sm.KindBool {
			return nil, errors.New("unexpected number")
		}
		return sm.ParseCell(cs.Type, t.String(), nil)
	case bool:
		switch cs.Type {
		case sm.KindBool:
			return t, nil
		case sm.KindString:
			return strconv.FormatBool(t), nil
		}
		return nil, errors.New("unexpected bool")
	default:
		if cs.Type != sm.KindString {
			return nil, fmt.Errorf("unexpected %T", v)
		}
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

func resolveSchema(declared sm.Schema, recs []record) (sm.Schema, error) {
	seen := map[string]bool{}
	var out sm.Schema
	for _, rec := range recs {
		for _, k := range rec.keys {
			if seen[k] {
				continue
			}
			seen[k] = true
			if cs, ok := declared.Lookup(k); ok {
				out.Columns = append(out.Columns, cs)
				continue
			}
			out.Columns = append(out.Columns, sm.ColumnSchema{Name: k, Type: sm.KindString, Nullable: true})
		}
	}
	for _, cs := range declared.Columns {
		if seen[cs.Name] {
			continue
		}
		if len(recs) > 0 {
			return sm.Schema{}, &sm.SchemaMismatchError{Column: cs.Name, Want: cs.Type, Reason: "declared column missing from input"}
		}
		// empty input still yields the declared shape
		out.Columns = append(out.Columns, cs)
	}
	return out, nil
}

// decodeOrdered walks a single JSON object token by token so key order is kept.
func decodeOrdered(raw []byte) (record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return record{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return record{}, errors.New("expected a JSON object")
	}
	rec := record{values: map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return record{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return record{}, fmt.Errorf("unexpected token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return record{}, err
		}
		if _, dup := rec.values[key]; !dup {
			rec.keys = append(rec.keys, key)
		}
		rec.values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return record{}, err
	}
	return rec, nil
}
