// Package dataset picks a reader or writer for a table file from its extension.
package dataset

import (
	"fmt"

	"github.com/wdm0006/smudge/pkg/io/csvio"
	iox "github.com/wdm0006/smudge/pkg/io/ioutils"
	"github.com/wdm0006/smudge/pkg/io/jsonlio"
	"github.com/wdm0006/smudge/pkg/io/parquetio"
	sm "github.com/wdm0006/smudge/pkg/smudge"
)

type Format int

const (
	FormatCSV Format = iota
	FormatJSONL
	FormatParquet
)

func (f Format) String() string {
	switch f {
	case FormatJSONL:
		return "jsonl"
	case FormatParquet:
		return "parquet"
	}
	return "csv"
}

// FormatOf maps .csv, .jsonl/.ndjson and .parquet (with an optional .gz for
// the text formats) to a Format. Unknown extensions read and write as CSV.
func FormatOf(path string) (Format, error) {
	switch iox.BaseExt(path) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".parquet":
		if iox.IsGzip(path) {
			return 0, fmt.Errorf("dataset %s: parquet files are compressed internally, drop the .gz suffix", path)
		}
		return FormatParquet, nil
	}
	return FormatCSV, nil
}

// Load reads the table at path against the declared schema.
func Load(path string, declared sm.Schema) (*sm.Frame, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	var f *sm.Frame
	switch format {
	case FormatJSONL:
		r, closer, err := jsonlio.Open(path, jsonlio.ReaderOptions{})
		if err != nil {
			return nil, err
		}
		defer func() { _ = closer.Close() }()
		f, err = r.ReadAll(declared)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	case FormatParquet:
		r, err := parquetio.OpenReader(path, nil)
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		f, err = r.ReadAll(declared)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	default:
		r, closer, err := csvio.Open(path, csvio.ReaderOptions{Delimiter: ','})
		if err != nil {
			return nil, err
		}
		defer func() { _ = closer.Close() }()
		f, err = r.ReadAll(declared)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return f, nil
}

// Save overwrites path with the frame, creating parent directories.
func Save(path string, f *sm.Frame) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	switch format {
	case FormatJSONL:
		err = jsonlio.WriteAll(path, f)
	case FormatParquet:
		err = parquetio.WriteAll(path, f)
	default:
		err = csvio.WriteAll(path, f, csvio.WriterOptions{})
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
