package ioutils

import (
	"bufio"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// OpenMaybeCompressed opens a file and returns a reader. If the input appears
// to be gzip (by extension or magic), it wraps with gzip.
func OpenMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	b, err := br.Peek(2)
	gz := IsGzip(path) || (err == nil && len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b)
	if !gz {
		return readCloser{Reader: br, closeFn: f.Close}, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return readCloser{Reader: zr, closeFn: func() error { _ = zr.Close(); return f.Close() }}, nil
}

// CreateMaybeCompressed creates (or truncates) a file and returns a buffered
// writer. If the path ends in .gz, the writer is gzip compressed. Parent
// directories are created as needed.
func CreateMaybeCompressed(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if IsGzip(path) {
		zw := gzip.NewWriter(f)
		return writeCloser{Writer: zw, closeFn: func() error {
			if err := zw.Close(); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		}}, nil
	}
	return writeCloser{Writer: bufio.NewWriter(f), closeFn: f.Close}, nil
}

// IsGzip reports whether path carries a .gz extension.
func IsGzip(path string) bool { return strings.EqualFold(filepath.Ext(path), ".gz") }

// BaseExt returns the lower-cased extension with any trailing .gz removed,
// so "a.csv.gz" yields ".csv".
func BaseExt(path string) string {
	if IsGzip(path) {
		path = path[:len(path)-len(filepath.Ext(path))]
	}
	return strings.ToLower(filepath.Ext(path))
}

type readCloser struct {
	io.Reader
	closeFn func() error
}

func (r readCloser) Close() error {
	if r.closeFn != nil {
		return r.closeFn()
	}
	return errors.New("no closeFn")
}

type writeCloser struct {
	io.Writer
	closeFn func() error
}

func (w writeCloser) Close() error {
	if bw, ok := w.Writer.(*bufio.Writer); ok {
		if err := bw.Flush(); err != nil {
			_ = w.closeFn()
			return err
		}
	}
	if w.closeFn != nil {
		return w.closeFn()
	}
	return errors.New("no closeFn")
}
