// Package catalog describes an ordered list of defects as data and turns it
// into a smudge.Pipeline of defect transforms.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/wdm0006/smudge/pkg/defect"
	"github.com/wdm0006/smudge/pkg/io/structio"
	sm "github.com/wdm0006/smudge/pkg/smudge"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

// Defect is one catalog entry. Only the parameter matching Kind is read:
// Year for set_year, Factors for scale, Offsets for offset and Sentinels for
// corrupt_type. An empty sentinel (or YAML/JSON null) writes a null cell.
type Defect struct {
	Category  string    `yaml:"category" toml:"category" json:"category"`
	Kind      string    `yaml:"kind" toml:"kind" json:"kind"`
	Column    string    `yaml:"column" toml:"column" json:"column"`
	RowIDs    []int64   `yaml:"row_ids" toml:"row_ids" json:"row_ids"`
	Year      int       `yaml:"year,omitempty" toml:"year,omitempty" json:"year,omitempty"`
	Factors   []float64 `yaml:"factors,omitempty" toml:"factors,omitempty" json:"factors,omitempty"`
	Offsets   []float64 `yaml:"offsets,omitempty" toml:"offsets,omitempty" json:"offsets,omitempty"`
	Sentinels []string  `yaml:"sentinels,omitempty" toml:"sentinels,omitempty" json:"sentinels,omitempty"`
}

type Catalog struct {
	Name string `yaml:"name" toml:"name" json:"name"`
	// Key is the integer column row ids refer to; empty means "Row ID".
	Key     string   `yaml:"key,omitempty" toml:"key,omitempty" json:"key,omitempty"`
	Defects []Defect `yaml:"defects" toml:"defects" json:"defects"`
}

//go:embed superstore.yaml
var superstoreYAML []byte

// Default returns the Superstore teaching catalog.
func Default() *Catalog {
	c, err := Parse(structio.YAML, superstoreYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog file (.yaml, .yml, .toml or .json) and validates it.
func Load(path string) (*Catalog, error) {
	var c Catalog
	if err := structio.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

func Parse(format string, b []byte) (*Catalog, error) {
	var c Catalog
	if err := structio.Decode(format, b, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Encode(w io.Writer, format string) error { return structio.Encode(w, format, c) }

// Validate reports every problem found, each wrapping ErrInvalidCatalog.
func (c *Catalog) Validate() error {
	var errs []error
	bad := func(i int, d Defect, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		errs = append(errs, fmt.Errorf("%w: defect %d (%s %s): %s", ErrInvalidCatalog, i+1, d.Kind, d.Column, msg))
	}
	if len(c.Defects) == 0 {
		errs = append(errs, fmt.Errorf("%w: no defects", ErrInvalidCatalog))
	}
	for i, d := range c.Defects {
		if !slices.Contains(defect.Kinds, d.Kind) {
			bad(i, d, "unknown kind %q (want one of %s)", d.Kind, strings.Join(defect.Kinds, ", "))
		}
		if strings.TrimSpace(d.Column) == "" {
			bad(i, d, "column is empty")
		}
		if len(d.RowIDs) == 0 {
			bad(i, d, "row_ids is empty")
		}
		switch d.Kind {
		case defect.KindSetYear:
			if d.Year < 1 || d.Year > 9999 {
				bad(i, d, "year %d out of range 1..9999", d.Year)
			}
		case defect.KindScale:
			if len(d.Factors) == 0 {
				bad(i, d, "factors is empty")
			}
		case defect.KindOffset:
			if len(d.Offsets) == 0 {
				bad(i, d, "offsets is empty")
			}
		case defect.KindCorruptType:
			if len(d.Sentinels) == 0 {
				bad(i, d, "sentinels is empty")
			}
		}
	}
	return errors.Join(errs...)
}

// Categories returns the distinct categories in catalog order.
func (c *Catalog) Categories() []string {
	var out []string
	for _, d := range c.Defects {
		if !slices.Contains(out, d.Category) {
			out = append(out, d.Category)
		}
	}
	return out
}

// Only returns a copy holding the defects whose category is listed.
func (c *Catalog) Only(categories ...string) *Catalog {
	out := &Catalog{Name: c.Name, Key: c.Key}
	for _, d := range c.Defects {
		if slices.Contains(categories, d.Category) {
			out.Defects = append(out.Defects, d)
		}
	}
	return out
}

type BuildOptions struct {
	Rand     defect.Rand
	Recorder defect.Recorder
	Logger   *zap.Logger
}

// Build validates the catalog and returns one transform per defect, in order.
func (c *Catalog) Build(opt BuildOptions) (*sm.Pipeline, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if opt.Rand == nil {
		opt.Rand = defect.NewRand()
	}
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := sm.NewPipeline().WithLogger(logger.Named("pipeline"))
	for i, d := range c.Defects {
		tgt := defect.Target{
			Column:   d.Column,
			RowIDs:   d.RowIDs,
			Key:      c.Key,
			Step:     i + 1,
			Category: d.Category,
			Rand:     opt.Rand,
			Recorder: opt.Recorder,
			Logger:   logger.Named("defect"),
		}
		switch d.Kind {
		case defect.KindNull:
			p.Add(&defect.Nullify{Target: tgt})
		case defect.KindSetYear:
			p.Add(&defect.SetYear{Target: tgt, Year: d.Year})
		case defect.KindScrambleCase:
			p.Add(&defect.ScrambleCase{Target: tgt})
		case defect.KindNegate:
			p.Add(&defect.Negate{Target: tgt})
		case defect.KindCorruptType:
			p.Add(&defect.CorruptType{Target: tgt, Sentinels: sentinels(d.Sentinels)})
		case defect.KindScale:
			p.Add(&defect.Scale{Target: tgt, Factors: d.Factors})
		case defect.KindOffset:
			p.Add(&defect.Offset{Target: tgt, Offsets: d.Offsets})
		}
	}
	return p, nil
}

func sentinels(in []string) []defect.Sentinel {
	out := make([]defect.Sentinel, len(in))
	for i, s := range in {
		if s == "" {
			out[i] = defect.Sentinel{Null: true}
			continue
		}
		out[i] = defect.Sentinel{Value: s}
	}
	return out
}
