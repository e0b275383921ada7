// Package asset registers named pipeline stages with their upstream
// dependencies and materializes them one after another in dependency order.
package asset

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type MetaKind int

const (
	MetaText MetaKind = iota
	MetaInt
	MetaMarkdown
	MetaJSON
)

func (k MetaKind) String() string {
	switch k {
	case MetaInt:
		return "int"
	case MetaMarkdown:
		return "md"
	case MetaJSON:
		return "json"
	}
	return "text"
}

// MetaValue is one typed metadata entry attached to a materialization.
type MetaValue struct {
	Kind MetaKind
	Int  int64
	Text string
}

func Int(v int64) MetaValue       { return MetaValue{Kind: MetaInt, Int: v} }
func Text(s string) MetaValue     { return MetaValue{Kind: MetaText, Text: s} }
func Markdown(s string) MetaValue { return MetaValue{Kind: MetaMarkdown, Text: s} }
func JSON(s string) MetaValue     { return MetaValue{Kind: MetaJSON, Text: s} }

func (v MetaValue) String() string {
	if v.Kind == MetaInt {
		return strconv.FormatInt(v.Int, 10)
	}
	return v.Text
}

type Metadata map[string]MetaValue

// Keys returns the metadata keys sorted.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Result is what a materialization produces: metadata and, optionally, the
// in-memory value the stage computed.
type Result struct {
	Metadata Metadata
	Value    any
}

type MaterializeFunc func(ctx context.Context) (Result, error)

type Asset struct {
	Name        string
	Group       string
	Description string
	Deps        []string
	Materialize MaterializeFunc
}

// Materialization records one asset run.
type Materialization struct {
	Asset    string
	Group    string
	Result   Result
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Definitions is a validated, immutable set of assets.
type Definitions struct {
	assets []Asset
	index  map[string]int
	order  []int
	logger *zap.Logger
	hooks  []func(Materialization)
}

// NewDefinitions validates the assets and fixes their run order. It rejects
// an empty set, empty or duplicate names, missing materialize functions,
// dependencies on unknown assets, self-dependencies and cycles. Among assets
// that are ready at the same time, registration order wins.
func NewDefinitions(assets ...Asset) (*Definitions, error) {
	if len(assets) == 0 {
		return nil, invalidf("no assets")
	}
	d := &Definitions{assets: append([]Asset(nil), assets...), index: map[string]int{}, logger: zap.NewNop()}
	for i, a := range d.assets {
		if a.Name == "" {
			return nil, invalidf("asset %d has no name", i+1)
		}
		if _, dup := d.index[a.Name]; dup {
			return nil, invalidf("duplicate asset name: %q", a.Name)
		}
		if a.Materialize == nil {
			return nil, invalidf("asset %q has no materialize function", a.Name)
		}
		d.index[a.Name] = i
	}
	outgoing := make([][]int, len(d.assets))
	indeg := make([]int, len(d.assets))
	for i, a := range d.assets {
		seen := map[string]bool{}
		for _, dep := range a.Deps {
			j, ok := d.index[dep]
			if !ok {
				return nil, invalidf("asset %q depends on unknown asset %q", a.Name, dep)
			}
			if j == i {
				return nil, invalidf("asset %q depends on itself", a.Name)
			}
			if seen[dep] {
				return nil, invalidf("asset %q lists dependency %q twice", a.Name, dep)
			}
			seen[dep] = true
			outgoing[j] = append(outgoing[j], i)
			indeg[i]++
		}
	}
	d.order = topoOrder(outgoing, indeg)
	if len(d.order) != len(d.assets) {
		return nil, cycleError(d.findCycle(outgoing))
	}
	return d, nil
}

// WithLogger sets the logger used for materialization events.
func (d *Definitions) WithLogger(l *zap.Logger) *Definitions {
	if l != nil {
		d.logger = l
	}
	return d
}

// OnMaterialized registers a hook called after every asset run, failed or not.
func (d *Definitions) OnMaterialized(fn func(Materialization)) *Definitions {
	d.hooks = append(d.hooks, fn)
	return d
}

func (d *Definitions) Lookup(name string) (Asset, bool) {
	i, ok := d.index[name]
	if !ok {
		return Asset{}, false
	}
	return d.assets[i], true
}

// Order returns asset names in run order.
func (d *Definitions) Order() []string {
	out := make([]string, len(d.order))
	for k, i := range d.order {
		out[k] = d.assets[i].Name
	}
	return out
}

// Materialize runs the named assets, or all of them when none are named, in
// dependency order. Selected assets do not pull in their upstreams; a stage
// reads what upstream runs left in storage. The first failure stops the run
// and every later asset is skipped.
func (d *Definitions) Materialize(ctx context.Context, names ...string) ([]Materialization, error) {
	selected := make(map[int]bool, len(names))
	for _, n := range names {
		i, ok := d.index[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAsset, n)
		}
		selected[i] = true
	}
	var out []Materialization
	for _, i := range d.order {
		if len(selected) > 0 && !selected[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		a := d.assets[i]
		m := Materialization{Asset: a.Name, Group: a.Group, Started: time.Now()}
		d.logger.Info("materializing asset", zap.String("asset", a.Name), zap.String("group", a.Group))
		m.Result, m.Err = a.Materialize(ctx)
		m.Duration = time.Since(m.Started)
		for _, h := range d.hooks {
			h(m)
		}
		out = append(out, m)
		if m.Err != nil {
			d.logger.Error("asset failed", zap.String("asset", a.Name), zap.Error(m.Err))
			return out, fmt.Errorf("materialize %s: %w", a.Name, m.Err)
		}
		d.logger.Info("materialized asset",
			zap.String("asset", a.Name),
			zap.Duration("elapsed", m.Duration),
			zap.Strings("metadata", m.Result.Metadata.Keys()))
	}
	return out, nil
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder is Kahn's algorithm with a min-heap over registration index.
func topoOrder(outgoing [][]int, indeg []int) []int {
	deg := append([]int(nil), indeg...)
	ready := &intMinHeap{}
	for i, n := range deg {
		if n == 0 {
			heap.Push(ready, i)
		}
	}
	out := make([]int, 0, len(deg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range outgoing[n] {
			deg[m]--
			if deg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle returns one cycle as a closed path of names.
func (d *Definitions) findCycle(outgoing [][]int) []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(d.assets))
	stack := []int{}
	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		stack = append(stack, u)
		for _, v := range outgoing[u] {
			switch color[v] {
			case white:
				if dfs(v) {
					return true
				}
			case gray:
				for k := len(stack) - 1; k >= 0; k-- {
					if stack[k] == v {
						cycle = append(append(cycle, stack[k:]...), v)
						return true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
		return false
	}
	for i := range d.assets {
		if color[i] == white && dfs(i) {
			break
		}
	}
	out := make([]string, len(cycle))
	for k, i := range cycle {
		out[k] = d.assets[i].Name
	}
	return out
}
