package smudge

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Transform is a mutation applied to a Frame.
type Transform interface {
	Name() string
	Apply(ctx context.Context, f *Frame) (*Frame, error)
}

// Pipeline composes a sequence of Transforms. Order is significant: a step
// sees the frame as left by every step before it.
type Pipeline struct {
	steps  []Transform
	logger *zap.Logger
}

func NewPipeline() *Pipeline { return &Pipeline{logger: zap.NewNop()} }

// WithLogger attaches a logger that receives one debug line per step.
func (p *Pipeline) WithLogger(l *zap.Logger) *Pipeline {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *Pipeline) Add(t Transform) *Pipeline {
	p.steps = append(p.steps, t)
	return p
}

func (p *Pipeline) Steps() []Transform { return append([]Transform(nil), p.steps...) }
func (p *Pipeline) Len() int           { return len(p.steps) }

func (p *Pipeline) Run(ctx context.Context, f *Frame) (*Frame, error) {
	var err error
	cur := f
	for i, t := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		cur, err = t.Apply(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, t.Name(), err)
		}
		p.logger.Debug("applied step",
			zap.Int("step", i+1),
			zap.String("name", t.Name()),
			zap.Int("rows", cur.Rows()),
			zap.Duration("elapsed", time.Since(start)))
	}
	return cur, nil
}
