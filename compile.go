// Package causality ties the temporal effect graph pipeline together:
// builder output flows through the graph optimizer and down to the
// circuit compiler. The individual stages live in the teg, builder,
// optimize and circuit packages; this package provides the end-to-end
// entry points.
package causality

import (
	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"

	"github.com/timewave-computer/causality-sub020/builder"
	"github.com/timewave-computer/causality-sub020/circuit"
	"github.com/timewave-computer/causality-sub020/optimize"
	"github.com/timewave-computer/causality-sub020/teg"
)

// Option configures the pipeline entry points.
type Option func(*options)

type options struct {
	log    zerolog.Logger
	hasLog bool
}

// WithLogger injects a logger; without it the gnark logger is used.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
		o.hasLog = true
	}
}

func resolve(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if !o.hasLog {
		o.log = logger.Logger()
	}
	return o
}

// BuildTEG freezes the builder into a validated graph.
func BuildTEG(b *builder.Builder) (*teg.Graph, error) {
	return b.Build()
}

// Optimize runs the standard pass list over a copy of g and returns
// the optimized graph; g itself is left untouched.
func Optimize(g *teg.Graph, cfg optimize.Config, opts ...Option) (*teg.Graph, *optimize.Report, error) {
	o := resolve(opts)
	optimized := g.Clone()
	report, err := optimize.New(o.log).Run(optimized, cfg)
	if err != nil {
		return nil, report, err
	}
	return optimized, report, nil
}

// Compile lowers a graph to a circuit under cfg.
func Compile(name string, g *teg.Graph, cfg circuit.Config, opts ...Option) (*circuit.ZkCircuit, error) {
	o := resolve(opts)
	return circuit.NewCompiler(cfg, o.log).Compile(name, g)
}

// CompileProgram compiles a surface-form program string.
func CompileProgram(name, src string, cfg circuit.Config, opts ...Option) (*circuit.ZkCircuit, error) {
	o := resolve(opts)
	return circuit.NewCompiler(cfg, o.log).CompileProgram(name, src)
}
