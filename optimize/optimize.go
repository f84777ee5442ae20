// Package optimize runs rewrite passes over a teg.Graph to a fixed
// point. Passes declare whether they preserve adjunction (observable
// resource outcomes) and resource structure; the manager re-checks the
// graph invariants after every pass and rolls back a pass that breaks
// them.
package optimize

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/timewave-computer/causality-sub020/teg"
)

// Config controls the pass manager.
//
// Level 0 disables everything; 1 enables constant folding; 2 adds
// dead code elimination and operation fusion; 3 is reserved for
// aggressive semantics-preserving passes.
type Config struct {
	Level         int
	MaxIterations uint32
	Skip          map[string]bool
	// Strict aborts the run on the first pass invariant violation
	// instead of rolling back and continuing.
	Strict bool
}

func DefaultConfig() Config {
	return Config{Level: 1, MaxIterations: 16}
}

// Pass is one rewrite over a mutable graph. Apply reports whether it
// changed anything.
type Pass interface {
	Name() string
	Description() string
	Apply(g *teg.Graph, cfg *Config) (bool, error)
	PreservesAdjunction() bool
	PreservesResourceStructure() bool
}

// PassViolationError reports a pass that left the graph violating its
// invariants. The graph seen by later passes is the pre-pass state.
type PassViolationError struct {
	Pass   string
	Reason string
}

func (e *PassViolationError) Error() string {
	return fmt.Sprintf("pass %s violated graph invariants: %s", e.Pass, e.Reason)
}

type MaxIterationsError struct {
	Max uint32
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("optimization did not settle within %d iterations", e.Max)
}

// Report describes one optimizer run.
type Report struct {
	Iterations  uint32
	PassChanges map[string]uint32
	Violations  []PassViolationError
}

type registeredPass struct {
	pass  Pass
	level int
}

// Optimizer is the pass manager.
type Optimizer struct {
	passes []registeredPass
	log    zerolog.Logger
}

// New returns an optimizer with the standard pass list: constant
// folding at level 1, dead code elimination and operation fusion at
// level 2.
func New(log zerolog.Logger) *Optimizer {
	o := &Optimizer{log: log}
	o.Register(NewConstantFolding(), 1)
	o.Register(NewDeadCodeElimination(), 2)
	o.Register(NewOperationFusion(), 2)
	return o
}

// NewEmpty returns an optimizer with no passes registered.
func NewEmpty(log zerolog.Logger) *Optimizer {
	return &Optimizer{log: log}
}

// Register adds a pass that runs at config levels >= level.
// Registration order is execution order within a round.
func (o *Optimizer) Register(p Pass, level int) {
	o.passes = append(o.passes, registeredPass{pass: p, level: level})
}

// Run mutates g in place, looping over the eligible passes until a
// full round reports no change or cfg.MaxIterations rounds have run.
func (o *Optimizer) Run(g *teg.Graph, cfg Config) (*Report, error) {
	report := &Report{PassChanges: map[string]uint32{}}
	if cfg.Level <= 0 {
		return report, nil
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}

	for report.Iterations < cfg.MaxIterations {
		report.Iterations++
		changedThisRound := false
		for _, rp := range o.passes {
			if rp.level > cfg.Level || cfg.Skip[rp.pass.Name()] {
				continue
			}
			snapshot := g.Clone()
			changed, err := rp.pass.Apply(g, &cfg)
			if err == nil {
				err = g.CheckInvariants()
			}
			if err != nil {
				violation := PassViolationError{Pass: rp.pass.Name(), Reason: err.Error()}
				if cfg.Strict {
					return report, &violation
				}
				o.log.Warn().
					Str("pass", rp.pass.Name()).
					Str("reason", err.Error()).
					Msg("pass rolled back")
				restore(g, snapshot)
				report.Violations = append(report.Violations, violation)
				continue
			}
			if changed {
				report.PassChanges[rp.pass.Name()]++
				changedThisRound = true
				o.log.Debug().
					Str("pass", rp.pass.Name()).
					Int("effects", g.EffectCount()).
					Msg("pass changed graph")
			}
		}
		if !changedThisRound {
			return report, nil
		}
	}

	// One extra probe round would be needed to prove quiescence; the
	// budget is exhausted instead.
	return report, &MaxIterationsError{Max: cfg.MaxIterations}
}

// restore copies the snapshot's state back into g so callers holding
// the original pointer observe the rollback.
func restore(g *teg.Graph, snapshot *teg.Graph) {
	*g = *snapshot
}
