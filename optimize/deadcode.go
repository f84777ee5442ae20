package optimize

import "github.com/timewave-computer/causality-sub020/teg"

// DeadCodeElimination removes pure effects whose results are never
// observed: they access no resources and have no outgoing
// continuations, so no execution can route their value into a resource
// outcome. Removal runs to a fixed point since a consumer's removal
// can strand its producers.
type DeadCodeElimination struct{}

func NewDeadCodeElimination() *DeadCodeElimination {
	return &DeadCodeElimination{}
}

func (*DeadCodeElimination) Name() string { return "dead_code_elimination" }

func (*DeadCodeElimination) Description() string {
	return "remove pure effects whose values reach no resource outcome"
}

func (*DeadCodeElimination) PreservesAdjunction() bool        { return true }
func (*DeadCodeElimination) PreservesResourceStructure() bool { return true }

func (*DeadCodeElimination) Apply(g *teg.Graph, _ *Config) (bool, error) {
	changed := false
	for {
		var dead []teg.EffectID
		for _, n := range g.Effects() {
			if !n.IsPure() || n.IsConstant() {
				continue
			}
			if len(n.ResourcesAccessed) > 0 {
				continue
			}
			if len(g.OutgoingEdges(n.ID)) == 0 {
				dead = append(dead, n.ID)
			}
		}
		if len(dead) == 0 {
			return changed, nil
		}
		for _, id := range dead {
			if err := g.RemoveEffect(id); err != nil {
				return changed, err
			}
		}
		changed = true
	}
}
