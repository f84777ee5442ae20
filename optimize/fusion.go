package optimize

import "github.com/timewave-computer/causality-sub020/teg"

var associativeTypes = map[string]bool{
	teg.TypeAdd:      true,
	teg.TypeMultiply: true,
	teg.TypeAnd:      true,
	teg.TypeOr:       true,
	teg.TypeConcat:   true,
}

// OperationFusion is the TEG-level analogue of gate merging: a chain
// of same-typed associative pure operations collapses into one n-ary
// operation. An inner node is spliced only when the outer node is its
// sole consumer, so no other effect loses an operand.
type OperationFusion struct{}

func NewOperationFusion() *OperationFusion {
	return &OperationFusion{}
}

func (*OperationFusion) Name() string { return "operation_fusion" }

func (*OperationFusion) Description() string {
	return "splice single-consumer associative operations into their consumer"
}

func (*OperationFusion) PreservesAdjunction() bool        { return true }
func (*OperationFusion) PreservesResourceStructure() bool { return true }

func (*OperationFusion) Apply(g *teg.Graph, _ *Config) (bool, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return false, err
	}

	changed := false
	for _, id := range order {
		outer, ok := g.GetEffect(id)
		if !ok {
			continue
		}
		if !associativeTypes[outer.EffectType] {
			continue
		}

		var inner *teg.EffectNode
		for _, op := range g.OperandOrder(id) {
			cand, _ := g.GetEffect(op)
			if cand.EffectType != outer.EffectType {
				continue
			}
			if len(cand.ResourcesAccessed) > 0 {
				continue
			}
			out := g.OutgoingEdges(op)
			if len(out) != 1 || out[0].Neighbor != id {
				continue
			}
			// Guarded edges carry scheduling conditions splicing
			// would erase.
			if out[0].Data.Guard != nil {
				continue
			}
			// An edge can carry each operand only once; splicing an
			// operand the outer node already reads would drop a term.
			overlap := false
			for _, innerOp := range g.OperandOrder(op) {
				if innerOp == id {
					continue
				}
				if _, exists := g.GetEdge(innerOp, id); exists {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}
			inner = cand
			break
		}
		if inner == nil {
			continue
		}

		// New operand order: the inner node's operands take its slot,
		// remaining operands keep their relative order.
		operands := g.OperandOrder(id)
		merged := make([]teg.EffectID, 0, len(operands)+4)
		for _, op := range operands {
			if op == inner.ID {
				merged = append(merged, g.OperandOrder(inner.ID)...)
			} else {
				merged = append(merged, op)
			}
		}

		guards := map[teg.EffectID]*teg.ExprID{}
		for _, e := range g.IncomingEdges(id) {
			guards[e.Neighbor] = e.Data.Guard
		}
		for _, e := range g.IncomingEdges(inner.ID) {
			guards[e.Neighbor] = e.Data.Guard
		}

		if err := g.RemoveEffect(inner.ID); err != nil {
			return changed, err
		}
		for _, pred := range g.Dependencies(id) {
			if err := g.RemoveEdge(pred, id); err != nil {
				return changed, err
			}
		}
		for i, op := range merged {
			data := teg.EdgeData{Order: uint32(i), Guard: guards[op]}
			if err := g.AddEdge(op, id, data); err != nil {
				return changed, err
			}
		}
		changed = true
	}
	return changed, nil
}
