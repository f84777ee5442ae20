package circuit

import (
	"strconv"
)

// Gate-level passes act purely on gate syntax after lowering; they are
// unrelated to the graph-level passes in the optimize package. All of
// them keep output wire numbering intact (no renumbering), so wire
// references stay stable across passes.

func (c *Compiler) runGatePasses(circ *ZkCircuit) {
	passes := []func(*ZkCircuit) bool{foldConstantGates}
	if c.cfg.OptimizationLevel >= 2 {
		passes = append(passes, eliminateDeadGates, mergeGates)
	}
	for {
		changed := false
		for _, p := range passes {
			if p(circ) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	circ.GateCount = len(circ.Gates)
}

var arithGateOps = map[string]bool{
	"add": true, "sub": true, "mul": true, "div": true,
}

// foldConstantGates rewrites arithmetic gates whose inputs all come
// from constraint gates with integer values into constraint gates.
func foldConstantGates(circ *ZkCircuit) bool {
	constVal := map[uint32]int64{}
	for _, g := range circ.Gates {
		if g.GateType != GateConstraint {
			continue
		}
		if x, err := strconv.ParseInt(g.Parameters["value"], 10, 64); err == nil {
			constVal[g.Output] = x
		}
	}

	changed := false
	for i := range circ.Gates {
		g := &circ.Gates[i]
		if !arithGateOps[g.GateType] || len(g.Inputs) < 2 {
			continue
		}
		acc, ok := constVal[g.Inputs[0]]
		if !ok {
			continue
		}
		folded := true
		for _, in := range g.Inputs[1:] {
			x, ok := constVal[in]
			if !ok {
				folded = false
				break
			}
			acc, ok = gateArith(g.GateType, acc, x)
			if !ok {
				folded = false
				break
			}
		}
		if !folded {
			continue
		}
		params := map[string]string{"value": strconv.FormatInt(acc, 10)}
		for k, v := range g.Parameters {
			if k != "value" {
				params[k] = v
			}
		}
		circ.Gates[i] = Gate{GateType: GateConstraint, Output: g.Output, Parameters: params}
		constVal[g.Output] = acc
		changed = true
	}
	return changed
}

func gateArith(op string, a, b int64) (int64, bool) {
	switch op {
	case "add":
		c := a + b
		if (b > 0 && c < a) || (b < 0 && c > a) {
			return 0, false
		}
		return c, true
	case "sub":
		c := a - b
		if (b < 0 && c < a) || (b > 0 && c > a) {
			return 0, false
		}
		return c, true
	case "mul":
		if a == 0 || b == 0 {
			return 0, true
		}
		c := a * b
		if c/b != a || (a == minInt64 && b == -1) || (b == minInt64 && a == -1) {
			return 0, false
		}
		return c, true
	case "div":
		if b == 0 {
			return 0, false
		}
		if a == minInt64 && b == -1 {
			return 0, false
		}
		return a / b, true
	}
	return 0, false
}

const minInt64 = -1 << 63

// eliminateDeadGates drops gates whose output wire feeds no other gate
// and is not a circuit output. Verify gates are assertions and always
// stay.
func eliminateDeadGates(circ *ZkCircuit) bool {
	used := map[uint32]bool{}
	for _, g := range circ.Gates {
		for _, in := range g.Inputs {
			used[in] = true
		}
	}
	for _, w := range circ.OutputWires {
		used[w] = true
	}

	kept := circ.Gates[:0]
	changed := false
	for _, g := range circ.Gates {
		if g.GateType != GateVerify && !used[g.Output] {
			changed = true
			continue
		}
		kept = append(kept, g)
	}
	circ.Gates = kept
	return changed
}

// mergeGates splices a same-typed associative gate into its single
// consumer, the flat analogue of the graph-level operation fusion.
func mergeGates(circ *ZkCircuit) bool {
	mergeable := map[string]bool{
		"add": true, "mul": true, "and": true, "or": true, "concat": true,
	}

	producer := map[uint32]int{}
	useCount := map[uint32]int{}
	for i, g := range circ.Gates {
		producer[g.Output] = i
		for _, in := range g.Inputs {
			useCount[in]++
		}
	}
	isOutput := map[uint32]bool{}
	for _, w := range circ.OutputWires {
		isOutput[w] = true
	}

	changed := false
	for i := range circ.Gates {
		g := &circ.Gates[i]
		if !mergeable[g.GateType] {
			continue
		}
		var merged []uint32
		spliced := false
		for _, in := range g.Inputs {
			pi, ok := producer[in]
			if ok && circ.Gates[pi].GateType == g.GateType &&
				useCount[in] == 1 && !isOutput[in] && !spliced {
				merged = append(merged, circ.Gates[pi].Inputs...)
				// the producer becomes dead; DCE collects it
				useCount[in] = 0
				spliced = true
				continue
			}
			merged = append(merged, in)
		}
		if spliced {
			g.Inputs = merged
			changed = true
		}
	}
	return changed
}
