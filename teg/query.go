package teg

import "github.com/timewave-computer/causality-sub020/utils"

// EntryPoints returns the effects with no dependencies, in insertion
// order.
func (g *Graph) EntryPoints() []EffectID {
	res := []EffectID{}
	for _, id := range g.effectOrder {
		if len(g.dependencies[id]) == 0 {
			res = append(res, id)
		}
	}
	return res
}

// ExitPoints returns the effects with no continuations, in insertion
// order.
func (g *Graph) ExitPoints() []EffectID {
	res := []EffectID{}
	for _, id := range g.effectOrder {
		if len(g.continuations[id]) == 0 {
			res = append(res, id)
		}
	}
	return res
}

func (g *Graph) EffectsByDomain(d DomainID) []EffectID {
	res := []EffectID{}
	for _, id := range g.effectOrder {
		if g.effects[id].DomainID == d {
			res = append(res, id)
		}
	}
	return res
}

func (g *Graph) ResourcesByDomain(d DomainID) []ResourceID {
	res := []ResourceID{}
	for _, id := range g.resourceOrder {
		if g.resources[id].DomainID == d {
			res = append(res, id)
		}
	}
	return res
}

// ResourcesAccessedByEffect returns the effect's access list as
// recorded on the node, duplicates and order included.
func (g *Graph) ResourcesAccessedByEffect(id EffectID) ([]ResourceID, error) {
	n, ok := g.effects[id]
	if !ok {
		return nil, &NotFoundError{ID: id.String()}
	}
	return append([]ResourceID(nil), n.ResourcesAccessed...), nil
}

// EffectsAccessingResource answers from the maintained inverse index,
// which stays consistent with every node's ResourcesAccessed field.
func (g *Graph) EffectsAccessingResource(id ResourceID) ([]EffectID, error) {
	if _, ok := g.resources[id]; !ok {
		return nil, &NotFoundError{ID: id.String()}
	}
	return append([]EffectID(nil), g.accessedBy[id]...), nil
}

// FindPath runs a breadth-first search over continuations from from to
// to. Neighbor expansion is by ascending edge order, then lexicographic
// target id, so the returned path is deterministic. FindPath(x, x)
// yields [x].
func (g *Graph) FindPath(from, to EffectID) ([]EffectID, bool) {
	if _, ok := g.effects[from]; !ok {
		return nil, false
	}
	if _, ok := g.effects[to]; !ok {
		return nil, false
	}
	if from == to {
		return []EffectID{from}, true
	}
	prev := map[EffectID]EffectID{}
	seen := map[EffectID]bool{from: true}
	queue := []EffectID{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		next := g.continuations[cur]
		order := make([]int, len(next))
		for i := range order {
			order[i] = i
		}
		utils.SortIntSeq(order, func(i, j int) bool {
			if next[i].Data.Order != next[j].Data.Order {
				return next[i].Data.Order < next[j].Data.Order
			}
			return next[i].Target.Less(next[j].Target)
		})
		for _, k := range order {
			e := next[k]
			if seen[e.Target] {
				continue
			}
			seen[e.Target] = true
			prev[e.Target] = cur
			if e.Target == to {
				path := []EffectID{to}
				for p := cur; ; p = prev[p] {
					path = append(path, p)
					if p == from {
						break
					}
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, e.Target)
		}
	}
	return nil, false
}

// OperandOrder returns id's predecessors sorted by edge order, ties by
// lexicographic predecessor id. This is the operand order used by the
// optimizer and the compiler.
func (g *Graph) OperandOrder(id EffectID) []EffectID {
	in := g.IncomingEdges(id)
	order := make([]int, len(in))
	for i := range order {
		order[i] = i
	}
	utils.SortIntSeq(order, func(i, j int) bool {
		if in[i].Data.Order != in[j].Data.Order {
			return in[i].Data.Order < in[j].Data.Order
		}
		return in[i].Neighbor.Less(in[j].Neighbor)
	})
	res := make([]EffectID, len(in))
	for i, k := range order {
		res[i] = in[k].Neighbor
	}
	return res
}
