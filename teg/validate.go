package teg

import "fmt"

// CheckInvariants verifies the structural invariants the builder
// establishes and every optimization pass must preserve:
// referenced ids resolve, dependencies mirror continuations, the
// continuation graph is acyclic, node domains are registered, and each
// node's id equals its content hash.
func (g *Graph) CheckInvariants() error {
	for _, id := range g.effectOrder {
		n := g.effects[id]
		for _, r := range n.ResourcesAccessed {
			if _, ok := g.resources[r]; !ok {
				return fmt.Errorf("effect %s: %w", id, &UnknownReferenceError{From: "resources_accessed", To: r.String()})
			}
		}
		if !g.domains[n.DomainID] {
			return &DomainUnknownError{Node: id.String(), Domain: n.DomainID}
		}
		if computed := n.ComputeID(g.hasher); computed != id {
			return &HashMismatchError{Stored: id.String(), Computed: computed.String()}
		}
	}
	for _, id := range g.resourceOrder {
		n := g.resources[id]
		if !g.domains[n.DomainID] {
			return &DomainUnknownError{Node: id.String(), Domain: n.DomainID}
		}
		if computed := n.ComputeID(g.hasher); computed != id {
			return &HashMismatchError{Stored: id.String(), Computed: computed.String()}
		}
	}

	for src, edges := range g.continuations {
		if _, ok := g.effects[src]; !ok {
			return &UnknownReferenceError{From: "continuations", To: src.String()}
		}
		for _, e := range edges {
			if _, ok := g.effects[e.Target]; !ok {
				return fmt.Errorf("effect %s: %w", src, &UnknownReferenceError{From: "continuation", To: e.Target.String()})
			}
			if !containsEffect(g.dependencies[e.Target], src) {
				return &InvariantViolationError{
					Reason: fmt.Sprintf("continuation %s -> %s has no dependency mirror", src, e.Target),
				}
			}
		}
	}
	for dst, preds := range g.dependencies {
		if _, ok := g.effects[dst]; !ok {
			return &UnknownReferenceError{From: "dependencies", To: dst.String()}
		}
		for _, pred := range preds {
			if _, ok := g.GetEdge(pred, dst); !ok {
				return &InvariantViolationError{
					Reason: fmt.Sprintf("dependency %s <- %s has no continuation mirror", dst, pred),
				}
			}
		}
	}

	for src, rels := range g.relationships {
		if _, ok := g.resources[src]; !ok {
			return &UnknownReferenceError{From: "relationships", To: src.String()}
		}
		for _, rel := range rels {
			if _, ok := g.resources[rel.Target]; !ok {
				return fmt.Errorf("resource %s: %w", src, &UnknownReferenceError{From: "relationship", To: rel.Target.String()})
			}
		}
	}

	return g.checkAcyclic()
}

// checkAcyclic runs Kahn's algorithm over the continuation graph.
func (g *Graph) checkAcyclic() error {
	indeg := make(map[EffectID]int, len(g.effects))
	for _, id := range g.effectOrder {
		indeg[id] = len(g.dependencies[id])
	}
	queue := []EffectID{}
	for _, id := range g.effectOrder {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visited++
		for _, e := range g.continuations[cur] {
			indeg[e.Target]--
			if indeg[e.Target] == 0 {
				queue = append(queue, e.Target)
			}
		}
	}
	if visited != len(g.effects) {
		return &InvariantViolationError{
			Reason: fmt.Sprintf("continuation graph has a cycle through %d effects", len(g.effects)-visited),
		}
	}
	return nil
}

// TopologicalOrder returns the effects in a deterministic topological
// order over continuations: ready nodes are released smallest id
// first. Fails if the graph is cyclic.
func (g *Graph) TopologicalOrder() ([]EffectID, error) {
	indeg := make(map[EffectID]int, len(g.effects))
	for _, id := range g.effectOrder {
		indeg[id] = len(g.dependencies[id])
	}
	ready := newIDHeap()
	for _, id := range g.SortedEffectIDs() {
		if indeg[id] == 0 {
			ready.push(id)
		}
	}
	order := make([]EffectID, 0, len(g.effects))
	for ready.len() > 0 {
		cur := ready.pop()
		order = append(order, cur)
		for _, e := range g.continuations[cur] {
			indeg[e.Target]--
			if indeg[e.Target] == 0 {
				ready.push(e.Target)
			}
		}
	}
	if len(order) != len(g.effects) {
		return nil, &InvariantViolationError{Reason: "continuation graph has a cycle"}
	}
	return order, nil
}
