package teg

// Clone deep-copies the graph, insertion orders included. The
// optimizer snapshots through this before every pass so a failing pass
// can be rolled back.
func (g *Graph) Clone() *Graph {
	c := NewGraphWithHasher(g.hasher)
	for _, id := range g.effectOrder {
		c.effects[id] = g.effects[id].clone()
	}
	c.effectOrder = append([]EffectID(nil), g.effectOrder...)
	for _, id := range g.resourceOrder {
		c.resources[id] = g.resources[id].clone()
	}
	c.resourceOrder = append([]ResourceID(nil), g.resourceOrder...)
	for src, edges := range g.continuations {
		if len(edges) == 0 {
			continue
		}
		cp := make([]edge, len(edges))
		for i, e := range edges {
			cp[i] = e
			if e.Data.Guard != nil {
				guard := *e.Data.Guard
				cp[i].Data.Guard = &guard
			}
		}
		c.continuations[src] = cp
	}
	for dst, preds := range g.dependencies {
		if len(preds) == 0 {
			continue
		}
		c.dependencies[dst] = append([]EffectID(nil), preds...)
	}
	for src, rels := range g.relationships {
		if len(rels) == 0 {
			continue
		}
		c.relationships[src] = append([]ResourceRelationship(nil), rels...)
	}
	for d := range g.domains {
		c.domains[d] = true
	}
	for r, users := range g.accessedBy {
		if len(users) == 0 {
			continue
		}
		c.accessedBy[r] = append([]EffectID(nil), users...)
	}
	return c
}

// Equal compares two graphs structurally, ignoring insertion order.
func (g *Graph) Equal(other *Graph) bool {
	if len(g.effects) != len(other.effects) ||
		len(g.resources) != len(other.resources) ||
		len(g.domains) != len(other.domains) {
		return false
	}
	for id, n := range g.effects {
		m, ok := other.effects[id]
		if !ok || !effectNodesEqual(n, m) {
			return false
		}
		a := g.continuations[id]
		b := other.continuations[id]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i].Target != b[i].Target || a[i].Data.Order != b[i].Data.Order {
				return false
			}
			ga, gb := a[i].Data.Guard, b[i].Data.Guard
			if (ga == nil) != (gb == nil) || (ga != nil && *ga != *gb) {
				return false
			}
		}
	}
	for id, n := range g.resources {
		m, ok := other.resources[id]
		if !ok || !resourceNodesEqual(n, m) {
			return false
		}
		a := g.relationships[id]
		b := other.relationships[id]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	for d := range g.domains {
		if !other.domains[d] {
			return false
		}
	}
	return true
}

func effectNodesEqual(a, b *EffectNode) bool {
	if a.ID != b.ID || a.EffectType != b.EffectType || a.DomainID != b.DomainID {
		return false
	}
	if len(a.Parameters) != len(b.Parameters) || len(a.Metadata) != len(b.Metadata) ||
		len(a.ResourcesAccessed) != len(b.ResourcesAccessed) {
		return false
	}
	for k, v := range a.Parameters {
		w, ok := b.Parameters[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	for k, v := range a.Metadata {
		if b.Metadata[k] != v {
			return false
		}
	}
	for i := range a.ResourcesAccessed {
		if a.ResourcesAccessed[i] != b.ResourcesAccessed[i] {
			return false
		}
	}
	return true
}

func resourceNodesEqual(a, b *ResourceNode) bool {
	if a.ID != b.ID || a.ResourceType != b.ResourceType || a.DomainID != b.DomainID {
		return false
	}
	if len(a.Metadata) != len(b.Metadata) {
		return false
	}
	for k, v := range a.Metadata {
		if b.Metadata[k] != v {
			return false
		}
	}
	return true
}
