package teg

import (
	"fmt"
	"sort"
)

// EdgeData annotates a continuation edge. Order disambiguates the
// operands of multi-input operations; Guard, when set, must evaluate
// true for the successor to be scheduled.
type EdgeData struct {
	Guard *ExprID
	Order uint32
}

type edge struct {
	Target EffectID
	Data   EdgeData
}

// IncidentEdge pairs a neighbor id with the data of the connecting
// edge, for incoming/outgoing queries.
type IncidentEdge struct {
	Neighbor EffectID
	Data     EdgeData
}

// Graph owns the temporal effect graph. Continuations are the primary
// edge store; effect dependencies are maintained as their mirror.
// Mutation is single-threaded; a built graph may be shared read-only.
type Graph struct {
	hasher Hasher

	effects   map[EffectID]*EffectNode
	resources map[ResourceID]*ResourceNode

	// successor edges per effect, insertion order
	continuations map[EffectID][]edge
	// mirror: predecessor ids per effect, insertion order
	dependencies map[EffectID][]EffectID

	relationships map[ResourceID][]ResourceRelationship

	domains map[DomainID]bool

	// insertion orders driving deterministic iteration
	effectOrder   []EffectID
	resourceOrder []ResourceID

	// inverse of ResourcesAccessed, kept consistent on add/remove
	accessedBy map[ResourceID][]EffectID
}

// NewGraph builds an empty graph hashed with Blake2b.
func NewGraph() *Graph {
	return NewGraphWithHasher(Blake2b)
}

// NewGraphWithHasher builds an empty graph with an explicit content
// hash, for callers that do not want the default.
func NewGraphWithHasher(h Hasher) *Graph {
	return &Graph{
		hasher:        h,
		effects:       map[EffectID]*EffectNode{},
		resources:     map[ResourceID]*ResourceNode{},
		continuations: map[EffectID][]edge{},
		dependencies:  map[EffectID][]EffectID{},
		relationships: map[ResourceID][]ResourceRelationship{},
		domains:       map[DomainID]bool{},
		accessedBy:    map[ResourceID][]EffectID{},
	}
}

func (g *Graph) Hasher() Hasher { return g.hasher }

// AddEffect assigns the node its content-addressed id and adopts it.
// Every resource the node accesses must already be present. The node's
// domain is registered in the domain set.
func (g *Graph) AddEffect(n *EffectNode) (EffectID, error) {
	for _, r := range n.ResourcesAccessed {
		if _, ok := g.resources[r]; !ok {
			return EffectID{}, &UnknownReferenceError{From: "effect " + n.Name(), To: r.String()}
		}
	}
	id := n.ComputeID(g.hasher)
	if _, ok := g.effects[id]; ok {
		return EffectID{}, &DuplicateIDError{ID: id.String()}
	}
	n.ID = id
	g.effects[id] = n
	g.effectOrder = append(g.effectOrder, id)
	g.domains[n.DomainID] = true
	for _, r := range n.ResourcesAccessed {
		if !containsEffect(g.accessedBy[r], id) {
			g.accessedBy[r] = append(g.accessedBy[r], id)
		}
	}
	return id, nil
}

// RemoveEffect deletes the node and every incident continuation and
// dependency edge, in both directions.
func (g *Graph) RemoveEffect(id EffectID) error {
	n, ok := g.effects[id]
	if !ok {
		return &NotFoundError{ID: id.String()}
	}
	for _, e := range g.continuations[id] {
		g.dependencies[e.Target] = removeEffectID(g.dependencies[e.Target], id)
	}
	for _, pred := range g.dependencies[id] {
		g.continuations[pred] = removeEdgeTo(g.continuations[pred], id)
	}
	delete(g.continuations, id)
	delete(g.dependencies, id)
	for _, r := range n.ResourcesAccessed {
		g.accessedBy[r] = removeEffectID(g.accessedBy[r], id)
		if len(g.accessedBy[r]) == 0 {
			delete(g.accessedBy, r)
		}
	}
	delete(g.effects, id)
	g.effectOrder = removeEffectID(g.effectOrder, id)
	return nil
}

// AddEdge inserts a continuation src -> dst and mirrors it into the
// dependency map. The graph is unchanged on error.
func (g *Graph) AddEdge(src, dst EffectID, data EdgeData) error {
	if _, ok := g.effects[src]; !ok {
		return &NotFoundError{ID: src.String()}
	}
	if _, ok := g.effects[dst]; !ok {
		return &NotFoundError{ID: dst.String()}
	}
	for _, e := range g.continuations[src] {
		if e.Target == dst {
			return &InvariantViolationError{Reason: fmt.Sprintf("edge %s -> %s already present", src, dst)}
		}
	}
	if src == dst || g.reaches(dst, src) {
		return &CycleError{Src: src, Dst: dst}
	}
	g.continuations[src] = append(g.continuations[src], edge{Target: dst, Data: data})
	g.dependencies[dst] = append(g.dependencies[dst], src)
	return nil
}

// RemoveEdge deletes the continuation src -> dst and its mirror.
func (g *Graph) RemoveEdge(src, dst EffectID) error {
	found := false
	for _, e := range g.continuations[src] {
		if e.Target == dst {
			found = true
		}
	}
	if !found {
		return &NotFoundError{ID: src.String() + " -> " + dst.String()}
	}
	g.continuations[src] = removeEdgeTo(g.continuations[src], dst)
	g.dependencies[dst] = removeEffectID(g.dependencies[dst], src)
	return nil
}

// reaches reports whether to is reachable from from over continuations.
func (g *Graph) reaches(from, to EffectID) bool {
	if from == to {
		return true
	}
	seen := map[EffectID]bool{from: true}
	stack := []EffectID{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.continuations[cur] {
			if e.Target == to {
				return true
			}
			if !seen[e.Target] {
				seen[e.Target] = true
				stack = append(stack, e.Target)
			}
		}
	}
	return false
}

func (g *Graph) GetEffect(id EffectID) (*EffectNode, bool) {
	n, ok := g.effects[id]
	return n, ok
}

// Effects returns the nodes in insertion order.
func (g *Graph) Effects() []*EffectNode {
	res := make([]*EffectNode, len(g.effectOrder))
	for i, id := range g.effectOrder {
		res[i] = g.effects[id]
	}
	return res
}

// EffectIDs returns the ids in insertion order.
func (g *Graph) EffectIDs() []EffectID {
	return append([]EffectID(nil), g.effectOrder...)
}

// SortedEffectIDs returns the ids in lexicographic order.
func (g *Graph) SortedEffectIDs() []EffectID {
	ids := g.EffectIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

func (g *Graph) EffectCount() int   { return len(g.effects) }
func (g *Graph) ResourceCount() int { return len(g.resources) }

// OutgoingEdges lists src's continuations in insertion order.
func (g *Graph) OutgoingEdges(src EffectID) []IncidentEdge {
	res := make([]IncidentEdge, 0, len(g.continuations[src]))
	for _, e := range g.continuations[src] {
		res = append(res, IncidentEdge{Neighbor: e.Target, Data: e.Data})
	}
	return res
}

// IncomingEdges lists dst's predecessors with edge data, in the
// predecessors' insertion order.
func (g *Graph) IncomingEdges(dst EffectID) []IncidentEdge {
	res := make([]IncidentEdge, 0, len(g.dependencies[dst]))
	for _, pred := range g.dependencies[dst] {
		if data, ok := g.GetEdge(pred, dst); ok {
			res = append(res, IncidentEdge{Neighbor: pred, Data: data})
		}
	}
	return res
}

func (g *Graph) GetEdge(src, dst EffectID) (EdgeData, bool) {
	for _, e := range g.continuations[src] {
		if e.Target == dst {
			return e.Data, true
		}
	}
	return EdgeData{}, false
}

// Dependencies returns the predecessor ids of id in insertion order.
func (g *Graph) Dependencies(id EffectID) []EffectID {
	return append([]EffectID(nil), g.dependencies[id]...)
}

// AddResource assigns the node its content-addressed id and adopts it.
func (g *Graph) AddResource(n *ResourceNode) (ResourceID, error) {
	id := n.ComputeID(g.hasher)
	if _, ok := g.resources[id]; ok {
		return ResourceID{}, &DuplicateIDError{ID: id.String()}
	}
	n.ID = id
	g.resources[id] = n
	g.resourceOrder = append(g.resourceOrder, id)
	g.domains[n.DomainID] = true
	return id, nil
}

// RemoveResource rejects removal while any effect still accesses the
// resource or any relationship references it.
func (g *Graph) RemoveResource(id ResourceID) error {
	if _, ok := g.resources[id]; !ok {
		return &NotFoundError{ID: id.String()}
	}
	if users := g.accessedBy[id]; len(users) > 0 {
		return &InvariantViolationError{
			Reason: fmt.Sprintf("resource %s still accessed by %d effects", id, len(users)),
		}
	}
	for src, rels := range g.relationships {
		if src == id && len(rels) > 0 {
			return &InvariantViolationError{Reason: fmt.Sprintf("resource %s has relationships", id)}
		}
		for _, rel := range rels {
			if rel.Target == id {
				return &InvariantViolationError{
					Reason: fmt.Sprintf("resource %s is a relationship target of %s", id, src),
				}
			}
		}
	}
	delete(g.resources, id)
	g.resourceOrder = removeResourceID(g.resourceOrder, id)
	return nil
}

func (g *Graph) GetResource(id ResourceID) (*ResourceNode, bool) {
	n, ok := g.resources[id]
	return n, ok
}

// Resources returns the nodes in insertion order.
func (g *Graph) Resources() []*ResourceNode {
	res := make([]*ResourceNode, len(g.resourceOrder))
	for i, id := range g.resourceOrder {
		res[i] = g.resources[id]
	}
	return res
}

func (g *Graph) ResourceIDs() []ResourceID {
	return append([]ResourceID(nil), g.resourceOrder...)
}

// AddResourceRelationship records src -kind-> dst. The same pair may
// carry several kinds but each kind at most once.
func (g *Graph) AddResourceRelationship(src, dst ResourceID, kind RelationshipKind) error {
	if _, ok := g.resources[src]; !ok {
		return &NotFoundError{ID: src.String()}
	}
	if _, ok := g.resources[dst]; !ok {
		return &NotFoundError{ID: dst.String()}
	}
	for _, rel := range g.relationships[src] {
		if rel.Target == dst && rel.Kind == kind {
			return &InvariantViolationError{
				Reason: fmt.Sprintf("relationship %s -%s-> %s already present", src, kind, dst),
			}
		}
	}
	g.relationships[src] = append(g.relationships[src], ResourceRelationship{Target: dst, Kind: kind})
	return nil
}

// Relationships returns src's outgoing relationships in insertion order.
func (g *Graph) Relationships(src ResourceID) []ResourceRelationship {
	return append([]ResourceRelationship(nil), g.relationships[src]...)
}

// Domains returns the domain set in lexicographic order.
func (g *Graph) Domains() []DomainID {
	ids := make([]DomainID, 0, len(g.domains))
	for d := range g.domains {
		ids = append(ids, d)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

func (g *Graph) HasDomain(d DomainID) bool {
	return g.domains[d]
}

func containsEffect(s []EffectID, id EffectID) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

func removeEffectID(s []EffectID, id EffectID) []EffectID {
	res := s[:0]
	for _, x := range s {
		if x != id {
			res = append(res, x)
		}
	}
	return res
}

func removeResourceID(s []ResourceID, id ResourceID) []ResourceID {
	res := s[:0]
	for _, x := range s {
		if x != id {
			res = append(res, x)
		}
	}
	return res
}

func removeEdgeTo(s []edge, dst EffectID) []edge {
	res := s[:0]
	for _, e := range s {
		if e.Target != dst {
			res = append(res, e)
		}
	}
	return res
}
