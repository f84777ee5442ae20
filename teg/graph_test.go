package teg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testDomain() DomainID {
	return DomainFromName("test")
}

func addEffect(t *testing.T, g *Graph, name, effectType string) EffectID {
	t.Helper()
	n := NewEffect(name, effectType)
	n.DomainID = testDomain()
	id, err := g.AddEffect(n)
	require.NoError(t, err)
	return id
}

func addConstant(t *testing.T, g *Graph, name, value string) EffectID {
	t.Helper()
	n := NewEffect(name, TypeConstant)
	n.DomainID = testDomain()
	n.AddParameter("value", StringValue(value))
	id, err := g.AddEffect(n)
	require.NoError(t, err)
	return id
}

func TestAddEffectAssignsContentID(t *testing.T) {
	g := NewGraph()
	n := NewEffect("a", TypeEffect)
	n.DomainID = testDomain()
	id, err := g.AddEffect(n)
	require.NoError(t, err)
	require.Equal(t, id, n.ID)
	require.Equal(t, id, n.ComputeID(Blake2b))

	got, ok := g.GetEffect(id)
	require.True(t, ok)
	require.Same(t, n, got)
}

func TestAddEffectDuplicate(t *testing.T) {
	g := NewGraph()
	addEffect(t, g, "a", TypeEffect)

	dup := NewEffect("a", TypeEffect)
	dup.DomainID = testDomain()
	_, err := g.AddEffect(dup)
	var dupErr *DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
}

func TestAddEffectUnknownResource(t *testing.T) {
	g := NewGraph()
	n := NewEffect("a", TypeEffect)
	n.DomainID = testDomain()
	n.ResourcesAccessed = []ResourceID{{1, 2, 3}}
	_, err := g.AddEffect(n)
	var refErr *UnknownReferenceError
	require.ErrorAs(t, err, &refErr)
}

func TestAddEdgeCycleRejected(t *testing.T) {
	g := NewGraph()
	x := addEffect(t, g, "x", TypeEffect)
	y := addEffect(t, g, "y", TypeEffect)
	require.NoError(t, g.AddEdge(x, y, EdgeData{}))

	before := g.Encode()
	err := g.AddEdge(y, x, EdgeData{})
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	require.Equal(t, before, g.Encode(), "failed edge insert must leave the graph unchanged")

	err = g.AddEdge(x, x, EdgeData{})
	require.ErrorAs(t, err, &cycleErr)
}

func TestAddEdgeMirrorsDependencies(t *testing.T) {
	g := NewGraph()
	a := addEffect(t, g, "a", TypeEffect)
	b := addEffect(t, g, "b", TypeEffect)
	guard := ExprFromBytes([]byte("g"))
	require.NoError(t, g.AddEdge(a, b, EdgeData{Order: 7, Guard: &guard}))

	require.Equal(t, []EffectID{a}, g.Dependencies(b))
	out := g.OutgoingEdges(a)
	require.Len(t, out, 1)
	require.Equal(t, b, out[0].Neighbor)
	require.Equal(t, uint32(7), out[0].Data.Order)
	require.Equal(t, guard, *out[0].Data.Guard)

	in := g.IncomingEdges(b)
	require.Len(t, in, 1)
	require.Equal(t, a, in[0].Neighbor)

	data, ok := g.GetEdge(a, b)
	require.True(t, ok)
	require.Equal(t, uint32(7), data.Order)
	require.NoError(t, g.CheckInvariants())
}

func TestRemoveEffectCascades(t *testing.T) {
	g := NewGraph()
	a := addEffect(t, g, "a", TypeEffect)
	b := addEffect(t, g, "b", TypeEffect)
	c := addEffect(t, g, "c", TypeEffect)
	require.NoError(t, g.AddEdge(a, b, EdgeData{}))
	require.NoError(t, g.AddEdge(b, c, EdgeData{}))

	require.NoError(t, g.RemoveEffect(b))
	_, ok := g.GetEffect(b)
	require.False(t, ok)
	require.Empty(t, g.OutgoingEdges(a))
	require.Empty(t, g.Dependencies(c))
	require.NoError(t, g.CheckInvariants())
}

func TestRemoveOnlyPredecessorMakesEntryPoint(t *testing.T) {
	g := NewGraph()
	a := addEffect(t, g, "a", TypeEffect)
	b := addEffect(t, g, "b", TypeEffect)
	require.NoError(t, g.AddEdge(a, b, EdgeData{}))
	require.Equal(t, []EffectID{a}, g.EntryPoints())

	require.NoError(t, g.RemoveEffect(a))
	require.Equal(t, []EffectID{b}, g.EntryPoints())
}

func TestRemoveResourcePolicy(t *testing.T) {
	g := NewGraph()
	res := NewResource("r", "record")
	res.DomainID = testDomain()
	rid, err := g.AddResource(res)
	require.NoError(t, err)

	n := NewEffect("a", TypeEffect)
	n.DomainID = testDomain()
	n.ResourcesAccessed = []ResourceID{rid}
	eid, err := g.AddEffect(n)
	require.NoError(t, err)

	var invErr *InvariantViolationError
	require.ErrorAs(t, g.RemoveResource(rid), &invErr)

	require.NoError(t, g.RemoveEffect(eid))
	require.NoError(t, g.RemoveResource(rid))
	require.Equal(t, 0, g.ResourceCount())
}

func TestResourceCrossIndex(t *testing.T) {
	g := NewGraph()
	res := NewResource("r", "record")
	res.DomainID = testDomain()
	rid, err := g.AddResource(res)
	require.NoError(t, err)

	n := NewEffect("a", TypeEffect)
	n.DomainID = testDomain()
	// duplicate access entries are allowed and order matters
	n.ResourcesAccessed = []ResourceID{rid, rid}
	eid, err := g.AddEffect(n)
	require.NoError(t, err)

	accessed, err := g.ResourcesAccessedByEffect(eid)
	require.NoError(t, err)
	require.Equal(t, []ResourceID{rid, rid}, accessed)

	// the inverse index lists the effect once
	users, err := g.EffectsAccessingResource(rid)
	require.NoError(t, err)
	require.Equal(t, []EffectID{eid}, users)
}

func TestRelationships(t *testing.T) {
	g := NewGraph()
	r1 := NewResource("r1", "record")
	r1.DomainID = testDomain()
	r2 := NewResource("r2", "record")
	r2.DomainID = testDomain()
	id1, err := g.AddResource(r1)
	require.NoError(t, err)
	id2, err := g.AddResource(r2)
	require.NoError(t, err)

	require.NoError(t, g.AddResourceRelationship(id1, id2, RelParent))
	require.NoError(t, g.AddResourceRelationship(id1, id2, RelCustom("alias")))

	var invErr *InvariantViolationError
	require.ErrorAs(t, g.AddResourceRelationship(id1, id2, RelParent), &invErr)

	rels := g.Relationships(id1)
	require.Len(t, rels, 2)
	require.Equal(t, "Parent", rels[0].Kind.String())
	require.Equal(t, "Custom(alias)", rels[1].Kind.String())
}

func TestFindPath(t *testing.T) {
	g := NewGraph()
	a := addEffect(t, g, "a", TypeEffect)
	b := addEffect(t, g, "b", TypeEffect)
	c := addEffect(t, g, "c", TypeEffect)
	d := addEffect(t, g, "d", TypeEffect)
	require.NoError(t, g.AddEdge(a, b, EdgeData{Order: 1}))
	require.NoError(t, g.AddEdge(a, c, EdgeData{Order: 0}))
	require.NoError(t, g.AddEdge(b, d, EdgeData{}))
	require.NoError(t, g.AddEdge(c, d, EdgeData{}))

	path, ok := g.FindPath(a, a)
	require.True(t, ok)
	require.Equal(t, []EffectID{a}, path)

	path, ok = g.FindPath(a, d)
	require.True(t, ok)
	// BFS expands by ascending edge order, so the path runs through c
	require.Equal(t, []EffectID{a, c, d}, path)

	_, ok = g.FindPath(d, a)
	require.False(t, ok)
}

func TestTopologicalOrderDeterministic(t *testing.T) {
	g := NewGraph()
	a := addConstant(t, g, "a", "1")
	b := addConstant(t, g, "b", "2")
	sum := addEffect(t, g, "sum", TypeAdd)
	require.NoError(t, g.AddEdge(a, sum, EdgeData{Order: 0}))
	require.NoError(t, g.AddEdge(b, sum, EdgeData{Order: 1}))

	first, err := g.TopologicalOrder()
	require.NoError(t, err)
	second, err := g.TopologicalOrder()
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, sum, first[2])
	// roots are released in lexicographic id order
	require.True(t, first[0].Less(first[1]))
}

func TestCloneIsDeep(t *testing.T) {
	g := NewGraph()
	a := addConstant(t, g, "a", "1")
	b := addEffect(t, g, "b", TypeEffect)
	require.NoError(t, g.AddEdge(a, b, EdgeData{}))

	c := g.Clone()
	require.True(t, g.Equal(c))

	require.NoError(t, c.RemoveEffect(b))
	_, ok := g.GetEffect(b)
	require.True(t, ok, "removing from the clone must not touch the original")
	require.False(t, g.Equal(c))
}

func TestCheckInvariantsHashMismatch(t *testing.T) {
	g := NewGraph()
	id := addEffect(t, g, "a", TypeEffect)
	n, _ := g.GetEffect(id)
	n.Metadata["tampered"] = "yes"

	var hashErr *HashMismatchError
	require.ErrorAs(t, g.CheckInvariants(), &hashErr)
}
