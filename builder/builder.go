// Package builder accumulates effect and resource declarations
// imperatively and freezes them into a validated teg.Graph. A builder
// is one-shot and not safe for concurrent use; behavior after Build is
// undefined.
package builder

import (
	"errors"
	"fmt"

	"github.com/timewave-computer/causality-sub020/teg"
)

// EffectRef and ResourceRef are handles into a builder, valid only for
// the builder that issued them. Ids are assigned at Build time, once
// node contents are final.
type EffectRef int

type ResourceRef int

type pendingEdge struct {
	src  EffectRef
	dst  EffectRef
	data teg.EdgeData
}

type pendingAccess struct {
	effect   EffectRef
	resource ResourceRef
}

type pendingRel struct {
	src  ResourceRef
	dst  ResourceRef
	kind teg.RelationshipKind
}

type Builder struct {
	hasher    teg.Hasher
	effects   []*teg.EffectNode
	resources []*teg.ResourceNode
	edges     []pendingEdge
	accesses  []pendingAccess
	rels      []pendingRel
	built     bool
}

func New() *Builder {
	return NewWithHasher(teg.Blake2b)
}

func NewWithHasher(h teg.Hasher) *Builder {
	return &Builder{hasher: h}
}

// AddEffect adopts the node. The node may still be mutated through the
// ref until Build.
func (b *Builder) AddEffect(n *teg.EffectNode) EffectRef {
	b.effects = append(b.effects, n)
	return EffectRef(len(b.effects) - 1)
}

func (b *Builder) AddResource(n *teg.ResourceNode) ResourceRef {
	b.resources = append(b.resources, n)
	return ResourceRef(len(b.resources) - 1)
}

func (b *Builder) Effect(ref EffectRef) *teg.EffectNode {
	return b.effects[ref]
}

func (b *Builder) Resource(ref ResourceRef) *teg.ResourceNode {
	return b.resources[ref]
}

// ConnectEffects records a continuation src -> dst.
func (b *Builder) ConnectEffects(src, dst EffectRef, data teg.EdgeData) {
	b.edges = append(b.edges, pendingEdge{src: src, dst: dst, data: data})
}

// ConnectEffectToResource appends the resource to the effect's access
// list. Repeated calls append again; duplicates are meaningful.
func (b *Builder) ConnectEffectToResource(e EffectRef, r ResourceRef) {
	b.accesses = append(b.accesses, pendingAccess{effect: e, resource: r})
}

func (b *Builder) AddResourceRelationship(src, dst ResourceRef, kind teg.RelationshipKind) {
	b.rels = append(b.rels, pendingRel{src: src, dst: dst, kind: kind})
}

// BuildErrors aggregates everything Build found wrong. Build reports
// as many problems in one shot as it can.
type BuildErrors struct {
	Errs []error
}

func (e *BuildErrors) Error() string {
	if len(e.Errs) == 1 {
		return "build failed: " + e.Errs[0].Error()
	}
	return fmt.Sprintf("build failed with %d errors, first: %s", len(e.Errs), e.Errs[0])
}

func (e *BuildErrors) Unwrap() []error {
	return e.Errs
}

// Build assigns content-addressed ids, materializes the mirror
// dependency view, runs cycle detection, and returns the frozen graph.
// Ref bounds are checked here rather than at record time so a caller
// can batch declarations without interleaved error handling.
func (b *Builder) Build() (*teg.Graph, error) {
	if b.built {
		return nil, errors.New("builder already consumed")
	}
	b.built = true

	var errs []error
	fail := func(err error) {
		errs = append(errs, err)
	}

	for _, a := range b.accesses {
		if int(a.effect) < 0 || int(a.effect) >= len(b.effects) {
			fail(fmt.Errorf("effect ref %d out of range", a.effect))
			continue
		}
		if int(a.resource) < 0 || int(a.resource) >= len(b.resources) {
			fail(fmt.Errorf("resource ref %d out of range", a.resource))
			continue
		}
	}
	for _, e := range b.edges {
		if int(e.src) < 0 || int(e.src) >= len(b.effects) {
			fail(fmt.Errorf("edge source ref %d out of range", e.src))
		}
		if int(e.dst) < 0 || int(e.dst) >= len(b.effects) {
			fail(fmt.Errorf("edge target ref %d out of range", e.dst))
		}
	}
	for _, r := range b.rels {
		if int(r.src) < 0 || int(r.src) >= len(b.resources) {
			fail(fmt.Errorf("relationship source ref %d out of range", r.src))
		}
		if int(r.dst) < 0 || int(r.dst) >= len(b.resources) {
			fail(fmt.Errorf("relationship target ref %d out of range", r.dst))
		}
	}
	if len(errs) > 0 {
		return nil, &BuildErrors{Errs: errs}
	}

	g := teg.NewGraphWithHasher(b.hasher)

	resourceIDs := make([]teg.ResourceID, len(b.resources))
	for i, n := range b.resources {
		id, err := g.AddResource(n)
		if err != nil {
			fail(fmt.Errorf("resource %d (%s): %w", i, n.Name(), err))
			continue
		}
		resourceIDs[i] = id
	}
	if len(errs) > 0 {
		return nil, &BuildErrors{Errs: errs}
	}

	// Access lists become node content, so they are attached before
	// the effect ids are derived.
	for _, a := range b.accesses {
		n := b.effects[a.effect]
		n.ResourcesAccessed = append(n.ResourcesAccessed, resourceIDs[a.resource])
	}

	effectIDs := make([]teg.EffectID, len(b.effects))
	for i, n := range b.effects {
		id, err := g.AddEffect(n)
		if err != nil {
			fail(fmt.Errorf("effect %d (%s): %w", i, n.Name(), err))
			continue
		}
		effectIDs[i] = id
	}
	if len(errs) > 0 {
		return nil, &BuildErrors{Errs: errs}
	}

	for _, e := range b.edges {
		if err := g.AddEdge(effectIDs[e.src], effectIDs[e.dst], e.data); err != nil {
			fail(fmt.Errorf("edge %d -> %d: %w", e.src, e.dst, err))
		}
	}
	for _, r := range b.rels {
		if err := g.AddResourceRelationship(resourceIDs[r.src], resourceIDs[r.dst], r.kind); err != nil {
			fail(fmt.Errorf("relationship %d -> %d: %w", r.src, r.dst, err))
		}
	}
	if len(errs) > 0 {
		return nil, &BuildErrors{Errs: errs}
	}

	if err := g.CheckInvariants(); err != nil {
		return nil, &BuildErrors{Errs: []error{err}}
	}
	return g, nil
}
