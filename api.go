package causality

import (
	"github.com/timewave-computer/causality-sub020/teg"
)

// API is the read-only query facade over a built graph. It adds
// nothing a caller could not derive from teg.Graph directly; it
// packages the common derivations behind one object.
type API struct {
	g *teg.Graph
}

func NewAPI(g *teg.Graph) *API {
	return &API{g: g}
}

func (a *API) Graph() *teg.Graph {
	return a.g
}

// Summary is the one-screen view of a graph.
type Summary struct {
	EffectCount   int
	ResourceCount int
	DomainCount   int
	EntryPoints   []teg.EffectID
	ExitPoints    []teg.EffectID
}

func (a *API) Summary() Summary {
	return Summary{
		EffectCount:   a.g.EffectCount(),
		ResourceCount: a.g.ResourceCount(),
		DomainCount:   len(a.g.Domains()),
		EntryPoints:   a.g.EntryPoints(),
		ExitPoints:    a.g.ExitPoints(),
	}
}

func (a *API) EntryPoints() []teg.EffectID {
	return a.g.EntryPoints()
}

func (a *API) ExitPoints() []teg.EffectID {
	return a.g.ExitPoints()
}

func (a *API) EffectsByDomain(d teg.DomainID) []teg.EffectID {
	return a.g.EffectsByDomain(d)
}

func (a *API) ResourcesByDomain(d teg.DomainID) []teg.ResourceID {
	return a.g.ResourcesByDomain(d)
}

func (a *API) ResourcesAccessedByEffect(id teg.EffectID) ([]teg.ResourceID, error) {
	return a.g.ResourcesAccessedByEffect(id)
}

func (a *API) EffectsAccessingResource(id teg.ResourceID) ([]teg.EffectID, error) {
	return a.g.EffectsAccessingResource(id)
}

func (a *API) FindPath(from, to teg.EffectID) ([]teg.EffectID, bool) {
	return a.g.FindPath(from, to)
}

// Serializable returns the interchange view of the graph.
func (a *API) Serializable() *teg.SerializableTEG {
	return a.g.Serializable()
}
