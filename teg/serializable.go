package teg

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// SerializableTEG is the interchange view of a graph: ids rendered as
// hex strings, guard expressions flattened to optional strings,
// relationship kinds rendered by name. It is lossless against the
// in-memory model at the current encoding version.
type SerializableTEG struct {
	Effects       map[string]SerializableEffect   `json:"effects" cbor:"1,keyasint"`
	Resources     map[string]SerializableResource `json:"resources" cbor:"2,keyasint"`
	Continuations map[string][]SerializableEdge   `json:"continuations,omitempty" cbor:"3,keyasint,omitempty"`
	Relationships map[string][]SerializableRel    `json:"relationships,omitempty" cbor:"4,keyasint,omitempty"`
	Domains       []string                        `json:"domains" cbor:"5,keyasint"`
}

type SerializableEffect struct {
	EffectType        string            `json:"effect_type" cbor:"1,keyasint"`
	DomainID          string            `json:"domain_id" cbor:"2,keyasint"`
	Parameters        map[string]string `json:"parameters,omitempty" cbor:"3,keyasint,omitempty"`
	ResourcesAccessed []string          `json:"resources_accessed,omitempty" cbor:"4,keyasint,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty" cbor:"5,keyasint,omitempty"`
}

type SerializableResource struct {
	ResourceType string            `json:"resource_type" cbor:"1,keyasint"`
	DomainID     string            `json:"domain_id" cbor:"2,keyasint"`
	Metadata     map[string]string `json:"metadata,omitempty" cbor:"3,keyasint,omitempty"`
}

type SerializableEdge struct {
	Target string  `json:"target" cbor:"1,keyasint"`
	Order  uint32  `json:"order" cbor:"2,keyasint"`
	Guard  *string `json:"guard,omitempty" cbor:"3,keyasint,omitempty"`
}

type SerializableRel struct {
	Target string `json:"target" cbor:"1,keyasint"`
	Kind   string `json:"kind" cbor:"2,keyasint"`
}

// Serializable flattens the graph into the interchange view.
// Parameter values are stringified the way constant_value reports
// them.
func (g *Graph) Serializable() *SerializableTEG {
	s := &SerializableTEG{
		Effects:   make(map[string]SerializableEffect, len(g.effects)),
		Resources: make(map[string]SerializableResource, len(g.resources)),
	}
	for _, id := range g.effectOrder {
		n := g.effects[id]
		se := SerializableEffect{
			EffectType: n.EffectType,
			DomainID:   n.DomainID.String(),
		}
		if len(n.Parameters) > 0 {
			se.Parameters = make(map[string]string, len(n.Parameters))
			for k, v := range n.Parameters {
				se.Parameters[k] = v.String()
			}
		}
		for _, r := range n.ResourcesAccessed {
			se.ResourcesAccessed = append(se.ResourcesAccessed, r.String())
		}
		if len(n.Metadata) > 0 {
			se.Metadata = make(map[string]string, len(n.Metadata))
			for k, v := range n.Metadata {
				se.Metadata[k] = v
			}
		}
		s.Effects[id.String()] = se
	}
	for _, id := range g.resourceOrder {
		n := g.resources[id]
		sr := SerializableResource{
			ResourceType: n.ResourceType,
			DomainID:     n.DomainID.String(),
		}
		if len(n.Metadata) > 0 {
			sr.Metadata = make(map[string]string, len(n.Metadata))
			for k, v := range n.Metadata {
				sr.Metadata[k] = v
			}
		}
		s.Resources[id.String()] = sr
	}
	for _, src := range g.effectOrder {
		edges := g.continuations[src]
		if len(edges) == 0 {
			continue
		}
		if s.Continuations == nil {
			s.Continuations = map[string][]SerializableEdge{}
		}
		out := make([]SerializableEdge, len(edges))
		for i, e := range edges {
			out[i] = SerializableEdge{Target: e.Target.String(), Order: e.Data.Order}
			if e.Data.Guard != nil {
				guard := e.Data.Guard.String()
				out[i].Guard = &guard
			}
		}
		s.Continuations[src.String()] = out
	}
	for _, src := range g.resourceOrder {
		rels := g.relationships[src]
		if len(rels) == 0 {
			continue
		}
		if s.Relationships == nil {
			s.Relationships = map[string][]SerializableRel{}
		}
		out := make([]SerializableRel, len(rels))
		for i, rel := range rels {
			out[i] = SerializableRel{Target: rel.Target.String(), Kind: rel.Kind.String()}
		}
		s.Relationships[src.String()] = out
	}
	for _, d := range g.Domains() {
		s.Domains = append(s.Domains, d.String())
	}
	return s
}

// MarshalInterchange encodes the view as deterministic CBOR
// (core-canonical options), suitable for external consumers that do
// not speak the binary graph encoding.
func (s *SerializableTEG) MarshalInterchange() ([]byte, error) {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor enc mode: %w", err)
	}
	return mode.Marshal(s)
}

// UnmarshalInterchange decodes a CBOR interchange view.
func UnmarshalInterchange(data []byte) (*SerializableTEG, error) {
	s := &SerializableTEG{}
	if err := cbor.Unmarshal(data, s); err != nil {
		return nil, &BytesInvalidError{Reason: err.Error()}
	}
	return s, nil
}
