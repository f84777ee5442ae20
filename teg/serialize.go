package teg

import (
	"sort"

	"github.com/timewave-computer/causality-sub020/utils"
)

// EncodingVersion is the canonical encoding version byte at offset 0.
const EncodingVersion byte = 0x01

// Encode emits the canonical byte form of the graph: version byte,
// then effects, resources, continuations, relationships and domains,
// each section keyed in sorted id order. The encoding is a pure
// function of the graph's structure.
func (g *Graph) Encode() []byte {
	o := utils.OutputBuf{}
	o.AppendByte(EncodingVersion)

	effIDs := g.SortedEffectIDs()
	o.AppendUint32(uint32(len(effIDs)))
	for _, id := range effIDs {
		o.AppendRaw(id[:])
		g.effects[id].encodeContent(&o)
	}

	resIDs := g.ResourceIDs()
	sort.Slice(resIDs, func(i, j int) bool { return resIDs[i].Less(resIDs[j]) })
	o.AppendUint32(uint32(len(resIDs)))
	for _, id := range resIDs {
		o.AppendRaw(id[:])
		g.resources[id].encodeContent(&o)
	}

	withEdges := []EffectID{}
	for _, id := range effIDs {
		if len(g.continuations[id]) > 0 {
			withEdges = append(withEdges, id)
		}
	}
	o.AppendUint32(uint32(len(withEdges)))
	for _, src := range withEdges {
		o.AppendRaw(src[:])
		edges := g.continuations[src]
		o.AppendUint32(uint32(len(edges)))
		for _, e := range edges {
			o.AppendRaw(e.Target[:])
			o.AppendUint32(e.Data.Order)
			if e.Data.Guard != nil {
				o.AppendByte(1)
				o.AppendRaw(e.Data.Guard[:])
			} else {
				o.AppendByte(0)
			}
		}
	}

	withRels := []ResourceID{}
	for _, id := range resIDs {
		if len(g.relationships[id]) > 0 {
			withRels = append(withRels, id)
		}
	}
	o.AppendUint32(uint32(len(withRels)))
	for _, src := range withRels {
		o.AppendRaw(src[:])
		rels := g.relationships[src]
		o.AppendUint32(uint32(len(rels)))
		for _, rel := range rels {
			o.AppendRaw(rel.Target[:])
			encodeRelationshipKind(&o, rel.Kind)
		}
	}

	domains := g.Domains()
	o.AppendUint32(uint32(len(domains)))
	for _, d := range domains {
		o.AppendRaw(d[:])
	}

	return o.Bytes()
}

func encodeRelationshipKind(o *utils.OutputBuf, k RelationshipKind) {
	o.AppendByte(byte(k.tag))
	if k.tag == relCustom {
		o.AppendString(k.custom)
	}
}

func decodeRelationshipKind(in *utils.InputBuf) (RelationshipKind, error) {
	tag, err := in.ReadByte()
	if err != nil {
		return RelationshipKind{}, wrapBytesInvalid(err)
	}
	if relKindTag(tag) == relCustom {
		name, err := in.ReadString()
		if err != nil {
			return RelationshipKind{}, wrapBytesInvalid(err)
		}
		return RelCustom(name), nil
	}
	if int(tag) >= len(relKindNames) {
		return RelationshipKind{}, &BytesInvalidError{Reason: "relationship kind discriminant out of range"}
	}
	return RelationshipKind{tag: relKindTag(tag)}, nil
}

// DecodeGraph is Decode under the default hasher.
func DecodeGraph(data []byte) (*Graph, error) {
	return DecodeGraphWithHasher(data, Blake2b)
}

// DecodeGraphWithHasher reverses Encode. Structural invariants
// (resolvable references, mirror agreement, acyclicity) are re-checked
// and violations surface as BytesInvalid.
func DecodeGraphWithHasher(data []byte, h Hasher) (*Graph, error) {
	if len(data) == 0 {
		return nil, &InvalidByteLengthError{Len: 0, Expected: 1}
	}
	if data[0] != EncodingVersion {
		return nil, &UnsupportedVersionError{Version: data[0]}
	}
	in := utils.NewInputBuf(data[1:])
	g := NewGraphWithHasher(h)

	nEff, err := in.ReadUint32()
	if err != nil {
		return nil, wrapBytesInvalid(err)
	}
	for i := uint32(0); i < nEff; i++ {
		id, err := readEffectID(in)
		if err != nil {
			return nil, err
		}
		n, err := decodeEffectContent(in)
		if err != nil {
			return nil, err
		}
		n.ID = id
		if _, ok := g.effects[id]; ok {
			return nil, &BytesInvalidError{Reason: "duplicate effect id " + id.String()}
		}
		g.effects[id] = n
		g.effectOrder = append(g.effectOrder, id)
	}

	nRes, err := in.ReadUint32()
	if err != nil {
		return nil, wrapBytesInvalid(err)
	}
	for i := uint32(0); i < nRes; i++ {
		id, err := readResourceID(in)
		if err != nil {
			return nil, err
		}
		n, err := decodeResourceContent(in)
		if err != nil {
			return nil, err
		}
		n.ID = id
		if _, ok := g.resources[id]; ok {
			return nil, &BytesInvalidError{Reason: "duplicate resource id " + id.String()}
		}
		g.resources[id] = n
		g.resourceOrder = append(g.resourceOrder, id)
	}

	nCont, err := in.ReadUint32()
	if err != nil {
		return nil, wrapBytesInvalid(err)
	}
	for i := uint32(0); i < nCont; i++ {
		src, err := readEffectID(in)
		if err != nil {
			return nil, err
		}
		nEdges, err := in.ReadUint32()
		if err != nil {
			return nil, wrapBytesInvalid(err)
		}
		for j := uint32(0); j < nEdges; j++ {
			dst, err := readEffectID(in)
			if err != nil {
				return nil, err
			}
			order, err := in.ReadUint32()
			if err != nil {
				return nil, wrapBytesInvalid(err)
			}
			hasGuard, err := in.ReadByte()
			if err != nil {
				return nil, wrapBytesInvalid(err)
			}
			data := EdgeData{Order: order}
			if hasGuard == 1 {
				b, err := in.ReadFixed(IDSize)
				if err != nil {
					return nil, wrapBytesInvalid(err)
				}
				var guard ExprID
				copy(guard[:], b)
				data.Guard = &guard
			} else if hasGuard != 0 {
				return nil, &BytesInvalidError{Reason: "guard flag out of range"}
			}
			g.continuations[src] = append(g.continuations[src], edge{Target: dst, Data: data})
			g.dependencies[dst] = append(g.dependencies[dst], src)
		}
	}

	nRel, err := in.ReadUint32()
	if err != nil {
		return nil, wrapBytesInvalid(err)
	}
	for i := uint32(0); i < nRel; i++ {
		src, err := readResourceID(in)
		if err != nil {
			return nil, err
		}
		nRels, err := in.ReadUint32()
		if err != nil {
			return nil, wrapBytesInvalid(err)
		}
		for j := uint32(0); j < nRels; j++ {
			dst, err := readResourceID(in)
			if err != nil {
				return nil, err
			}
			kind, err := decodeRelationshipKind(in)
			if err != nil {
				return nil, err
			}
			g.relationships[src] = append(g.relationships[src], ResourceRelationship{Target: dst, Kind: kind})
		}
	}

	nDom, err := in.ReadUint32()
	if err != nil {
		return nil, wrapBytesInvalid(err)
	}
	for i := uint32(0); i < nDom; i++ {
		b, err := in.ReadFixed(IDSize)
		if err != nil {
			return nil, wrapBytesInvalid(err)
		}
		var d DomainID
		copy(d[:], b)
		g.domains[d] = true
	}

	if in.Remaining() != 0 {
		return nil, &BytesInvalidError{Reason: "trailing bytes after graph"}
	}

	// Rebuild the inverse resource index from the nodes.
	for _, id := range g.effectOrder {
		for _, r := range g.effects[id].ResourcesAccessed {
			if !containsEffect(g.accessedBy[r], id) {
				g.accessedBy[r] = append(g.accessedBy[r], id)
			}
		}
	}

	if err := g.checkDecoded(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkDecoded validates referential structure of a decoded graph
// without re-deriving content hashes.
func (g *Graph) checkDecoded() error {
	for _, id := range g.effectOrder {
		for _, r := range g.effects[id].ResourcesAccessed {
			if _, ok := g.resources[r]; !ok {
				return &BytesInvalidError{Reason: "effect references unknown resource " + r.String()}
			}
		}
		if !g.domains[g.effects[id].DomainID] {
			return &BytesInvalidError{Reason: "effect domain not in domain set"}
		}
	}
	for _, id := range g.resourceOrder {
		if !g.domains[g.resources[id].DomainID] {
			return &BytesInvalidError{Reason: "resource domain not in domain set"}
		}
	}
	for src, edges := range g.continuations {
		if _, ok := g.effects[src]; !ok {
			return &BytesInvalidError{Reason: "continuation from unknown effect " + src.String()}
		}
		for _, e := range edges {
			if _, ok := g.effects[e.Target]; !ok {
				return &BytesInvalidError{Reason: "continuation to unknown effect " + e.Target.String()}
			}
		}
	}
	for src, rels := range g.relationships {
		if _, ok := g.resources[src]; !ok {
			return &BytesInvalidError{Reason: "relationship from unknown resource " + src.String()}
		}
		for _, rel := range rels {
			if _, ok := g.resources[rel.Target]; !ok {
				return &BytesInvalidError{Reason: "relationship to unknown resource " + rel.Target.String()}
			}
		}
	}
	if err := g.checkAcyclic(); err != nil {
		return &BytesInvalidError{Reason: err.Error()}
	}
	return nil
}

func readEffectID(in *utils.InputBuf) (EffectID, error) {
	b, err := in.ReadFixed(IDSize)
	if err != nil {
		return EffectID{}, wrapBytesInvalid(err)
	}
	var id EffectID
	copy(id[:], b)
	return id, nil
}

func readResourceID(in *utils.InputBuf) (ResourceID, error) {
	b, err := in.ReadFixed(IDSize)
	if err != nil {
		return ResourceID{}, wrapBytesInvalid(err)
	}
	var id ResourceID
	copy(id[:], b)
	return id, nil
}

func decodeEffectContent(in *utils.InputBuf) (*EffectNode, error) {
	n := &EffectNode{Parameters: map[string]ParameterValue{}, Metadata: map[string]string{}}
	var err error
	if n.EffectType, err = in.ReadString(); err != nil {
		return nil, wrapBytesInvalid(err)
	}
	b, err := in.ReadFixed(IDSize)
	if err != nil {
		return nil, wrapBytesInvalid(err)
	}
	copy(n.DomainID[:], b)
	nParams, err := in.ReadUint32()
	if err != nil {
		return nil, wrapBytesInvalid(err)
	}
	for i := uint32(0); i < nParams; i++ {
		k, err := in.ReadString()
		if err != nil {
			return nil, wrapBytesInvalid(err)
		}
		v, err := decodeParameterValue(in)
		if err != nil {
			return nil, err
		}
		n.Parameters[k] = v
	}
	nRes, err := in.ReadUint32()
	if err != nil {
		return nil, wrapBytesInvalid(err)
	}
	for i := uint32(0); i < nRes; i++ {
		r, err := readResourceID(in)
		if err != nil {
			return nil, err
		}
		n.ResourcesAccessed = append(n.ResourcesAccessed, r)
	}
	nMeta, err := in.ReadUint32()
	if err != nil {
		return nil, wrapBytesInvalid(err)
	}
	for i := uint32(0); i < nMeta; i++ {
		k, err := in.ReadString()
		if err != nil {
			return nil, wrapBytesInvalid(err)
		}
		v, err := in.ReadString()
		if err != nil {
			return nil, wrapBytesInvalid(err)
		}
		n.Metadata[k] = v
	}
	return n, nil
}

func decodeResourceContent(in *utils.InputBuf) (*ResourceNode, error) {
	n := &ResourceNode{Metadata: map[string]string{}}
	var err error
	if n.ResourceType, err = in.ReadString(); err != nil {
		return nil, wrapBytesInvalid(err)
	}
	b, err := in.ReadFixed(IDSize)
	if err != nil {
		return nil, wrapBytesInvalid(err)
	}
	copy(n.DomainID[:], b)
	nMeta, err := in.ReadUint32()
	if err != nil {
		return nil, wrapBytesInvalid(err)
	}
	for i := uint32(0); i < nMeta; i++ {
		k, err := in.ReadString()
		if err != nil {
			return nil, wrapBytesInvalid(err)
		}
		v, err := in.ReadString()
		if err != nil {
			return nil, wrapBytesInvalid(err)
		}
		n.Metadata[k] = v
	}
	return n, nil
}
