package teg

import "github.com/timewave-computer/causality-sub020/utils"

// Recognized effect types. Domain-defined names are allowed anywhere a
// type string is accepted; only the names below get special treatment
// from the optimizer and the compiler.
const (
	TypeEffect   = "effect"
	TypeConstant = "constant"
	TypeAdd      = "add"
	TypeSubtract = "subtract"
	TypeMultiply = "multiply"
	TypeDivide   = "divide"
	TypeConcat   = "concat"
	TypeAnd      = "and"
	TypeOr       = "or"
	TypeNot      = "not"
)

var pureTypes = map[string]bool{
	TypeConstant: true,
	TypeAdd:      true,
	TypeSubtract: true,
	TypeMultiply: true,
	TypeDivide:   true,
	TypeConcat:   true,
	TypeAnd:      true,
	TypeOr:       true,
	TypeNot:      true,
}

// EffectNode is a plain data record. Evaluation and lowering live in
// the optimizer and the compiler; the node itself has no behavior.
type EffectNode struct {
	ID                EffectID
	EffectType        string
	DomainID          DomainID
	Parameters        map[string]ParameterValue
	ResourcesAccessed []ResourceID
	Metadata          map[string]string
}

// NewEffect builds a node with the given display name and type. The
// name is carried in metadata and therefore participates in the
// content hash.
func NewEffect(name, effectType string) *EffectNode {
	return &EffectNode{
		EffectType: effectType,
		Parameters: map[string]ParameterValue{},
		Metadata:   map[string]string{"name": name},
	}
}

func (n *EffectNode) Name() string {
	return n.Metadata["name"]
}

func (n *EffectNode) IsConstant() bool {
	if n.EffectType != TypeConstant {
		return false
	}
	_, ok := n.Parameters["value"]
	return ok
}

func (n *EffectNode) IsPure() bool {
	return pureTypes[n.EffectType]
}

// ConstantValue returns the stringified constant payload.
func (n *EffectNode) ConstantValue() (string, bool) {
	if !n.IsConstant() {
		return "", false
	}
	return n.Parameters["value"].String(), true
}

// OperationType is the effect type when it denotes a pure operation.
func (n *EffectNode) OperationType() (string, bool) {
	if n.IsPure() && n.EffectType != TypeConstant {
		return n.EffectType, true
	}
	return "", false
}

// Mutators below are only valid before the node is adopted by a graph;
// afterwards the stored id would no longer match the content hash.

func (n *EffectNode) SetConstantValue(value string) {
	n.EffectType = TypeConstant
	n.AddParameter("value", StringValue(value))
}

func (n *EffectNode) SetMetadata(md map[string]string) {
	if n.Metadata == nil {
		n.Metadata = map[string]string{}
	}
	for k, v := range md {
		n.Metadata[k] = v
	}
}

func (n *EffectNode) AddParameter(key string, value ParameterValue) {
	if n.Parameters == nil {
		n.Parameters = map[string]ParameterValue{}
	}
	n.Parameters[key] = value
}

// encodeContent appends every field except the id, in canonical order.
// This is the preimage of the node's content hash.
func (n *EffectNode) encodeContent(o *utils.OutputBuf) {
	o.AppendString(n.EffectType)
	o.AppendRaw(n.DomainID[:])
	keys := utils.SortedStringKeys(n.Parameters)
	o.AppendUint32(uint32(len(keys)))
	for _, k := range keys {
		o.AppendString(k)
		n.Parameters[k].encode(o)
	}
	o.AppendUint32(uint32(len(n.ResourcesAccessed)))
	for _, r := range n.ResourcesAccessed {
		o.AppendRaw(r[:])
	}
	mkeys := utils.SortedStringKeys(n.Metadata)
	o.AppendUint32(uint32(len(mkeys)))
	for _, k := range mkeys {
		o.AppendString(k)
		o.AppendString(n.Metadata[k])
	}
}

// ComputeID derives the content-addressed id under h.
func (n *EffectNode) ComputeID(h Hasher) EffectID {
	o := utils.OutputBuf{}
	o.AppendString("effect")
	n.encodeContent(&o)
	return EffectID(h(o.Bytes()))
}

func (n *EffectNode) clone() *EffectNode {
	c := &EffectNode{
		ID:         n.ID,
		EffectType: n.EffectType,
		DomainID:   n.DomainID,
		Parameters: make(map[string]ParameterValue, len(n.Parameters)),
		Metadata:   make(map[string]string, len(n.Metadata)),
	}
	for k, v := range n.Parameters {
		c.Parameters[k] = v
	}
	if len(n.ResourcesAccessed) > 0 {
		c.ResourcesAccessed = append([]ResourceID(nil), n.ResourcesAccessed...)
	}
	for k, v := range n.Metadata {
		c.Metadata[k] = v
	}
	return c
}

// ResourceNode describes an entity effects read or produce.
type ResourceNode struct {
	ID           ResourceID
	ResourceType string
	DomainID     DomainID
	Metadata     map[string]string
}

func NewResource(name, resourceType string) *ResourceNode {
	return &ResourceNode{
		ResourceType: resourceType,
		Metadata:     map[string]string{"name": name},
	}
}

func (n *ResourceNode) Name() string {
	return n.Metadata["name"]
}

func (n *ResourceNode) encodeContent(o *utils.OutputBuf) {
	o.AppendString(n.ResourceType)
	o.AppendRaw(n.DomainID[:])
	keys := utils.SortedStringKeys(n.Metadata)
	o.AppendUint32(uint32(len(keys)))
	for _, k := range keys {
		o.AppendString(k)
		o.AppendString(n.Metadata[k])
	}
}

func (n *ResourceNode) ComputeID(h Hasher) ResourceID {
	o := utils.OutputBuf{}
	o.AppendString("resource")
	n.encodeContent(&o)
	return ResourceID(h(o.Bytes()))
}

func (n *ResourceNode) clone() *ResourceNode {
	c := &ResourceNode{
		ID:           n.ID,
		ResourceType: n.ResourceType,
		DomainID:     n.DomainID,
		Metadata:     make(map[string]string, len(n.Metadata)),
	}
	for k, v := range n.Metadata {
		c.Metadata[k] = v
	}
	return c
}
