package teg

import (
	"fmt"
	"strings"
)

type relKindTag uint8

const (
	relParent relKindTag = iota
	relChild
	relAlias
	relDependsOn
	relDerives
	relConflicts
	relCustom
)

// RelationshipKind classifies a resource relationship. The built-in
// kinds are closed; Custom carries an arbitrary tag the core preserves
// but assigns no semantics.
type RelationshipKind struct {
	tag    relKindTag
	custom string
}

var (
	RelParent    = RelationshipKind{tag: relParent}
	RelChild     = RelationshipKind{tag: relChild}
	RelAlias     = RelationshipKind{tag: relAlias}
	RelDependsOn = RelationshipKind{tag: relDependsOn}
	RelDerives   = RelationshipKind{tag: relDerives}
	RelConflicts = RelationshipKind{tag: relConflicts}
)

func RelCustom(name string) RelationshipKind {
	return RelationshipKind{tag: relCustom, custom: name}
}

func (k RelationshipKind) IsCustom() bool {
	return k.tag == relCustom
}

func (k RelationshipKind) CustomName() string {
	return k.custom
}

var relKindNames = [...]string{
	relParent:    "Parent",
	relChild:     "Child",
	relAlias:     "Alias",
	relDependsOn: "DependsOn",
	relDerives:   "Derives",
	relConflicts: "Conflicts",
}

// String renders the interchange name: "Parent", ..., "Custom(foo)".
func (k RelationshipKind) String() string {
	if k.tag == relCustom {
		return "Custom(" + k.custom + ")"
	}
	return relKindNames[k.tag]
}

// ParseRelationshipKind is the inverse of String.
func ParseRelationshipKind(s string) (RelationshipKind, error) {
	for tag, name := range relKindNames {
		if name != "" && s == name {
			return RelationshipKind{tag: relKindTag(tag)}, nil
		}
	}
	if strings.HasPrefix(s, "Custom(") && strings.HasSuffix(s, ")") {
		return RelCustom(s[len("Custom(") : len(s)-1]), nil
	}
	return RelationshipKind{}, fmt.Errorf("unknown relationship kind %q", s)
}

// ResourceRelationship is one entry of a resource's relationship list.
type ResourceRelationship struct {
	Target ResourceID
	Kind   RelationshipKind
}
