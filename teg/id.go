// Package teg implements the temporal effect graph: content-addressed
// effect and resource nodes connected by ordered continuation edges,
// with the dependency view maintained as the mirror of continuations.
package teg

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// IDSize is the byte width of every content-addressed identifier.
const IDSize = 32

type EffectID [IDSize]byte

type ResourceID [IDSize]byte

type DomainID [IDSize]byte

type ExprID [IDSize]byte

// Hasher is the system content hash H. It must be deterministic and
// independent of process state.
type Hasher func([]byte) [IDSize]byte

// Blake2b is the default Hasher.
func Blake2b(b []byte) [IDSize]byte {
	return blake2b.Sum256(b)
}

func (id EffectID) String() string   { return hex.EncodeToString(id[:]) }
func (id ResourceID) String() string { return hex.EncodeToString(id[:]) }
func (id DomainID) String() string   { return hex.EncodeToString(id[:]) }
func (id ExprID) String() string     { return hex.EncodeToString(id[:]) }

// Less is lexicographic byte order, the tie-break order used by every
// deterministic iteration in the package.
func (id EffectID) Less(other EffectID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

func (id ResourceID) Less(other ResourceID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

func (id DomainID) Less(other DomainID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// DomainFromName derives a DomainID from a human-readable name using
// the default hasher. Domains are opaque to the core; this is a
// convenience for callers that address domains by name.
func DomainFromName(name string) DomainID {
	return DomainID(Blake2b([]byte("domain:" + name)))
}

// ExprFromBytes derives an ExprID for a guard expression body.
func ExprFromBytes(b []byte) ExprID {
	return ExprID(Blake2b(b))
}

func parseID(s string) ([IDSize]byte, error) {
	var id [IDSize]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if len(b) != IDSize {
		return id, fmt.Errorf("invalid id length %d, expected %d", len(b), IDSize)
	}
	copy(id[:], b)
	return id, nil
}

func ParseEffectID(s string) (EffectID, error) {
	id, err := parseID(s)
	return EffectID(id), err
}

func ParseResourceID(s string) (ResourceID, error) {
	id, err := parseID(s)
	return ResourceID(id), err
}

func ParseDomainID(s string) (DomainID, error) {
	id, err := parseID(s)
	return DomainID(id), err
}

func ParseExprID(s string) (ExprID, error) {
	id, err := parseID(s)
	return ExprID(id), err
}
