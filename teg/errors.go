package teg

import "fmt"

// DuplicateIDError reports an insert whose content hash collides with
// an existing key.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate id %s", e.ID)
}

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("id %s not found", e.ID)
}

// CycleError reports an edge insertion that would close a continuation
// cycle. The graph is unchanged when this is returned.
type CycleError struct {
	Src EffectID
	Dst EffectID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("edge %s -> %s would create a cycle", e.Src, e.Dst)
}

type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return "invariant violation: " + e.Reason
}

type UnknownReferenceError struct {
	From string
	To   string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("%s references unknown id %s", e.From, e.To)
}

type DomainUnknownError struct {
	Node   string
	Domain DomainID
}

func (e *DomainUnknownError) Error() string {
	return fmt.Sprintf("node %s has domain %s not in the domain set", e.Node, e.Domain)
}

// HashMismatchError reports a node whose stored id differs from the
// hash of its content-addressed fields.
type HashMismatchError struct {
	Stored   string
	Computed string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("node id %s does not match content hash %s", e.Stored, e.Computed)
}

type BytesInvalidError struct {
	Reason string
}

func (e *BytesInvalidError) Error() string {
	return "invalid bytes: " + e.Reason
}

type InvalidByteLengthError struct {
	Len      int
	Expected int
}

func (e *InvalidByteLengthError) Error() string {
	return fmt.Sprintf("invalid byte length %d, expected %d", e.Len, e.Expected)
}

type UnsupportedVersionError struct {
	Version byte
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported encoding version 0x%02x", e.Version)
}

func wrapBytesInvalid(err error) error {
	return &BytesInvalidError{Reason: err.Error()}
}
