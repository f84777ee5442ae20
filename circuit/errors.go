package circuit

import (
	"fmt"

	"github.com/timewave-computer/causality-sub020/teg"
)

type UnsupportedOperationError struct {
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return "unsupported operation: " + e.Operation
}

type TooLargeError struct {
	Actual int
	Max    int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("circuit has %d gates, limit is %d", e.Actual, e.Max)
}

type InvalidCircuitError struct {
	Reason string
}

func (e *InvalidCircuitError) Error() string {
	return "invalid circuit: " + e.Reason
}

// LoweringError aborts the whole compile; the compiler is
// all-or-nothing.
type LoweringError struct {
	Effect teg.EffectID
	Reason string
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("lowering effect %s failed: %s", e.Effect, e.Reason)
}
