// Package circuit lowers a temporal effect graph into a flat list of
// named gates over u32 wires, runs gate-level cleanups, and emits a
// canonical byte encoding of the result. It never computes witnesses
// or proofs; the target proof system is carried as an opaque name.
package circuit

import "fmt"

// Gate types the compiler itself emits. Backends may add names
// (add, mul, ...) for arithmetic lowering.
const (
	GateConstraint = "constraint"
	GateVerify     = "verify"
	GateFunction   = "function"
	GateTensorOp   = "tensor_op"
	GateCompute    = "compute"
)

// Gate is one node of the flat circuit.
type Gate struct {
	GateType   string
	Inputs     []uint32
	Output     uint32
	Parameters map[string]string
}

// IOSpec counts the circuit's external surface.
type IOSpec struct {
	PrivateInputs int
	PublicInputs  int
	Outputs       int
}

type ZkCircuit struct {
	Name      string
	GateCount int
	IOSpec    IOSpec
	Gates     []Gate
	// wires exposed as circuit outputs, in emission order
	OutputWires []uint32
	Metadata    map[string]string
}

// Validate checks internal consistency: gate count, output wires
// strictly increasing past the input range, inputs referring only to
// wires that already exist.
func (c *ZkCircuit) Validate() error {
	if c.GateCount != len(c.Gates) {
		return &InvalidCircuitError{
			Reason: fmt.Sprintf("gate_count %d != %d gates", c.GateCount, len(c.Gates)),
		}
	}
	nbInputs := uint32(c.IOSpec.PrivateInputs + c.IOSpec.PublicInputs)
	prevOut := nbInputs
	first := true
	for i, g := range c.Gates {
		if g.Output < nbInputs {
			return &InvalidCircuitError{
				Reason: fmt.Sprintf("gate %d writes input wire %d", i, g.Output),
			}
		}
		if !first && g.Output <= prevOut {
			return &InvalidCircuitError{
				Reason: fmt.Sprintf("gate %d output wire %d is not increasing", i, g.Output),
			}
		}
		for _, in := range g.Inputs {
			if in >= g.Output && in >= nbInputs {
				return &InvalidCircuitError{
					Reason: fmt.Sprintf("gate %d reads wire %d before it exists", i, in),
				}
			}
		}
		prevOut = g.Output
		first = false
	}
	wireExists := func(w uint32) bool {
		if w < nbInputs {
			return true
		}
		for _, g := range c.Gates {
			if g.Output == w {
				return true
			}
		}
		return false
	}
	for _, w := range c.OutputWires {
		if !wireExists(w) {
			return &InvalidCircuitError{Reason: fmt.Sprintf("output wire %d does not exist", w)}
		}
	}
	if c.IOSpec.Outputs != len(c.OutputWires) {
		return &InvalidCircuitError{
			Reason: fmt.Sprintf("io_spec outputs %d != %d output wires", c.IOSpec.Outputs, len(c.OutputWires)),
		}
	}
	return nil
}

// Equal compares circuits structurally.
func (c *ZkCircuit) Equal(other *ZkCircuit) bool {
	if c.Name != other.Name || c.GateCount != other.GateCount || c.IOSpec != other.IOSpec {
		return false
	}
	if len(c.Gates) != len(other.Gates) || len(c.OutputWires) != len(other.OutputWires) ||
		len(c.Metadata) != len(other.Metadata) {
		return false
	}
	for i := range c.OutputWires {
		if c.OutputWires[i] != other.OutputWires[i] {
			return false
		}
	}
	for k, v := range c.Metadata {
		if other.Metadata[k] != v {
			return false
		}
	}
	for i := range c.Gates {
		a, b := c.Gates[i], other.Gates[i]
		if a.GateType != b.GateType || a.Output != b.Output ||
			len(a.Inputs) != len(b.Inputs) || len(a.Parameters) != len(b.Parameters) {
			return false
		}
		for j := range a.Inputs {
			if a.Inputs[j] != b.Inputs[j] {
				return false
			}
		}
		for k, v := range a.Parameters {
			if b.Parameters[k] != v {
				return false
			}
		}
	}
	return true
}
