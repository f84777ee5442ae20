package circuit

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/rs/zerolog"

	"github.com/timewave-computer/causality-sub020/teg"
)

// Effect types with dedicated lowerings, beyond the pure operation set
// of the teg package.
const (
	TypeWitness     = "witness"
	TypePublicInput = "public_input"
	TypeVerify      = "verify"
	tensorPrefix    = "tensor"
)

// Config controls one compile.
type Config struct {
	// opaque to the core; "groth16" additionally range-checks
	// numeric constants against the BN254 scalar field
	TargetProofSystem string
	OptimizationLevel int
	DebugInfo         bool
	MaxCircuitSize    int
}

func DefaultConfig() Config {
	return Config{
		TargetProofSystem: "groth16",
		OptimizationLevel: 1,
		MaxCircuitSize:    1_000_000,
	}
}

type Compiler struct {
	cfg Config
	log zerolog.Logger
}

func NewCompiler(cfg Config, log zerolog.Logger) *Compiler {
	if cfg.TargetProofSystem == "" {
		cfg.TargetProofSystem = DefaultConfig().TargetProofSystem
	}
	if cfg.MaxCircuitSize == 0 {
		cfg.MaxCircuitSize = DefaultConfig().MaxCircuitSize
	}
	return &Compiler{cfg: cfg, log: log}
}

var opGateTypes = map[string]string{
	teg.TypeAdd:      "add",
	teg.TypeSubtract: "sub",
	teg.TypeMultiply: "mul",
	teg.TypeDivide:   "div",
	teg.TypeConcat:   "concat",
	teg.TypeAnd:      "and",
	teg.TypeOr:       "or",
	teg.TypeNot:      "not",
}

// Compile lowers the graph to a flat gate list and runs the gate-level
// passes selected by the config. Output is a pure function of the
// graph and the config.
func (c *Compiler) Compile(name string, g *teg.Graph) (*ZkCircuit, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, &InvalidCircuitError{Reason: err.Error()}
	}

	private, public := 0, 0
	for _, id := range order {
		n, _ := g.GetEffect(id)
		switch n.EffectType {
		case TypeWitness:
			private++
		case TypePublicInput:
			public++
		}
	}

	circ := &ZkCircuit{
		Name: name,
		IOSpec: IOSpec{
			PrivateInputs: private,
			PublicInputs:  public,
		},
		Metadata: map[string]string{
			"target_proof_system": c.cfg.TargetProofSystem,
		},
	}

	wireCounter := uint32(private + public)
	outputWire := map[teg.EffectID]uint32{}
	nextPrivate, nextPublic := uint32(0), uint32(private)

	fresh := func() uint32 {
		w := wireCounter
		wireCounter++
		return w
	}
	emit := func(g Gate) {
		circ.Gates = append(circ.Gates, g)
	}
	operandWires := func(id teg.EffectID) ([]uint32, error) {
		ops := g.OperandOrder(id)
		wires := make([]uint32, len(ops))
		for i, op := range ops {
			w, ok := outputWire[op]
			if !ok {
				return nil, &LoweringError{Effect: id, Reason: "operand " + op.String() + " has no wire"}
			}
			wires[i] = w
		}
		return wires, nil
	}

	for _, id := range order {
		n, _ := g.GetEffect(id)
		params := map[string]string{}
		if c.cfg.DebugInfo {
			params["effect_id"] = id.String()
			if n.Name() != "" {
				params["effect_name"] = n.Name()
			}
		}

		switch {
		case n.EffectType == teg.TypeConstant:
			value, ok := n.ConstantValue()
			if !ok {
				return nil, &LoweringError{Effect: id, Reason: "constant without value parameter"}
			}
			if err := c.checkFieldFit(value); err != nil {
				return nil, &LoweringError{Effect: id, Reason: err.Error()}
			}
			params["value"] = value
			out := fresh()
			emit(Gate{GateType: GateConstraint, Output: out, Parameters: params})
			outputWire[id] = out

		case n.EffectType == TypeWitness:
			in := nextPrivate
			nextPrivate++
			out := fresh()
			emit(Gate{GateType: GateFunction, Inputs: []uint32{in}, Output: out, Parameters: params})
			outputWire[id] = out

		case n.EffectType == TypePublicInput:
			in := nextPublic
			nextPublic++
			out := fresh()
			emit(Gate{GateType: GateFunction, Inputs: []uint32{in}, Output: out, Parameters: params})
			outputWire[id] = out

		case n.EffectType == TypeVerify:
			wires, err := operandWires(id)
			if err != nil {
				return nil, err
			}
			out := fresh()
			emit(Gate{GateType: GateVerify, Inputs: wires, Output: out, Parameters: params})
			outputWire[id] = out

		case strings.HasPrefix(n.EffectType, tensorPrefix):
			wires, err := operandWires(id)
			if err != nil {
				return nil, err
			}
			dims := tensorDimensions(n)
			params["op"] = n.EffectType
			cur := wires
			var out uint32
			for d := 0; d < dims; d++ {
				out = fresh()
				p := map[string]string{"dimension": strconv.Itoa(d)}
				for k, v := range params {
					p[k] = v
				}
				emit(Gate{GateType: GateTensorOp, Inputs: cur, Output: out, Parameters: p})
				cur = []uint32{out}
			}
			outputWire[id] = out

		case opGateTypes[n.EffectType] != "":
			wires, err := operandWires(id)
			if err != nil {
				return nil, err
			}
			if n.EffectType == teg.TypeNot && len(wires) != 1 {
				return nil, &LoweringError{Effect: id, Reason: fmt.Sprintf("not takes 1 input, got %d", len(wires))}
			}
			out := fresh()
			emit(Gate{GateType: opGateTypes[n.EffectType], Inputs: wires, Output: out, Parameters: params})
			outputWire[id] = out

		default:
			wires, err := operandWires(id)
			if err != nil {
				return nil, err
			}
			params["effect_type"] = n.EffectType
			out := fresh()
			emit(Gate{GateType: GateCompute, Inputs: wires, Output: out, Parameters: params})
			outputWire[id] = out
		}
	}

	// Exit-point wires, in emission order, are the circuit outputs.
	exits := map[teg.EffectID]bool{}
	for _, id := range g.ExitPoints() {
		exits[id] = true
	}
	for _, id := range order {
		if exits[id] {
			circ.OutputWires = append(circ.OutputWires, outputWire[id])
		}
	}
	circ.IOSpec.Outputs = len(circ.OutputWires)
	circ.GateCount = len(circ.Gates)

	if c.cfg.OptimizationLevel > 0 {
		c.runGatePasses(circ)
	}

	if circ.GateCount > c.cfg.MaxCircuitSize {
		return nil, &TooLargeError{Actual: circ.GateCount, Max: c.cfg.MaxCircuitSize}
	}
	if err := circ.Validate(); err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("circuit", name).
		Int("gates", circ.GateCount).
		Int("private", circ.IOSpec.PrivateInputs).
		Int("public", circ.IOSpec.PublicInputs).
		Int("outputs", circ.IOSpec.Outputs).
		Msg("compiled")
	return circ, nil
}

// checkFieldFit rejects numeric constants that do not fit the target
// proof system's scalar field. Only the default groth16 target has a
// known field; other targets are opaque.
func (c *Compiler) checkFieldFit(value string) error {
	if c.cfg.TargetProofSystem != "groth16" {
		return nil
	}
	x, ok := new(big.Int).SetString(value, 10)
	if !ok {
		// non-numeric constants (strings, rationals) are not field
		// elements and are carried symbolically
		return nil
	}
	if new(big.Int).Abs(x).Cmp(fr.Modulus()) >= 0 {
		return fmt.Errorf("constant %s exceeds the bn254 scalar field", value)
	}
	return nil
}

func tensorDimensions(n *teg.EffectNode) int {
	p, ok := n.Parameters["dimensions"]
	if !ok {
		return 1
	}
	if x, ok := p.Int64(); ok && x > 0 {
		return int(x)
	}
	if s, ok := p.Str(); ok {
		if x, err := strconv.Atoi(s); err == nil && x > 0 {
			return x
		}
	}
	return 1
}
