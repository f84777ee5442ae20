package optimize

import (
	"errors"
	"math/big"
	"strconv"
	"strings"

	"github.com/timewave-computer/causality-sub020/teg"
)

// constVal is the evaluation domain of constant folding: 64-bit signed
// integers, exact bounded rationals, strings and booleans.
type constVal struct {
	kind constKind
	i    int64
	num  *big.Int
	den  *big.Int
	s    string
	b    bool
}

type constKind uint8

const (
	cvInt constKind = iota
	cvRational
	cvString
	cvBool
)

// render stringifies a value the way constant parameters store it.
func (v constVal) render() string {
	switch v.kind {
	case cvInt:
		return strconv.FormatInt(v.i, 10)
	case cvRational:
		return v.num.String() + "/" + v.den.String()
	case cvString:
		return v.s
	case cvBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// parseConstant interprets a constant effect's value parameter.
// Typed parameters are taken as-is; string parameters are narrowed to
// int, bool or rational when they parse as one.
func parseConstant(p teg.ParameterValue) (constVal, bool) {
	switch p.Kind() {
	case teg.KindInt64:
		x, _ := p.Int64()
		return constVal{kind: cvInt, i: x}, true
	case teg.KindBool:
		x, _ := p.Bool()
		return constVal{kind: cvBool, b: x}, true
	case teg.KindRational:
		num, den, _ := p.Rational()
		return constVal{kind: cvRational, num: num, den: den}, true
	case teg.KindUint64:
		x, _ := p.Uint64()
		if x > uint64(1<<63-1) {
			return constVal{}, false
		}
		return constVal{kind: cvInt, i: int64(x)}, true
	case teg.KindString:
		s, _ := p.Str()
		if x, err := strconv.ParseInt(s, 10, 64); err == nil {
			return constVal{kind: cvInt, i: x}, true
		}
		if s == "true" || s == "false" {
			return constVal{kind: cvBool, b: s == "true"}, true
		}
		if num, den, ok := parseRationalLiteral(s); ok {
			return constVal{kind: cvRational, num: num, den: den}, true
		}
		return constVal{kind: cvString, s: s}, true
	}
	return constVal{}, false
}

func parseRationalLiteral(s string) (*big.Int, *big.Int, bool) {
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return nil, nil, false
	}
	num, ok := new(big.Int).SetString(s[:slash], 10)
	if !ok {
		return nil, nil, false
	}
	den, ok := new(big.Int).SetString(s[slash+1:], 10)
	if !ok || den.Sign() <= 0 {
		return nil, nil, false
	}
	return num, den, true
}

// ConstantFolding replaces pure subgraphs whose leaves are all
// constants with single fresh constant effects. A fold that would
// overflow int64, divide by zero, or exceed the rational bounds is
// skipped; the effect stays in place and no error is raised.
type ConstantFolding struct{}

func NewConstantFolding() *ConstantFolding {
	return &ConstantFolding{}
}

func (*ConstantFolding) Name() string { return "constant_folding" }

func (*ConstantFolding) Description() string {
	return "evaluate pure operations over constant operands at compile time"
}

func (*ConstantFolding) PreservesAdjunction() bool        { return true }
func (*ConstantFolding) PreservesResourceStructure() bool { return true }

func (*ConstantFolding) Apply(g *teg.Graph, _ *Config) (bool, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return false, err
	}

	// Fixed-point marking folds into one topological sweep: a node's
	// operands precede it, so their values are already decided.
	values := map[teg.EffectID]constVal{}
	for _, id := range order {
		n, _ := g.GetEffect(id)
		if n.IsConstant() {
			if v, ok := parseConstant(n.Parameters["value"]); ok {
				values[id] = v
			}
			continue
		}
		if !n.IsPure() || len(n.ResourcesAccessed) > 0 {
			continue
		}
		operands := g.OperandOrder(id)
		args := make([]constVal, 0, len(operands))
		allConst := len(operands) > 0
		for _, op := range operands {
			v, ok := values[op]
			if !ok {
				allConst = false
				break
			}
			args = append(args, v)
		}
		if !allConst {
			continue
		}
		if v, ok := evalPure(n.EffectType, args); ok {
			values[id] = v
		}
	}

	changed := false
	// lostConsumer tracks constants that fed a removed operation.
	lostConsumer := map[teg.EffectID]bool{}

	for _, id := range order {
		n, ok := g.GetEffect(id)
		if !ok {
			// already removed as part of an earlier fold
			continue
		}
		if n.IsConstant() || !n.IsPure() {
			continue
		}
		v, ok := values[id]
		if !ok {
			continue
		}

		folded := teg.NewEffect(n.Name(), teg.TypeConstant)
		folded.DomainID = n.DomainID
		folded.SetMetadata(n.Metadata)
		folded.Metadata["folded_from"] = n.EffectType
		folded.AddParameter("value", teg.StringValue(v.render()))

		outgoing := g.OutgoingEdges(id)

		newID, err := g.AddEffect(folded)
		if err != nil {
			var dup *teg.DuplicateIDError
			if !errors.As(err, &dup) {
				return changed, err
			}
			// Structural identity: an identical constant already
			// exists. Reuse it, unless it already feeds one of this
			// node's consumers; collapsing onto that edge would cost
			// the consumer an operand, so the fold is skipped.
			newID = folded.ComputeID(g.Hasher())
			collides := false
			for _, e := range outgoing {
				if _, exists := g.GetEdge(newID, e.Neighbor); exists {
					collides = true
					break
				}
			}
			if collides {
				continue
			}
		}

		for _, pred := range g.Dependencies(id) {
			lostConsumer[pred] = true
		}
		if err := g.RemoveEffect(id); err != nil {
			return changed, err
		}
		for _, e := range outgoing {
			if err := g.AddEdge(newID, e.Neighbor, e.Data); err != nil {
				return changed, err
			}
		}
		changed = true
	}

	// Constant leaves whose every consumer was folded away are part of
	// the replaced subgraph.
	for id := range lostConsumer {
		n, ok := g.GetEffect(id)
		if !ok || !n.IsConstant() || len(n.ResourcesAccessed) > 0 {
			continue
		}
		if len(g.OutgoingEdges(id)) == 0 {
			if err := g.RemoveEffect(id); err != nil {
				return changed, err
			}
			changed = true
		}
	}

	return changed, nil
}

// evalPure computes one pure operation over constant operands; ok is
// false when the fold must be skipped (arity, type mix, overflow,
// division by zero, rational bounds).
func evalPure(effectType string, args []constVal) (constVal, bool) {
	switch effectType {
	case teg.TypeAdd, teg.TypeMultiply:
		return foldArith(effectType, args)
	case teg.TypeSubtract, teg.TypeDivide:
		if len(args) != 2 {
			return constVal{}, false
		}
		return foldArith(effectType, args)
	case teg.TypeConcat:
		if len(args) == 0 {
			return constVal{}, false
		}
		var sb strings.Builder
		for _, a := range args {
			if a.kind != cvString {
				return constVal{}, false
			}
			sb.WriteString(a.s)
		}
		return constVal{kind: cvString, s: sb.String()}, true
	case teg.TypeAnd, teg.TypeOr:
		if len(args) == 0 {
			return constVal{}, false
		}
		acc := effectType == teg.TypeAnd
		for _, a := range args {
			if a.kind != cvBool {
				return constVal{}, false
			}
			if effectType == teg.TypeAnd {
				acc = acc && a.b
			} else {
				acc = acc || a.b
			}
		}
		return constVal{kind: cvBool, b: acc}, true
	case teg.TypeNot:
		if len(args) != 1 || args[0].kind != cvBool {
			return constVal{}, false
		}
		return constVal{kind: cvBool, b: !args[0].b}, true
	}
	return constVal{}, false
}

func foldArith(effectType string, args []constVal) (constVal, bool) {
	if len(args) < 2 {
		return constVal{}, false
	}
	allInt, allRat := true, true
	for _, a := range args {
		allInt = allInt && a.kind == cvInt
		allRat = allRat && a.kind == cvRational
	}
	switch {
	case allInt:
		acc := args[0].i
		for _, a := range args[1:] {
			x, ok := intOp(effectType, acc, a.i)
			if !ok {
				return constVal{}, false
			}
			acc = x
		}
		return constVal{kind: cvInt, i: acc}, true
	case allRat:
		acc := new(big.Rat).SetFrac(args[0].num, args[0].den)
		for _, a := range args[1:] {
			r := new(big.Rat).SetFrac(a.num, a.den)
			switch effectType {
			case teg.TypeAdd:
				acc.Add(acc, r)
			case teg.TypeSubtract:
				acc.Sub(acc, r)
			case teg.TypeMultiply:
				acc.Mul(acc, r)
			case teg.TypeDivide:
				if r.Sign() == 0 {
					return constVal{}, false
				}
				acc.Quo(acc, r)
			}
		}
		if acc.Num().BitLen() > teg.RationalMaxBits || acc.Denom().BitLen() > teg.RationalMaxBits {
			return constVal{}, false
		}
		return constVal{
			kind: cvRational,
			num:  new(big.Int).Set(acc.Num()),
			den:  new(big.Int).Set(acc.Denom()),
		}, true
	}
	return constVal{}, false
}

// intOp applies one signed 64-bit step with overflow detection.
func intOp(effectType string, a, b int64) (int64, bool) {
	switch effectType {
	case teg.TypeAdd:
		c := a + b
		if (b > 0 && c < a) || (b < 0 && c > a) {
			return 0, false
		}
		return c, true
	case teg.TypeSubtract:
		c := a - b
		if (b < 0 && c < a) || (b > 0 && c > a) {
			return 0, false
		}
		return c, true
	case teg.TypeMultiply:
		if a == 0 || b == 0 {
			return 0, true
		}
		c := a * b
		if c/b != a || (a == -1 && b == minInt64) || (b == -1 && a == minInt64) {
			return 0, false
		}
		return c, true
	case teg.TypeDivide:
		if b == 0 {
			return 0, false
		}
		if a == minInt64 && b == -1 {
			return 0, false
		}
		return a / b, true
	}
	return 0, false
}

const minInt64 = -1 << 63
