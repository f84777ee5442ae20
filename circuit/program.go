package circuit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/timewave-computer/causality-sub020/builder"
	"github.com/timewave-computer/causality-sub020/teg"
)

// The program front end accepts a minimal surface form and extracts a
// list of operations by line-level pattern matching. Recognized
// statements, one per line ('#' starts a comment):
//
//	witness x
//	public y
//	z = 5
//	w = x + y        (+ - * / & |)
//	verify w
//
// Anything else is an UnsupportedOperation.
func parseProgram(src string) ([]statement, error) {
	var stmts []statement
	for lineNo, raw := range strings.Split(src, "\n") {
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		stmt, err := parseStatement(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

type stmtKind uint8

const (
	stmtWitness stmtKind = iota
	stmtPublic
	stmtConst
	stmtBinary
	stmtVerify
)

type statement struct {
	kind  stmtKind
	name  string
	value int64
	op    string
	lhs   string
	rhs   string
}

var binaryOps = map[string]string{
	"+": teg.TypeAdd,
	"-": teg.TypeSubtract,
	"*": teg.TypeMultiply,
	"/": teg.TypeDivide,
	"&": teg.TypeAnd,
	"|": teg.TypeOr,
}

func parseStatement(line string) (statement, error) {
	fields := strings.Fields(line)
	switch {
	case len(fields) == 2 && fields[0] == "witness":
		return statement{kind: stmtWitness, name: fields[1]}, nil
	case len(fields) == 2 && fields[0] == "public":
		return statement{kind: stmtPublic, name: fields[1]}, nil
	case len(fields) == 2 && fields[0] == "verify":
		return statement{kind: stmtVerify, name: fields[1]}, nil
	case len(fields) == 3 && fields[1] == "=":
		x, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return statement{}, &UnsupportedOperationError{Operation: line}
		}
		return statement{kind: stmtConst, name: fields[0], value: x}, nil
	case len(fields) == 5 && fields[1] == "=":
		effectType, ok := binaryOps[fields[3]]
		if !ok {
			return statement{}, &UnsupportedOperationError{Operation: line}
		}
		return statement{kind: stmtBinary, name: fields[0], op: effectType, lhs: fields[2], rhs: fields[4]}, nil
	}
	return statement{}, &UnsupportedOperationError{Operation: line}
}

// CompileProgram extracts operations from src, builds a graph in a
// synthetic "program" domain, and compiles it.
func (c *Compiler) CompileProgram(name, src string) (*ZkCircuit, error) {
	stmts, err := parseProgram(src)
	if err != nil {
		return nil, err
	}

	b := builder.New()
	domain := teg.DomainFromName("program")
	refs := map[string]builder.EffectRef{}

	addNode := func(varName, effectType string) builder.EffectRef {
		n := teg.NewEffect(varName, effectType)
		n.DomainID = domain
		ref := b.AddEffect(n)
		refs[varName] = ref
		return ref
	}

	for _, s := range stmts {
		switch s.kind {
		case stmtWitness:
			addNode(s.name, TypeWitness)
		case stmtPublic:
			addNode(s.name, TypePublicInput)
		case stmtConst:
			ref := addNode(s.name, teg.TypeConstant)
			b.Effect(ref).AddParameter("value", teg.StringValue(strconv.FormatInt(s.value, 10)))
		case stmtBinary:
			lhs, ok := refs[s.lhs]
			if !ok {
				return nil, &UnsupportedOperationError{Operation: "undefined variable " + s.lhs}
			}
			rhs, ok := refs[s.rhs]
			if !ok {
				return nil, &UnsupportedOperationError{Operation: "undefined variable " + s.rhs}
			}
			ref := addNode(s.name, s.op)
			b.ConnectEffects(lhs, ref, teg.EdgeData{Order: 0})
			b.ConnectEffects(rhs, ref, teg.EdgeData{Order: 1})
		case stmtVerify:
			arg, ok := refs[s.name]
			if !ok {
				return nil, &UnsupportedOperationError{Operation: "undefined variable " + s.name}
			}
			ref := b.AddEffect(func() *teg.EffectNode {
				n := teg.NewEffect("verify_"+s.name, TypeVerify)
				n.DomainID = domain
				return n
			}())
			b.ConnectEffects(arg, ref, teg.EdgeData{Order: 0})
		}
	}

	g, err := b.Build()
	if err != nil {
		return nil, &InvalidCircuitError{Reason: err.Error()}
	}
	return c.Compile(name, g)
}
