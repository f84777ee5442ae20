package optimize

import (
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timewave-computer/causality-sub020/teg"
)

func testDomain() teg.DomainID {
	return teg.DomainFromName("test")
}

func addConstant(t *testing.T, g *teg.Graph, name, value string) teg.EffectID {
	t.Helper()
	n := teg.NewEffect(name, teg.TypeConstant)
	n.DomainID = testDomain()
	n.AddParameter("value", teg.StringValue(value))
	id, err := g.AddEffect(n)
	require.NoError(t, err)
	return id
}

func addOp(t *testing.T, g *teg.Graph, name, effectType string, operands ...teg.EffectID) teg.EffectID {
	t.Helper()
	n := teg.NewEffect(name, effectType)
	n.DomainID = testDomain()
	id, err := g.AddEffect(n)
	require.NoError(t, err)
	for i, op := range operands {
		require.NoError(t, g.AddEdge(op, id, teg.EdgeData{Order: uint32(i)}))
	}
	return id
}

func run(t *testing.T, g *teg.Graph, cfg Config) *Report {
	t.Helper()
	report, err := New(zerolog.Nop()).Run(g, cfg)
	require.NoError(t, err)
	require.NoError(t, g.CheckInvariants())
	return report
}

// singleConstant returns the value of the only constant in a
// one-effect graph.
func singleFoldedConstant(t *testing.T, g *teg.Graph, foldedFrom string) *teg.EffectNode {
	t.Helper()
	require.Equal(t, 1, g.EffectCount())
	n := g.Effects()[0]
	require.True(t, n.IsConstant())
	require.Equal(t, foldedFrom, n.Metadata["folded_from"])
	return n
}

func TestArithmeticFold(t *testing.T) {
	g := teg.NewGraph()
	a := addConstant(t, g, "a", "5")
	b := addConstant(t, g, "b", "3")
	addOp(t, g, "sum", teg.TypeAdd, a, b)

	report := run(t, g, Config{Level: 1, MaxIterations: 16})
	require.Equal(t, uint32(1), report.PassChanges["constant_folding"])

	n := singleFoldedConstant(t, g, teg.TypeAdd)
	value, ok := n.ConstantValue()
	require.True(t, ok)
	require.Equal(t, "8", value)
	require.Equal(t, []teg.EffectID{n.ID}, g.ExitPoints())
}

func TestStringConcatFold(t *testing.T) {
	g := teg.NewGraph()
	hello := addConstant(t, g, "hello", "Hello, ")
	world := addConstant(t, g, "world", "World!")
	addOp(t, g, "greeting", teg.TypeConcat, hello, world)

	run(t, g, Config{Level: 1})
	n := singleFoldedConstant(t, g, teg.TypeConcat)
	value, _ := n.ConstantValue()
	require.Equal(t, "Hello, World!", value)
}

func TestDivisionByZeroAbortsFold(t *testing.T) {
	g := teg.NewGraph()
	a := addConstant(t, g, "a", "10")
	b := addConstant(t, g, "b", "0")
	div := addOp(t, g, "quot", teg.TypeDivide, a, b)

	report := run(t, g, Config{Level: 1})
	require.Empty(t, report.PassChanges)
	require.Equal(t, 3, g.EffectCount())
	_, ok := g.GetEffect(div)
	require.True(t, ok, "divide stays in place")
}

func TestOverflowAbortsFold(t *testing.T) {
	g := teg.NewGraph()
	a := addConstant(t, g, "a", strconv.FormatInt(1<<62, 10))
	b := addConstant(t, g, "b", strconv.FormatInt(1<<62, 10))
	sum := addOp(t, g, "sum", teg.TypeAdd, a, b)

	run(t, g, Config{Level: 1})
	_, ok := g.GetEffect(sum)
	require.True(t, ok)
	require.Equal(t, 3, g.EffectCount())
}

func TestOperandOrderMatters(t *testing.T) {
	g := teg.NewGraph()
	a := addConstant(t, g, "a", "10")
	b := addConstant(t, g, "b", "3")
	diff := addOp(t, g, "diff", teg.TypeSubtract)
	// wired out of insertion order; the edge order field decides
	require.NoError(t, g.AddEdge(b, diff, teg.EdgeData{Order: 1}))
	require.NoError(t, g.AddEdge(a, diff, teg.EdgeData{Order: 0}))

	run(t, g, Config{Level: 1})
	n := singleFoldedConstant(t, g, teg.TypeSubtract)
	value, _ := n.ConstantValue()
	require.Equal(t, "7", value)
}

func TestRationalFold(t *testing.T) {
	g := teg.NewGraph()
	a := addConstant(t, g, "a", "1/3")
	b := addConstant(t, g, "b", "1/6")
	addOp(t, g, "sum", teg.TypeAdd, a, b)

	run(t, g, Config{Level: 1})
	n := singleFoldedConstant(t, g, teg.TypeAdd)
	value, _ := n.ConstantValue()
	require.Equal(t, "1/2", value)
}

func TestBooleanFold(t *testing.T) {
	g := teg.NewGraph()
	x := addConstant(t, g, "x", "true")
	y := addConstant(t, g, "y", "false")
	and := addOp(t, g, "conj", teg.TypeAnd, x, y)
	addOp(t, g, "neg", teg.TypeNot, and)

	run(t, g, Config{Level: 1})
	n := singleFoldedConstant(t, g, teg.TypeNot)
	value, _ := n.ConstantValue()
	require.Equal(t, "true", value)
}

func TestTransitiveFold(t *testing.T) {
	g := teg.NewGraph()
	a := addConstant(t, g, "a", "2")
	b := addConstant(t, g, "b", "3")
	c := addConstant(t, g, "c", "4")
	sum := addOp(t, g, "sum", teg.TypeAdd, a, b)
	addOp(t, g, "prod", teg.TypeMultiply, sum, c)

	run(t, g, Config{Level: 1})
	n := singleFoldedConstant(t, g, teg.TypeMultiply)
	value, _ := n.ConstantValue()
	require.Equal(t, "20", value)
}

func TestFoldKeepsExternalConsumers(t *testing.T) {
	g := teg.NewGraph()
	a := addConstant(t, g, "a", "5")
	b := addConstant(t, g, "b", "3")
	addOp(t, g, "sum", teg.TypeAdd, a, b)
	// an impure effect also reads a; a must survive the fold
	addOp(t, g, "observe", teg.TypeEffect, a)

	run(t, g, Config{Level: 1})
	_, ok := g.GetEffect(a)
	require.True(t, ok)
	_, ok = g.GetEffect(b)
	require.False(t, ok)
}

func TestFoldKeepsOperandsOnConstantCollision(t *testing.T) {
	g := teg.NewGraph()
	a := addConstant(t, g, "a", "5")
	b := addConstant(t, g, "b", "3")
	// both sums fold to identical constants; rewiring both onto the
	// shared node would cost the consumer an operand
	sum1 := addOp(t, g, "sum", teg.TypeAdd, a, b)
	n := teg.NewEffect("sum", teg.TypeAdd)
	n.DomainID = testDomain()
	n.AddParameter("hint", teg.StringValue("right"))
	sum2, err := g.AddEffect(n)
	require.NoError(t, err)
	require.NoError(t, g.AddEdge(a, sum2, teg.EdgeData{Order: 0}))
	require.NoError(t, g.AddEdge(b, sum2, teg.EdgeData{Order: 1}))
	use := addOp(t, g, "use", teg.TypeEffect, sum1, sum2)

	run(t, g, Config{Level: 1})

	// one sum folds, the colliding one keeps its original form
	operands := g.OperandOrder(use)
	require.Len(t, operands, 2)
	constants, adds := 0, 0
	for _, op := range operands {
		n, ok := g.GetEffect(op)
		require.True(t, ok)
		if n.IsConstant() {
			value, _ := n.ConstantValue()
			require.Equal(t, "8", value)
			constants++
		}
		if n.EffectType == teg.TypeAdd {
			adds++
		}
	}
	require.Equal(t, 1, constants)
	require.Equal(t, 1, adds)
}

func TestLevelZeroIsNoOp(t *testing.T) {
	g := teg.NewGraph()
	a := addConstant(t, g, "a", "5")
	b := addConstant(t, g, "b", "3")
	addOp(t, g, "sum", teg.TypeAdd, a, b)
	before := g.Encode()

	report := run(t, g, Config{Level: 0})
	require.Equal(t, uint32(0), report.Iterations)
	require.Equal(t, before, g.Encode())
}

func TestSkipByName(t *testing.T) {
	g := teg.NewGraph()
	a := addConstant(t, g, "a", "5")
	b := addConstant(t, g, "b", "3")
	addOp(t, g, "sum", teg.TypeAdd, a, b)

	report := run(t, g, Config{Level: 1, Skip: map[string]bool{"constant_folding": true}})
	require.Empty(t, report.PassChanges)
	require.Equal(t, 3, g.EffectCount())
}

func TestOptimizerIdempotence(t *testing.T) {
	build := func() *teg.Graph {
		g := teg.NewGraph()
		a := addConstant(t, g, "a", "5")
		b := addConstant(t, g, "b", "3")
		sum := addOp(t, g, "sum", teg.TypeAdd, a, b)
		addOp(t, g, "use", teg.TypeEffect, sum)
		return g
	}
	cfg := Config{Level: 2}

	g := build()
	run(t, g, cfg)
	once := g.Encode()

	report := run(t, g, cfg)
	require.Empty(t, report.PassChanges)
	require.Equal(t, once, g.Encode())
}

func TestDeadCodeElimination(t *testing.T) {
	g := teg.NewGraph()
	w := addOp(t, g, "w", "witness")
	v := addOp(t, g, "v", "witness")
	// pure value computed and discarded
	addOp(t, g, "discarded", teg.TypeAdd, w, v)
	// impure exit stays
	addOp(t, g, "store", teg.TypeEffect, w)

	report := run(t, g, Config{Level: 2, Skip: map[string]bool{"constant_folding": true}})
	require.Equal(t, uint32(1), report.PassChanges["dead_code_elimination"])
	require.Equal(t, 3, g.EffectCount())
	exits := g.ExitPoints()
	require.Len(t, exits, 2, "v and store are the exits after elimination")
}

func TestOperationFusion(t *testing.T) {
	g := teg.NewGraph()
	w := addOp(t, g, "w", "witness")
	x := addOp(t, g, "x", "witness")
	y := addOp(t, g, "y", "witness")
	inner := addOp(t, g, "inner", teg.TypeConcat, w, x)
	outer := addOp(t, g, "outer", teg.TypeConcat, inner, y)
	addOp(t, g, "use", teg.TypeEffect, outer)

	report := run(t, g, Config{Level: 2})
	require.Equal(t, uint32(1), report.PassChanges["operation_fusion"])

	_, ok := g.GetEffect(inner)
	require.False(t, ok)
	require.Equal(t, []teg.EffectID{w, x, y}, g.OperandOrder(outer))
}

type brokenPass struct{}

func (brokenPass) Name() string                     { return "broken" }
func (brokenPass) Description() string              { return "leaves a dangling dependency" }
func (brokenPass) PreservesAdjunction() bool        { return false }
func (brokenPass) PreservesResourceStructure() bool { return true }

func (brokenPass) Apply(g *teg.Graph, _ *Config) (bool, error) {
	// tamper with a node so the content hash no longer matches
	for _, n := range g.Effects() {
		n.Metadata["tampered"] = "yes"
		return true, nil
	}
	return false, nil
}

func TestBrokenPassRollsBack(t *testing.T) {
	g := teg.NewGraph()
	addConstant(t, g, "a", "5")
	before := g.Encode()

	o := NewEmpty(zerolog.Nop())
	o.Register(brokenPass{}, 1)
	report, err := o.Run(g, Config{Level: 1})
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	require.Equal(t, "broken", report.Violations[0].Pass)
	require.Equal(t, before, g.Encode(), "graph restored from snapshot")
	require.NoError(t, g.CheckInvariants())
}

type quietPass struct{}

func (quietPass) Name() string                     { return "quiet" }
func (quietPass) Description() string              { return "tampers while reporting no change" }
func (quietPass) PreservesAdjunction() bool        { return true }
func (quietPass) PreservesResourceStructure() bool { return true }

func (quietPass) Apply(g *teg.Graph, _ *Config) (bool, error) {
	for _, n := range g.Effects() {
		n.Metadata["tampered"] = "yes"
		break
	}
	return false, nil
}

func TestQuietTamperingRollsBack(t *testing.T) {
	g := teg.NewGraph()
	addConstant(t, g, "a", "5")
	before := g.Encode()

	o := NewEmpty(zerolog.Nop())
	o.Register(quietPass{}, 1)
	report, err := o.Run(g, Config{Level: 1})
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	require.Equal(t, "quiet", report.Violations[0].Pass)
	require.Equal(t, before, g.Encode())
}

func TestBrokenPassStrict(t *testing.T) {
	g := teg.NewGraph()
	addConstant(t, g, "a", "5")

	o := NewEmpty(zerolog.Nop())
	o.Register(brokenPass{}, 1)
	_, err := o.Run(g, Config{Level: 1, Strict: true})
	var violation *PassViolationError
	require.ErrorAs(t, err, &violation)
}

type alwaysChanges struct{ n int }

func (p *alwaysChanges) Name() string                     { return "churn" }
func (p *alwaysChanges) Description() string              { return "never settles" }
func (p *alwaysChanges) PreservesAdjunction() bool        { return true }
func (p *alwaysChanges) PreservesResourceStructure() bool { return true }

func (p *alwaysChanges) Apply(g *teg.Graph, _ *Config) (bool, error) {
	p.n++
	n := teg.NewEffect("churn_"+strconv.Itoa(p.n), teg.TypeConstant)
	n.DomainID = testDomain()
	n.AddParameter("value", teg.StringValue(strconv.Itoa(p.n)))
	_, err := g.AddEffect(n)
	return true, err
}

func TestMaxIterations(t *testing.T) {
	g := teg.NewGraph()
	addConstant(t, g, "a", "5")

	o := NewEmpty(zerolog.Nop())
	o.Register(&alwaysChanges{}, 1)
	report, err := o.Run(g, Config{Level: 1, MaxIterations: 4})
	var maxErr *MaxIterationsError
	require.ErrorAs(t, err, &maxErr)
	require.Equal(t, uint32(4), report.Iterations)
}
