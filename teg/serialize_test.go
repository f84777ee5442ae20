package teg

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/timewave-computer/causality-sub020/utils"
)

// buildInterchangeGraph is the round-trip fixture: two domains, three
// effects, one resource, one custom relationship.
func buildInterchangeGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()

	res := NewResource("ledger", "store")
	res.DomainID = DomainFromName("bank")
	rid, err := g.AddResource(res)
	require.NoError(t, err)

	res2 := NewResource("mirror", "store")
	res2.DomainID = DomainFromName("bank")
	rid2, err := g.AddResource(res2)
	require.NoError(t, err)
	require.NoError(t, g.AddResourceRelationship(rid, rid2, RelCustom("alias")))

	a := NewEffect("deposit", TypeEffect)
	a.DomainID = DomainFromName("bank")
	a.ResourcesAccessed = []ResourceID{rid}
	a.AddParameter("amount", Int64Value(100))
	aid, err := g.AddEffect(a)
	require.NoError(t, err)

	b := NewEffect("fee", TypeConstant)
	b.DomainID = DomainFromName("fees")
	b.AddParameter("value", StringValue("3"))
	rat, err := RationalValue(big.NewInt(1), big.NewInt(3))
	require.NoError(t, err)
	b.AddParameter("rate", rat)
	bid, err := g.AddEffect(b)
	require.NoError(t, err)

	c := NewEffect("settle", TypeEffect)
	c.DomainID = DomainFromName("bank")
	c.ResourcesAccessed = []ResourceID{rid}
	cid, err := g.AddEffect(c)
	require.NoError(t, err)

	guard := ExprFromBytes([]byte("amount > 0"))
	require.NoError(t, g.AddEdge(aid, cid, EdgeData{Order: 0, Guard: &guard}))
	require.NoError(t, g.AddEdge(bid, cid, EdgeData{Order: 1}))
	require.NoError(t, g.CheckInvariants())
	return g
}

func TestGraphRoundTrip(t *testing.T) {
	g := buildInterchangeGraph(t)
	data := g.Encode()
	require.Equal(t, EncodingVersion, data[0])

	decoded, err := DecodeGraph(data)
	require.NoError(t, err)
	require.True(t, g.Equal(decoded))
	require.NoError(t, decoded.CheckInvariants())

	// canonical: re-encoding the decoded graph is byte-identical
	require.Equal(t, data, decoded.Encode())
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	g := buildInterchangeGraph(t)
	data := g.Encode()
	data[0] = 0x02
	_, err := DecodeGraph(data)
	var verErr *UnsupportedVersionError
	require.ErrorAs(t, err, &verErr)
}

func TestDecodeRejectsTruncation(t *testing.T) {
	g := buildInterchangeGraph(t)
	data := g.Encode()
	for _, cut := range []int{1, len(data) / 2, len(data) - 1} {
		_, err := DecodeGraph(data[:cut])
		require.Error(t, err, "cut at %d", cut)
	}
	_, err := DecodeGraph(nil)
	var lenErr *InvalidByteLengthError
	require.ErrorAs(t, err, &lenErr)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	g := buildInterchangeGraph(t)
	data := append(g.Encode(), 0x00)
	_, err := DecodeGraph(data)
	var bytesErr *BytesInvalidError
	require.ErrorAs(t, err, &bytesErr)
}

func TestSerializableView(t *testing.T) {
	g := buildInterchangeGraph(t)
	s := g.Serializable()

	require.Len(t, s.Effects, 3)
	require.Len(t, s.Resources, 2)
	require.Len(t, s.Domains, 2)

	foundCustom := false
	for _, rels := range s.Relationships {
		for _, rel := range rels {
			if rel.Kind == "Custom(alias)" {
				foundCustom = true
			}
		}
	}
	require.True(t, foundCustom)

	guarded := false
	for _, edges := range s.Continuations {
		for _, e := range edges {
			if e.Guard != nil {
				guarded = true
			}
		}
	}
	require.True(t, guarded)

	data, err := s.MarshalInterchange()
	require.NoError(t, err)
	again, err := s.MarshalInterchange()
	require.NoError(t, err)
	require.Equal(t, data, again, "interchange encoding is deterministic")

	back, err := UnmarshalInterchange(data)
	require.NoError(t, err)
	require.Equal(t, s, back)
}

func genParameterValue() gopter.Gen {
	leaf := gen.OneGenOf(
		gen.Int64().Map(Int64Value),
		gen.UInt64().Map(Uint64Value),
		gen.AnyString().Map(StringValue),
		gen.Bool().Map(BoolValue),
		gen.SliceOf(gen.UInt8()).Map(func(b []byte) ParameterValue { return BytesValue(b) }),
		gopter.CombineGens(gen.Int64(), gen.Int64().SuchThat(func(x int64) bool { return x != 0 })).
			Map(func(vs []interface{}) ParameterValue {
				v, err := RationalValue(big.NewInt(vs[0].(int64)), big.NewInt(vs[1].(int64)))
				if err != nil {
					return Int64Value(0)
				}
				return v
			}),
	)
	return gen.OneGenOf(
		leaf,
		gen.SliceOfN(3, leaf).Map(func(items []ParameterValue) ParameterValue { return ListValue(items...) }),
		gopter.CombineGens(gen.Identifier(), leaf, gen.Identifier(), leaf).
			Map(func(vs []interface{}) ParameterValue {
				return MapValue(map[string]ParameterValue{
					vs[0].(string): vs[1].(ParameterValue),
					vs[2].(string): vs[3].(ParameterValue),
				})
			}),
	)
}

func TestParameterValueRoundTripProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200

	properties := gopter.NewProperties(params)
	properties.Property("decode(encode(v)) == v", prop.ForAll(
		func(v ParameterValue) bool {
			o := &utils.OutputBuf{}
			v.encode(o)
			decoded, err := decodeParameterValue(utils.NewInputBuf(o.Bytes()))
			return err == nil && v.Equal(decoded)
		},
		genParameterValue(),
	))
	properties.TestingRun(t)
}
