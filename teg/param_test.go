package teg

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timewave-computer/causality-sub020/utils"
)

func TestRationalNormalization(t *testing.T) {
	v, err := RationalValue(big.NewInt(4), big.NewInt(-6))
	require.NoError(t, err)
	num, den, ok := v.Rational()
	require.True(t, ok)
	require.Equal(t, "-2", num.String())
	require.Equal(t, "3", den.String())
	require.Equal(t, "-2/3", v.String())
}

func TestRationalZeroDenominator(t *testing.T) {
	_, err := RationalValue(big.NewInt(1), big.NewInt(0))
	require.Error(t, err)
}

func TestRationalBounds(t *testing.T) {
	big257 := new(big.Int).Lsh(big.NewInt(1), 257)
	_, err := RationalValue(big257, big.NewInt(1))
	require.Error(t, err)

	// normalization can bring an oversized input back in bounds
	v, err := RationalValue(big257, big257)
	require.NoError(t, err)
	require.Equal(t, "1/1", v.String())
}

func TestRationalDecodeRejectsNonCanonical(t *testing.T) {
	wire := func(sign byte, num, den int64) []byte {
		o := &utils.OutputBuf{}
		o.AppendByte(byte(KindRational))
		o.AppendByte(sign)
		o.AppendBigInt(big.NewInt(num))
		o.AppendBigInt(big.NewInt(den))
		return o.Bytes()
	}
	cases := []struct {
		name string
		data []byte
	}{
		{"sign byte out of range", wire(2, 1, 2)},
		{"negative zero", wire(1, 0, 1)},
		{"zero with wide denominator", wire(0, 0, 5)},
		{"not in lowest terms", wire(0, 2, 4)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := decodeParameterValue(utils.NewInputBuf(c.data))
			var bad *BytesInvalidError
			require.ErrorAs(t, err, &bad)
		})
	}

	// the canonical form of the same values still decodes
	v, err := decodeParameterValue(utils.NewInputBuf(wire(0, 1, 2)))
	require.NoError(t, err)
	require.Equal(t, "1/2", v.String())
}

func TestParameterValueString(t *testing.T) {
	cases := []struct {
		value    ParameterValue
		expected string
	}{
		{Int64Value(-42), "-42"},
		{Uint64Value(7), "7"},
		{StringValue("hello"), "hello"},
		{BoolValue(true), "true"},
		{BytesValue([]byte{0xde, 0xad}), "0xdead"},
		{ListValue(Int64Value(1), StringValue("x")), "[1, x]"},
		{MapValue(map[string]ParameterValue{"b": Int64Value(2), "a": Int64Value(1)}), "{a: 1, b: 2}"},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, c.value.String())
	}
}

func TestParameterValueEqual(t *testing.T) {
	r1, err := RationalValue(big.NewInt(1), big.NewInt(2))
	require.NoError(t, err)
	r2, err := RationalValue(big.NewInt(2), big.NewInt(4))
	require.NoError(t, err)
	require.True(t, r1.Equal(r2))

	require.True(t, ListValue(Int64Value(1)).Equal(ListValue(Int64Value(1))))
	require.False(t, ListValue(Int64Value(1)).Equal(ListValue(Int64Value(2))))
	require.False(t, Int64Value(1).Equal(Uint64Value(1)))
}

func TestContentIDChangesWithContent(t *testing.T) {
	a := NewEffect("x", TypeConstant)
	a.DomainID = testDomain()
	a.AddParameter("value", StringValue("5"))

	b := NewEffect("x", TypeConstant)
	b.DomainID = testDomain()
	b.AddParameter("value", StringValue("6"))

	require.NotEqual(t, a.ComputeID(Blake2b), b.ComputeID(Blake2b))

	c := NewEffect("x", TypeConstant)
	c.DomainID = testDomain()
	c.AddParameter("value", StringValue("5"))
	require.Equal(t, a.ComputeID(Blake2b), c.ComputeID(Blake2b), "identity is structural")
}
