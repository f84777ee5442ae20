package circuit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timewave-computer/causality-sub020/teg"
)

func serializeFixture(t *testing.T) *ZkCircuit {
	t.Helper()
	g := teg.NewGraph()
	a := addConstant(t, g, "a", "5")
	w := addNode(t, g, "w", TypeWitness)
	sum := addNode(t, g, "sum", teg.TypeAdd, a, w)
	addNode(t, g, "check", TypeVerify, sum)

	cfg := DefaultConfig()
	cfg.OptimizationLevel = 0
	cfg.DebugInfo = true
	circ, err := compiler(cfg).Compile("fixture", g)
	require.NoError(t, err)
	return circ
}

func TestCircuitRoundTrip(t *testing.T) {
	circ := serializeFixture(t)

	data := circ.Serialize()
	back, err := Deserialize(data)
	require.NoError(t, err)
	require.True(t, circ.Equal(back))
	require.Equal(t, data, back.Serialize())
}

func TestDeserializeBadVersion(t *testing.T) {
	data := serializeFixture(t).Serialize()
	data[0] = 0x7f
	_, err := Deserialize(data)
	var unsupported *teg.UnsupportedVersionError
	require.ErrorAs(t, err, &unsupported)
}

func TestDeserializeTruncated(t *testing.T) {
	data := serializeFixture(t).Serialize()
	for _, cut := range []int{1, 5, len(data) / 2, len(data) - 1} {
		_, err := Deserialize(data[:cut])
		require.Error(t, err, "truncated at %d", cut)
	}
}

func TestDeserializeTrailingBytes(t *testing.T) {
	data := serializeFixture(t).Serialize()
	_, err := Deserialize(append(data, 0x00))
	var bad *teg.BytesInvalidError
	require.ErrorAs(t, err, &bad)
}

func TestDeserializeRevalidates(t *testing.T) {
	circ := serializeFixture(t)
	circ.OutputWires = []uint32{999}
	circ.IOSpec.Outputs = 1
	_, err := Deserialize(circ.Serialize())
	require.Error(t, err)
}
