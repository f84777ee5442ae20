package circuit

import (
	"github.com/timewave-computer/causality-sub020/teg"
	"github.com/timewave-computer/causality-sub020/utils"
)

// Serialize emits the canonical byte form: version byte, name, io
// spec, gates in order with sorted parameter keys, output wires,
// metadata in sorted key order. Byte-identical for equal circuits.
func (c *ZkCircuit) Serialize() []byte {
	o := utils.OutputBuf{}
	o.AppendByte(teg.EncodingVersion)
	o.AppendString(c.Name)
	o.AppendUint32(uint32(c.IOSpec.PrivateInputs))
	o.AppendUint32(uint32(c.IOSpec.PublicInputs))
	o.AppendUint32(uint32(c.IOSpec.Outputs))
	o.AppendUint32(uint32(len(c.Gates)))
	for _, g := range c.Gates {
		o.AppendString(g.GateType)
		o.AppendUint32(uint32(len(g.Inputs)))
		for _, in := range g.Inputs {
			o.AppendUint32(in)
		}
		o.AppendUint32(g.Output)
		keys := utils.SortedStringKeys(g.Parameters)
		o.AppendUint32(uint32(len(keys)))
		for _, k := range keys {
			o.AppendString(k)
			o.AppendString(g.Parameters[k])
		}
	}
	o.AppendUint32(uint32(len(c.OutputWires)))
	for _, w := range c.OutputWires {
		o.AppendUint32(w)
	}
	mkeys := utils.SortedStringKeys(c.Metadata)
	o.AppendUint32(uint32(len(mkeys)))
	for _, k := range mkeys {
		o.AppendString(k)
		o.AppendString(c.Metadata[k])
	}
	return o.Bytes()
}

// Deserialize reverses Serialize and re-validates the result.
func Deserialize(data []byte) (*ZkCircuit, error) {
	if len(data) == 0 {
		return nil, &teg.InvalidByteLengthError{Len: 0, Expected: 1}
	}
	if data[0] != teg.EncodingVersion {
		return nil, &teg.UnsupportedVersionError{Version: data[0]}
	}
	in := utils.NewInputBuf(data[1:])
	c := &ZkCircuit{Metadata: map[string]string{}}

	var err error
	if c.Name, err = in.ReadString(); err != nil {
		return nil, invalid(err)
	}
	private, err := in.ReadUint32()
	if err != nil {
		return nil, invalid(err)
	}
	public, err := in.ReadUint32()
	if err != nil {
		return nil, invalid(err)
	}
	outputs, err := in.ReadUint32()
	if err != nil {
		return nil, invalid(err)
	}
	c.IOSpec = IOSpec{
		PrivateInputs: int(private),
		PublicInputs:  int(public),
		Outputs:       int(outputs),
	}

	nGates, err := in.ReadUint32()
	if err != nil {
		return nil, invalid(err)
	}
	for i := uint32(0); i < nGates; i++ {
		g := Gate{Parameters: map[string]string{}}
		if g.GateType, err = in.ReadString(); err != nil {
			return nil, invalid(err)
		}
		nIn, err := in.ReadUint32()
		if err != nil {
			return nil, invalid(err)
		}
		for j := uint32(0); j < nIn; j++ {
			w, err := in.ReadUint32()
			if err != nil {
				return nil, invalid(err)
			}
			g.Inputs = append(g.Inputs, w)
		}
		if g.Output, err = in.ReadUint32(); err != nil {
			return nil, invalid(err)
		}
		nParams, err := in.ReadUint32()
		if err != nil {
			return nil, invalid(err)
		}
		for j := uint32(0); j < nParams; j++ {
			k, err := in.ReadString()
			if err != nil {
				return nil, invalid(err)
			}
			v, err := in.ReadString()
			if err != nil {
				return nil, invalid(err)
			}
			g.Parameters[k] = v
		}
		c.Gates = append(c.Gates, g)
	}
	c.GateCount = len(c.Gates)

	nOut, err := in.ReadUint32()
	if err != nil {
		return nil, invalid(err)
	}
	for i := uint32(0); i < nOut; i++ {
		w, err := in.ReadUint32()
		if err != nil {
			return nil, invalid(err)
		}
		c.OutputWires = append(c.OutputWires, w)
	}

	nMeta, err := in.ReadUint32()
	if err != nil {
		return nil, invalid(err)
	}
	for i := uint32(0); i < nMeta; i++ {
		k, err := in.ReadString()
		if err != nil {
			return nil, invalid(err)
		}
		v, err := in.ReadString()
		if err != nil {
			return nil, invalid(err)
		}
		c.Metadata[k] = v
	}

	if in.Remaining() != 0 {
		return nil, &teg.BytesInvalidError{Reason: "trailing bytes after circuit"}
	}
	if err := c.Validate(); err != nil {
		return nil, &teg.BytesInvalidError{Reason: err.Error()}
	}
	return c, nil
}

func invalid(err error) error {
	return &teg.BytesInvalidError{Reason: err.Error()}
}
