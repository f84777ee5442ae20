package utils

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// OutputBuf accumulates the canonical byte encoding: big-endian
// fixed-width integers, u32 length prefixes for variable data.
type OutputBuf struct {
	buf []byte
}

func (o *OutputBuf) AppendByte(x byte) {
	o.buf = append(o.buf, x)
}

func (o *OutputBuf) AppendUint32(x uint32) {
	o.buf = binary.BigEndian.AppendUint32(o.buf, x)
}

func (o *OutputBuf) AppendUint64(x uint64) {
	o.buf = binary.BigEndian.AppendUint64(o.buf, x)
}

func (o *OutputBuf) AppendBytes(b []byte) {
	o.AppendUint32(uint32(len(b)))
	o.buf = append(o.buf, b...)
}

func (o *OutputBuf) AppendString(s string) {
	o.AppendBytes([]byte(s))
}

func (o *OutputBuf) AppendRaw(b []byte) {
	o.buf = append(o.buf, b...)
}

// AppendBigInt encodes the magnitude of x as a length-prefixed
// big-endian byte string. The sign is the caller's concern.
func (o *OutputBuf) AppendBigInt(x *big.Int) {
	o.AppendBytes(x.Bytes())
}

func (o *OutputBuf) Bytes() []byte {
	return o.buf
}

// InputBuf is the reading counterpart of OutputBuf. Reads fail instead
// of panicking when the buffer is shorter than the encoding claims.
type InputBuf struct {
	buf []byte
}

func NewInputBuf(buf []byte) *InputBuf {
	return &InputBuf{buf: buf}
}

func (i *InputBuf) Remaining() int {
	return len(i.buf)
}

func (i *InputBuf) ReadByte() (byte, error) {
	if len(i.buf) < 1 {
		return 0, fmt.Errorf("need 1 byte, %d left", len(i.buf))
	}
	x := i.buf[0]
	i.buf = i.buf[1:]
	return x, nil
}

func (i *InputBuf) ReadUint32() (uint32, error) {
	if len(i.buf) < 4 {
		return 0, fmt.Errorf("need 4 bytes, %d left", len(i.buf))
	}
	x := binary.BigEndian.Uint32(i.buf[:4])
	i.buf = i.buf[4:]
	return x, nil
}

func (i *InputBuf) ReadUint64() (uint64, error) {
	if len(i.buf) < 8 {
		return 0, fmt.Errorf("need 8 bytes, %d left", len(i.buf))
	}
	x := binary.BigEndian.Uint64(i.buf[:8])
	i.buf = i.buf[8:]
	return x, nil
}

func (i *InputBuf) ReadBytes() ([]byte, error) {
	n, err := i.ReadUint32()
	if err != nil {
		return nil, err
	}
	if uint64(len(i.buf)) < uint64(n) {
		return nil, fmt.Errorf("need %d bytes, %d left", n, len(i.buf))
	}
	x := make([]byte, n)
	copy(x, i.buf[:n])
	i.buf = i.buf[n:]
	return x, nil
}

func (i *InputBuf) ReadString() (string, error) {
	b, err := i.ReadBytes()
	return string(b), err
}

func (i *InputBuf) ReadBigInt() (*big.Int, error) {
	b, err := i.ReadBytes()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func (i *InputBuf) ReadFixed(n int) ([]byte, error) {
	if len(i.buf) < n {
		return nil, fmt.Errorf("need %d bytes, %d left", n, len(i.buf))
	}
	x := make([]byte, n)
	copy(x, i.buf[:n])
	i.buf = i.buf[n:]
	return x, nil
}
