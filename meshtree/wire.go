package meshtree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes t into a length-prefixed byte stream: for each node,
// its name, its kind, its payload (if a leaf), and its children, recursively.
// This plays the role of conduit's send_using_schema/recv_using_schema pair
// (spec.md §6, "Wire format"), collapsed into one self-describing blob since
// meshtree has no separate out-of-band schema registry.
func (t *Tree) Encode() []byte {
	var buf bytes.Buffer
	t.encode(&buf)
	return buf.Bytes()
}

func (t *Tree) encode(buf *bytes.Buffer) {
	writeString(buf, t.Name)
	writeUint32(buf, uint32(t.kind))
	switch t.kind {
	case KindString:
		writeString(buf, t.str)
	case KindInt:
		writeInt64(buf, int64(t.i))
	case KindFloat64Array:
		writeUint32(buf, uint32(len(t.f64)))
		for _, v := range t.f64 {
			writeUint64(buf, math.Float64bits(v))
		}
	case KindInt32Array:
		writeUint32(buf, uint32(len(t.i32)))
		for _, v := range t.i32 {
			writeInt64(buf, int64(v))
		}
	case KindInt64Array:
		writeUint32(buf, uint32(len(t.i64)))
		for _, v := range t.i64 {
			writeInt64(buf, v)
		}
	case KindUint64Array:
		writeUint32(buf, uint32(len(t.u64)))
		for _, v := range t.u64 {
			writeUint64(buf, v)
		}
	}
	writeUint32(buf, uint32(len(t.Children)))
	for _, c := range t.Children {
		c.encode(buf)
	}
}

// Decode deserializes a byte stream produced by Encode into a fresh,
// independently owned Tree.
func Decode(data []byte) (*Tree, error) {
	r := bytes.NewReader(data)
	t, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("meshtree: decode: %w", err)
	}
	return t, nil
}

func decode(r *bytes.Reader) (*Tree, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	kindU, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	t := &Tree{Name: name, kind: Kind(kindU)}
	switch t.kind {
	case KindString:
		if t.str, err = readString(r); err != nil {
			return nil, err
		}
	case KindInt:
		v, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		t.i = int(v)
	case KindFloat64Array:
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		t.f64 = make([]float64, n)
		for i := range t.f64 {
			bits, err := readUint64(r)
			if err != nil {
				return nil, err
			}
			t.f64[i] = math.Float64frombits(bits)
		}
	case KindInt32Array:
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		t.i32 = make([]int32, n)
		for i := range t.i32 {
			v, err := readInt64(r)
			if err != nil {
				return nil, err
			}
			t.i32[i] = int32(v)
		}
	case KindInt64Array:
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		t.i64 = make([]int64, n)
		for i := range t.i64 {
			if t.i64[i], err = readInt64(r); err != nil {
				return nil, err
			}
		}
	case KindUint64Array:
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		t.u64 = make([]uint64, n)
		for i := range t.u64 {
			if t.u64[i], err = readUint64(r); err != nil {
				return nil, err
			}
		}
	}
	nchild, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nchild; i++ {
		child, err := decode(r)
		if err != nil {
			return nil, err
		}
		t.Children = append(t.Children, child)
	}
	return t, nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func writeInt64(buf *bytes.Buffer, v int64) {
	writeUint64(buf, uint64(v))
}

func readInt64(r *bytes.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}
