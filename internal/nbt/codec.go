package nbt

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// NamedRecord is the root of an on-disk tagged record: a single named
// compound (the name is often empty).
type NamedRecord struct {
	Name string
	Root Compound
}

// Decode reads one named record from r using the binary tagged-record
// format (big-endian, Minecraft-NBT-compatible framing).
func Decode(r io.Reader) (NamedRecord, error) {
	br := bufio.NewReader(r)
	tag, err := readTag(br)
	if err != nil {
		return NamedRecord{}, err
	}
	if tag != TagCompound {
		return NamedRecord{}, fmt.Errorf("nbt: root tag must be compound, got %s", tag)
	}
	name, err := readString(br)
	if err != nil {
		return NamedRecord{}, fmt.Errorf("nbt: read root name: %w", err)
	}
	root, err := readCompoundBody(br)
	if err != nil {
		return NamedRecord{}, fmt.Errorf("nbt: read root body: %w", err)
	}
	return NamedRecord{Name: name, Root: root}, nil
}

// Encode writes a named record to w using the binary tagged-record format.
func Encode(w io.Writer, rec NamedRecord) error {
	bw := bufio.NewWriter(w)
	if err := writeTag(bw, TagCompound); err != nil {
		return err
	}
	if err := writeString(bw, rec.Name); err != nil {
		return err
	}
	if err := writeCompoundBody(bw, rec.Root); err != nil {
		return err
	}
	return bw.Flush()
}

func readTag(r io.Reader) (Tag, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return Tag(b[0]), nil
}

func writeTag(w io.Writer, t Tag) error {
	_, err := w.Write([]byte{byte(t)})
	return err
}

func readString(r io.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("nbt: string too long (%d bytes)", len(s))
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readCompoundBody(r io.Reader) (Compound, error) {
	out := New()
	for {
		tag, err := readTag(r)
		if err != nil {
			return nil, err
		}
		if tag == TagEnd {
			return out, nil
		}
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read key name: %w", err)
		}
		value, err := readPayload(r, tag)
		if err != nil {
			return nil, fmt.Errorf("read value for %q: %w", name, err)
		}
		out[name] = value
	}
}

// writeCompoundBody writes keys in sorted order. Key order is not
// semantically significant, but a stable order is required for
// encode(decode(x)) == encode(decode(x)) to hold across repeated runs,
// since Compound is a Go map and map iteration order is randomized.
func writeCompoundBody(w io.Writer, c Compound) error {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := c[key]
		if err := writeTag(w, value.Tag()); err != nil {
			return err
		}
		if err := writeString(w, key); err != nil {
			return err
		}
		if err := writePayload(w, value); err != nil {
			return fmt.Errorf("write value for %q: %w", key, err)
		}
	}
	return writeTag(w, TagEnd)
}

func readPayload(r io.Reader, tag Tag) (Value, error) {
	switch tag {
	case TagByte:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return Byte(int8(b[0])), nil
	case TagShort:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return Short(int16(binary.BigEndian.Uint16(b[:]))), nil
	case TagInt:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return Int(int32(binary.BigEndian.Uint32(b[:]))), nil
	case TagLong:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return Long(int64(binary.BigEndian.Uint64(b[:]))), nil
	case TagFloat:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return Float(math.Float32frombits(binary.BigEndian.Uint32(b[:]))), nil
	case TagDouble:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return Double(math.Float64frombits(binary.BigEndian.Uint64(b[:]))), nil
	case TagByteArray:
		n, err := readInt32Len(r)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		return ByteArray(buf), nil
	case TagString:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case TagList:
		elemTag, err := readTag(r)
		if err != nil {
			return nil, err
		}
		n, err := readInt32Len(r)
		if err != nil {
			return nil, err
		}
		list := &List{Elem: elemTag, Values: make([]Value, 0, n)}
		for i := 0; i < n; i++ {
			if elemTag == TagEnd {
				continue
			}
			v, err := readPayload(r, elemTag)
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", i, err)
			}
			list.Values = append(list.Values, v)
		}
		return list, nil
	case TagCompound:
		return readCompoundBody(r)
	case TagIntArray:
		n, err := readInt32Len(r)
		if err != nil {
			return nil, err
		}
		out := make(IntArray, n)
		for i := range out {
			var b [4]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, err
			}
			out[i] = int32(binary.BigEndian.Uint32(b[:]))
		}
		return out, nil
	case TagLongArray:
		n, err := readInt32Len(r)
		if err != nil {
			return nil, err
		}
		out := make(LongArray, n)
		for i := range out {
			var b [8]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, err
			}
			out[i] = int64(binary.BigEndian.Uint64(b[:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown tag %s", tag)
	}
}

func writePayload(w io.Writer, v Value) error {
	switch v := v.(type) {
	case Bool:
		b := byte(0)
		if v {
			b = 1
		}
		_, err := w.Write([]byte{b})
		return err
	case Byte:
		_, err := w.Write([]byte{byte(v)})
		return err
	case Short:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(v))
		_, err := w.Write(b[:])
		return err
	case Int:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v))
		_, err := w.Write(b[:])
		return err
	case Long:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v))
		_, err := w.Write(b[:])
		return err
	case Float:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(float32(v)))
		_, err := w.Write(b[:])
		return err
	case Double:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(float64(v)))
		_, err := w.Write(b[:])
		return err
	case ByteArray:
		if err := writeInt32Len(w, len(v)); err != nil {
			return err
		}
		_, err := w.Write(v)
		return err
	case String:
		return writeString(w, string(v))
	case *List:
		if err := writeTag(w, v.Elem); err != nil {
			return err
		}
		if err := writeInt32Len(w, len(v.Values)); err != nil {
			return err
		}
		for i, e := range v.Values {
			if err := writePayload(w, e); err != nil {
				return fmt.Errorf("list element %d: %w", i, err)
			}
		}
		return nil
	case Compound:
		return writeCompoundBody(w, v)
	case IntArray:
		if err := writeInt32Len(w, len(v)); err != nil {
			return err
		}
		for _, n := range v {
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(n))
			if _, err := w.Write(b[:]); err != nil {
				return err
			}
		}
		return nil
	case LongArray:
		if err := writeInt32Len(w, len(v)); err != nil {
			return err
		}
		for _, n := range v {
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], uint64(n))
			if _, err := w.Write(b[:]); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown value type %T", v)
	}
}

func readInt32Len(r io.Reader) (int, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	n := int32(binary.BigEndian.Uint32(b[:]))
	if n < 0 {
		return 0, fmt.Errorf("negative array/list length %d", n)
	}
	return int(n), nil
}

func writeInt32Len(w io.Writer, n int) error {
	if n > math.MaxInt32 {
		return fmt.Errorf("array/list too long (%d elements)", n)
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	_, err := w.Write(b[:])
	return err
}
