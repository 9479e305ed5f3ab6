// Package nbt implements the tagged-record data model the migration
// driver operates on: a tree of named values where inner nodes are maps
// from string to value.
//
// String values are carried as plain Go strings, which is sufficient for
// lossless round-trip even though the game's strings use modified
// UTF-8/UTF-16 semantics: a Go string is just a byte sequence, never
// validated as UTF-8 by this package, so arbitrary byte content (including
// content that is not valid UTF-16) survives encode/decode unchanged.
package nbt

import "fmt"

// Tag identifies the concrete type carried by a Value.
type Tag byte

const (
	TagEnd Tag = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

func (t Tag) String() string {
	switch t {
	case TagEnd:
		return "end"
	case TagByte:
		return "byte"
	case TagShort:
		return "short"
	case TagInt:
		return "int"
	case TagLong:
		return "long"
	case TagFloat:
		return "float"
	case TagDouble:
		return "double"
	case TagByteArray:
		return "byte[]"
	case TagString:
		return "string"
	case TagList:
		return "list"
	case TagCompound:
		return "compound"
	case TagIntArray:
		return "int[]"
	case TagLongArray:
		return "long[]"
	default:
		return fmt.Sprintf("tag(%d)", byte(t))
	}
}

// Value is any value that can live in a Compound or a List: one of Byte,
// Short, Int, Long, Float, Double, ByteArray, String, *List, Compound,
// IntArray, or LongArray.
type Value interface {
	Tag() Tag
}

type (
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	ByteArray []byte
	String    string
	IntArray  []int32
	LongArray []int64
)

// Bool is a JSON-layer convenience: the advancements/stats JSON codec maps
// JSON booleans to this type rather than to Byte so that stringification
// can emit "true"/"false" instead of 0/1. On the wire it is a byte; the
// binary format has no dedicated boolean tag.
type Bool bool

func (Bool) Tag() Tag      { return TagByte }
func (Byte) Tag() Tag      { return TagByte }
func (Short) Tag() Tag     { return TagShort }
func (Int) Tag() Tag       { return TagInt }
func (Long) Tag() Tag      { return TagLong }
func (Float) Tag() Tag     { return TagFloat }
func (Double) Tag() Tag    { return TagDouble }
func (ByteArray) Tag() Tag { return TagByteArray }
func (String) Tag() Tag    { return TagString }
func (IntArray) Tag() Tag  { return TagIntArray }
func (LongArray) Tag() Tag { return TagLongArray }

// List is a list of values that all share the same element tag. An empty
// list still carries its declared element tag (TagEnd for a freshly
// constructed empty list, matching the source format's convention).
type List struct {
	Elem   Tag
	Values []Value
}

func (*List) Tag() Tag { return TagList }

// NewList returns an empty list declared to hold elements of the given tag.
func NewList(elem Tag) *List {
	return &List{Elem: elem}
}

// Compound is an inner node: a map from string key to Value. Key order is
// not significant, matching the source format.
type Compound map[string]Value

func (Compound) Tag() Tag { return TagCompound }

// New returns an empty Compound.
func New() Compound {
	return make(Compound)
}

// Get returns the value at key, or nil if absent.
func (c Compound) Get(key string) Value {
	return c[key]
}

// GetCompound returns the child compound at key, or nil if absent or of a
// different type.
func (c Compound) GetCompound(key string) Compound {
	if v, ok := c[key].(Compound); ok {
		return v
	}
	return nil
}

// GetList returns the list at key, or nil if absent or of a different type.
func (c Compound) GetList(key string) *List {
	if v, ok := c[key].(*List); ok {
		return v
	}
	return nil
}

// GetString returns the string at key and whether it was present and of
// the right type.
func (c Compound) GetString(key string) (string, bool) {
	if v, ok := c[key].(String); ok {
		return string(v), true
	}
	return "", false
}

// GetInt32 returns the int at key coerced to int32, accepting any of the
// integer tag widths, and whether a usable value was present.
func (c Compound) GetInt32(key string) (int32, bool) {
	switch v := c[key].(type) {
	case Byte:
		return int32(v), true
	case Short:
		return int32(v), true
	case Int:
		return int32(v), true
	case Long:
		return int32(v), true
	default:
		return 0, false
	}
}

// GetInt32Default returns GetInt32's value, or def if absent.
func (c Compound) GetInt32Default(key string, def int32) int32 {
	if v, ok := c.GetInt32(key); ok {
		return v
	}
	return def
}

// GetBool returns the byte (or JSON Bool) at key interpreted as a boolean
// (non-zero is true), and whether a usable value was present.
func (c Compound) GetBool(key string) (bool, bool) {
	switch v := c[key].(type) {
	case Byte:
		return v != 0, true
	case Bool:
		return bool(v), true
	default:
		return false, false
	}
}

// EnsureCompound returns the child compound at key, creating and inserting
// an empty one first if key is absent or not a compound.
func (c Compound) EnsureCompound(key string) Compound {
	if child := c.GetCompound(key); child != nil {
		return child
	}
	child := New()
	c[key] = child
	return child
}

// Clone returns a deep copy of c.
func (c Compound) Clone() Compound {
	out := make(Compound, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch v := v.(type) {
	case Compound:
		return v.Clone()
	case *List:
		clone := &List{Elem: v.Elem, Values: make([]Value, len(v.Values))}
		for i, e := range v.Values {
			clone.Values[i] = cloneValue(e)
		}
		return clone
	case ByteArray:
		out := make(ByteArray, len(v))
		copy(out, v)
		return out
	case IntArray:
		out := make(IntArray, len(v))
		copy(out, v)
		return out
	case LongArray:
		out := make(LongArray, len(v))
		copy(out, v)
		return out
	default:
		return v
	}
}
