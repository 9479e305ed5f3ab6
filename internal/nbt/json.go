package nbt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ParseCompound parses JSON text into a Compound tree, the JSON-facing half
// of the codec facade used by the advancements/stats directory upgraders.
// Integer-looking numbers are kept as Int or Long (preserving width);
// anything else becomes Double. JSON booleans become Bool, not Byte, so
// StringifyCompound can round-trip them as true/false.
func ParseCompound(data []byte) (Compound, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("nbt: parse json: %w", err)
	}

	value, err := fromJSON(root)
	if err != nil {
		return nil, err
	}
	compound, ok := value.(Compound)
	if !ok {
		return nil, fmt.Errorf("nbt: json root is not an object")
	}
	return compound, nil
}

func fromJSON(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return String(""), nil
	case bool:
		return Bool(v), nil
	case json.Number:
		return numberToValue(v), nil
	case string:
		return String(v), nil
	case []any:
		return sliceToList(v)
	case map[string]any:
		out := New()
		for key, child := range v {
			cv, err := fromJSON(child)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = cv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("nbt: unsupported json value %T", v)
	}
}

func numberToValue(n json.Number) Value {
	if i, err := n.Int64(); err == nil {
		if i >= math.MinInt32 && i <= math.MaxInt32 {
			return Int(int32(i))
		}
		return Long(i)
	}
	f, _ := n.Float64()
	return Double(f)
}

func sliceToList(items []any) (*List, error) {
	if len(items) == 0 {
		return NewList(TagEnd), nil
	}
	values := make([]Value, 0, len(items))
	for i, item := range items {
		v, err := fromJSON(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		values = append(values, v)
	}
	return &List{Elem: values[0].Tag(), Values: values}, nil
}

// StringifyCompound renders a Compound as JSON text. pretty selects
// two-space indentation (used for advancements); stats are written
// compact.
func StringifyCompound(c Compound, pretty bool) ([]byte, error) {
	generic := toJSON(c)
	if pretty {
		return json.MarshalIndent(generic, "", "  ")
	}
	return json.Marshal(generic)
}

func toJSON(v Value) any {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Byte:
		return int8(v)
	case Short:
		return int16(v)
	case Int:
		return int32(v)
	case Long:
		return int64(v)
	case Float:
		return float32(v)
	case Double:
		return float64(v)
	case String:
		return string(v)
	case ByteArray:
		out := make([]int8, len(v))
		for i, b := range v {
			out[i] = int8(b)
		}
		return out
	case IntArray:
		return []int32(v)
	case LongArray:
		return []int64(v)
	case *List:
		out := make([]any, len(v.Values))
		for i, e := range v.Values {
			out[i] = toJSON(e)
		}
		return out
	case Compound:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = toJSON(child)
		}
		return out
	default:
		return nil
	}
}
