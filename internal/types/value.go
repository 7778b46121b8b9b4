package types

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
)

// Value is a SQL value that can be NULL. Data holds one of int32, int64,
// float32, float64 or string.
type Value struct {
	Data any
	Null bool
}

// NewValue creates a non-null value. Plain ints are normalized to int32 so
// that literals written in tests and in the translator compare cleanly
// against column data.
func NewValue(data any) Value {
	if i, ok := data.(int); ok {
		if i >= math.MinInt32 && i <= math.MaxInt32 {
			return Value{Data: int32(i)}
		}
		return Value{Data: int64(i)}
	}
	return Value{Data: data}
}

// NewNullValue creates a null value.
func NewNullValue() Value {
	return Value{Null: true}
}

// IsNull returns true if the value is NULL.
func (v Value) IsNull() bool {
	return v.Null
}

// DataType returns the type tag of the value.
func (v Value) DataType() DataType {
	if v.Null {
		return Null
	}
	switch v.Data.(type) {
	case int32:
		return Int
	case int64:
		return Long
	case float32:
		return Float
	case float64:
		return Double
	case string:
		return String
	default:
		return Null
	}
}

// String returns a display representation.
func (v Value) String() string {
	if v.Null {
		return "NULL"
	}
	return fmt.Sprintf("%v", v.Data)
}

// AsFloat64 converts any numeric value to float64.
func (v Value) AsFloat64() (float64, error) {
	if v.Null {
		return 0, fmt.Errorf("cannot convert NULL to float64")
	}
	switch d := v.Data.(type) {
	case int32:
		return float64(d), nil
	case int64:
		return float64(d), nil
	case float32:
		return float64(d), nil
	case float64:
		return d, nil
	case string:
		f, err := strconv.ParseFloat(d, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float64", d)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v.Data)
	}
}

// AsInt64 converts any integral value to int64.
func (v Value) AsInt64() (int64, error) {
	if v.Null {
		return 0, fmt.Errorf("cannot convert NULL to int64")
	}
	switch d := v.Data.(type) {
	case int32:
		return int64(d), nil
	case int64:
		return d, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", v.Data)
	}
}

// AsString converts the value to a string payload.
func (v Value) AsString() (string, error) {
	if v.Null {
		return "", fmt.Errorf("cannot convert NULL to string")
	}
	if s, ok := v.Data.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("cannot convert %T to string", v.Data)
}

// Compare orders two values. NULL sorts before everything; numeric values
// compare across type boundaries; strings compare lexicographically.
// Comparing a string against a number is a caller bug and panics.
func Compare(a, b Value) int {
	switch {
	case a.Null && b.Null:
		return 0
	case a.Null:
		return -1
	case b.Null:
		return 1
	}
	if sa, ok := a.Data.(string); ok {
		sb, ok := b.Data.(string)
		if !ok {
			panic(fmt.Sprintf("cannot compare STRING with %s", b.DataType().Name()))
		}
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		default:
			return 0
		}
	}
	if _, ok := b.Data.(string); ok {
		panic(fmt.Sprintf("cannot compare %s with STRING", a.DataType().Name()))
	}
	fa, err := a.AsFloat64()
	if err != nil {
		panic(err)
	}
	fb, err := b.AsFloat64()
	if err != nil {
		panic(err)
	}
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

// Equal reports value equality with numeric cross-type comparison. NULL is
// never equal to anything, including NULL.
func Equal(a, b Value) bool {
	if a.Null || b.Null {
		return false
	}
	return Compare(a, b) == 0
}

// Hash returns a stable hash of the value suitable for grouping and join
// build sides. Numeric values hash by their float64 widening so that equal
// values of different widths collide.
func Hash(v Value) uint64 {
	h := fnv.New64a()
	if v.Null {
		h.Write([]byte{0})
		return h.Sum64()
	}
	if s, ok := v.Data.(string); ok {
		h.Write([]byte{1})
		h.Write([]byte(s))
		return h.Sum64()
	}
	f, err := v.AsFloat64()
	if err != nil {
		panic(err)
	}
	var buf [8]byte
	bits := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * i))
	}
	h.Write([]byte{2})
	h.Write(buf[:])
	return h.Sum64()
}

// Cast converts a value to the target type, widening or narrowing numerics.
func Cast(v Value, target DataType) (Value, error) {
	if v.Null {
		return NewNullValue(), nil
	}
	if v.DataType() == target {
		return v, nil
	}
	switch target {
	case Int:
		i, err := v.AsInt64()
		if err != nil {
			return Value{}, err
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return Value{}, fmt.Errorf("value %d out of range for INT", i)
		}
		return Value{Data: int32(i)}, nil
	case Long:
		switch d := v.Data.(type) {
		case int32:
			return Value{Data: int64(d)}, nil
		case float32:
			return Value{Data: int64(d)}, nil
		case float64:
			return Value{Data: int64(d)}, nil
		}
	case Float:
		f, err := v.AsFloat64()
		if err != nil {
			return Value{}, err
		}
		return Value{Data: float32(f)}, nil
	case Double:
		f, err := v.AsFloat64()
		if err != nil {
			return Value{}, err
		}
		return Value{Data: f}, nil
	case String:
		return Value{Data: v.String()}, nil
	}
	return Value{}, fmt.Errorf("cannot cast %s to %s", v.DataType().Name(), target.Name())
}
