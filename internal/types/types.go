package types

import "fmt"

// DataType identifies one of the engine's column types. The set is closed;
// operators and the planner switch over it directly.
type DataType int

const (
	Null DataType = iota
	Int           // int32
	Long          // int64
	Float         // float32
	Double        // float64
	String
)

// Name returns the SQL name of the type.
func (d DataType) Name() string {
	switch d {
	case Null:
		return "NULL"
	case Int:
		return "INT"
	case Long:
		return "LONG"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case String:
		return "STRING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(d))
	}
}

// IsNumeric reports whether the type participates in arithmetic.
func (d DataType) IsNumeric() bool {
	switch d {
	case Int, Long, Float, Double:
		return true
	default:
		return false
	}
}

// IsFloatingPoint reports whether the type is float32 or float64.
func (d DataType) IsFloatingPoint() bool {
	return d == Float || d == Double
}

// Promote returns the common type two operands are widened to. Numeric types
// widen towards Double; String only combines with String; Null yields the
// other operand's type.
func Promote(a, b DataType) (DataType, error) {
	if a == b {
		return a, nil
	}
	if a == Null {
		return b, nil
	}
	if b == Null {
		return a, nil
	}
	if a.IsNumeric() && b.IsNumeric() {
		if a == Double || b == Double {
			return Double, nil
		}
		if a == Float || b == Float {
			// Mixing float32 with a 64-bit integer widens to float64.
			if a == Long || b == Long {
				return Double, nil
			}
			return Float, nil
		}
		if a == Long || b == Long {
			return Long, nil
		}
		return Int, nil
	}
	return Null, fmt.Errorf("no common type for %s and %s", a.Name(), b.Name())
}
