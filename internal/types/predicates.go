package types

import "fmt"

// PredicateCondition is the comparison in a scan or join predicate.
type PredicateCondition int

const (
	Equals PredicateCondition = iota
	NotEquals
	LessThan
	LessThanEquals
	GreaterThan
	GreaterThanEquals
	Between
	Like
	NotLike
	IsNull
	IsNotNull
)

func (c PredicateCondition) String() string {
	switch c {
	case Equals:
		return "="
	case NotEquals:
		return "<>"
	case LessThan:
		return "<"
	case LessThanEquals:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanEquals:
		return ">="
	case Between:
		return "BETWEEN"
	case Like:
		return "LIKE"
	case NotLike:
		return "NOT LIKE"
	case IsNull:
		return "IS NULL"
	case IsNotNull:
		return "IS NOT NULL"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Flipped returns the condition with swapped operands, so that
// `a < b` and `b > a` normalize to one form.
func (c PredicateCondition) Flipped() PredicateCondition {
	switch c {
	case LessThan:
		return GreaterThan
	case LessThanEquals:
		return GreaterThanEquals
	case GreaterThan:
		return LessThan
	case GreaterThanEquals:
		return LessThanEquals
	default:
		return c
	}
}

// IsComparison reports whether the condition compares two ordered operands.
func (c PredicateCondition) IsComparison() bool {
	switch c {
	case Equals, NotEquals, LessThan, LessThanEquals, GreaterThan, GreaterThanEquals:
		return true
	default:
		return false
	}
}

// Matches evaluates the condition over two values. NULL operands never
// match. Between and the null checks are handled by their operators and
// panic here.
func (c PredicateCondition) Matches(left, right Value) bool {
	if left.IsNull() || right.IsNull() {
		return false
	}
	switch c {
	case Equals:
		return Compare(left, right) == 0
	case NotEquals:
		return Compare(left, right) != 0
	case LessThan:
		return Compare(left, right) < 0
	case LessThanEquals:
		return Compare(left, right) <= 0
	case GreaterThan:
		return Compare(left, right) > 0
	case GreaterThanEquals:
		return Compare(left, right) >= 0
	default:
		panic(fmt.Sprintf("condition %s cannot be evaluated as a binary comparison", c))
	}
}

// ScanType selects the physical access path of a predicate.
type ScanType int

const (
	TableScan ScanType = iota
	IndexScan
)

func (s ScanType) String() string {
	if s == IndexScan {
		return "IndexScan"
	}
	return "TableScan"
}
