package planner

import (
	"fmt"
	"strings"

	"github.com/emberdb/ember/internal/types"
)

// ArithmeticOperator is the operator of a binary arithmetic expression.
type ArithmeticOperator int

const (
	OpAdd ArithmeticOperator = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
)

func (o ArithmeticOperator) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpModulo:
		return "%"
	default:
		return "?"
	}
}

// ArithmeticExpression is a binary arithmetic operation.
type ArithmeticExpression struct {
	Op          ArithmeticOperator
	Left, Right Expression
}

// NewArithmeticExpression creates a binary arithmetic expression.
func NewArithmeticExpression(op ArithmeticOperator, left, right Expression) *ArithmeticExpression {
	return &ArithmeticExpression{Op: op, Left: left, Right: right}
}

func (e *ArithmeticExpression) Type() ExpressionType    { return ExprArithmetic }
func (e *ArithmeticExpression) Arguments() []Expression { return []Expression{e.Left, e.Right} }

func (e *ArithmeticExpression) DataType() types.DataType {
	// Integer division keeps its integer type, mirroring SQL semantics.
	promoted, err := types.Promote(e.Left.DataType(), e.Right.DataType())
	if err != nil {
		return types.Null
	}
	return promoted
}

func (e *ArithmeticExpression) IsNullable() bool {
	// Division can produce NULL on a zero divisor.
	return e.Left.IsNullable() || e.Right.IsNullable() || e.Op == OpDivide || e.Op == OpModulo
}

func (e *ArithmeticExpression) ColumnName() string {
	return fmt.Sprintf("%s %s %s", e.Left.ColumnName(), e.Op, e.Right.ColumnName())
}

func (e *ArithmeticExpression) String() string { return e.ColumnName() }

func (e *ArithmeticExpression) DeepCopy() Expression {
	return &ArithmeticExpression{Op: e.Op, Left: e.Left.DeepCopy(), Right: e.Right.DeepCopy()}
}

func (e *ArithmeticExpression) ShallowEquals(other Expression) bool {
	o, ok := other.(*ArithmeticExpression)
	if !ok {
		return false
	}
	return e.Op == o.Op
}

func (e *ArithmeticExpression) Hash() uint64 {
	return hashCombine(ExprArithmetic, []byte{byte(e.Op)}, e.Arguments())
}

// BinaryPredicate compares two operands.
type BinaryPredicate struct {
	Condition   types.PredicateCondition
	Left, Right Expression
}

// NewBinaryPredicate creates a comparison predicate.
func NewBinaryPredicate(cond types.PredicateCondition, left, right Expression) *BinaryPredicate {
	return &BinaryPredicate{Condition: cond, Left: left, Right: right}
}

// GreaterThan builds `left > right`; a convenience used heavily in tests.
func GreaterThan(left, right Expression) *BinaryPredicate {
	return NewBinaryPredicate(types.GreaterThan, left, right)
}

// Equals builds `left = right`.
func Equals(left, right Expression) *BinaryPredicate {
	return NewBinaryPredicate(types.Equals, left, right)
}

// LessThan builds `left < right`.
func LessThan(left, right Expression) *BinaryPredicate {
	return NewBinaryPredicate(types.LessThan, left, right)
}

func (e *BinaryPredicate) Type() ExpressionType     { return ExprPredicate }
func (e *BinaryPredicate) Arguments() []Expression  { return []Expression{e.Left, e.Right} }
func (e *BinaryPredicate) DataType() types.DataType { return types.Int }

func (e *BinaryPredicate) IsNullable() bool {
	return e.Left.IsNullable() || e.Right.IsNullable()
}

func (e *BinaryPredicate) ColumnName() string {
	return fmt.Sprintf("%s %s %s", e.Left.ColumnName(), e.Condition, e.Right.ColumnName())
}

func (e *BinaryPredicate) String() string { return e.ColumnName() }

func (e *BinaryPredicate) DeepCopy() Expression {
	return &BinaryPredicate{Condition: e.Condition, Left: e.Left.DeepCopy(), Right: e.Right.DeepCopy()}
}

func (e *BinaryPredicate) ShallowEquals(other Expression) bool {
	o, ok := other.(*BinaryPredicate)
	if !ok {
		return false
	}
	return e.Condition == o.Condition
}

func (e *BinaryPredicate) Hash() uint64 {
	return hashCombine(ExprPredicate, []byte{byte(e.Condition)}, e.Arguments())
}

// BetweenExpression is `value BETWEEN lower AND upper`.
type BetweenExpression struct {
	Value, Lower, Upper Expression
}

// NewBetweenExpression creates a BETWEEN predicate.
func NewBetweenExpression(value, lower, upper Expression) *BetweenExpression {
	return &BetweenExpression{Value: value, Lower: lower, Upper: upper}
}

func (e *BetweenExpression) Type() ExpressionType { return ExprBetween }
func (e *BetweenExpression) Arguments() []Expression {
	return []Expression{e.Value, e.Lower, e.Upper}
}
func (e *BetweenExpression) DataType() types.DataType { return types.Int }

func (e *BetweenExpression) IsNullable() bool {
	return e.Value.IsNullable() || e.Lower.IsNullable() || e.Upper.IsNullable()
}

func (e *BetweenExpression) ColumnName() string {
	return fmt.Sprintf("%s BETWEEN %s AND %s", e.Value.ColumnName(), e.Lower.ColumnName(), e.Upper.ColumnName())
}

func (e *BetweenExpression) String() string { return e.ColumnName() }

func (e *BetweenExpression) DeepCopy() Expression {
	return &BetweenExpression{Value: e.Value.DeepCopy(), Lower: e.Lower.DeepCopy(), Upper: e.Upper.DeepCopy()}
}

func (e *BetweenExpression) ShallowEquals(other Expression) bool {
	_, ok := other.(*BetweenExpression)
	return ok
}

func (e *BetweenExpression) Hash() uint64 {
	return hashCombine(ExprBetween, nil, e.Arguments())
}

// NullCheckExpression is `operand IS [NOT] NULL`.
type NullCheckExpression struct {
	Condition types.PredicateCondition // IsNull or IsNotNull
	Operand   Expression
}

// NewNullCheckExpression creates an IS NULL / IS NOT NULL predicate.
func NewNullCheckExpression(cond types.PredicateCondition, operand Expression) *NullCheckExpression {
	if cond != types.IsNull && cond != types.IsNotNull {
		panic("null check requires IsNull or IsNotNull")
	}
	return &NullCheckExpression{Condition: cond, Operand: operand}
}

func (e *NullCheckExpression) Type() ExpressionType     { return ExprNullCheck }
func (e *NullCheckExpression) Arguments() []Expression  { return []Expression{e.Operand} }
func (e *NullCheckExpression) DataType() types.DataType { return types.Int }
func (e *NullCheckExpression) IsNullable() bool         { return false }

func (e *NullCheckExpression) ColumnName() string {
	return fmt.Sprintf("%s %s", e.Operand.ColumnName(), e.Condition)
}

func (e *NullCheckExpression) String() string { return e.ColumnName() }

func (e *NullCheckExpression) DeepCopy() Expression {
	return &NullCheckExpression{Condition: e.Condition, Operand: e.Operand.DeepCopy()}
}

func (e *NullCheckExpression) ShallowEquals(other Expression) bool {
	o, ok := other.(*NullCheckExpression)
	if !ok {
		return false
	}
	return e.Condition == o.Condition
}

func (e *NullCheckExpression) Hash() uint64 {
	return hashCombine(ExprNullCheck, []byte{byte(e.Condition)}, e.Arguments())
}

// LogicalOperator is AND or OR.
type LogicalOperator int

const (
	OpAnd LogicalOperator = iota
	OpOr
)

func (o LogicalOperator) String() string {
	if o == OpOr {
		return "OR"
	}
	return "AND"
}

// LogicalExpression combines two boolean expressions.
type LogicalExpression struct {
	Op          LogicalOperator
	Left, Right Expression
}

// NewLogicalExpression creates an AND/OR expression.
func NewLogicalExpression(op LogicalOperator, left, right Expression) *LogicalExpression {
	return &LogicalExpression{Op: op, Left: left, Right: right}
}

// And builds `left AND right`.
func And(left, right Expression) *LogicalExpression {
	return NewLogicalExpression(OpAnd, left, right)
}

// Or builds `left OR right`.
func Or(left, right Expression) *LogicalExpression {
	return NewLogicalExpression(OpOr, left, right)
}

func (e *LogicalExpression) Type() ExpressionType     { return ExprLogical }
func (e *LogicalExpression) Arguments() []Expression  { return []Expression{e.Left, e.Right} }
func (e *LogicalExpression) DataType() types.DataType { return types.Int }

func (e *LogicalExpression) IsNullable() bool {
	return e.Left.IsNullable() || e.Right.IsNullable()
}

func (e *LogicalExpression) ColumnName() string {
	return fmt.Sprintf("(%s) %s (%s)", e.Left.ColumnName(), e.Op, e.Right.ColumnName())
}

func (e *LogicalExpression) String() string { return e.ColumnName() }

func (e *LogicalExpression) DeepCopy() Expression {
	return &LogicalExpression{Op: e.Op, Left: e.Left.DeepCopy(), Right: e.Right.DeepCopy()}
}

func (e *LogicalExpression) ShallowEquals(other Expression) bool {
	o, ok := other.(*LogicalExpression)
	if !ok {
		return false
	}
	return e.Op == o.Op
}

func (e *LogicalExpression) Hash() uint64 {
	return hashCombine(ExprLogical, []byte{byte(e.Op)}, e.Arguments())
}

// NotExpression negates a boolean expression.
type NotExpression struct {
	Operand Expression
}

// Not builds `NOT operand`.
func Not(operand Expression) *NotExpression {
	return &NotExpression{Operand: operand}
}

func (e *NotExpression) Type() ExpressionType     { return ExprNot }
func (e *NotExpression) Arguments() []Expression  { return []Expression{e.Operand} }
func (e *NotExpression) DataType() types.DataType { return types.Int }
func (e *NotExpression) IsNullable() bool         { return e.Operand.IsNullable() }

func (e *NotExpression) ColumnName() string {
	return "NOT (" + e.Operand.ColumnName() + ")"
}

func (e *NotExpression) String() string { return e.ColumnName() }

func (e *NotExpression) DeepCopy() Expression {
	return &NotExpression{Operand: e.Operand.DeepCopy()}
}

func (e *NotExpression) ShallowEquals(other Expression) bool {
	_, ok := other.(*NotExpression)
	return ok
}

func (e *NotExpression) Hash() uint64 {
	return hashCombine(ExprNot, nil, e.Arguments())
}

// FunctionExpression is a scalar function call.
type FunctionExpression struct {
	Name string
	Args []Expression
}

// NewFunctionExpression creates a scalar function call.
func NewFunctionExpression(name string, args ...Expression) *FunctionExpression {
	return &FunctionExpression{Name: strings.ToUpper(name), Args: args}
}

func (e *FunctionExpression) Type() ExpressionType    { return ExprFunction }
func (e *FunctionExpression) Arguments() []Expression { return e.Args }

func (e *FunctionExpression) DataType() types.DataType {
	switch e.Name {
	case "SUBSTR", "CONCAT", "UPPER", "LOWER", "TRIM":
		return types.String
	case "LENGTH":
		return types.Int
	case "ABS":
		if len(e.Args) == 1 {
			return e.Args[0].DataType()
		}
	}
	return types.Null
}

func (e *FunctionExpression) IsNullable() bool {
	for _, a := range e.Args {
		if a.IsNullable() {
			return true
		}
	}
	return false
}

func (e *FunctionExpression) ColumnName() string {
	names := make([]string, len(e.Args))
	for i, a := range e.Args {
		names[i] = a.ColumnName()
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(names, ", "))
}

func (e *FunctionExpression) String() string { return e.ColumnName() }

func (e *FunctionExpression) DeepCopy() Expression {
	return &FunctionExpression{Name: e.Name, Args: CopyExpressions(e.Args)}
}

func (e *FunctionExpression) ShallowEquals(other Expression) bool {
	o, ok := other.(*FunctionExpression)
	if !ok {
		return false
	}
	return e.Name == o.Name && len(e.Args) == len(o.Args)
}

func (e *FunctionExpression) Hash() uint64 {
	return hashCombine(ExprFunction, []byte(e.Name), e.Args)
}
