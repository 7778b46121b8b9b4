package planner

import (
	"fmt"

	"github.com/emberdb/ember/internal/types"
)

// AggregateFunction identifies an aggregate.
type AggregateFunction int

const (
	AggSum AggregateFunction = iota
	AggMin
	AggMax
	AggCount
	AggAvg
)

func (f AggregateFunction) String() string {
	switch f {
	case AggSum:
		return "SUM"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggCount:
		return "COUNT"
	case AggAvg:
		return "AVG"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// AggregateExpression applies an aggregate function to one argument.
// Argument is nil for COUNT(*).
type AggregateExpression struct {
	Function AggregateFunction
	Argument Expression
	Distinct bool
}

// NewAggregateExpression creates an aggregate expression.
func NewAggregateExpression(fn AggregateFunction, argument Expression) *AggregateExpression {
	return &AggregateExpression{Function: fn, Argument: argument}
}

// CountStar builds COUNT(*).
func CountStar() *AggregateExpression {
	return &AggregateExpression{Function: AggCount}
}

func (e *AggregateExpression) Type() ExpressionType { return ExprAggregate }

func (e *AggregateExpression) Arguments() []Expression {
	if e.Argument == nil {
		return nil
	}
	return []Expression{e.Argument}
}

func (e *AggregateExpression) DataType() types.DataType {
	switch e.Function {
	case AggCount:
		return types.Long
	case AggAvg:
		return types.Double
	case AggSum:
		if e.Argument.DataType() == types.Int {
			// Sums widen to avoid silent overflow on int32 columns.
			return types.Long
		}
		return e.Argument.DataType()
	default:
		return e.Argument.DataType()
	}
}

func (e *AggregateExpression) IsNullable() bool {
	// Every aggregate except COUNT yields NULL over an empty group.
	return e.Function != AggCount
}

func (e *AggregateExpression) ColumnName() string {
	arg := "*"
	if e.Argument != nil {
		arg = e.Argument.ColumnName()
	}
	if e.Distinct {
		arg = "DISTINCT " + arg
	}
	return fmt.Sprintf("%s(%s)", e.Function, arg)
}

func (e *AggregateExpression) String() string { return e.ColumnName() }

func (e *AggregateExpression) DeepCopy() Expression {
	clone := &AggregateExpression{Function: e.Function, Distinct: e.Distinct}
	if e.Argument != nil {
		clone.Argument = e.Argument.DeepCopy()
	}
	return clone
}

func (e *AggregateExpression) ShallowEquals(other Expression) bool {
	o, ok := other.(*AggregateExpression)
	if !ok {
		return false
	}
	return e.Function == o.Function && e.Distinct == o.Distinct &&
		(e.Argument == nil) == (o.Argument == nil)
}

func (e *AggregateExpression) Hash() uint64 {
	payload := []byte{byte(e.Function)}
	if e.Distinct {
		payload = append(payload, 1)
	}
	return hashCombine(ExprAggregate, payload, e.Arguments())
}
