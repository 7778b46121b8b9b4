package planner

import (
	"fmt"
	"strings"

	"github.com/emberdb/ember/internal/types"
)

// CaseExpression is `CASE WHEN when THEN then ELSE else END`. Multi-branch
// CASE statements nest in the else slot.
type CaseExpression struct {
	When, Then, Else Expression
}

// NewCaseExpression creates a single-branch CASE.
func NewCaseExpression(when, then, els Expression) *CaseExpression {
	return &CaseExpression{When: when, Then: then, Else: els}
}

func (e *CaseExpression) Type() ExpressionType { return ExprCase }

func (e *CaseExpression) Arguments() []Expression {
	return []Expression{e.When, e.Then, e.Else}
}

// DataType is the common promotion of the THEN and ELSE branches.
func (e *CaseExpression) DataType() types.DataType {
	promoted, err := types.Promote(e.Then.DataType(), e.Else.DataType())
	if err != nil {
		return types.Null
	}
	return promoted
}

func (e *CaseExpression) IsNullable() bool {
	return e.When.IsNullable() || e.Then.IsNullable() || e.Else.IsNullable()
}

func (e *CaseExpression) ColumnName() string {
	return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END",
		e.When.ColumnName(), e.Then.ColumnName(), e.Else.ColumnName())
}

func (e *CaseExpression) String() string { return e.ColumnName() }

func (e *CaseExpression) DeepCopy() Expression {
	return &CaseExpression{
		When: e.When.DeepCopy(),
		Then: e.Then.DeepCopy(),
		Else: e.Else.DeepCopy(),
	}
}

// ShallowEquals only checks the variant; the three children are compared
// structurally by ExpressionsEqual.
func (e *CaseExpression) ShallowEquals(other Expression) bool {
	_, ok := other.(*CaseExpression)
	return ok
}

func (e *CaseExpression) Hash() uint64 {
	return hashCombine(ExprCase, nil, e.Arguments())
}

// InExpression is `operand IN (list...)`.
type InExpression struct {
	Operand Expression
	List    []Expression
}

// NewInExpression creates an IN predicate.
func NewInExpression(operand Expression, list ...Expression) *InExpression {
	return &InExpression{Operand: operand, List: list}
}

func (e *InExpression) Type() ExpressionType { return ExprIn }

func (e *InExpression) Arguments() []Expression {
	args := make([]Expression, 0, len(e.List)+1)
	args = append(args, e.Operand)
	args = append(args, e.List...)
	return args
}

func (e *InExpression) DataType() types.DataType { return types.Int }

func (e *InExpression) IsNullable() bool {
	if e.Operand.IsNullable() {
		return true
	}
	for _, item := range e.List {
		if item.IsNullable() {
			return true
		}
	}
	return false
}

func (e *InExpression) ColumnName() string {
	items := make([]string, len(e.List))
	for i, item := range e.List {
		items[i] = item.ColumnName()
	}
	return fmt.Sprintf("%s IN (%s)", e.Operand.ColumnName(), strings.Join(items, ", "))
}

func (e *InExpression) String() string { return e.ColumnName() }

func (e *InExpression) DeepCopy() Expression {
	return &InExpression{Operand: e.Operand.DeepCopy(), List: CopyExpressions(e.List)}
}

func (e *InExpression) ShallowEquals(other Expression) bool {
	o, ok := other.(*InExpression)
	if !ok {
		return false
	}
	return len(e.List) == len(o.List)
}

func (e *InExpression) Hash() uint64 {
	return hashCombine(ExprIn, nil, e.Arguments())
}

// ExistsExpression is `EXISTS (subquery)`.
type ExistsExpression struct {
	Subquery *SubqueryExpression
}

// NewExistsExpression creates an EXISTS predicate.
func NewExistsExpression(subquery *SubqueryExpression) *ExistsExpression {
	return &ExistsExpression{Subquery: subquery}
}

func (e *ExistsExpression) Type() ExpressionType     { return ExprExists }
func (e *ExistsExpression) Arguments() []Expression  { return []Expression{e.Subquery} }
func (e *ExistsExpression) DataType() types.DataType { return types.Int }
func (e *ExistsExpression) IsNullable() bool         { return false }

func (e *ExistsExpression) ColumnName() string {
	return "EXISTS (" + e.Subquery.ColumnName() + ")"
}

func (e *ExistsExpression) String() string { return e.ColumnName() }

func (e *ExistsExpression) DeepCopy() Expression {
	return &ExistsExpression{Subquery: e.Subquery.DeepCopy().(*SubqueryExpression)}
}

func (e *ExistsExpression) ShallowEquals(other Expression) bool {
	_, ok := other.(*ExistsExpression)
	return ok
}

func (e *ExistsExpression) Hash() uint64 {
	return hashCombine(ExprExists, nil, e.Arguments())
}
