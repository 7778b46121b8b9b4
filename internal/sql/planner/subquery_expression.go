package planner

import (
	"fmt"
	"strings"

	"github.com/emberdb/ember/internal/types"
)

// SubqueryExpression embeds an inner logical plan. Correlated references to
// outer columns have been rewritten into placeholders inside the plan;
// ParameterIDs lists those placeholders and CorrelatedArguments holds, in
// the same order, the outer expressions that feed them at runtime.
type SubqueryExpression struct {
	Plan                Node
	ParameterIDs        []types.ParameterID
	CorrelatedArguments []Expression
}

// NewSubqueryExpression creates a subquery expression. The number of
// parameter IDs must equal the number of correlated arguments.
func NewSubqueryExpression(plan Node, parameterIDs []types.ParameterID, arguments []Expression) *SubqueryExpression {
	if len(parameterIDs) != len(arguments) {
		panic(fmt.Sprintf("subquery has %d parameter ids but %d arguments", len(parameterIDs), len(arguments)))
	}
	return &SubqueryExpression{Plan: plan, ParameterIDs: parameterIDs, CorrelatedArguments: arguments}
}

func (e *SubqueryExpression) Type() ExpressionType { return ExprSubquery }

// Arguments returns the correlated outer expressions. The inner plan's
// expressions are not arguments of this node.
func (e *SubqueryExpression) Arguments() []Expression { return e.CorrelatedArguments }

// DataType is the type of the subquery's single output column.
func (e *SubqueryExpression) DataType() types.DataType {
	cols := e.Plan.ColumnExpressions()
	if len(cols) != 1 {
		return types.Null
	}
	return cols[0].DataType()
}

func (e *SubqueryExpression) IsNullable() bool { return true }

func (e *SubqueryExpression) ColumnName() string {
	cols := e.Plan.ColumnExpressions()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.ColumnName()
	}
	return fmt.Sprintf("SUBQUERY(%s)", strings.Join(names, ", "))
}

func (e *SubqueryExpression) String() string { return e.ColumnName() }

func (e *SubqueryExpression) DeepCopy() Expression {
	ids := make([]types.ParameterID, len(e.ParameterIDs))
	copy(ids, e.ParameterIDs)
	return &SubqueryExpression{
		Plan:                DeepCopyNode(e.Plan),
		ParameterIDs:        ids,
		CorrelatedArguments: CopyExpressions(e.CorrelatedArguments),
	}
}

// ShallowEquals compares the parameter bindings and checks the inner plans
// for structural isomorphism with PlansEqual.
func (e *SubqueryExpression) ShallowEquals(other Expression) bool {
	o, ok := other.(*SubqueryExpression)
	if !ok {
		return false
	}
	if len(e.ParameterIDs) != len(o.ParameterIDs) {
		return false
	}
	for i, id := range e.ParameterIDs {
		if id != o.ParameterIDs[i] {
			return false
		}
	}
	return PlansEqual(e.Plan, o.Plan)
}

// Hash is intentionally coarse: it folds only the parameter bindings, not
// the inner plan. Collisions are resolved by ShallowEquals, which compares
// the plans structurally.
func (e *SubqueryExpression) Hash() uint64 {
	payload := make([]byte, 0, len(e.ParameterIDs))
	for _, id := range e.ParameterIDs {
		payload = append(payload, byte(id))
	}
	return hashCombine(ExprSubquery, payload, nil)
}
