package planner

import (
	"strconv"

	"github.com/emberdb/ember/internal/types"
)

// ColumnExpression references a column of an input node by its qualified
// name. The translator resolves identifiers to one canonical qualified form
// so that equal references compare equal structurally.
type ColumnExpression struct {
	TableAlias string
	Name       string
	ValueType  types.DataType
	Nullable   bool
}

// NewColumnExpression creates a column reference.
func NewColumnExpression(tableAlias, name string, valueType types.DataType, nullable bool) *ColumnExpression {
	return &ColumnExpression{TableAlias: tableAlias, Name: name, ValueType: valueType, Nullable: nullable}
}

func (e *ColumnExpression) Type() ExpressionType     { return ExprColumn }
func (e *ColumnExpression) Arguments() []Expression  { return nil }
func (e *ColumnExpression) DataType() types.DataType { return e.ValueType }
func (e *ColumnExpression) IsNullable() bool         { return e.Nullable }

func (e *ColumnExpression) ColumnName() string {
	if e.TableAlias != "" {
		return e.TableAlias + "." + e.Name
	}
	return e.Name
}

func (e *ColumnExpression) String() string { return e.ColumnName() }

func (e *ColumnExpression) DeepCopy() Expression {
	clone := *e
	return &clone
}

func (e *ColumnExpression) ShallowEquals(other Expression) bool {
	o, ok := other.(*ColumnExpression)
	if !ok {
		return false
	}
	return e.TableAlias == o.TableAlias && e.Name == o.Name
}

func (e *ColumnExpression) Hash() uint64 {
	return hashCombine(ExprColumn, []byte(e.ColumnName()), nil)
}

// ValueExpression is a literal.
type ValueExpression struct {
	Value types.Value
}

// NewValueExpression creates a literal expression.
func NewValueExpression(v any) *ValueExpression {
	return &ValueExpression{Value: types.NewValue(v)}
}

// NewNullExpression creates a NULL literal.
func NewNullExpression() *ValueExpression {
	return &ValueExpression{Value: types.NewNullValue()}
}

func (e *ValueExpression) Type() ExpressionType     { return ExprValue }
func (e *ValueExpression) Arguments() []Expression  { return nil }
func (e *ValueExpression) DataType() types.DataType { return e.Value.DataType() }
func (e *ValueExpression) IsNullable() bool         { return e.Value.IsNull() }
func (e *ValueExpression) ColumnName() string       { return e.Value.String() }
func (e *ValueExpression) String() string           { return e.Value.String() }

func (e *ValueExpression) DeepCopy() Expression {
	clone := *e
	return &clone
}

func (e *ValueExpression) ShallowEquals(other Expression) bool {
	o, ok := other.(*ValueExpression)
	if !ok {
		return false
	}
	if e.Value.IsNull() || o.Value.IsNull() {
		return e.Value.IsNull() && o.Value.IsNull()
	}
	return e.Value.DataType() == o.Value.DataType() && types.Compare(e.Value, o.Value) == 0
}

func (e *ValueExpression) Hash() uint64 {
	var buf [8]byte
	v := types.Hash(e.Value)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	return hashCombine(ExprValue, buf[:], nil)
}

// PlaceholderExpression is a parameter slot bound by an outer query or a
// prepared statement.
type PlaceholderExpression struct {
	ID types.ParameterID

	// ValueType is the type of the outer expression the placeholder stands
	// in for, when known.
	ValueType types.DataType
	Nullable  bool
}

// NewPlaceholderExpression creates a placeholder with the given parameter
// ID.
func NewPlaceholderExpression(id types.ParameterID, valueType types.DataType, nullable bool) *PlaceholderExpression {
	return &PlaceholderExpression{ID: id, ValueType: valueType, Nullable: nullable}
}

func (e *PlaceholderExpression) Type() ExpressionType     { return ExprPlaceholder }
func (e *PlaceholderExpression) Arguments() []Expression  { return nil }
func (e *PlaceholderExpression) DataType() types.DataType { return e.ValueType }
func (e *PlaceholderExpression) IsNullable() bool         { return e.Nullable }
func (e *PlaceholderExpression) ColumnName() string       { return e.String() }

func (e *PlaceholderExpression) String() string {
	return "$" + strconv.Itoa(int(e.ID))
}

func (e *PlaceholderExpression) DeepCopy() Expression {
	clone := *e
	return &clone
}

func (e *PlaceholderExpression) ShallowEquals(other Expression) bool {
	o, ok := other.(*PlaceholderExpression)
	if !ok {
		return false
	}
	return e.ID == o.ID
}

func (e *PlaceholderExpression) Hash() uint64 {
	return hashCombine(ExprPlaceholder, []byte{byte(e.ID), byte(e.ID >> 8)}, nil)
}
