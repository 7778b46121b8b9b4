package executor

import (
	"fmt"
	"strings"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/txn"
	"github.com/emberdb/ember/internal/types"
)

// Aggregate groups its input by the group-by expressions and folds the
// aggregate expressions per group. Output columns are the group keys
// followed by the aggregates, mirroring the logical node.
type Aggregate struct {
	baseOperator
	groupBy    []planner.Expression
	aggregates []*planner.AggregateExpression
	schema     *catalog.Schema
	params     map[types.ParameterID]types.Value
}

// NewAggregate creates an aggregation over an input.
func NewAggregate(groupBy []planner.Expression, aggregates []*planner.AggregateExpression, schema *catalog.Schema, input Operator) *Aggregate {
	op := &Aggregate{groupBy: groupBy, aggregates: aggregates, schema: schema}
	op.init(op, input, nil)
	return op
}

func (op *Aggregate) Description() string {
	return fmt.Sprintf("Aggregate(%d groups keys, %d aggregates)", len(op.groupBy), len(op.aggregates))
}

func (op *Aggregate) onSetParameters(params map[types.ParameterID]types.Value) {
	op.params = params
}

// aggState folds one aggregate over one group.
type aggState struct {
	fn       planner.AggregateFunction
	distinct bool

	count    int64
	sum      float64
	sumIsInt bool
	min, max types.Value
	seen     map[uint64]struct{}
}

func newAggState(agg *planner.AggregateExpression) *aggState {
	s := &aggState{fn: agg.Function, distinct: agg.Distinct, sumIsInt: true}
	if agg.Distinct {
		s.seen = make(map[uint64]struct{})
	}
	return s
}

func (s *aggState) add(v types.Value) {
	if v.IsNull() {
		return
	}
	if s.distinct {
		h := types.Hash(v)
		if _, dup := s.seen[h]; dup {
			return
		}
		s.seen[h] = struct{}{}
	}

	s.count++
	if v.DataType().IsNumeric() {
		f, _ := v.AsFloat64()
		s.sum += f
		if v.DataType().IsFloatingPoint() {
			s.sumIsInt = false
		}
	}
	if s.count == 1 {
		s.min, s.max = v, v
		return
	}
	if types.Compare(v, s.min) < 0 {
		s.min = v
	}
	if types.Compare(v, s.max) > 0 {
		s.max = v
	}
}

// addRow counts a row for COUNT(*).
func (s *aggState) addRow() {
	s.count++
}

func (s *aggState) result() types.Value {
	switch s.fn {
	case planner.AggCount:
		return types.NewValue(s.count)
	case planner.AggSum:
		if s.count == 0 {
			return types.NewNullValue()
		}
		if s.sumIsInt {
			return types.NewValue(int64(s.sum))
		}
		return types.NewValue(s.sum)
	case planner.AggAvg:
		if s.count == 0 {
			return types.NewNullValue()
		}
		return types.NewValue(s.sum / float64(s.count))
	case planner.AggMin:
		if s.count == 0 {
			return types.NewNullValue()
		}
		return s.min
	case planner.AggMax:
		if s.count == 0 {
			return types.NewNullValue()
		}
		return s.max
	default:
		return types.NewNullValue()
	}
}

type group struct {
	keys   []types.Value
	states []*aggState
}

func (op *Aggregate) onExecute(*txn.Context) (*Result, error) {
	input := op.left.Output()
	ev := NewEvaluator(input).WithParameters(op.params)

	groups := make(map[string]*group)
	var order []string

	err := forEachRow(input.Table, func(row types.RowID) error {
		keys := make([]types.Value, len(op.groupBy))
		var keyBuilder strings.Builder
		for i, g := range op.groupBy {
			v, err := ev.Evaluate(g, row)
			if err != nil {
				return err
			}
			keys[i] = v
			fmt.Fprintf(&keyBuilder, "%T:%v|", v.Data, v.Data)
		}
		key := keyBuilder.String()

		grp, ok := groups[key]
		if !ok {
			grp = &group{keys: keys}
			for _, agg := range op.aggregates {
				grp.states = append(grp.states, newAggState(agg))
			}
			groups[key] = grp
			order = append(order, key)
		}

		for i, agg := range op.aggregates {
			if agg.Argument == nil {
				grp.states[i].addRow()
				continue
			}
			v, err := ev.Evaluate(agg.Argument, row)
			if err != nil {
				return err
			}
			grp.states[i].add(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// An ungrouped aggregation over zero rows still yields one row.
	if len(op.groupBy) == 0 && len(groups) == 0 {
		grp := &group{}
		for _, agg := range op.aggregates {
			grp.states = append(grp.states, newAggState(agg))
		}
		groups[""] = grp
		order = append(order, "")
	}

	output := newOutputTable(op.schema)
	for _, key := range order {
		grp := groups[key]
		values := append([]types.Value(nil), grp.keys...)
		for _, state := range grp.states {
			values = append(values, state.result())
		}
		if err := appendOutputRow(output, values); err != nil {
			return nil, err
		}
	}

	return &Result{Table: output}, nil
}

func (op *Aggregate) onRecreate(left, right Operator) Operator {
	clone := &Aggregate{
		groupBy:    op.groupBy,
		aggregates: op.aggregates,
		schema:     op.schema,
		params:     op.params,
	}
	clone.init(clone, left, right)
	return clone
}
