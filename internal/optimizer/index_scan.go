package optimizer

import (
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/types"
)

// IndexScanRule flips a predicate's access path from TableScan to IndexScan
// when the predicate sits directly on a stored table, references exactly
// one indexed column against a constant, and retains so few rows that the
// index beats a full scan. Not selecting the index is never an error.
type IndexScanRule struct {
	// SelectivityThreshold is the largest estimated selectivity still
	// routed through an index.
	SelectivityThreshold float64
}

// Name identifies the rule.
func (r *IndexScanRule) Name() string { return "IndexScan" }

// Apply inspects every predicate node in the plan.
func (r *IndexScanRule) Apply(root planner.Node) (planner.Node, bool) {
	changed := false
	planner.VisitPlan(root, func(n planner.Node) bool {
		p, ok := n.(*planner.PredicateNode)
		if !ok || p.ScanType != types.TableScan {
			return true
		}
		if r.qualifies(p) {
			p.ScanType = types.IndexScan
			changed = true
		}
		return true
	})
	return root, changed
}

func (r *IndexScanRule) qualifies(p *planner.PredicateNode) bool {
	table, ok := p.LeftInput().(*planner.StoredTableNode)
	if !ok {
		return false
	}

	columnID, cond, ok := decomposeColumnVsValue(p)
	if !ok || !cond.IsComparison() {
		return false
	}

	indexed := false
	for _, ix := range table.Table().IndexesOn(columnID) {
		if ix.Kind() == storage.GroupKeyIndex && ix.IsSingleColumn() {
			indexed = true
			break
		}
	}
	if !indexed {
		return false
	}

	inputRows := table.OutputRowCount()
	if inputRows <= 0 {
		return false
	}
	selectivity := p.OutputRowCount() / inputRows
	return selectivity <= r.SelectivityThreshold
}

// decomposeColumnVsValue matches `column OP constant` (either operand
// order) and resolves the column against the predicate's input.
func decomposeColumnVsValue(p *planner.PredicateNode) (types.ColumnID, types.PredicateCondition, bool) {
	binary, ok := p.Predicate.(*planner.BinaryPredicate)
	if !ok {
		return 0, 0, false
	}

	if col, isCol := binary.Left.(*planner.ColumnExpression); isCol {
		if _, isVal := binary.Right.(*planner.ValueExpression); isVal {
			id := p.LeftInput().FindColumnID(col)
			return id, binary.Condition, id != types.InvalidColumnID
		}
	}
	if col, isCol := binary.Right.(*planner.ColumnExpression); isCol {
		if _, isVal := binary.Left.(*planner.ValueExpression); isVal {
			id := p.LeftInput().FindColumnID(col)
			return id, binary.Condition.Flipped(), id != types.InvalidColumnID
		}
	}
	return 0, 0, false
}
