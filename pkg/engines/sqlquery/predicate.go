package sqlquery

import (
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/sqlq"
)

// Predicate builds the default condition for a filter of type typ on
// target. It returns nil when value has the wrong shape for the type, in
// which case the filter is skipped.
func Predicate(target sqlq.Expr, typ core.FilterType, value any) sqlq.Expr {
	switch typ {
	case core.FilterText:
		if !isScalar(value) {
			return nil
		}
		return sqlq.ContainsFold(target, core.ToString(value))
	case core.FilterSelect:
		if !isScalar(value) {
			return nil
		}
		return sqlq.Eq(target, sqlq.Val(value))
	case core.FilterDateRange:
		from, to, ok := core.DateRange(value)
		if !ok {
			return nil
		}
		return sqlq.Between(target, from, to)
	case core.FilterNumericRange:
		lo, hi := core.NumericRange(value)
		var conds []sqlq.Expr
		if lo != nil {
			conds = append(conds, sqlq.Gte(target, sqlq.Val(*lo)))
		}
		if hi != nil {
			conds = append(conds, sqlq.Lte(target, sqlq.Val(*hi)))
		}
		if len(conds) == 0 {
			return nil
		}
		return sqlq.And(conds...)
	default:
		return nil
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, map[string]string, []any, []string, nil:
		return false
	default:
		return true
	}
}
