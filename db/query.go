package db

import (
	"sort"

	"github.com/stratadb/strata/core"
)

// Op is a comparison operator usable in conditions and selectors.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpGt
	OpLt
	OpGe
	OpLe
)

func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGe:
		return ">="
	case OpLe:
		return "<="
	}
	return "?"
}

// ParseOp resolves an operator token.
func ParseOp(raw string) (Op, bool) {
	switch raw {
	case "=", "==":
		return OpEq, true
	case "!=", "<>":
		return OpNe, true
	case ">":
		return OpGt, true
	case "<":
		return OpLt, true
	case ">=":
		return OpGe, true
	case "<=":
		return OpLe, true
	}
	return OpEq, false
}

// Condition is one field predicate. Rows missing the field never match;
// ordered operators only match values of a comparable type.
type Condition struct {
	Field string
	Op    Op
	Value any
}

func (c Condition) matches(row core.Row) bool {
	value, ok := row.Data[c.Field]
	if !ok {
		return false
	}

	want := core.Normalize(c.Value)

	switch c.Op {
	case OpEq:
		return core.Equal(value, want)
	case OpNe:
		return !core.Equal(value, want)
	}

	if !core.Comparable(value, want) {
		return false
	}

	cmp := core.Compare(value, want)
	switch c.Op {
	case OpGt:
		return cmp > 0
	case OpLt:
		return cmp < 0
	case OpGe:
		return cmp >= 0
	case OpLe:
		return cmp <= 0
	}
	return false
}

// Selector picks rows for update, removal or fetch: either one row by id,
// or every row matching a condition.
type Selector struct {
	id   uint64
	byID bool
	cond *Condition
}

// ByID selects the single row with the given id.
func ByID(id uint64) Selector {
	return Selector{id: id, byID: true}
}

// Where selects every row whose field satisfies the comparison.
func Where(field string, op Op, value any) Selector {
	return Selector{cond: &Condition{Field: field, Op: op, Value: value}}
}

func (s Selector) matches(row core.Row) bool {
	if s.byID {
		return row.ID == s.id
	}
	if s.cond != nil {
		return s.cond.matches(row)
	}
	return true
}

// Query is a composable fetch: equality filters, one optional order, one
// optional limit.
type Query struct {
	table      string
	conds      []Condition
	orderField string
	orderDesc  bool
	ordered    bool
	limit      int
	limited    bool
}

func NewQuery(table string) *Query {
	return &Query{table: table}
}

// WhereEq adds an equality filter. Filters combine with AND.
func (q *Query) WhereEq(field string, value any) *Query {
	return q.Where(field, OpEq, value)
}

// Where adds a comparison filter.
func (q *Query) Where(field string, op Op, value any) *Query {
	q.conds = append(q.conds, Condition{Field: field, Op: op, Value: value})
	return q
}

// OrderBy sorts the result by one field. The sort is stable, so rows that
// compare equal (including rows missing the field) keep insertion order.
func (q *Query) OrderBy(field string, descending bool) *Query {
	q.orderField = field
	q.orderDesc = descending
	q.ordered = true
	return q
}

// Take caps the number of returned rows.
func (q *Query) Take(n int) *Query {
	q.limit = n
	q.limited = true
	return q
}

// Query runs a composed query: filter, then stable sort, then limit.
func (e *Engine) Query(q *Query) ([]core.Row, error) {
	e.store.RLock()
	defer e.store.RUnlock()

	if _, err := e.loadSchema(q.table); err != nil {
		return nil, err
	}
	rows, err := e.listRows(q.table)
	if err != nil {
		return nil, err
	}

	var matched []core.Row
	for _, row := range rows {
		keep := true
		for _, cond := range q.conds {
			if !cond.matches(row) {
				keep = false
				break
			}
		}
		if keep {
			matched = append(matched, row)
		}
	}

	if q.ordered {
		sort.SliceStable(matched, func(i, j int) bool {
			cmp := core.Compare(matched[i].Data[q.orderField], matched[j].Data[q.orderField])
			if q.orderDesc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.limited && q.limit < len(matched) {
		if q.limit < 0 {
			return nil, nil
		}
		matched = matched[:q.limit]
	}

	return matched, nil
}
