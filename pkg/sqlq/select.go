package sqlq

import (
	"strconv"
)

type fromItem struct {
	table string
	alias string
	sub   Expr
}

type join struct {
	kind  string
	table string
	alias string
	on    Expr
}

type orderTerm struct {
	expr Expr
	desc bool
}

// Select is a mutable SELECT statement. Use Clone before branching.
type Select struct {
	from    fromItem
	columns []Expr
	joins   []join
	where   []Expr
	orders  []orderTerm
	limit   int
	offset  int
}

// From starts a statement over a table.
func From(table string) *Select {
	return &Select{from: fromItem{table: table}, limit: -1}
}

// FromAs starts a statement over an aliased table.
func FromAs(table, alias string) *Select {
	return &Select{from: fromItem{table: table, alias: alias}, limit: -1}
}

// FromQuery starts a statement over a raw subquery, for example a view
// definition supplied by configuration.
func FromQuery(sql, alias string, args ...any) *Select {
	return &Select{from: fromItem{sub: Raw(sql, args...), alias: alias}, limit: -1}
}

// Source returns the alias, or table name, that columns of the FROM item
// should be qualified with.
func (s *Select) Source() string {
	if s.from.alias != "" {
		return s.from.alias
	}
	return s.from.table
}

// Columns replaces the select list. An empty list selects *.
func (s *Select) Columns(cols ...Expr) *Select {
	s.columns = cols
	return s
}

// Where appends a condition. Conditions are joined with AND.
func (s *Select) Where(e Expr) *Select {
	s.where = append(s.where, e)
	return s
}

// Join appends an INNER JOIN.
func (s *Select) Join(table, alias string, on Expr) *Select {
	s.joins = append(s.joins, join{kind: "JOIN", table: table, alias: alias, on: on})
	return s
}

// LeftJoin appends a LEFT JOIN.
func (s *Select) LeftJoin(table, alias string, on Expr) *Select {
	s.joins = append(s.joins, join{kind: "LEFT JOIN", table: table, alias: alias, on: on})
	return s
}

// HasJoin reports whether a join with the given alias exists.
func (s *Select) HasJoin(alias string) bool {
	for _, j := range s.joins {
		if j.alias == alias {
			return true
		}
	}
	return false
}

// OrderBy appends a sort key after any existing ones.
func (s *Select) OrderBy(e Expr, desc bool) *Select {
	s.orders = append(s.orders, orderTerm{expr: e, desc: desc})
	return s
}

// Limit sets the row limit. A negative value removes it.
func (s *Select) Limit(n int) *Select {
	s.limit = n
	return s
}

// Offset sets the row offset. It only renders together with a limit.
func (s *Select) Offset(n int) *Select {
	s.offset = n
	return s
}

// Clone returns a copy that can be modified independently.
func (s *Select) Clone() *Select {
	c := *s
	c.columns = append([]Expr(nil), s.columns...)
	c.joins = append([]join(nil), s.joins...)
	c.where = append([]Expr(nil), s.where...)
	c.orders = append([]orderTerm(nil), s.orders...)
	return &c
}

// Build renders the statement for d.
func (s *Select) Build(d *Dialect) (string, []any) {
	w := &writer{d: d}
	s.render(w, true)
	return w.sb.String(), w.args
}

// BuildCount renders SELECT COUNT(*) over the statement without its
// ordering and window.
func (s *Select) BuildCount(d *Dialect) (string, []any) {
	w := &writer{d: d}
	w.write("SELECT COUNT(*) FROM (")
	s.render(w, false)
	w.write(") AS ")
	w.ident("count_q")
	return w.sb.String(), w.args
}

func (s *Select) build(w *writer) {
	w.write("(")
	s.render(w, true)
	w.write(")")
}

func (s *Select) render(w *writer, window bool) {
	w.write("SELECT ")
	if len(s.columns) == 0 {
		w.write("*")
	}
	for i, c := range s.columns {
		if i > 0 {
			w.write(", ")
		}
		c.build(w)
	}

	w.write(" FROM ")
	if s.from.sub != nil {
		w.write("(")
		s.from.sub.build(w)
		w.write(")")
	} else {
		w.table(s.from.table)
	}
	if s.from.alias != "" {
		w.write(" AS ")
		w.ident(s.from.alias)
	}

	for _, j := range s.joins {
		w.write(" " + j.kind + " ")
		w.table(j.table)
		if j.alias != "" {
			w.write(" AS ")
			w.ident(j.alias)
		}
		w.write(" ON ")
		j.on.build(w)
	}

	if len(s.where) > 0 {
		w.write(" WHERE ")
		for i, e := range s.where {
			if i > 0 {
				w.write(" AND ")
			}
			e.build(w)
		}
	}

	if !window {
		return
	}

	if len(s.orders) > 0 {
		w.write(" ORDER BY ")
		for i, o := range s.orders {
			if i > 0 {
				w.write(", ")
			}
			o.expr.build(w)
			if o.desc {
				w.write(" DESC")
			} else {
				w.write(" ASC")
			}
		}
	}

	if s.limit >= 0 {
		w.write(" LIMIT " + strconv.Itoa(s.limit))
		if s.offset > 0 {
			w.write(" OFFSET " + strconv.Itoa(s.offset))
		}
	}
}
