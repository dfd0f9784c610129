package sqlq

import (
	"strings"
)

// Expr is a fragment of SQL that renders into a statement.
type Expr interface {
	build(w *writer)
}

type writer struct {
	d    *Dialect
	sb   strings.Builder
	args []any
}

func (w *writer) write(s string) {
	w.sb.WriteString(s)
}

func (w *writer) ident(name string) {
	w.sb.WriteString(w.d.QuoteIdentifier(name))
}

// table quotes a possibly schema-qualified table name part by part.
func (w *writer) table(name string) {
	for i, part := range strings.Split(name, ".") {
		if i > 0 {
			w.write(".")
		}
		w.ident(part)
	}
}

func (w *writer) bind(v any) {
	w.args = append(w.args, v)
	w.sb.WriteString(w.d.FormatPlaceholder(len(w.args)))
}

// Ident references a column, optionally qualified by a table or alias.
type Ident struct {
	Table string
	Name  string
}

// Col returns a column reference. An empty table leaves it unqualified.
func Col(table, name string) Ident {
	return Ident{Table: table, Name: name}
}

// Star selects every column of table.
func Star(table string) Ident {
	return Ident{Table: table, Name: "*"}
}

func (i Ident) build(w *writer) {
	if i.Table != "" {
		w.table(i.Table)
		w.write(".")
	}
	if i.Name == "*" {
		w.write("*")
		return
	}
	w.ident(i.Name)
}

type value struct {
	v any
}

// Val binds v as a query parameter.
func Val(v any) Expr {
	return value{v: v}
}

func (v value) build(w *writer) {
	w.bind(v.v)
}

type binary struct {
	lhs Expr
	op  string
	rhs Expr
}

func (b binary) build(w *writer) {
	b.lhs.build(w)
	w.write(" " + b.op + " ")
	b.rhs.build(w)
}

// Eq renders lhs = rhs.
func Eq(lhs, rhs Expr) Expr { return binary{lhs: lhs, op: "=", rhs: rhs} }

// Gte renders lhs >= rhs.
func Gte(lhs, rhs Expr) Expr { return binary{lhs: lhs, op: ">=", rhs: rhs} }

// Lte renders lhs <= rhs.
func Lte(lhs, rhs Expr) Expr { return binary{lhs: lhs, op: "<=", rhs: rhs} }

type between struct {
	lhs    Expr
	lo, hi any
}

// Between renders an inclusive range check with bound values.
func Between(lhs Expr, lo, hi any) Expr {
	return between{lhs: lhs, lo: lo, hi: hi}
}

func (b between) build(w *writer) {
	b.lhs.build(w)
	w.write(" BETWEEN ")
	w.bind(b.lo)
	w.write(" AND ")
	w.bind(b.hi)
}

type containsFold struct {
	lhs  Expr
	text string
}

// ContainsFold matches rows where lhs contains text, ignoring case.
// LIKE wildcards in text are matched literally.
func ContainsFold(lhs Expr, text string) Expr {
	return containsFold{lhs: lhs, text: text}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (c containsFold) build(w *writer) {
	w.write("LOWER(CAST(")
	c.lhs.build(w)
	w.write(" AS TEXT)) LIKE ")
	w.bind("%" + likeEscaper.Replace(strings.ToLower(c.text)) + "%")
	w.write(` ESCAPE '\'`)
}

type in struct {
	lhs    Expr
	values []any
}

// In renders lhs IN (...). An empty value list matches nothing.
func In(lhs Expr, values []any) Expr {
	return in{lhs: lhs, values: values}
}

func (e in) build(w *writer) {
	if len(e.values) == 0 {
		w.write("1 = 0")
		return
	}
	e.lhs.build(w)
	w.write(" IN (")
	for i, v := range e.values {
		if i > 0 {
			w.write(", ")
		}
		w.bind(v)
	}
	w.write(")")
}

type junction struct {
	op    string
	exprs []Expr
}

// And joins exprs with AND. With no exprs it is always true.
func And(exprs ...Expr) Expr { return junction{op: "AND", exprs: exprs} }

// Or joins exprs with OR. With no exprs it is always false.
func Or(exprs ...Expr) Expr { return junction{op: "OR", exprs: exprs} }

func (j junction) build(w *writer) {
	switch len(j.exprs) {
	case 0:
		if j.op == "AND" {
			w.write("1 = 1")
		} else {
			w.write("1 = 0")
		}
		return
	case 1:
		j.exprs[0].build(w)
		return
	}
	w.write("(")
	for i, e := range j.exprs {
		if i > 0 {
			w.write(" " + j.op + " ")
		}
		e.build(w)
	}
	w.write(")")
}

type exists struct {
	sub *Select
}

// Exists renders EXISTS (sub).
func Exists(sub *Select) Expr {
	return exists{sub: sub}
}

func (e exists) build(w *writer) {
	w.write("EXISTS ")
	e.sub.build(w)
}

type raw struct {
	sql  string
	args []any
}

// Raw injects sql verbatim. Each ? in sql binds the next arg using the
// dialect's placeholder style.
func Raw(sql string, args ...any) Expr {
	return raw{sql: sql, args: args}
}

func (r raw) build(w *writer) {
	next := 0
	for _, ch := range r.sql {
		if ch == '?' && next < len(r.args) {
			w.bind(r.args[next])
			next++
			continue
		}
		w.sb.WriteRune(ch)
	}
}
