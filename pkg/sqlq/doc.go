// Package sqlq builds parameterised SELECT statements for the SQL-backed
// query engines.
//
// A Select is assembled from Expr values (identifiers, bound values,
// predicates, scalar subqueries) and rendered for one Dialect at a time.
// Placeholders are numbered during rendering, so the same Select can be
// rendered for "?"-style and "$N"-style drivers.
//
// Identifiers are always quoted; values are always bound. Raw is the only
// way to inject SQL text and is reserved for definition-time predicates.
package sqlq
