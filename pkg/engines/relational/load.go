package relational

import (
	"context"
	"slices"
	"strings"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/sqlq"
)

// loadPaths returns the relation paths to eager-load: the explicit ones
// plus every relation a column reads through.
func (e *Engine) loadPaths() []string {
	paths := slices.Clone(e.with)
	for _, col := range e.cols.All() {
		if col.Relation != "" {
			paths = append(paths, col.Relation)
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}

// eagerLoad attaches related rows to rows under the relation name: a Row
// (or nil) for to-one relations, a []core.Row for has-many. Paths are
// loaded one hop at a time with an IN query per relation.
func (e *Engine) eagerLoad(ctx context.Context, model *Model, rows []core.Row, paths []string) error {
	if len(rows) == 0 || len(paths) == 0 {
		return nil
	}

	nested := make(map[string][]string)
	var names []string
	for _, p := range paths {
		head, rest, _ := strings.Cut(p, ".")
		if _, ok := nested[head]; !ok {
			names = append(names, head)
			nested[head] = nil
		}
		if rest != "" {
			nested[head] = append(nested[head], rest)
		}
	}

	for _, name := range names {
		rel, ok := model.Relations[name]
		if !ok || rel == nil {
			continue
		}
		related, err := e.loadRelation(ctx, model, name, rel, rows)
		if err != nil {
			return err
		}
		if err := e.eagerLoad(ctx, rel.Model, related, nested[name]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) loadRelation(ctx context.Context, parent *Model, name string, rel *Relation, rows []core.Row) ([]core.Row, error) {
	parentCol := rel.parentColumn(parent)
	relatedCol := rel.relatedColumn()

	var keys []any
	seen := make(map[string]bool)
	for _, row := range rows {
		v := row[parentCol]
		if v == nil {
			continue
		}
		k := core.ToString(v)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, v)
		}
	}

	// Keys are sent in chunks to stay under the driver's bind parameter
	// limit on large exports.
	var related []core.Row
	table := rel.Model.Table
	for chunk := range slices.Chunk(keys, e.chunkSize()) {
		s := sqlq.From(table).Where(sqlq.In(sqlq.Col(table, relatedCol), chunk))
		batch, err := sqlq.Query(ctx, e.db, e.dialect, s)
		if err != nil {
			return nil, err
		}
		related = append(related, batch...)
	}

	byKey := make(map[string][]core.Row)
	for _, r := range related {
		k := core.ToString(r[relatedCol])
		byKey[k] = append(byKey[k], r)
	}

	for _, row := range rows {
		matches := byKey[core.ToString(row[parentCol])]
		if row[parentCol] == nil {
			matches = nil
		}
		if rel.toOne() {
			if len(matches) > 0 {
				row[name] = matches[0]
			} else {
				row[name] = nil
			}
			continue
		}
		if matches == nil {
			matches = []core.Row{}
		}
		row[name] = matches
	}
	return related, nil
}
