package relational

import (
	"errors"
	"fmt"
	"strings"
)

// RelationKind classifies how a related table is linked.
type RelationKind string

// Relation kinds.
const (
	BelongsTo RelationKind = "belongs_to"
	HasOne    RelationKind = "has_one"
	HasMany   RelationKind = "has_many"
)

// Model describes a table and the relations reachable from it.
type Model struct {
	Table      string
	PrimaryKey string // defaults to "id"
	Relations  map[string]*Relation
}

// Relation links a parent model to a related one.
//
// For BelongsTo, ForeignKey is a column of the parent and OwnerKey a
// column of the related table (default: its primary key). For HasOne and
// HasMany, ForeignKey is a column of the related table and OwnerKey a
// column of the parent (default: its primary key).
type Relation struct {
	Kind       RelationKind
	Model      *Model
	ForeignKey string
	OwnerKey   string
}

// Key returns the primary key column.
func (m *Model) Key() string {
	if m.PrimaryKey == "" {
		return "id"
	}
	return m.PrimaryKey
}

// toOne reports whether the relation yields at most one row.
func (r *Relation) toOne() bool {
	return r.Kind == BelongsTo || r.Kind == HasOne
}

// parentColumn is the column on the parent side of the link.
func (r *Relation) parentColumn(parent *Model) string {
	if r.Kind == BelongsTo {
		return r.ForeignKey
	}
	if r.OwnerKey != "" {
		return r.OwnerKey
	}
	return parent.Key()
}

// relatedColumn is the column on the related side of the link.
func (r *Relation) relatedColumn() string {
	if r.Kind != BelongsTo {
		return r.ForeignKey
	}
	if r.OwnerKey != "" {
		return r.OwnerKey
	}
	return r.Model.Key()
}

// step is one hop of a resolved relation path.
type step struct {
	name   string
	parent *Model
	rel    *Relation
}

// resolve walks a dot-separated relation path.
func (m *Model) resolve(path string) ([]step, error) {
	var steps []step
	cur := m
	for _, name := range strings.Split(path, ".") {
		rel, ok := cur.Relations[name]
		if !ok || rel == nil {
			return nil, fmt.Errorf("relation %q not defined on %s", name, cur.Table)
		}
		steps = append(steps, step{name: name, parent: cur, rel: rel})
		cur = rel.Model
	}
	return steps, nil
}

// Validate checks that every reachable relation is fully described.
func (m *Model) Validate() error {
	return m.validate(map[*Model]bool{})
}

func (m *Model) validate(seen map[*Model]bool) error {
	if seen[m] {
		return nil
	}
	seen[m] = true
	if m.Table == "" {
		return errors.New("model has no table")
	}
	for name, rel := range m.Relations {
		switch {
		case rel == nil || rel.Model == nil:
			return fmt.Errorf("relation %s.%s has no related model", m.Table, name)
		case rel.ForeignKey == "":
			return fmt.Errorf("relation %s.%s has no foreign key", m.Table, name)
		}
		switch rel.Kind {
		case BelongsTo, HasOne, HasMany:
		default:
			return fmt.Errorf("relation %s.%s has unknown kind %q", m.Table, name, rel.Kind)
		}
		if err := rel.Model.validate(seen); err != nil {
			return err
		}
	}
	return nil
}
