// Package catalog turns the tables section of leaptable.yaml into
// datatable definitions bound to their data sources.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leaptable/internal/config"
	"github.com/leapstack-labs/leaptable/pkg/adapter"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/datatable"
	"github.com/leapstack-labs/leaptable/pkg/engines/collection"
	"github.com/leapstack-labs/leaptable/pkg/engines/relational"
	"github.com/leapstack-labs/leaptable/pkg/engines/sqlquery"
)

// Build creates every table declared in cfg, in name order. Errors from
// all tables are reported together.
func Build(ctx context.Context, cfg *config.Config, conns *Connections) ([]*datatable.Table, error) {
	var (
		tables []*datatable.Table
		errs   []error
	)
	for _, name := range cfg.TableNames() {
		t, err := BuildTable(ctx, name, cfg.Tables[name], cfg, conns)
		if err != nil {
			errs = append(errs, fmt.Errorf("table %s: %w", name, err))
			continue
		}
		tables = append(tables, t)
	}
	return tables, errors.Join(errs...)
}

// Load builds the tables of cfg into a fresh registry.
func Load(ctx context.Context, cfg *config.Config, conns *Connections) (*datatable.Registry, error) {
	tables, err := Build(ctx, cfg, conns)
	if err != nil {
		return nil, err
	}
	reg := datatable.NewRegistry()
	reg.Replace(tables...)
	return reg, nil
}

// BuildTable creates one table definition. Defaults come from the
// datatable and export sections of cfg.
func BuildTable(ctx context.Context, name string, tc config.TableConfig, cfg *config.Config, conns *Connections) (*datatable.Table, error) {
	t := datatable.New(name)
	defaults := cfg.Datatable

	pageLength := defaults.PageLength
	if tc.PageLength > 0 {
		pageLength = tc.PageLength
	}
	t.Configure(datatable.Options{
		PageLength:    pageLength,
		MaxPageLength: defaults.MaxPageLength,
		GlobalSearch:  defaults.GlobalSearch,
		Escape:        defaults.XSSProtection,
		ChunkSize:     cfg.Export.ChunkSize,
	})

	for _, cc := range tc.Columns {
		col, err := buildColumn(cc)
		if err != nil {
			return nil, err
		}
		t.AddColumns(col)
	}
	for _, fc := range tc.Filters {
		t.AddFilters(buildFilter(fc))
	}

	if tc.Searchable != nil {
		t.Searchable(*tc.Searchable)
	}
	if tc.Orderable != nil {
		t.Orderable(*tc.Orderable)
	}
	if tc.Responsive != nil {
		t.Responsive(*tc.Responsive)
	}
	t.Exportable(tc.Exportable).
		PersistState(tc.PersistState).
		VirtualScroll(tc.VirtualScroll).
		Realtime(tc.Realtime).
		With(tc.With...)

	src, err := buildSource(ctx, tc, conns)
	if err != nil {
		return nil, err
	}
	t.Source(src)
	return t, nil
}

func buildColumn(cc config.ColumnConfig) (*core.Column, error) {
	opts := []core.ColumnOption{}
	if cc.Searchable {
		opts = append(opts, core.Searchable())
	}
	if cc.Orderable {
		opts = append(opts, core.Orderable())
	}
	if cc.Relation != "" {
		opts = append(opts, core.Relation(cc.Relation))
	}
	if cc.Field != "" {
		opts = append(opts, core.Field(cc.Field))
	}
	if cc.Raw {
		opts = append(opts, core.Raw())
	}
	if cc.Hidden {
		opts = append(opts, core.Hidden())
	}
	if cc.NoExport {
		opts = append(opts, core.NoExport())
	}
	if cc.Default != nil {
		opts = append(opts, core.Default(cc.Default))
	}
	if cc.Renderer != "" {
		opts = append(opts, core.ClientRender(cc.Renderer))
	}
	if cc.Format != "" {
		fn, err := formatter(cc.Format)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", cc.Key, err)
		}
		opts = append(opts, core.Format(fn))
	}
	for k, v := range cc.Attributes {
		opts = append(opts, core.Attr(k, v))
	}
	return core.NewColumn(cc.Key, cc.Label, opts...), nil
}

func buildFilter(fc config.FilterConfig) *core.Filter {
	opts := []core.FilterOption{}
	if fc.Default != nil {
		opts = append(opts, core.WithDefault(fc.Default))
	}
	if len(fc.Choices) > 0 {
		choices := make([]core.Choice, 0, len(fc.Choices))
		for _, c := range fc.Choices {
			label := c.Label
			if label == "" {
				label = core.ToString(c.Value)
			}
			choices = append(choices, core.Choice{Value: c.Value, Label: label})
		}
		opts = append(opts, core.WithChoices(choices...))
	}
	return core.NewFilter(fc.Key, core.FilterType(fc.Type), fc.Label, opts...)
}

func buildSource(ctx context.Context, tc config.TableConfig, conns *Connections) (core.Source, error) {
	if tc.File != "" {
		path := tc.File
		return collection.LoaderSource(func() ([]core.Row, error) { return LoadRows(path) }), nil
	}

	conn, err := conns.Get(ctx, tc.Target)
	if err != nil {
		return nil, err
	}
	db, d := conn.Conn(), conn.Dialect()

	switch {
	case tc.Table != "":
		if err := checkColumns(ctx, conn, tc.Table, tc.Columns); err != nil {
			return nil, err
		}
		return sqlquery.NewSource(db, d, tc.Table), nil
	case tc.Query != "":
		return sqlquery.NewQuerySource(db, d, tc.Query, tc.Args...), nil
	case tc.Model != nil:
		model := buildModel(*tc.Model)
		if err := model.Validate(); err != nil {
			return nil, err
		}
		if err := checkColumns(ctx, conn, model.Table, tc.Columns); err != nil {
			return nil, err
		}
		return relational.NewSource(db, d, model), nil
	}
	return nil, core.ErrNoDataSource
}

// checkColumns reports configured columns the database table lacks, so a
// typo fails at load time instead of on the first request. Relation
// columns and columns with a default are not checked.
func checkColumns(ctx context.Context, conn adapter.Adapter, table string, cols []config.ColumnConfig) error {
	meta, err := conn.GetTableMetadata(ctx, table)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(meta.Columns))
	names := make([]string, 0, len(meta.Columns))
	for _, c := range meta.Columns {
		have[strings.ToLower(c.Name)] = true
		names = append(names, c.Name)
	}

	var errs []error
	for _, cc := range cols {
		if cc.Relation != "" || cc.Default != nil {
			continue
		}
		field := cc.Field
		if field == "" {
			field = cc.Key
		}
		if !have[strings.ToLower(field)] {
			errs = append(errs, fmt.Errorf("column %s: %s has no column %q (available: %s)",
				cc.Key, table, field, strings.Join(names, ", ")))
		}
	}
	return errors.Join(errs...)
}

func buildModel(mc config.ModelConfig) *relational.Model {
	m := &relational.Model{
		Table:      mc.Table,
		PrimaryKey: mc.PrimaryKey,
		Relations:  make(map[string]*relational.Relation, len(mc.Relations)),
	}
	for name, rc := range mc.Relations {
		m.Relations[name] = &relational.Relation{
			Kind:       relational.RelationKind(rc.Kind),
			Model:      buildModel(rc.Model),
			ForeignKey: rc.ForeignKey,
			OwnerKey:   rc.OwnerKey,
		}
	}
	return m
}

// LoadRows reads a YAML or JSON file holding a list of records.
func LoadRows(path string) ([]core.Row, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	var rows []core.Row
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	for i, r := range rows {
		if r == nil {
			rows[i] = core.Row{}
		}
	}
	return rows, nil
}

// Describe summarises a table's source for listings.
func Describe(tc config.TableConfig) string {
	switch {
	case tc.File != "":
		return "file " + filepath.Base(tc.File)
	case tc.Table != "":
		return tc.Target + "." + tc.Table
	case tc.Query != "":
		q := strings.Join(strings.Fields(tc.Query), " ")
		if len(q) > 40 {
			q = q[:37] + "..."
		}
		return tc.Target + " query: " + q
	case tc.Model != nil:
		return tc.Target + " model " + tc.Model.Table
	}
	return "-"
}
