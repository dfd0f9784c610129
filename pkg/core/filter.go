package core

import "github.com/leapstack-labs/leaptable/pkg/sqlq"

// FilterType selects the default matching behaviour of a filter.
type FilterType string

// Filter types.
const (
	FilterText         FilterType = "text"
	FilterSelect       FilterType = "select"
	FilterDateRange    FilterType = "date-range"
	FilterNumericRange FilterType = "numeric-range"
)

// Choice is one option of a select filter.
type Choice struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// QueryPredicate narrows a SQL engine's working statement for a filter value.
type QueryPredicate func(q *sqlq.Select, value any)

// RowPredicate decides whether an in-memory row passes a filter value.
type RowPredicate func(row Row, value any) bool

// Filter describes one filter control of a table. When a predicate for
// the engine family is set it replaces the default behaviour entirely.
type Filter struct {
	Key        string
	Type       FilterType
	Label      string
	Default    any
	Choices    []Choice
	Query      QueryPredicate
	Rows       RowPredicate
	Attributes map[string]any
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// NewFilter creates a filter of the given type.
func NewFilter(key string, typ FilterType, label string, opts ...FilterOption) *Filter {
	if label == "" {
		label = LabelFromKey(key)
	}
	f := &Filter{Key: key, Type: typ, Label: label}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// TextFilter matches rows whose value contains the input, ignoring case.
func TextFilter(key, label string, opts ...FilterOption) *Filter {
	return NewFilter(key, FilterText, label, opts...)
}

// SelectFilter matches rows whose value equals the chosen option.
func SelectFilter(key, label string, choices []Choice, opts ...FilterOption) *Filter {
	f := NewFilter(key, FilterSelect, label, opts...)
	if len(choices) > 0 {
		f.Choices = choices
	}
	return f
}

// DateRangeFilter matches rows inside an inclusive {from, to} range.
func DateRangeFilter(key, label string, opts ...FilterOption) *Filter {
	return NewFilter(key, FilterDateRange, label, opts...)
}

// NumericRangeFilter matches rows inside optional {min, max} bounds.
func NumericRangeFilter(key, label string, opts ...FilterOption) *Filter {
	return NewFilter(key, FilterNumericRange, label, opts...)
}

// WithDefault sets the filter's initial value in the client widget.
func WithDefault(v any) FilterOption { return func(f *Filter) { f.Default = v } }

// WithChoices sets the options of a select filter.
func WithChoices(choices ...Choice) FilterOption { return func(f *Filter) { f.Choices = choices } }

// WithQuery replaces the default SQL behaviour of the filter.
func WithQuery(fn QueryPredicate) FilterOption { return func(f *Filter) { f.Query = fn } }

// WithRows replaces the default in-memory behaviour of the filter.
func WithRows(fn RowPredicate) FilterOption { return func(f *Filter) { f.Rows = fn } }

// WithAttr sets a free-form attribute passed through to the client widget.
func WithAttr(key string, value any) FilterOption {
	return func(f *Filter) {
		if f.Attributes == nil {
			f.Attributes = make(map[string]any)
		}
		f.Attributes[key] = value
	}
}

// Definition returns the client-facing description of the filter.
func (f *Filter) Definition() map[string]any {
	def := map[string]any{
		"key":   f.Key,
		"type":  string(f.Type),
		"label": f.Label,
	}
	if f.Default != nil {
		def["default"] = f.Default
	}
	if len(f.Choices) > 0 {
		def["options"] = f.Choices
	}
	if len(f.Attributes) > 0 {
		def["attributes"] = f.Attributes
	}
	return def
}
