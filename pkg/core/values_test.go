package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDateRange(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wantFrom string
		wantTo   string
		wantOK   bool
	}{
		{"both bounds", map[string]any{"from": "2024-01-01", "to": "2024-01-31"}, "2024-01-01", "2024-01-31", true},
		{"string map", map[string]string{"from": "2024-01-01", "to": "2024-01-31"}, "2024-01-01", "2024-01-31", true},
		{"missing to", map[string]any{"from": "2024-01-01"}, "", "", false},
		{"blank from", map[string]any{"from": "", "to": "2024-01-31"}, "", "", false},
		{"not a map", "2024-01-01", "", "", false},
		{"nil", nil, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, ok := DateRange(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}
}

func TestNumericRange(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name   string
		value  any
		wantLo *float64
		wantHi *float64
	}{
		{"min only", map[string]any{"min": 10}, f(10), nil},
		{"max only as string", map[string]any{"max": "99.5"}, nil, f(99.5)},
		{"both", map[string]any{"min": "1", "max": 2.0}, f(1), f(2)},
		{"blank bounds", map[string]any{"min": "", "max": ""}, nil, nil},
		{"non numeric bound", map[string]any{"min": "abc", "max": 5}, nil, f(5)},
		{"scalar value", 10, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := NumericRange(tt.value)
			assert.Equal(t, tt.wantLo, lo)
			assert.Equal(t, tt.wantHi, hi)
		})
	}
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("  "))
	assert.True(t, IsBlank(map[string]any{"from": "", "to": nil}))
	assert.False(t, IsBlank("0"))
	assert.False(t, IsBlank(0))
	assert.False(t, IsBlank(map[string]any{"min": "1"}))
}

func TestLookup(t *testing.T) {
	row := Row{
		"name":    "John",
		"profile": Row{"bio": "Hello", "address": map[string]any{"city": "Oslo"}},
		"posts":   []Row{{"title": "First"}, {"title": "Second"}},
		"empty":   []Row{},
		"nothing": nil,
	}

	tests := []struct {
		path   string
		want   any
		wantOK bool
	}{
		{"name", "John", true},
		{"profile.bio", "Hello", true},
		{"profile.address.city", "Oslo", true},
		{"posts.title", "First", true},
		{"empty.title", nil, false},
		{"nothing.bio", nil, false},
		{"missing.bio", nil, false},
		{"name.first", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Lookup(row, tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Bob Johnson", "john"))
	assert.True(t, ContainsFold("JOHN DOE", "john"))
	assert.False(t, ContainsFold("Jane Smith", "john"))
}

func TestValidationError_Messages(t *testing.T) {
	assert.Equal(t, "column 'secret' is not whitelisted for ordering",
		(&ValidationError{Kind: InvalidColumn, Key: "secret"}).Error())
	assert.Equal(t, "filter 'x' is not allowed",
		(&ValidationError{Kind: InvalidFilter, Key: "x"}).Error())
	assert.True(t, IsValidation(&ValidationError{Kind: InvalidRelation, Key: "r"}))
	assert.False(t, IsValidation(ErrNoDataSource))
}
