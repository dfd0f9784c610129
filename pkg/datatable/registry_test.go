package datatable

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	people := New("people")
	r.Register(people)
	r.Register(New("orders"))

	got, err := r.Get("people")
	require.NoError(t, err)
	assert.Same(t, people, got)
	assert.Equal(t, []string{"orders", "people"}, r.Names())

	replacement := New("people")
	r.Register(replacement)
	got, err = r.Get("people")
	require.NoError(t, err)
	assert.Same(t, replacement, got)
}

func TestRegistry_UnknownTable(t *testing.T) {
	tests := []struct {
		name    string
		tables  []string
		wantMsg string
	}{
		{
			name:    "empty registry",
			wantMsg: `unknown table "missing": no tables are defined`,
		},
		{
			name:    "lists available tables",
			tables:  []string{"people", "orders"},
			wantMsg: `unknown table "missing" (available: orders, people)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for _, name := range tt.tables {
				r.Register(New(name))
			}

			_, err := r.Get("missing")
			require.Error(t, err)

			var unknown *UnknownTableError
			require.True(t, errors.As(err, &unknown))
			assert.Equal(t, "missing", unknown.Name)
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestRegistry_Replace(t *testing.T) {
	r := NewRegistry()
	r.Register(New("people"))
	r.Register(New("orders"))

	r.Replace(New("teams"))

	assert.Equal(t, []string{"teams"}, r.Names())
	_, err := r.Get("people")
	assert.Error(t, err)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	r.Register(New("people"))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Replace(New("people"), New("orders"))
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Get("people")
			_ = r.Names()
		}()
	}
	wg.Wait()

	_, err := r.Get("people")
	assert.NoError(t, err)
}
