package adapter

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	Adapter
	logger *slog.Logger
}

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"duckdb", "postgres", "sqlite"},
	}

	assert.EqualError(t, err,
		`unknown adapter type "fake_db" (available: duckdb, postgres, sqlite); set targets.<name>.type in leaptable.yaml`)
}

func TestRegister(t *testing.T) {
	Register("Test_Adapter_Internal", func(l *slog.Logger) Adapter { return &stubAdapter{logger: l} })

	assert.True(t, IsRegistered("test_adapter_internal"))
	assert.True(t, IsRegistered("TEST_ADAPTER_INTERNAL"))
	assert.Contains(t, ListAdapters(), "test_adapter_internal")
	assert.NotContains(t, ListAdapters(), "Test_Adapter_Internal")

	factory, ok := Get("test_adapter_internal")
	assert.True(t, ok)
	assert.NotNil(t, factory)

	assert.Panics(t, func() {
		Register("test_adapter_internal", func(*slog.Logger) Adapter { return nil })
	})
	assert.Panics(t, func() { Register("nil_factory", nil) })
	assert.False(t, IsRegistered("nil_factory"))
}

func TestListAdapters_Sorted(t *testing.T) {
	Register("zz_sorted_last", func(*slog.Logger) Adapter { return nil })
	Register("aa_sorted_first", func(*slog.Logger) Adapter { return nil })

	names := ListAdapters()
	assert.IsIncreasing(t, names)
}

func TestNewAdapter(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "adapter type not specified", err.Error())

	_, err = NewAdapter(Config{Type: "nope"}, nil)
	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Type)
}

func TestNewAdapter_MixedCaseTypeAndNilLogger(t *testing.T) {
	Register("mixed_case_stub", func(l *slog.Logger) Adapter { return &stubAdapter{logger: l} })

	a, err := NewAdapter(Config{Type: "Mixed_Case_Stub"}, nil)
	require.NoError(t, err)
	stub, ok := a.(*stubAdapter)
	require.True(t, ok)
	assert.NotNil(t, stub.logger)
}
