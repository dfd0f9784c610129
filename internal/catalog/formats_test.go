package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter(t *testing.T) {
	tests := []struct {
		spec string
		in   any
		want any
	}{
		{"upper", "abc", "ABC"},
		{"lower", "ÀBC", "àbc"},
		{"title", "hello world", "Hello World"},
		{"number", 3.14159, "3"},
		{"number:2", "3.14159", "3.14"},
		{"number:2", "n/a", "n/a"},
		{"date", "2024-03-05T10:00:00Z", "2024-03-05"},
		{"date:02/01/2006", "2024-03-05", "05/03/2024"},
		{"date:2006", time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), "2021"},
		{"date", "not a date", "not a date"},
		{"truncate:5", "abcdefgh", "abcde..."},
		{"truncate:5", "abc", "abc"},
		{"yesno", true, "Yes"},
		{"yesno", 0, "No"},
		{"yesno", "maybe", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			fn, err := formatter(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fn(tt.in, nil))
		})
	}
}

func TestFormatter_Invalid(t *testing.T) {
	for _, spec := range []string{"sparkle", "number:x", "number:-1", "truncate", "truncate:0"} {
		t.Run(spec, func(t *testing.T) {
			_, err := formatter(spec)
			assert.Error(t, err)
		})
	}
}
