package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s, err := NewSigner([]byte("secret"), 0)
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	token, err := s.Sign("job-1", "exports/a.csv")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		claims, err := s.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "job-1", claims.Subject)
		assert.Equal(t, "exports/a.csv", claims.Key)
		assert.True(t, claims.ExpiresAt.Time.Equal(now.Add(DefaultLinkExpiry)))
	})

	t.Run("expired", func(t *testing.T) {
		later := *s
		later.now = func() time.Time { return now.Add(61 * time.Minute) }
		_, err := later.Verify(token)
		assert.ErrorIs(t, err, ErrLinkExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewSigner([]byte("other"), time.Hour)
		require.NoError(t, err)
		other.now = s.now
		_, err = other.Verify(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Verify("not-a-token")
		assert.Error(t, err)
	})
}

func TestNewSigner_RequiresSecret(t *testing.T) {
	_, err := NewSigner(nil, time.Minute)
	assert.Error(t, err)
}
