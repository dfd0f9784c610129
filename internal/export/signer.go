package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultLinkExpiry is how long a download link stays valid.
const DefaultLinkExpiry = 60 * time.Minute

// ErrLinkExpired is returned for a download token past its expiry.
var ErrLinkExpired = errors.New("download link has expired")

// LinkClaims identifies one export artifact.
type LinkClaims struct {
	jwt.RegisteredClaims
	Key string `json:"key"`
}

// Signer issues and verifies time-limited download tokens.
type Signer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. expiry <= 0 uses DefaultLinkExpiry.
func NewSigner(secret []byte, expiry time.Duration) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("no signing key configured")
	}
	if expiry <= 0 {
		expiry = DefaultLinkExpiry
	}
	return &Signer{secret: secret, expiry: expiry, now: time.Now}, nil
}

// Sign returns a token for the artifact stored under key.
func (s *Signer) Sign(jobID, key string) (string, error) {
	now := s.now().UTC()
	claims := &LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   jobID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		Key: key,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses token and returns its claims.
func (s *Signer) Verify(token string) (*LinkClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &LinkClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrLinkExpired
	}
	if err != nil {
		return nil, fmt.Errorf("invalid download token: %w", err)
	}
	claims, ok := parsed.Claims.(*LinkClaims)
	if !ok || !parsed.Valid || claims.Key == "" {
		return nil, errors.New("invalid download token")
	}
	return claims, nil
}
