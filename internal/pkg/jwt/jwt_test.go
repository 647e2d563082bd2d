package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	k, err := NewKeyring("s3cret")
	require.NoError(t, err)

	tok, err := k.Issue("ops@example.com", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := k.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "ops@example.com", claims.Subject)
}

func TestParseRejects(t *testing.T) {
	k, err := NewKeyring("s3cret")
	require.NoError(t, err)
	other, err := NewKeyring("different")
	require.NoError(t, err)

	foreign, err := other.Issue("x", RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = k.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := k.Issue("x", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = k.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, Claims{Role: RoleAdmin}).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = k.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = k.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewKeyringRequiresSecret(t *testing.T) {
	_, err := NewKeyring("")
	assert.Error(t, err)
}
