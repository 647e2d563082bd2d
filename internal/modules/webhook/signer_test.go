package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	// Well-known HMAC-SHA256 vector.
	got := Sign("key", []byte("The quick brown fox jumps over the lazy dog"))
	assert.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", got)

	assert.Equal(t, Sign("s", []byte("{}")), Sign("s", []byte("{}")))
	assert.NotEqual(t, Sign("s1", []byte("{}")), Sign("s2", []byte("{}")))
	assert.NotEqual(t, Sign("s", []byte("{}")), Sign("s", []byte("{ }")))
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"event":"lead.created"}`)
	sig := Sign("secret", payload)

	assert.True(t, Verify("secret", payload, sig))
	assert.False(t, Verify("other", payload, sig))
	assert.False(t, Verify("secret", []byte(`{"event":"lead.updated"}`), sig))
	assert.False(t, Verify("secret", payload, "not-hex"))
	assert.False(t, Verify("secret", payload, ""))
}

func TestNewSecret(t *testing.T) {
	a, err := newSecret()
	require.NoError(t, err)
	b, err := newSecret()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", a)
	assert.NotEqual(t, a, b)
}
