package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerify(t *testing.T) {
	t.Parallel()

	digest, err := Hash("secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, digest)
	assert.NotContains(t, digest, "secret1")

	assert.True(t, Verify("secret1", digest))
	assert.False(t, Verify("secret2", digest))
}

func TestHashSaltsEveryCall(t *testing.T) {
	t.Parallel()

	first, err := Hash("same password")
	require.NoError(t, err)
	second, err := Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, Verify("same password", first))
	assert.True(t, Verify("same password", second))
}

func TestVerifyFailsClosed(t *testing.T) {
	t.Parallel()

	// A malformed digest must verify false, never panic or pass.
	assert.False(t, Verify("anything", ""))
	assert.False(t, Verify("anything", "not-a-bcrypt-digest"))
	assert.False(t, Verify("anything", "$2a$10$tooshort"))
}
