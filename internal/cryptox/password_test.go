package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fastArgon = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newArgon(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(Argon2id, WithArgon2Params(fastArgon))
	require.NoError(t, err)
	return h
}

func newBcrypt(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(Bcrypt, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return h
}

func TestHashVerify_RoundTrip(t *testing.T) {
	for name, h := range map[string]*PasswordHasher{"argon2id": newArgon(t), "bcrypt": newBcrypt(t)} {
		t.Run(name, func(t *testing.T) {
			encoded, err := h.Hash("secret1")
			require.NoError(t, err)
			assert.NotContains(t, encoded, "secret1")

			assert.True(t, h.Verify("secret1", encoded))
			assert.False(t, h.Verify("secret2", encoded))
			assert.False(t, h.Verify("", encoded))
		})
	}
}

func TestHash_SaltIsPerCall(t *testing.T) {
	h := newArgon(t)

	a, err := h.Hash("secret1")
	require.NoError(t, err)
	b, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "$argon2id$v=19$m=1024,t=1,p=1$"))
}

func TestHash_EmptySecret(t *testing.T) {
	_, err := newArgon(t).Hash("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestVerify_CrossAlgorithm(t *testing.T) {
	argon, bc := newArgon(t), newBcrypt(t)

	fromBcrypt, err := bc.Hash("secret1")
	require.NoError(t, err)
	fromArgon, err := argon.Hash("secret1")
	require.NoError(t, err)

	assert.True(t, argon.Verify("secret1", fromBcrypt))
	assert.True(t, bc.Verify("secret1", fromArgon))
}

func TestVerify_MalformedFailsClosed(t *testing.T) {
	h := newArgon(t)

	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2id$",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$!!!",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=99999999,t=1,p=1$c2FsdA$a2V5",
		"$2a$10$short",
	} {
		assert.False(t, h.Verify("secret1", encoded), encoded)
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newArgon(t)
	weakHash, err := weak.Hash("secret1")
	require.NoError(t, err)

	strong, err := NewPasswordHasher(Argon2id, WithArgon2Params(Argon2Params{
		Memory: 2048, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	}))
	require.NoError(t, err)

	assert.True(t, strong.NeedsRehash(weakHash))
	assert.False(t, weak.NeedsRehash(weakHash))

	bc := newBcrypt(t)
	assert.True(t, bc.NeedsRehash(weakHash))
	bcHash, err := bc.Hash("secret1")
	require.NoError(t, err)
	assert.False(t, bc.NeedsRehash(bcHash))
	assert.True(t, weak.NeedsRehash(bcHash))
}

func TestNewPasswordHasher_Validation(t *testing.T) {
	_, err := NewPasswordHasher("md5")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, err = NewPasswordHasher(Bcrypt, WithBcryptCost(99))
	assert.Error(t, err)
}
