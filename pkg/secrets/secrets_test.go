package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("unit-test-secret")
	require.NoError(t, err)

	plain := []byte(`{"api_key":"abc123","api_secret":"shh"}`)
	enc, err := c.Encrypt(plain)
	require.NoError(t, err)
	assert.NotEqual(t, string(plain), enc)

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, plain, dec)
}

func TestCipherRejectsEmptySecret(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c, err := NewCipher("unit-test-secret")
	require.NoError(t, err)

	_, err = c.Decrypt("not-base64!!")
	assert.Error(t, err)

	_, err = c.Decrypt("YWJj") // valid base64, shorter than a nonce
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestDecryptWrongKey(t *testing.T) {
	a, _ := NewCipher("key-a")
	b, _ := NewCipher("key-b")

	enc, err := a.Encrypt([]byte("credentials"))
	require.NoError(t, err)

	_, err = b.Decrypt(enc)
	assert.Error(t, err)
}
