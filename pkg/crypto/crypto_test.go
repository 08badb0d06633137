package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	encrypted, err := Encrypt("hunter2", "passphrase")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", encrypted)

	decrypted, err := Decrypt(encrypted, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", decrypted)
}

func TestEncryptProducesDistinctCiphertexts(t *testing.T) {
	a, err := Encrypt("same input", "key")
	require.NoError(t, err)
	b, err := Encrypt("same input", "key")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonce must randomize ciphertext")
}

func TestDecryptWrongPassphrase(t *testing.T) {
	encrypted, err := Encrypt("secret", "right")
	require.NoError(t, err)

	_, err = Decrypt(encrypted, "wrong")
	assert.Error(t, err)
}

func TestDecryptGarbage(t *testing.T) {
	_, err := Decrypt("not base64 at all!!!", "key")
	assert.Error(t, err)
}
