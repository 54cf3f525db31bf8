// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package statefile

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

const plainState = `{"version":4,"serial":12,"lineage":"f00dfeed","resources":[]}`

func TestIsEncrypted(t *testing.T) {
	assert.False(t, IsEncrypted([]byte(plainState)))
	assert.True(t, IsEncrypted([]byte(`{"meta":{},"encrypted_data":"abc"}`)))
}

func TestSerialAndLineage(t *testing.T) {
	assert.Equal(t, int64(12), Serial([]byte(plainState)))
	assert.Equal(t, "f00dfeed", Lineage([]byte(plainState)))

	assert.Equal(t, int64(0), Serial([]byte(`{}`)))
	assert.Empty(t, Lineage([]byte(`{}`)))
}

// buildEncryptedState constructs an encrypted state envelope the way OpenTofu
// does: pbkdf2/sha512 key derivation and AES-GCM with the nonce prepended.
func buildEncryptedState(t *testing.T, passphrase string, plaintext []byte, iterations int) []byte {
	t.Helper()

	salt := make([]byte, 16)
	_, err := rand.Read(salt)
	require.NoError(t, err)

	kpConfig, err := json.Marshal(map[string]any{
		"salt":          base64.StdEncoding.EncodeToString(salt),
		"iterations":    iterations,
		"hash_function": "sha512",
		"key_length":    32,
	})
	require.NoError(t, err)

	key := pbkdf2.Key([]byte(passphrase), salt, iterations, 32, sha512.New)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	aesGCM, err := cipher.NewGCM(block)
	require.NoError(t, err)

	nonce := make([]byte, aesGCM.NonceSize())
	_, err = rand.Read(nonce)
	require.NoError(t, err)
	sealed := aesGCM.Seal(nonce, nonce, plaintext, nil)

	envelope, err := json.Marshal(map[string]any{
		"meta": map[string]string{
			"key_provider.pbkdf2.mykey": base64.StdEncoding.EncodeToString(kpConfig),
		},
		"encrypted_data": base64.StdEncoding.EncodeToString(sealed),
	})
	require.NoError(t, err)

	return envelope
}

func TestDecryptRoundTrip(t *testing.T) {
	envelope := buildEncryptedState(t, "hunter2", []byte(plainState), 100)
	require.True(t, IsEncrypted(envelope))

	decrypted, err := Decrypt(envelope, "hunter2")
	require.NoError(t, err)
	assert.JSONEq(t, plainState, string(decrypted))
}

func TestDecryptWrongPassphrase(t *testing.T) {
	envelope := buildEncryptedState(t, "hunter2", []byte(plainState), 100)

	_, err := Decrypt(envelope, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt")
}

func TestDecryptGarbage(t *testing.T) {
	_, err := Decrypt([]byte("not json"), "x")
	assert.Error(t, err)

	_, err = Decrypt([]byte(`{"meta":{"key_provider.pbkdf2.mykey":"!!!"},"encrypted_data":"x"}`), "x")
	assert.Error(t, err)
}
