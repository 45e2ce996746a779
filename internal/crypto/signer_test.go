package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Throwaway key used only in tests.
const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestAttestVerifyRoundTrip(t *testing.T) {
	signer, err := NewSigner(testKeyHex)
	require.NoError(t, err)
	require.NotEmpty(t, signer.Address())

	sig, err := signer.Attest("order-1", "tx-1", 150.25)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	ok, err := Verify(signer.Address(), sig, "order-1", "tx-1", 150.25)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedReceipt(t *testing.T) {
	signer, err := NewSigner(testKeyHex)
	require.NoError(t, err)

	sig, err := signer.Attest("order-1", "tx-1", 150.25)
	require.NoError(t, err)

	ok, err := Verify(signer.Address(), sig, "order-1", "tx-1", 150.26)
	require.NoError(t, err)
	assert.False(t, ok, "a changed price must invalidate the attestation")

	ok, err = Verify(signer.Address(), sig, "order-2", "tx-1", 150.25)
	require.NoError(t, err)
	assert.False(t, ok, "a changed order id must invalidate the attestation")
}

func TestNewSignerAcceptsHexPrefix(t *testing.T) {
	a, err := NewSigner(testKeyHex)
	require.NoError(t, err)
	b, err := NewSigner("0x" + testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, a.Address(), b.Address())
}

func TestNewSignerRejectsGarbage(t *testing.T) {
	_, err := NewSigner("not-a-key")
	assert.Error(t, err)
}

func TestEncryptDecryptKeyRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	_, err = DecryptKey(blob, "wrong-password")
	assert.Error(t, err)
}

func TestLoadKeyPrefersRawKey(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: testKeyHex})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestLoadKeyFromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}
