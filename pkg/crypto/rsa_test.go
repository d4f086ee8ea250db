package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	require.NoError(t, err, "Failed to generate key pair")

	assert.NotNil(t, keyPair.PrivateKey)
	assert.NotNil(t, keyPair.PublicKey)
	assert.Equal(t, KeyPairBitSize, keyPair.PrivateKey.N.BitLen(), "Key size should match the protocol-fixed modulus")
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	require.NoError(t, err, "Failed to generate key pair")

	der := keyPair.ExportPrivateKey()
	assert.NotEmpty(t, der)

	imported, err := ImportPrivateKey(der)
	require.NoError(t, err, "Failed to import exported private key")

	assert.Equal(t, 0, keyPair.PrivateKey.N.Cmp(imported.PrivateKey.N), "Modulus should match after round-trip")
	assert.Equal(t, keyPair.PrivateKey.E, imported.PrivateKey.E, "Exponent should match after round-trip")
	assert.Equal(t, 0, keyPair.PrivateKey.D.Cmp(imported.PrivateKey.D), "Private exponent should match after round-trip")
}

func TestImportPrivateKeyRejectsGarbage(t *testing.T) {
	_, err := ImportPrivateKey([]byte("not a DER key"))
	require.Error(t, err, "Garbage should not parse as a private key")
}

func TestExportPublicKeyEncoding(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	require.NoError(t, err, "Failed to generate key pair")

	der, err := keyPair.ExportPublicKey()
	require.NoError(t, err, "Failed to export public key")

	// The wire format reserves exactly 160 bytes for the key.
	assert.Len(t, der, PublicKeySize)
	assert.Equal(t, byte(0x30), der[0], "Encoding should open with an ASN.1 SEQUENCE tag")

	parsed, err := ParsePublicKey(der)
	require.NoError(t, err, "Exported key should parse back")
	assert.Equal(t, 0, keyPair.PublicKey.N.Cmp(parsed.N), "Modulus should survive the round-trip")
}

func TestOAEPRoundTrip(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	require.NoError(t, err, "Failed to generate key pair")

	publicDER, err := keyPair.ExportPublicKey()
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"Session key sized", bytes.Repeat([]byte{0x5A}, SessionKeySize)},
		{"Single byte", []byte{0x01}},
		{"Max OAEP payload", make([]byte, EncryptedKeySize-2*20-2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := EncryptWithPublicKey(publicDER, tt.plaintext)
			require.NoError(t, err, "Encrypt failed")
			assert.Len(t, ciphertext, EncryptedKeySize, "Ciphertext should always be one modulus wide")

			recovered, err := keyPair.Decrypt(ciphertext)
			require.NoError(t, err, "Decrypt failed")
			assert.Equal(t, tt.plaintext, recovered)
		})
	}
}

func TestOAEPRejectsOversizedPlaintext(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	require.NoError(t, err)
	publicDER, err := keyPair.ExportPublicKey()
	require.NoError(t, err)

	_, err = EncryptWithPublicKey(publicDER, make([]byte, EncryptedKeySize-2*20-1))
	require.Error(t, err, "Plaintext beyond the OAEP bound should be rejected")
}

func TestDecryptRejectsForeignCiphertext(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	require.NoError(t, err)
	other, err := GenerateKeyPair()
	require.NoError(t, err)

	otherDER, err := other.ExportPublicKey()
	require.NoError(t, err)
	ciphertext, err := EncryptWithPublicKey(otherDER, []byte("for someone else"))
	require.NoError(t, err)

	_, err = keyPair.Decrypt(ciphertext)
	require.Error(t, err, "Ciphertext under a different key should fail to decrypt")
}
