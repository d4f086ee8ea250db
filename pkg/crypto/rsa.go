package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
)

const (
	// KeyPairBitSize is the modulus size of the long-term client key pair.
	// The protocol fixes it at 1024 bits so that the exported public key is
	// exactly PublicKeySize bytes and ciphertexts are EncryptedKeySize bytes.
	KeyPairBitSize = 1024

	// PublicKeySize is the length of the exported subject-public-key-info
	// encoding for a 1024-bit key. The server reads exactly this many bytes
	// out of the key-exchange payload.
	PublicKeySize = 160

	// EncryptedKeySize is the RSA ciphertext length for a 1024-bit modulus.
	EncryptedKeySize = 128
)

// KeyPair holds the long-term RSA key pair of the client.
type KeyPair struct {
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

// oidRSAEncryption is the PKCS#1 rsaEncryption algorithm identifier.
var oidRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}

// bareAlgorithmIdentifier is an AlgorithmIdentifier without the NULL
// parameters field. The server-side key parser was written against this
// 160-byte form, so the standard x509.MarshalPKIXPublicKey output (which
// carries an explicit NULL and is two bytes longer) cannot be used here.
type bareAlgorithmIdentifier struct {
	Algorithm asn1.ObjectIdentifier
}

type subjectPublicKeyInfo struct {
	Algorithm bareAlgorithmIdentifier
	PublicKey asn1.BitString
}

// anyPublicKeyInfo tolerates both parameter forms on import.
type anyPublicKeyInfo struct {
	Algorithm asn1.RawValue
	PublicKey asn1.BitString
}

// GenerateKeyPair generates a fresh 1024-bit RSA key pair from the operating
// system CSPRNG.
func GenerateKeyPair() (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, KeyPairBitSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	return &KeyPair{
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// ImportPrivateKey parses a PKCS#1 DER private key, the form ExportPrivateKey
// produces and me.info stores (base-64 encoded).
func ImportPrivateKey(der []byte) (*KeyPair, error) {
	privateKey, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	if privateKey.N.BitLen() != KeyPairBitSize {
		return nil, fmt.Errorf("stored key is %d bits, expected %d", privateKey.N.BitLen(), KeyPairBitSize)
	}

	return &KeyPair{
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// ExportPrivateKey serializes the private key as PKCS#1 DER.
func (kp *KeyPair) ExportPrivateKey() []byte {
	return x509.MarshalPKCS1PrivateKey(kp.PrivateKey)
}

// ExportPublicKey produces the 160-byte subject-public-key-info encoding the
// key-exchange payload carries.
func (kp *KeyPair) ExportPublicKey() ([]byte, error) {
	pkcs1 := x509.MarshalPKCS1PublicKey(kp.PublicKey)
	der, err := asn1.Marshal(subjectPublicKeyInfo{
		Algorithm: bareAlgorithmIdentifier{Algorithm: oidRSAEncryption},
		PublicKey: asn1.BitString{Bytes: pkcs1, BitLength: len(pkcs1) * 8},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	if len(der) != PublicKeySize {
		return nil, fmt.Errorf("public key encoding is %d bytes, expected %d", len(der), PublicKeySize)
	}
	return der, nil
}

// ParsePublicKey parses a subject-public-key-info encoding, with or without
// the NULL algorithm parameters.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	var info anyPublicKeyInfo
	rest, err := asn1.Unmarshal(der, &info)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing data after public key encoding")
	}

	publicKey, err := x509.ParsePKCS1PublicKey(info.PublicKey.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return publicKey, nil
}

// EncryptWithPublicKey encrypts plaintext under an exported public key with
// RSA-OAEP (SHA-1). The client itself only decrypts; this is the operation
// the server performs on the session key, kept here for tests and tooling.
func EncryptWithPublicKey(der []byte, plaintext []byte) ([]byte, error) {
	publicKey, err := ParsePublicKey(der)
	if err != nil {
		return nil, err
	}

	ciphertext, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, publicKey, plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("RSA encryption failed: %w", err)
	}
	return ciphertext, nil
}

// Decrypt recovers an RSA-OAEP (SHA-1) ciphertext with the private key.
func (kp *KeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	plaintext, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, kp.PrivateKey, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("RSA decryption failed: %w", err)
	}
	return plaintext, nil
}
