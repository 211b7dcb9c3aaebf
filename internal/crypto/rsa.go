package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
)

// ErrNotRSAKey is returned when DER input decodes to a non-RSA key.
var ErrNotRSAKey = errors.New("not an RSA key")

var rsaGenerateKey = rsa.GenerateKey

// GenerateRSAKey creates a new RSA key pair with the given modulus size.
func GenerateRSAKey(bits int) (*rsa.PrivateKey, error) {
	key, err := rsaGenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return key, nil
}

// SignPKCS1v15Digest signs a precomputed SHA-256 digest with PKCS#1 v1.5 padding.
// The signature is deterministic for a given key and digest.
func SignPKCS1v15Digest(key *rsa.PrivateKey, digest []byte) ([]byte, error) {
	if len(digest) != DigestSize {
		return nil, fmt.Errorf("rsa sign: digest length %d, want %d", len(digest), DigestSize)
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest)
	if err != nil {
		return nil, fmt.Errorf("rsa sign: %w", err)
	}
	return sig, nil
}

// VerifyPKCS1v15Digest reports whether signature is a valid PKCS#1 v1.5
// signature over the SHA-256 digest.
func VerifyPKCS1v15Digest(pub *rsa.PublicKey, digest, signature []byte) bool {
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest, signature) == nil
}

// MarshalPublicKey encodes an RSA public key as a PKCS#1 RSAPublicKey DER
// structure. For a 2048-bit modulus with e=65537 this is 270 bytes.
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	if pub == nil || pub.N == nil {
		return nil, fmt.Errorf("marshal public key: %w", ErrNotRSAKey)
	}
	return x509.MarshalPKCS1PublicKey(pub), nil
}

// ParsePublicKey decodes a PKCS#1 RSAPublicKey DER structure.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return pub, nil
}

// MarshalPrivateKey encodes an RSA private key in PKCS8 DER format.
func MarshalPrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return der, nil
}

// UnmarshalPrivateKey decodes a PKCS8 DER-encoded RSA private key.
func UnmarshalPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("parse private key: %w", ErrNotRSAKey)
	}
	return rsaKey, nil
}
