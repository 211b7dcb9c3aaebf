package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const wrapKeySize = 32

var wrapInfo = []byte("rsasign-key-wrap")

// ErrCiphertextTooShort is returned when sealed input is shorter than a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Wrapper seals key material with AES-256-GCM under a key derived from root
// material via HKDF-SHA256. Sealed output is [nonce | ciphertext | tag].
type Wrapper struct {
	aead cipher.AEAD
}

// NewWrapper derives the wrapping key from root. root must not be empty.
func NewWrapper(root []byte) (*Wrapper, error) {
	if len(root) == 0 {
		return nil, errors.New("wrapper: empty root key material")
	}

	key := make([]byte, wrapKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, root, nil, wrapInfo), key); err != nil {
		return nil, fmt.Errorf("hkdf derive: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("aes gcm: %w", err)
	}
	return &Wrapper{aead: aead}, nil
}

// NewRandomWrapper creates a Wrapper from fresh random root material.
func NewRandomWrapper() (*Wrapper, error) {
	root := make([]byte, wrapKeySize)
	if _, err := rand.Read(root); err != nil {
		return nil, fmt.Errorf("generate root key: %w", err)
	}
	return NewWrapper(root)
}

// Seal encrypts plaintext. aad binds the ciphertext to its owner and must be
// supplied unchanged to Open.
func (w *Wrapper) Seal(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, w.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return w.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open decrypts output produced by Seal.
func (w *Wrapper) Open(sealed, aad []byte) ([]byte, error) {
	n := w.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrCiphertextTooShort
	}
	pt, err := w.aead.Open(nil, sealed[:n], sealed[n:], aad)
	if err != nil {
		return nil, fmt.Errorf("aes gcm open: %w", err)
	}
	return pt, nil
}
