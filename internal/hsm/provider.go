package hsm

import (
	"errors"
	"fmt"
)

// Handle is an opaque reference to one half of a key pair held by a
// Provider. Callers never see the key material behind it.
type Handle string

func (h Handle) IsZero() bool { return h == "" }

// KeyPair references the private and public halves of one generated pair.
type KeyPair struct {
	Private Handle
	Public  Handle
}

func (k KeyPair) IsZero() bool { return k.Private.IsZero() && k.Public.IsZero() }

// KeyType is the asymmetric algorithm family of a key pair.
type KeyType int

const (
	KeyTypeRSA KeyType = iota + 1
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeRSA:
		return "RSA"
	default:
		return "UNKNOWN"
	}
}

// Operation is a key usage checked by AlgorithmSupported.
type Operation int

const (
	OperationSign Operation = iota + 1
	OperationVerify
)

func (o Operation) String() string {
	switch o {
	case OperationSign:
		return "sign"
	case OperationVerify:
		return "verify"
	default:
		return "unknown"
	}
}

// Algorithm names a signature scheme as the key store understands it.
type Algorithm string

// AlgorithmRSAPKCS1v15SHA256 signs a precomputed SHA-256 digest with
// deterministic PKCS#1 v1.5 padding.
const AlgorithmRSAPKCS1v15SHA256 Algorithm = "rsa-signature-digest-pkcs1v15-sha256"

// Accessibility restricts when the key store lets a key be used.
type Accessibility int

const (
	AccessibleWhenUnlockedThisDeviceOnly Accessibility = iota + 1
	AccessibleAlways
)

func (a Accessibility) String() string {
	switch a {
	case AccessibleWhenUnlockedThisDeviceOnly:
		return "when-unlocked-this-device-only"
	case AccessibleAlways:
		return "always"
	default:
		return "unknown"
	}
}

// KeyPairSpec describes a key pair to generate.
type KeyPairSpec struct {
	Type          KeyType
	Bits          int
	PrivateTag    string
	PublicTag     string
	Persistent    bool
	Accessibility Accessibility
}

// Validate checks that the spec names an RSA pair of at least 2048 bits with
// two distinct tags.
func (s KeyPairSpec) Validate() error {
	if s.Type != KeyTypeRSA {
		return fmt.Errorf("%w: key type %s", ErrInvalidAlgorithm, s.Type)
	}
	if s.Bits < 2048 {
		return fmt.Errorf("%w: %d-bit modulus", ErrInvalidAlgorithm, s.Bits)
	}
	if s.PrivateTag == "" || s.PublicTag == "" {
		return fmt.Errorf("%w: private and public tags are required", ErrInvalidSpec)
	}
	if s.PrivateTag == s.PublicTag {
		return fmt.Errorf("%w: private and public tags must differ", ErrInvalidSpec)
	}
	return nil
}

// Provider abstracts the secure key store. Implementations generate and
// retain key material and perform every private-key operation themselves.
type Provider interface {
	GenerateKeyPair(spec KeyPairSpec) (KeyPair, error)
	ExportPublicKey(pub Handle) ([]byte, error)
	Sign(priv Handle, digest []byte, alg Algorithm) ([]byte, error)
	Verify(pub Handle, digest, signature []byte, alg Algorithm) (bool, error)
	AlgorithmSupported(h Handle, op Operation, alg Algorithm) bool
	DeleteKeyPair(kp KeyPair) error
}

// Availability is implemented by providers that can tell whether the
// platform currently supports them.
type Availability interface {
	Available() bool
}

// Backend is a Provider with a lifecycle, as returned by Open.
type Backend interface {
	Provider
	Availability
	Close() error
}

var (
	ErrKeyNotFound      = errors.New("hsm: key not found")
	ErrKeyExists        = errors.New("hsm: a key with this tag already exists")
	ErrWrongKeyClass    = errors.New("hsm: handle refers to the wrong half of the key pair")
	ErrInvalidAlgorithm = errors.New("hsm: invalid algorithm")
	ErrInvalidSpec      = errors.New("hsm: invalid key pair spec")
	ErrNotSupported     = errors.New("hsm: operation not supported")
	ErrLocked           = errors.New("hsm: key store is locked")
	ErrNotInitialized   = errors.New("hsm: backend not initialized")
)
