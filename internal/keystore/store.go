package keystore

import (
	"crypto/rsa"
	"errors"
	"time"
)

var (
	ErrKeyNotFound      = errors.New("key not found")
	ErrKeyAlreadyExists = errors.New("key already exists")
)

// KeyClass distinguishes the halves of a key pair.
type KeyClass int

const (
	ClassPrivate KeyClass = iota + 1
	ClassPublic
)

func (c KeyClass) String() string {
	switch c {
	case ClassPrivate:
		return "PRIVATE"
	case ClassPublic:
		return "PUBLIC"
	default:
		return "UNKNOWN"
	}
}

// KeyAlgorithm represents the cryptographic algorithm for a key.
type KeyAlgorithm int

const (
	AlgorithmRSA KeyAlgorithm = iota + 1
)

func (a KeyAlgorithm) String() string {
	switch a {
	case AlgorithmRSA:
		return "RSA"
	default:
		return "UNKNOWN"
	}
}

// KeyEntry is one half of a key pair. Private entries carry only sealed
// PKCS#8 material; public entries carry the public key in the clear.
type KeyEntry struct {
	ID        string
	PairID    string
	Tag       string
	Class     KeyClass
	Algorithm KeyAlgorithm
	Bits      int
	Sealed    []byte
	PublicKey *rsa.PublicKey
	CreatedAt time.Time
	Labels    map[string]string
}

// Store defines the key storage interface.
type Store interface {
	Put(entry *KeyEntry) error
	Get(id string) (*KeyEntry, error)
	FindByTag(tag string) (*KeyEntry, error)
	List(filter KeyClass) ([]*KeyEntry, error)
	Delete(id string) error
}
