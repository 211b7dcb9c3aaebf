package hsm

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glinharesb/rsasign/internal/crypto"
	"github.com/glinharesb/rsasign/internal/keystore"
)

// SoftwareHSM is an in-process key store for development and testing.
// Private keys are held only in sealed form and are opened for the duration
// of a single signature.
type SoftwareHSM struct {
	store keystore.Store
	wrap  *crypto.Wrapper

	mu     sync.RWMutex
	locked bool
}

func NewSoftwareHSM() (*SoftwareHSM, error) {
	w, err := crypto.NewRandomWrapper()
	if err != nil {
		return nil, fmt.Errorf("software hsm: %w", err)
	}
	return &SoftwareHSM{
		store: keystore.NewMemoryStore(),
		wrap:  w,
	}, nil
}

func (s *SoftwareHSM) GenerateKeyPair(spec KeyPairSpec) (KeyPair, error) {
	if err := spec.Validate(); err != nil {
		return KeyPair{}, err
	}
	if spec.Persistent {
		return KeyPair{}, fmt.Errorf("%w: persistent keys", ErrNotSupported)
	}

	key, err := crypto.GenerateRSAKey(spec.Bits)
	if err != nil {
		return KeyPair{}, err
	}
	der, err := crypto.MarshalPrivateKey(key)
	if err != nil {
		return KeyPair{}, err
	}
	defer clear(der)

	pairID := uuid.NewString()
	privID := uuid.NewString()
	pubID := uuid.NewString()

	sealed, err := s.wrap.Seal(der, []byte(privID))
	if err != nil {
		return KeyPair{}, fmt.Errorf("seal private key: %w", err)
	}

	now := time.Now()
	labels := map[string]string{"accessible": spec.Accessibility.String()}
	priv := &keystore.KeyEntry{
		ID:        privID,
		PairID:    pairID,
		Tag:       spec.PrivateTag,
		Class:     keystore.ClassPrivate,
		Algorithm: keystore.AlgorithmRSA,
		Bits:      spec.Bits,
		Sealed:    sealed,
		CreatedAt: now,
		Labels:    labels,
	}
	pub := &keystore.KeyEntry{
		ID:        pubID,
		PairID:    pairID,
		Tag:       spec.PublicTag,
		Class:     keystore.ClassPublic,
		Algorithm: keystore.AlgorithmRSA,
		Bits:      spec.Bits,
		PublicKey: &key.PublicKey,
		CreatedAt: now,
		Labels:    labels,
	}

	if err := s.store.Put(priv); err != nil {
		return KeyPair{}, storeErr("private", err)
	}
	if err := s.store.Put(pub); err != nil {
		_ = s.store.Delete(privID)
		return KeyPair{}, storeErr("public", err)
	}

	slog.Debug("software hsm generated key pair", "pair", pairID, "bits", spec.Bits)
	return KeyPair{Private: Handle(privID), Public: Handle(pubID)}, nil
}

func (s *SoftwareHSM) ExportPublicKey(pub Handle) ([]byte, error) {
	entry, err := s.lookup(pub, keystore.ClassPublic)
	if err != nil {
		return nil, err
	}
	return crypto.MarshalPublicKey(entry.PublicKey)
}

func (s *SoftwareHSM) Sign(priv Handle, digest []byte, alg Algorithm) ([]byte, error) {
	if alg != AlgorithmRSAPKCS1v15SHA256 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAlgorithm, alg)
	}
	if s.Locked() {
		return nil, ErrLocked
	}

	entry, err := s.lookup(priv, keystore.ClassPrivate)
	if err != nil {
		return nil, err
	}

	der, err := s.wrap.Open(entry.Sealed, []byte(entry.ID))
	if err != nil {
		return nil, fmt.Errorf("unseal private key: %w", err)
	}
	key, err := crypto.UnmarshalPrivateKey(der)
	clear(der)
	if err != nil {
		return nil, err
	}
	return crypto.SignPKCS1v15Digest(key, digest)
}

func (s *SoftwareHSM) Verify(pub Handle, digest, signature []byte, alg Algorithm) (bool, error) {
	if alg != AlgorithmRSAPKCS1v15SHA256 {
		return false, fmt.Errorf("%w: %s", ErrInvalidAlgorithm, alg)
	}
	entry, err := s.lookup(pub, keystore.ClassPublic)
	if err != nil {
		return false, err
	}
	return crypto.VerifyPKCS1v15Digest(entry.PublicKey, digest, signature), nil
}

func (s *SoftwareHSM) AlgorithmSupported(h Handle, op Operation, alg Algorithm) bool {
	if alg != AlgorithmRSAPKCS1v15SHA256 {
		return false
	}
	switch op {
	case OperationSign:
		if s.Locked() {
			return false
		}
		_, err := s.lookup(h, keystore.ClassPrivate)
		return err == nil
	case OperationVerify:
		_, err := s.lookup(h, keystore.ClassPublic)
		return err == nil
	default:
		return false
	}
}

// DeleteKeyPair erases both halves. It returns ErrKeyNotFound only when
// neither half was present.
func (s *SoftwareHSM) DeleteKeyPair(kp KeyPair) error {
	missing := 0
	for _, h := range []Handle{kp.Private, kp.Public} {
		err := s.store.Delete(string(h))
		switch {
		case errors.Is(err, keystore.ErrKeyNotFound):
			missing++
		case err != nil:
			return fmt.Errorf("delete key %s: %w", h, err)
		}
	}
	if missing == 2 {
		return ErrKeyNotFound
	}
	slog.Debug("software hsm deleted key pair", "private", kp.Private)
	return nil
}

// Lock makes private keys unusable until Unlock is called.
func (s *SoftwareHSM) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = true
}

func (s *SoftwareHSM) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
}

func (s *SoftwareHSM) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

func (s *SoftwareHSM) Available() bool { return true }

// Count returns the number of key halves currently retained.
func (s *SoftwareHSM) Count() int {
	entries, _ := s.store.List(0)
	return len(entries)
}

// Close erases every retained key.
func (s *SoftwareHSM) Close() error {
	entries, err := s.store.List(0)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.store.Delete(e.ID); err != nil && !errors.Is(err, keystore.ErrKeyNotFound) {
			return err
		}
	}
	return nil
}

func storeErr(half string, err error) error {
	if errors.Is(err, keystore.ErrKeyAlreadyExists) {
		return fmt.Errorf("%w: %v", ErrKeyExists, err)
	}
	return fmt.Errorf("store %s key: %w", half, err)
}

func (s *SoftwareHSM) lookup(h Handle, class keystore.KeyClass) (*keystore.KeyEntry, error) {
	if h.IsZero() {
		return nil, ErrKeyNotFound
	}
	entry, err := s.store.Get(string(h))
	if errors.Is(err, keystore.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, h)
	}
	if err != nil {
		return nil, err
	}
	if entry.Class != class {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongKeyClass, h, entry.Class)
	}
	return entry, nil
}
