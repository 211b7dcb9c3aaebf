//go:build pkcs11

package hsm

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThalesGroup/crypto11"
	"github.com/google/uuid"

	"github.com/glinharesb/rsasign/internal/crypto"
)

type p11Half struct {
	pairID string
	class  Operation
}

type p11Pair struct {
	signer     crypto11.Signer
	persistent bool
}

// PKCS11HSM keeps key pairs on a PKCS#11 token through crypto11. Private keys
// never leave the token; verification uses the token's public half in
// software.
type PKCS11HSM struct {
	config PKCS11Config

	mu     sync.RWMutex
	ctx    *crypto11.Context
	pairs  map[string]*p11Pair
	halves map[Handle]p11Half
}

// OpenPKCS11 configures a crypto11 context and logs into the token.
func OpenPKCS11(cfg PKCS11Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, err := crypto11.Configure(&crypto11.Config{
		Path:       cfg.Library,
		TokenLabel: cfg.TokenLabel,
		Pin:        cfg.PIN,
	})
	if err != nil {
		return nil, fmt.Errorf("configure pkcs11 context: %w", err)
	}
	slog.Debug("pkcs11 context configured", "library", cfg.Library, "token", cfg.TokenLabel)
	return &PKCS11HSM{
		config: cfg,
		ctx:    ctx,
		pairs:  make(map[string]*p11Pair),
		halves: make(map[Handle]p11Half),
	}, nil
}

func (p *PKCS11HSM) GenerateKeyPair(spec KeyPairSpec) (KeyPair, error) {
	if err := spec.Validate(); err != nil {
		return KeyPair{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return KeyPair{}, ErrNotInitialized
	}

	pairID := uuid.NewString()
	pubAttrs, err := crypto11.NewAttributeSetWithIDAndLabel([]byte(pairID), []byte(spec.PublicTag))
	if err != nil {
		return KeyPair{}, fmt.Errorf("public key attributes: %w", err)
	}
	privAttrs, err := crypto11.NewAttributeSetWithIDAndLabel([]byte(pairID), []byte(spec.PrivateTag))
	if err != nil {
		return KeyPair{}, fmt.Errorf("private key attributes: %w", err)
	}

	signer, err := p.ctx.GenerateRSAKeyPairWithAttributes(pubAttrs, privAttrs, spec.Bits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate rsa key pair: %w", err)
	}

	kp := KeyPair{
		Private: Handle(pairID + ".prv"),
		Public:  Handle(pairID + ".pub"),
	}
	p.pairs[pairID] = &p11Pair{signer: signer, persistent: spec.Persistent}
	p.halves[kp.Private] = p11Half{pairID: pairID, class: OperationSign}
	p.halves[kp.Public] = p11Half{pairID: pairID, class: OperationVerify}
	return kp, nil
}

func (p *PKCS11HSM) ExportPublicKey(pub Handle) ([]byte, error) {
	key, err := p.publicKey(pub)
	if err != nil {
		return nil, err
	}
	return crypto.MarshalPublicKey(key)
}

func (p *PKCS11HSM) Sign(priv Handle, digest []byte, alg Algorithm) ([]byte, error) {
	if alg != AlgorithmRSAPKCS1v15SHA256 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAlgorithm, alg)
	}
	pair, err := p.lookup(priv, OperationSign)
	if err != nil {
		return nil, err
	}
	sig, err := pair.signer.Sign(rand.Reader, digest, stdcrypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("pkcs11 sign: %w", err)
	}
	return sig, nil
}

func (p *PKCS11HSM) Verify(pub Handle, digest, signature []byte, alg Algorithm) (bool, error) {
	if alg != AlgorithmRSAPKCS1v15SHA256 {
		return false, fmt.Errorf("%w: %s", ErrInvalidAlgorithm, alg)
	}
	key, err := p.publicKey(pub)
	if err != nil {
		return false, err
	}
	return crypto.VerifyPKCS1v15Digest(key, digest, signature), nil
}

func (p *PKCS11HSM) AlgorithmSupported(h Handle, op Operation, alg Algorithm) bool {
	if alg != AlgorithmRSAPKCS1v15SHA256 {
		return false
	}
	pair, err := p.lookup(h, op)
	if err != nil {
		return false
	}
	_, ok := pair.signer.Public().(*rsa.PublicKey)
	return ok
}

// DeleteKeyPair destroys both token objects of the pair.
func (p *PKCS11HSM) DeleteKeyPair(kp KeyPair) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	half, ok := p.halves[kp.Private]
	if !ok {
		half, ok = p.halves[kp.Public]
	}
	if !ok {
		return ErrKeyNotFound
	}
	pair := p.pairs[half.pairID]
	if err := pair.signer.Delete(); err != nil {
		return fmt.Errorf("destroy key pair: %w", err)
	}
	delete(p.pairs, half.pairID)
	delete(p.halves, kp.Private)
	delete(p.halves, kp.Public)
	return nil
}

func (p *PKCS11HSM) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ctx != nil
}

// Close destroys non-persistent pairs still on the token and releases the
// context.
func (p *PKCS11HSM) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return nil
	}

	var errs []error
	for id, pair := range p.pairs {
		if pair.persistent {
			continue
		}
		if err := pair.signer.Delete(); err != nil {
			errs = append(errs, fmt.Errorf("destroy key pair %s: %w", id, err))
		}
	}
	errs = append(errs, p.ctx.Close())
	p.ctx = nil
	p.pairs = make(map[string]*p11Pair)
	p.halves = make(map[Handle]p11Half)
	return errors.Join(errs...)
}

func (p *PKCS11HSM) lookup(h Handle, op Operation) (*p11Pair, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ctx == nil {
		return nil, ErrNotInitialized
	}
	half, ok := p.halves[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, h)
	}
	if half.class != op {
		return nil, fmt.Errorf("%w: %s", ErrWrongKeyClass, h)
	}
	return p.pairs[half.pairID], nil
}

func (p *PKCS11HSM) publicKey(h Handle) (*rsa.PublicKey, error) {
	pair, err := p.lookup(h, OperationVerify)
	if err != nil {
		return nil, err
	}
	key, ok := pair.signer.Public().(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: token key is not RSA", ErrInvalidAlgorithm)
	}
	return key, nil
}
