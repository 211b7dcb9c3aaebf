// Package rsasign manages a single RSA-2048 key pair held by a secure key
// store and signs with it using PKCS#1 v1.5 over SHA-256.
//
// Every operation returns a Result instead of an error. Each one has a
// blocking form and an Async form that delivers the same Result to a
// callback.
package rsasign

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/glinharesb/rsasign/internal/audit"
	"github.com/glinharesb/rsasign/internal/crypto"
	"github.com/glinharesb/rsasign/internal/hsm"
	"github.com/glinharesb/rsasign/internal/interceptor"
	"github.com/glinharesb/rsasign/internal/metrics"
)

// LibraryVersion is reported by Version.
const LibraryVersion = "1.0.0"

const (
	DefaultKeyAlias = "RSASIGN_KEY_ALIAS"

	keyBits            = 2048
	privateTagSuffix   = "_PRV"
	publicTagSuffix    = "_PUB"
	signatureAlgorithm = hsm.AlgorithmRSAPKCS1v15SHA256
)

// Operation names used in logs, metrics and audit entries.
const (
	OpVersion         = "Version"
	OpGenerateKeyPair = "GenerateKeyPair"
	OpPublicKey       = "PublicKey"
	OpCreateSignature = "CreateSignature"
	OpVerifySignature = "VerifySignature"
	OpDeleteKeyPair   = "DeleteKeyPair"
)

// State reports whether a signer holds a key pair.
type State int

const (
	StateEmpty State = iota
	StatePopulated
)

func (s State) String() string {
	if s == StatePopulated {
		return "Populated"
	}
	return "Empty"
}

// Signer is the facade over one key pair. It is safe for concurrent use;
// operations on the same Signer are serialized.
type Signer struct {
	store   hsm.Provider
	capable Capability
	digest  Digest
	alias   string
	logger  *slog.Logger
	audit   *audit.Logger
	metrics bool

	run interceptor.Interceptor[Result]

	mu   sync.Mutex
	keys hsm.KeyPair
}

func New(store hsm.Provider, opts ...Option) *Signer {
	s := &Signer{
		store:   store,
		digest:  crypto.SHA256Digest,
		alias:   DefaultKeyAlias,
		logger:  slog.Default(),
		metrics: true,
	}
	if a, ok := store.(hsm.Availability); ok {
		s.capable = a.Available
	} else {
		s.capable = func() bool { return true }
	}
	for _, opt := range opts {
		opt(s)
	}

	outcome := interceptor.Outcome[Result](s.status)
	chain := []interceptor.Interceptor[Result]{interceptor.Logging(s.logger, outcome)}
	if s.metrics {
		chain = append(chain, interceptor.Metrics(outcome))
	}
	if s.audit != nil {
		chain = append(chain, interceptor.Audit(s.audit, outcome))
	}
	chain = append(chain, interceptor.Recovery(s.logger, func(string, any) Result {
		return newResult(CodeGeneral)
	}))
	s.run = interceptor.Chain(chain...)
	return s
}

// status runs with s.mu held.
func (s *Signer) status(r Result) interceptor.Status {
	return interceptor.Status{Code: string(r.Code), OK: r.OK(), KeyID: string(s.keys.Public)}
}

// State returns the current key pair state.
func (s *Signer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys.IsZero() {
		return StateEmpty
	}
	return StatePopulated
}

func (s *Signer) do(op string, body func() Result) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.run(op, func() Result {
		if !s.capable() {
			return newResult(CodeUnsupportedEnv)
		}
		return body()
	})
	if s.metrics {
		metrics.SetKeyPairPresent(!s.keys.IsZero())
	}
	return res
}

// Version returns the library version.
func (s *Signer) Version() Result {
	return s.do(OpVersion, func() Result {
		res := newResult(CodeSuccess)
		res.LibraryVersion = LibraryVersion
		return res
	})
}

// GenerateKeyPair replaces any held key pair with a fresh RSA-2048 pair and
// returns its public key.
func (s *Signer) GenerateKeyPair() Result {
	return s.do(OpGenerateKeyPair, s.generateKeyPair)
}

// PublicKey exports the public key of the held pair. The key store is asked
// on every call.
func (s *Signer) PublicKey() Result {
	return s.do(OpPublicKey, s.publicKey)
}

// CreateSignature signs the SHA-256 digest of message.
func (s *Signer) CreateSignature(message []byte) Result {
	return s.do(OpCreateSignature, func() Result { return s.createSignature(message) })
}

// VerifySignature checks signature against the SHA-256 digest of message.
// A successful Result carries no payload.
func (s *Signer) VerifySignature(message, signature []byte) Result {
	return s.do(OpVerifySignature, func() Result { return s.verifySignature(message, signature) })
}

// DeleteKeyPair erases the held pair from the key store and forgets it.
// Deleting with no pair held yields CodeKeyNotFound.
func (s *Signer) DeleteKeyPair() Result {
	return s.do(OpDeleteKeyPair, s.deleteKeyPair)
}

func (s *Signer) generateKeyPair() Result {
	if res := s.deleteKeyPair(); res.Code != CodeSuccess && res.Code != CodeKeyNotFound {
		return res
	}

	spec := hsm.KeyPairSpec{
		Type:          hsm.KeyTypeRSA,
		Bits:          keyBits,
		PrivateTag:    s.alias + privateTagSuffix,
		PublicTag:     s.alias + publicTagSuffix,
		Persistent:    false,
		Accessibility: hsm.AccessibleWhenUnlockedThisDeviceOnly,
	}
	kp, err := s.store.GenerateKeyPair(spec)
	if err != nil {
		s.logger.Warn("key generation failed", "error", err)
		return newResult(CodeKeygenFailed)
	}
	if kp.Private.IsZero() || kp.Public.IsZero() {
		s.discard(kp)
		return newResult(CodeKeygenFailed)
	}

	pub, err := s.store.ExportPublicKey(kp.Public)
	switch {
	case err != nil:
		s.logger.Warn("public key export failed", "error", err)
		s.discard(kp)
		return newResult(CodeKeygenFailed)
	case len(pub) == 0:
		s.discard(kp)
		return newResult(CodePublicKeyEmpty)
	}

	s.keys = kp
	res := newResult(CodeSuccess)
	res.PublicKey = pub
	return res
}

// discard erases a pair the signer never adopted.
func (s *Signer) discard(kp hsm.KeyPair) {
	if err := s.store.DeleteKeyPair(kp); err != nil && !errors.Is(err, hsm.ErrKeyNotFound) {
		s.logger.Error("discard generated key pair", "error", err)
	}
}

func (s *Signer) publicKey() Result {
	if s.keys.Public.IsZero() {
		return newResult(CodeKeyNotFound)
	}
	pub, err := s.store.ExportPublicKey(s.keys.Public)
	switch {
	case errors.Is(err, hsm.ErrKeyNotFound):
		return newResult(CodeKeyNotFound)
	case err != nil:
		s.logger.Warn("public key export failed", "error", err)
		return newResult(CodePublicKeyEmpty)
	case len(pub) == 0:
		return newResult(CodePublicKeyEmpty)
	}
	res := newResult(CodeSuccess)
	res.PublicKey = pub
	return res
}

func (s *Signer) createSignature(message []byte) Result {
	if len(message) == 0 {
		return newResult(CodeMissingParameter)
	}
	if s.keys.Private.IsZero() {
		return newResult(CodeKeyNotFound)
	}

	digest := s.digest(message)
	if !s.store.AlgorithmSupported(s.keys.Private, hsm.OperationSign, signatureAlgorithm) {
		return newResult(CodeSignFailed)
	}
	sig, err := s.store.Sign(s.keys.Private, digest, signatureAlgorithm)
	if err != nil {
		s.logger.Warn("sign failed", "error", err)
		return newResult(CodeSignFailed)
	}
	if len(sig) == 0 {
		return newResult(CodeSignFailed)
	}
	res := newResult(CodeSuccess)
	res.Signature = sig
	return res
}

func (s *Signer) verifySignature(message, signature []byte) Result {
	if len(message) == 0 || len(signature) == 0 {
		return newResult(CodeMissingParameter)
	}
	if s.keys.Public.IsZero() {
		return newResult(CodeKeyNotFound)
	}

	digest := s.digest(message)
	if !s.store.AlgorithmSupported(s.keys.Public, hsm.OperationVerify, signatureAlgorithm) {
		return newResult(CodeVerifyFailed)
	}
	ok, err := s.store.Verify(s.keys.Public, digest, signature, signatureAlgorithm)
	if err != nil {
		s.logger.Warn("verify failed", "error", err)
		return newResult(CodeVerifyFailed)
	}
	if !ok {
		return newResult(CodeVerifyFailed)
	}
	return newResult(CodeSuccess)
}

func (s *Signer) deleteKeyPair() Result {
	if s.keys.Private.IsZero() {
		return newResult(CodeKeyNotFound)
	}
	if err := s.store.DeleteKeyPair(s.keys); err != nil && !errors.Is(err, hsm.ErrKeyNotFound) {
		s.logger.Error("delete key pair", "error", err)
		return newResult(CodeGeneral)
	}
	s.keys = hsm.KeyPair{}
	return newResult(CodeSuccess)
}
