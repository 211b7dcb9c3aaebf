package rsasign

import (
	"log/slog"

	"github.com/glinharesb/rsasign/internal/audit"
)

// Capability reports whether the environment can use the key store. It is
// evaluated on every call.
type Capability func() bool

// Digest hashes a message before it is handed to the key store.
type Digest func([]byte) []byte

type Option func(*Signer)

func WithCapability(c Capability) Option {
	return func(s *Signer) { s.capable = c }
}

// WithDigest replaces the SHA-256 digest. The key store still signs with the
// SHA-256 algorithm identifier, so this is only useful for tests.
func WithDigest(d Digest) Option {
	return func(s *Signer) { s.digest = d }
}

// WithKeyAlias sets the prefix of the key store tags. The private and public
// halves are tagged <alias>_PRV and <alias>_PUB.
func WithKeyAlias(alias string) Option {
	return func(s *Signer) { s.alias = alias }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Signer) { s.logger = l }
}

func WithAudit(l *audit.Logger) Option {
	return func(s *Signer) { s.audit = l }
}

// WithMetrics toggles Prometheus recording for this signer.
func WithMetrics(enabled bool) Option {
	return func(s *Signer) { s.metrics = enabled }
}
