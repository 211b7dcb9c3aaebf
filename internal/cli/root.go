// Package cli implements the rsasign command line tool.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/glinharesb/rsasign/internal/audit"
	"github.com/glinharesb/rsasign/internal/config"
	"github.com/glinharesb/rsasign/internal/hsm"
	"github.com/glinharesb/rsasign/pkg/rsasign"
)

// app carries state shared by subcommands once flags are parsed.
type app struct {
	configPath string
	async      bool

	cfg    config.Config
	logger *slog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "rsasign",
		Short: "Sign with an RSA-2048 key pair held by a secure key store",
		Long: `rsasign generates a single RSA-2048 key pair inside a secure key store,
signs with PKCS#1 v1.5 over SHA-256 and verifies the signatures.

Supported backends:
  - software: in-process key store, keys sealed in memory
  - pkcs11:   PKCS#11 token (requires a build with -tags pkcs11)`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default is rsasign.yaml in the user config dir or cwd)")
	pf.String("backend", hsm.BackendSoftware, "key store backend (software, pkcs11)")
	pf.String("key-alias", config.DefaultKeyAlias, "prefix of the key store tags")
	pf.StringP("output", "o", "text", "output format (text, json, yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("pkcs11-lib", "", "path to the PKCS#11 module")
	pf.String("pkcs11-token", "", "PKCS#11 token label")
	pf.BoolVar(&a.async, "async", false, "run operations through the callback API")

	root.AddCommand(
		newVersionCommand(a),
		newDemoCommand(a),
		newSignCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd, a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(a.logger)
	return nil
}

func newLogger(c config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) printer(cmd *cobra.Command) *Printer {
	return NewPrinter(a.cfg.Output, cmd.OutOrStdout())
}

// session is an open backend with a signer on top of it.
type session struct {
	signer  *rsasign.Signer
	audit   *audit.Logger
	backend hsm.Backend
	async   bool
}

func (a *app) open() (*session, error) {
	backend, err := hsm.Open(a.cfg.Backend, a.cfg.PKCS11)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", a.cfg.Backend, err)
	}
	auditLogger := audit.NewLogger(a.cfg.Audit.Buffer, nil)
	signer := rsasign.New(backend,
		rsasign.WithKeyAlias(a.cfg.KeyAlias),
		rsasign.WithLogger(a.logger),
		rsasign.WithAudit(auditLogger),
	)
	a.logger.Debug("session opened", "backend", a.cfg.Backend, "async", a.async)
	return &session{signer: signer, audit: auditLogger, backend: backend, async: a.async}, nil
}

// Close drains the audit log and releases the backend. Keys that were not
// deleted are erased by the backend.
func (s *session) Close() error {
	s.audit.Close()
	return s.backend.Close()
}

// call runs an operation through the blocking or the callback API.
func (s *session) call(sync func() rsasign.Result, async func(rsasign.Callback)) rsasign.Result {
	if !s.async {
		return sync()
	}
	ch := make(chan rsasign.Result, 1)
	async(func(_ bool, res rsasign.Result) { ch <- res })
	return <-ch
}

func (s *session) version() rsasign.Result {
	return s.call(s.signer.Version, s.signer.VersionAsync)
}

func (s *session) generate() rsasign.Result {
	return s.call(s.signer.GenerateKeyPair, s.signer.GenerateKeyPairAsync)
}

func (s *session) publicKey() rsasign.Result {
	return s.call(s.signer.PublicKey, s.signer.PublicKeyAsync)
}

func (s *session) sign(msg []byte) rsasign.Result {
	return s.call(
		func() rsasign.Result { return s.signer.CreateSignature(msg) },
		func(cb rsasign.Callback) { s.signer.CreateSignatureAsync(msg, cb) },
	)
}

func (s *session) verify(msg, sig []byte) rsasign.Result {
	return s.call(
		func() rsasign.Result { return s.signer.VerifySignature(msg, sig) },
		func(cb rsasign.Callback) { s.signer.VerifySignatureAsync(msg, sig, cb) },
	)
}

func (s *session) delete() rsasign.Result {
	return s.call(s.signer.DeleteKeyPair, s.signer.DeleteKeyPairAsync)
}
