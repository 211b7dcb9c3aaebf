package hsm

import (
	"fmt"
	"os"
)

const (
	BackendSoftware = "software"
	BackendPKCS11   = "pkcs11"
)

// PKCS11Config identifies a PKCS#11 token.
type PKCS11Config struct {
	Library    string `mapstructure:"library" yaml:"library"`
	TokenLabel string `mapstructure:"token_label" yaml:"token_label"`
	PIN        string `mapstructure:"pin" yaml:"pin,omitempty"`
}

// Validate checks that the library exists and a token label is set.
func (c PKCS11Config) Validate() error {
	if c.Library == "" {
		return fmt.Errorf("%w: pkcs11 library path is required", ErrInvalidSpec)
	}
	if _, err := os.Stat(c.Library); err != nil {
		return fmt.Errorf("pkcs11 library: %w", err)
	}
	if c.TokenLabel == "" {
		return fmt.Errorf("%w: pkcs11 token label is required", ErrInvalidSpec)
	}
	return nil
}

// Open creates the named backend.
func Open(name string, p11 PKCS11Config) (Backend, error) {
	switch name {
	case BackendSoftware, "":
		return NewSoftwareHSM()
	case BackendPKCS11:
		return OpenPKCS11(p11)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrNotSupported, name)
	}
}
