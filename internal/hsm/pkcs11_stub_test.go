//go:build !pkcs11

package hsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenPKCS11NotCompiled(t *testing.T) {
	_, err := Open(BackendPKCS11, PKCS11Config{Library: "/usr/lib/softhsm/libsofthsm2.so", TokenLabel: "rsasign"})
	assert.ErrorIs(t, err, ErrNotSupported)
}
