package hsm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSoftware(t *testing.T) {
	b, err := Open(BackendSoftware, PKCS11Config{})
	require.NoError(t, err)
	defer b.Close()

	assert.True(t, b.Available())
	_, ok := b.(*SoftwareHSM)
	assert.True(t, ok)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("tpm2", PKCS11Config{})
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestPKCS11ConfigValidate(t *testing.T) {
	assert.ErrorIs(t, PKCS11Config{}.Validate(), ErrInvalidSpec)

	missing := PKCS11Config{Library: filepath.Join(t.TempDir(), "libsofthsm2.so"), TokenLabel: "t"}
	assert.Error(t, missing.Validate())
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "RSA", KeyTypeRSA.String())
	assert.Equal(t, "sign", OperationSign.String())
	assert.Equal(t, "verify", OperationVerify.String())
	assert.Equal(t, "when-unlocked-this-device-only", AccessibleWhenUnlockedThisDeviceOnly.String())
}
