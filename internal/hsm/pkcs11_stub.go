//go:build !pkcs11

package hsm

import "fmt"

// OpenPKCS11 is unavailable in builds without the pkcs11 tag.
func OpenPKCS11(PKCS11Config) (Backend, error) {
	return nil, fmt.Errorf("%w: pkcs11 support not compiled in, rebuild with -tags pkcs11", ErrNotSupported)
}
