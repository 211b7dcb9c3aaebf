package crypto

import "crypto/sha256"

// DigestSize is the length in bytes of a SHA-256 digest.
const DigestSize = sha256.Size

// SHA256Digest returns the SHA-256 digest of data.
func SHA256Digest(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
