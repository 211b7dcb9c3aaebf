package hsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glinharesb/rsasign/internal/crypto"
)

func testSpec() KeyPairSpec {
	return KeyPairSpec{
		Type:          KeyTypeRSA,
		Bits:          2048,
		PrivateTag:    "TEST_PRV",
		PublicTag:     "TEST_PUB",
		Accessibility: AccessibleWhenUnlockedThisDeviceOnly,
	}
}

func newSoftware(t *testing.T) *SoftwareHSM {
	t.Helper()
	s, err := NewSoftwareHSM()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSoftwareGenerateExport(t *testing.T) {
	s := newSoftware(t)

	kp, err := s.GenerateKeyPair(testSpec())
	require.NoError(t, err)
	assert.False(t, kp.Private.IsZero())
	assert.False(t, kp.Public.IsZero())
	assert.NotEqual(t, kp.Private, kp.Public)
	assert.Equal(t, 2, s.Count())

	der, err := s.ExportPublicKey(kp.Public)
	require.NoError(t, err)
	assert.Len(t, der, 270)

	again, err := s.ExportPublicKey(kp.Public)
	require.NoError(t, err)
	assert.Equal(t, der, again)
}

func TestSoftwareExportRejectsPrivateHandle(t *testing.T) {
	s := newSoftware(t)
	kp, err := s.GenerateKeyPair(testSpec())
	require.NoError(t, err)

	_, err = s.ExportPublicKey(kp.Private)
	assert.ErrorIs(t, err, ErrWrongKeyClass)
}

func TestSoftwareSignVerify(t *testing.T) {
	s := newSoftware(t)
	kp, err := s.GenerateKeyPair(testSpec())
	require.NoError(t, err)

	digest := crypto.SHA256Digest([]byte("original data"))
	sig, err := s.Sign(kp.Private, digest, AlgorithmRSAPKCS1v15SHA256)
	require.NoError(t, err)
	assert.Len(t, sig, 256)

	ok, err := s.Verify(kp.Public, digest, sig, AlgorithmRSAPKCS1v15SHA256)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Verify(kp.Public, crypto.SHA256Digest([]byte("tampered")), sig, AlgorithmRSAPKCS1v15SHA256)
	require.NoError(t, err)
	assert.False(t, ok)

	// The exported key verifies independently of the store.
	der, err := s.ExportPublicKey(kp.Public)
	require.NoError(t, err)
	pub, err := crypto.ParsePublicKey(der)
	require.NoError(t, err)
	assert.True(t, crypto.VerifyPKCS1v15Digest(pub, digest, sig))
}

func TestSoftwareUnknownAlgorithm(t *testing.T) {
	s := newSoftware(t)
	kp, err := s.GenerateKeyPair(testSpec())
	require.NoError(t, err)

	digest := crypto.SHA256Digest([]byte("x"))
	_, err = s.Sign(kp.Private, digest, "rsa-pss")
	assert.ErrorIs(t, err, ErrInvalidAlgorithm)
	_, err = s.Verify(kp.Public, digest, []byte{1}, "rsa-pss")
	assert.ErrorIs(t, err, ErrInvalidAlgorithm)
	assert.False(t, s.AlgorithmSupported(kp.Private, OperationSign, "rsa-pss"))
}

func TestSoftwareAlgorithmSupported(t *testing.T) {
	s := newSoftware(t)
	kp, err := s.GenerateKeyPair(testSpec())
	require.NoError(t, err)

	assert.True(t, s.AlgorithmSupported(kp.Private, OperationSign, AlgorithmRSAPKCS1v15SHA256))
	assert.True(t, s.AlgorithmSupported(kp.Public, OperationVerify, AlgorithmRSAPKCS1v15SHA256))
	assert.False(t, s.AlgorithmSupported(kp.Public, OperationSign, AlgorithmRSAPKCS1v15SHA256))
	assert.False(t, s.AlgorithmSupported(kp.Private, OperationVerify, AlgorithmRSAPKCS1v15SHA256))
	assert.False(t, s.AlgorithmSupported("missing", OperationSign, AlgorithmRSAPKCS1v15SHA256))
}

func TestSoftwareLock(t *testing.T) {
	s := newSoftware(t)
	kp, err := s.GenerateKeyPair(testSpec())
	require.NoError(t, err)
	digest := crypto.SHA256Digest([]byte("locked"))

	s.Lock()
	assert.True(t, s.Locked())
	_, err = s.Sign(kp.Private, digest, AlgorithmRSAPKCS1v15SHA256)
	assert.ErrorIs(t, err, ErrLocked)
	assert.False(t, s.AlgorithmSupported(kp.Private, OperationSign, AlgorithmRSAPKCS1v15SHA256))
	assert.True(t, s.AlgorithmSupported(kp.Public, OperationVerify, AlgorithmRSAPKCS1v15SHA256))

	s.Unlock()
	_, err = s.Sign(kp.Private, digest, AlgorithmRSAPKCS1v15SHA256)
	assert.NoError(t, err)
}

func TestSoftwareDeleteKeyPair(t *testing.T) {
	s := newSoftware(t)
	kp, err := s.GenerateKeyPair(testSpec())
	require.NoError(t, err)

	require.NoError(t, s.DeleteKeyPair(kp))
	assert.Equal(t, 0, s.Count())

	_, err = s.ExportPublicKey(kp.Public)
	assert.ErrorIs(t, err, ErrKeyNotFound)
	_, err = s.Sign(kp.Private, crypto.SHA256Digest([]byte("x")), AlgorithmRSAPKCS1v15SHA256)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	assert.ErrorIs(t, s.DeleteKeyPair(kp), ErrKeyNotFound)
}

func TestSoftwareFreshKeysEachTime(t *testing.T) {
	s := newSoftware(t)
	kp1, err := s.GenerateKeyPair(testSpec())
	require.NoError(t, err)
	der1, _ := s.ExportPublicKey(kp1.Public)
	require.NoError(t, s.DeleteKeyPair(kp1))

	kp2, err := s.GenerateKeyPair(testSpec())
	require.NoError(t, err)
	der2, _ := s.ExportPublicKey(kp2.Public)

	assert.NotEqual(t, der1, der2)
	assert.NotEqual(t, kp1, kp2)
	assert.Equal(t, 2, s.Count())
}

func TestSoftwareTagsAreUnique(t *testing.T) {
	s := newSoftware(t)
	_, err := s.GenerateKeyPair(testSpec())
	require.NoError(t, err)

	_, err = s.GenerateKeyPair(testSpec())
	assert.ErrorIs(t, err, ErrKeyExists)
	assert.Equal(t, 2, s.Count(), "failed generation must not leave a half behind")

	spec := testSpec()
	spec.PrivateTag = "OTHER_PRV"
	_, err = s.GenerateKeyPair(spec)
	assert.ErrorIs(t, err, ErrKeyExists)
	assert.Equal(t, 2, s.Count())
}

func TestSoftwareRejectsInvalidSpec(t *testing.T) {
	s := newSoftware(t)

	spec := testSpec()
	spec.Bits = 1024
	_, err := s.GenerateKeyPair(spec)
	assert.ErrorIs(t, err, ErrInvalidAlgorithm)

	spec = testSpec()
	spec.PublicTag = spec.PrivateTag
	_, err = s.GenerateKeyPair(spec)
	assert.ErrorIs(t, err, ErrInvalidSpec)

	spec = testSpec()
	spec.Persistent = true
	_, err = s.GenerateKeyPair(spec)
	assert.ErrorIs(t, err, ErrNotSupported)

	assert.Equal(t, 0, s.Count())
}

func TestSoftwareCloseErasesKeys(t *testing.T) {
	s, err := NewSoftwareHSM()
	require.NoError(t, err)
	_, err = s.GenerateKeyPair(testSpec())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.Count())
}
