package rsasign

// Callback receives the Result of an Async operation. ok equals res.OK().
type Callback func(ok bool, res Result)

// dispatch runs op on a new goroutine and hands its Result to cb once.
// A nil cb discards the Result.
func dispatch(op func() Result, cb Callback) {
	go func() {
		res := op()
		if cb != nil {
			cb(res.OK(), res)
		}
	}()
}

func (s *Signer) VersionAsync(cb Callback) {
	dispatch(s.Version, cb)
}

func (s *Signer) GenerateKeyPairAsync(cb Callback) {
	dispatch(s.GenerateKeyPair, cb)
}

func (s *Signer) PublicKeyAsync(cb Callback) {
	dispatch(s.PublicKey, cb)
}

func (s *Signer) CreateSignatureAsync(message []byte, cb Callback) {
	dispatch(func() Result { return s.CreateSignature(message) }, cb)
}

func (s *Signer) VerifySignatureAsync(message, signature []byte, cb Callback) {
	dispatch(func() Result { return s.VerifySignature(message, signature) }, cb)
}

func (s *Signer) DeleteKeyPairAsync(cb Callback) {
	dispatch(s.DeleteKeyPair, cb)
}
