package rsasign

import (
	"errors"
	"fmt"
)

// Code is the status of a facade operation. The values are the stable codes
// exposed as result_code.
type Code string

const (
	CodeSuccess          Code = "0000"
	CodeGeneral          Code = "E000"
	CodeUnsupportedEnv   Code = "E001"
	CodeMissingParameter Code = "E002"
	CodeKeyNotFound      Code = "E003"
	CodePublicKeyEmpty   Code = "E004"
	CodeKeygenFailed     Code = "E005"
	CodeSignFailed       Code = "E006"
	CodeVerifyFailed     Code = "E007"
)

var (
	ErrGeneral          = errors.New("rsasign: general failure")
	ErrUnsupportedEnv   = errors.New("rsasign: unsupported environment")
	ErrMissingParameter = errors.New("rsasign: missing required parameter")
	ErrKeyNotFound      = errors.New("rsasign: key not found")
	ErrPublicKeyEmpty   = errors.New("rsasign: public key empty")
	ErrKeygenFailed     = errors.New("rsasign: key generation failed")
	ErrSignFailed       = errors.New("rsasign: signature failed")
	ErrVerifyFailed     = errors.New("rsasign: signature verification failed")
)

type codeInfo struct {
	name    string
	message string
	err     error
}

var codes = map[Code]codeInfo{
	CodeSuccess:          {"SUCCESS", "Success", nil},
	CodeGeneral:          {"ERR_GENERAL", "General Fail", ErrGeneral},
	CodeUnsupportedEnv:   {"ERR_UNSUPPORTED_ENV", "Unsupported environment", ErrUnsupportedEnv},
	CodeMissingParameter: {"ERR_MISSING_PARAMETER", "Missing required parameter", ErrMissingParameter},
	CodeKeyNotFound:      {"ERR_KEY_NOT_FOUND", "RSA key not found", ErrKeyNotFound},
	CodePublicKeyEmpty:   {"ERR_PUBLIC_KEY_EMPTY", "Public key not found", ErrPublicKeyEmpty},
	CodeKeygenFailed:     {"ERR_KEYGEN_FAILED", "RSA key generating failed", ErrKeygenFailed},
	CodeSignFailed:       {"ERR_SIGN_FAILED", "RSA signature failed", ErrSignFailed},
	CodeVerifyFailed:     {"ERR_VERIFY_FAILED", "RSA signature verify failed", ErrVerifyFailed},
}

// String returns the symbolic name, e.g. ERR_KEY_NOT_FOUND.
func (c Code) String() string {
	if info, ok := codes[c]; ok {
		return info.name
	}
	return "UNKNOWN(" + string(c) + ")"
}

// Message returns the human readable text reported as result_message.
func (c Code) Message() string {
	if info, ok := codes[c]; ok {
		return info.message
	}
	return codes[CodeGeneral].message
}

// Result is the uniform outcome of every operation. Payload fields are set
// only on success, and only those the operation documents.
type Result struct {
	Code           Code   `json:"result_code" yaml:"result_code"`
	Message        string `json:"result_message" yaml:"result_message"`
	LibraryVersion string `json:"library_version,omitempty" yaml:"library_version,omitempty"`
	PublicKey      []byte `json:"public_key_bytes,omitempty" yaml:"public_key_bytes,omitempty"`
	Signature      []byte `json:"signature_bytes,omitempty" yaml:"signature_bytes,omitempty"`
}

func newResult(code Code) Result {
	return Result{Code: code, Message: code.Message()}
}

func (r Result) OK() bool { return r.Code == CodeSuccess }

// Err returns nil on success and otherwise a sentinel usable with errors.Is.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	info, ok := codes[r.Code]
	if !ok {
		return fmt.Errorf("%w: code %s", ErrGeneral, r.Code)
	}
	return info.err
}

// Map returns the result keyed by its stable field names.
func (r Result) Map() map[string]any {
	m := map[string]any{
		"result_code":    string(r.Code),
		"result_message": r.Message,
	}
	if r.LibraryVersion != "" {
		m["library_version"] = r.LibraryVersion
	}
	if len(r.PublicKey) > 0 {
		m["public_key_bytes"] = r.PublicKey
	}
	if len(r.Signature) > 0 {
		m["signature_bytes"] = r.Signature
	}
	return m
}
