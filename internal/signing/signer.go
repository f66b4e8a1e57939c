// Package signing names the boundary the authenticated exchange client
// sits behind. Key-derivation and payload-signing algorithms are out of
// scope here — Signer is the interface a real implementation would
// satisfy; EnvSigner only resolves the two recognized environment
// variables and surfaces the fixed "auth missing" guidance when a
// signed operation is attempted without one configured.
package signing

import (
	"os"

	"hlcli/internal/errs"
)

// Signer derives a signing identity and signs exchange payloads.
type Signer interface {
	// Address returns the wallet address operations will be attributed to.
	Address() (string, error)
	// Sign produces the signature bytes for payload. Out of scope here —
	// callers get errs.ErrAuthMissing until a real implementation is wired.
	Sign(payload []byte) ([]byte, error)
}

// EnvVarPrivateKey and EnvVarWalletAddress are the two recognized
// environment variables named in the core's external-interfaces section.
const (
	EnvVarPrivateKey    = "HL_PRIVATE_KEY"
	EnvVarWalletAddress = "HL_WALLET_ADDRESS"
)

// EnvSigner resolves its identity from the environment at call time, so
// it always reflects the current process environment rather than a
// snapshot taken at construction.
type EnvSigner struct{}

// NewEnvSigner returns the environment-backed Signer.
func NewEnvSigner() *EnvSigner { return &EnvSigner{} }

// Address returns the explicit wallet-address override if set, otherwise
// an error: deriving an address from the private key is the out-of-scope
// cryptographic step this boundary stub does not implement.
func (s *EnvSigner) Address() (string, error) {
	if addr := os.Getenv(EnvVarWalletAddress); addr != "" {
		return addr, nil
	}
	if os.Getenv(EnvVarPrivateKey) == "" {
		return "", errs.ErrAuthMissing
	}
	return "", errs.ErrAuthMissing
}

// Sign always fails: this repo treats signing as an external
// collaborator named by interface only.
func (s *EnvSigner) Sign(payload []byte) ([]byte, error) {
	if os.Getenv(EnvVarPrivateKey) == "" {
		return nil, errs.ErrAuthMissing
	}
	return nil, errs.ErrAuthMissing
}

// HasPrivateKey reports whether a signing key is configured, for callers
// that want to fail fast before attempting a signed operation.
func HasPrivateKey() bool {
	return os.Getenv(EnvVarPrivateKey) != ""
}
