// Package wallet holds the cryptographic primitives behind comment
// authorship: public key parsing, detached signature verification, and the
// canonical message both signer and verifier must agree on.
//
// There are no accounts and no sessions. A commenter's identity is their
// Ed25519 public key, and ownership is proven per request by a signature.
package wallet

import (
	"crypto/ed25519"
	"errors"

	"github.com/mr-tron/base58"
)

// ErrInvalidPublicKey is returned when a string is not a base58-encoded
// 32-byte Ed25519 public key.
var ErrInvalidPublicKey = errors.New("invalid public key")

// PublicKey is a commenter's identity. The zero value is not a valid key.
type PublicKey struct {
	raw ed25519.PublicKey
}

// ParsePublicKey decodes a base58 public key string into a PublicKey.
// It does no I/O and is the only way to obtain a non-zero PublicKey.
func ParsePublicKey(s string) (PublicKey, error) {
	if s == "" {
		return PublicKey{}, ErrInvalidPublicKey
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, ErrInvalidPublicKey
	}

	if len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, ErrInvalidPublicKey
	}

	return PublicKey{raw: ed25519.PublicKey(raw)}, nil
}

// Bytes returns the raw 32-byte key.
func (pk PublicKey) Bytes() []byte {
	return pk.raw
}

// String returns the canonical base58 encoding.
func (pk PublicKey) String() string {
	return base58.Encode(pk.raw)
}
