package wallet

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
)

// ErrMalformedSignature is returned when a signature string is not valid
// base64 or does not decode to exactly 64 bytes.
var ErrMalformedSignature = errors.New("malformed signature")

// DecodeSignature decodes a base64 detached signature.
func DecodeSignature(s string) ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrMalformedSignature
	}

	if len(sig) != ed25519.SignatureSize {
		return nil, ErrMalformedSignature
	}

	return sig, nil
}

// Verify reports whether sig is a valid Ed25519 detached signature over
// message by the holder of key. A signature that simply does not match is a
// normal false, not an error.
func Verify(message, sig []byte, key PublicKey) bool {
	if len(key.raw) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(key.raw, message, sig)
}
