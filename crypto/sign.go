package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
)

// ErrInvalidKeySize is returned when key material presented to Sign or
// Verify is not the size Ed25519 requires.
var ErrInvalidKeySize = errors.New("crypto: invalid ed25519 key size")

// GenerateKey produces a fresh Ed25519 key pair, used both to derive a
// WorldlineId (BLAKE3 of the public key) and to sign tags.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Sign computes a detached Ed25519 signature over message. Per spec §4.1
// this is advisory for receipt authorship: a bad signature never aborts
// ledger append, only Verify's return value does, and only when a policy
// rule explicitly requires it.
func Sign(priv ed25519.PrivateKey, message []byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	return ed25519.Sign(priv, message), nil
}

// Verify reports whether sig is a valid Ed25519 signature over message by
// pub. It never returns an error for a bad signature, only for malformed
// input, so that callers can treat "false" as "no attestation" rather than
// failing the operation that produced it.
func Verify(pub ed25519.PublicKey, message, sig []byte) (bool, error) {
	if len(pub) != ed25519.PublicKeySize {
		return false, ErrInvalidKeySize
	}
	if len(sig) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(pub, message, sig), nil
}
