package solana

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// ErrInvalidKeypair is returned when decoding a malformed secret key.
var ErrInvalidKeypair = errors.New("invalid keypair")

// Keypair holds an ed25519 signing key. The 64-byte secret is the
// standard wallet export format (seed || pubkey).
type Keypair struct {
	priv ed25519.PrivateKey
}

// KeypairFromBase58 decodes a base58-encoded 64-byte secret key.
func KeypairFromBase58(s string) (*Keypair, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidKeypair, len(raw), ed25519.PrivateKeySize)
	}
	return &Keypair{priv: ed25519.PrivateKey(raw)}, nil
}

// NewKeypair generates a fresh keypair. Used in tests.
func NewKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: priv}, nil
}

// Pubkey returns the public half of the keypair.
func (k *Keypair) Pubkey() Pubkey {
	var pk Pubkey
	copy(pk[:], k.priv.Public().(ed25519.PublicKey))
	return pk
}

// Sign produces a 64-byte ed25519 signature over msg.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}
