package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program and sysvar addresses.
var (
	SystemProgram          = MustPubkey("11111111111111111111111111111111")
	TokenProgram           = MustPubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgram = MustPubkey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	ComputeBudgetProgram   = MustPubkey("ComputeBudget111111111111111111111111111111")
	SysvarRent             = MustPubkey("SysvarRent111111111111111111111111111111111")

	// NativeMint is the wrapped-SOL mint used to express SOL in token
	// instructions.
	NativeMint = MustPubkey("So11111111111111111111111111111111111111112")
)

// ErrInvalidPubkey is returned when decoding a malformed public key.
var ErrInvalidPubkey = errors.New("invalid public key")

// Pubkey is a 32-byte ed25519 account address.
type Pubkey [32]byte

// PubkeyFromString decodes a base58-encoded public key.
func PubkeyFromString(s string) (Pubkey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("%w: %v", ErrInvalidPubkey, err)
	}
	if len(raw) != 32 {
		return Pubkey{}, fmt.Errorf("%w: %d bytes", ErrInvalidPubkey, len(raw))
	}
	var pk Pubkey
	copy(pk[:], raw)
	return pk, nil
}

// MustPubkey decodes a base58 public key and panics on failure.
// Reserved for package-level well-known addresses.
func MustPubkey(s string) Pubkey {
	pk, err := PubkeyFromString(s)
	if err != nil {
		panic(fmt.Sprintf("solana: bad pubkey constant %q: %v", s, err))
	}
	return pk
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero reports whether the key is the all-zero address.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// CreateWithSeed derives the deterministic address
// sha256(base || seed || owner), used for ephemeral wrapped-SOL accounts.
func CreateWithSeed(base Pubkey, seed string, owner Pubkey) Pubkey {
	h := sha256.New()
	h.Write(base[:])
	h.Write([]byte(seed))
	h.Write(owner[:])
	var pk Pubkey
	copy(pk[:], h.Sum(nil))
	return pk
}

// CreateProgramAddress derives a program address from seeds and a program
// ID. The result must be off the ed25519 curve; on-curve results are an
// error because they would be signable.
func CreateProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, error) {
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > 32 {
			return Pubkey{}, fmt.Errorf("%w: seed longer than 32 bytes", ErrInvalidPubkey)
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte("ProgramDerivedAddress"))

	var pk Pubkey
	copy(pk[:], h.Sum(nil))
	if isOnCurve(pk[:]) {
		return Pubkey{}, fmt.Errorf("%w: derived address is on curve", ErrInvalidPubkey)
	}
	return pk, nil
}

// FindProgramAddress searches bump seeds 255..1 for the first off-curve
// program-derived address.
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, byte, error) {
	for bump := byte(255); bump > 0; bump-- {
		pk, err := CreateProgramAddress(append(seeds, []byte{bump}), programID)
		if err == nil {
			return pk, bump, nil
		}
	}
	return Pubkey{}, 0, fmt.Errorf("%w: no off-curve bump found", ErrInvalidPubkey)
}

// AssociatedTokenAddress derives the canonical token account for a wallet
// and mint.
func AssociatedTokenAddress(wallet, mint Pubkey) (Pubkey, error) {
	addr, _, err := FindProgramAddress(
		[][]byte{wallet[:], TokenProgram[:], mint[:]},
		AssociatedTokenProgram,
	)
	return addr, err
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
