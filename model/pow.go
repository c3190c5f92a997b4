package model

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
)

// MaxDifficulty is the number of bits in a SHA-256 hash.
const MaxDifficulty = 256

// ErrInvalidDifficulty is returned for a difficulty outside 0..MaxDifficulty.
var ErrInvalidDifficulty = errors.New("difficulty out of range")

// TrailingZeroBits counts the zero bits at the end of hash, starting from
// the least significant bit of the last byte.
func TrailingZeroBits(hash []byte) int {
	n := 0
	for i := len(hash) - 1; i >= 0; i-- {
		if hash[i] == 0 {
			n += 8
			continue
		}
		return n + bits.TrailingZeros8(hash[i])
	}
	return n
}

// ProofHash is SHA-256 over the canonical JSON of the proof.
func ProofHash(p IdentityProof) ([]byte, error) {
	return PayloadDigest(p)
}

// MeetsDifficulty reports whether the proof hash ends with at least
// difficulty zero bits. Difficulty 0 accepts any proof.
func MeetsDifficulty(p IdentityProof, difficulty int) (bool, error) {
	if difficulty < 0 || difficulty > MaxDifficulty {
		return false, fmt.Errorf("%w: %d", ErrInvalidDifficulty, difficulty)
	}
	if difficulty == 0 {
		return true, nil
	}
	hash, err := ProofHash(p)
	if err != nil {
		return false, err
	}
	return TrailingZeroBits(hash) >= difficulty, nil
}

// SolveProofOfWork increments p.PowNonce, starting at its current value,
// until the proof meets difficulty. It returns ctx.Err() when ctx is done
// first.
func SolveProofOfWork(ctx context.Context, p *IdentityProof, difficulty int) error {
	for i := 0; ; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		ok, err := MeetsDifficulty(*p, difficulty)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		p.PowNonce++
	}
}
