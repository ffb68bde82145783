package schnorr

import (
	"crypto/sha256"
	"math/big"

	"github.com/privaccess/go-privaccess-auth/groups"
)

// Challenge derives the Fiat-Shamir challenge c = H(R || y || C) mod Q.
//
// The transcript serialization is shared by prover and verifier and must
// never change independently on either side: R and y are written as their
// ASCII decimal representations with no separators, followed by the raw
// context bytes, hashed with SHA-256, and the digest is interpreted as a
// big-endian integer reduced mod Q. Fixed vectors in challenge_test.go pin
// this format.
func Challenge(params *groups.Parameters, commitment, publicKey *big.Int, context []byte) *big.Int {
	h := sha256.New()
	h.Write([]byte(commitment.String()))
	h.Write([]byte(publicKey.String()))
	h.Write(context)

	c := new(big.Int).SetBytes(h.Sum(nil))
	return c.Mod(c, params.Q())
}
