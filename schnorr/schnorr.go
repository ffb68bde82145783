// Package schnorr implements a non-interactive Schnorr proof of knowledge
// of a discrete-log secret, made non-interactive with a Fiat-Shamir
// challenge. A proof is bound to an opaque context (for this system, the
// authorized geofence prefix) so it cannot be replayed against a different
// resource.
package schnorr

import (
	"encoding/base64"
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"

	"github.com/privaccess/go-privaccess-auth/groups"
)

var (
	// ErrInvalidProof is returned when the verification equation fails.
	ErrInvalidProof = errors.New("schnorr: invalid proof")
	// ErrMalformedInput is returned when a proof element is outside its
	// required range or the public key is outside the order-Q subgroup.
	ErrMalformedInput = errors.New("schnorr: malformed proof input")
)

// KeyPair holds a discrete-log credential: x in [1, Q-1] and y = G^x mod P.
// The private key never leaves the prover's process.
type KeyPair struct {
	PrivateKey *big.Int
	PublicKey  *big.Int
}

// GenerateKeyPair samples a fresh credential for the given group.
func GenerateKeyPair(params *groups.Parameters) (*KeyPair, error) {
	x, err := params.RandomScalar()
	if err != nil {
		return nil, err
	}
	return NewKeyPair(params, x)
}

// NewKeyPair derives the public key for an existing secret. The secret must
// lie in [1, Q-1].
func NewKeyPair(params *groups.Parameters, privateKey *big.Int) (*KeyPair, error) {
	if privateKey == nil || privateKey.Sign() <= 0 || privateKey.Cmp(params.Q()) >= 0 {
		return nil, errors.Wrap(ErrMalformedInput, "private key out of [1, Q-1]")
	}
	x := new(big.Int).Set(privateKey)
	return &KeyPair{PrivateKey: x, PublicKey: params.Exp(x)}, nil
}

// Proof is a complete non-interactive Schnorr proof. Immutable once
// produced; verification never mutates it.
type Proof struct {
	// Commitment is R = G^r mod P.
	Commitment *big.Int
	// Response is s = (r + c*x) mod Q.
	Response *big.Int
	// PublicKey is y = G^x mod P.
	PublicKey *big.Int
	// Context is the bound context C hashed into the challenge.
	Context []byte
}

type proofJSON struct {
	PublicKey  string `json:"public_key"`
	Commitment string `json:"commitment"`
	Response   string `json:"response"`
	Context    string `json:"context"`
}

// MarshalJSON encodes group elements as decimal strings and the context as
// base64. The context is an opaque byte string, not text; encoding it as a
// raw JSON string would mangle non-UTF-8 bytes in transit.
func (p *Proof) MarshalJSON() ([]byte, error) {
	return json.Marshal(proofJSON{
		PublicKey:  p.PublicKey.String(),
		Commitment: p.Commitment.String(),
		Response:   p.Response.String(),
		Context:    base64.StdEncoding.EncodeToString(p.Context),
	})
}

// UnmarshalJSON decodes decimal-string group elements. Values are parsed but
// not range-checked here; Verify rejects out-of-range elements.
func (p *Proof) UnmarshalJSON(data []byte) error {
	var raw proofJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "schnorr: decoding proof")
	}
	var ok bool
	if p.PublicKey, ok = new(big.Int).SetString(raw.PublicKey, 10); !ok {
		return errors.Wrap(ErrMalformedInput, "public_key is not a decimal integer")
	}
	if p.Commitment, ok = new(big.Int).SetString(raw.Commitment, 10); !ok {
		return errors.Wrap(ErrMalformedInput, "commitment is not a decimal integer")
	}
	if p.Response, ok = new(big.Int).SetString(raw.Response, 10); !ok {
		return errors.Wrap(ErrMalformedInput, "response is not a decimal integer")
	}
	context, err := base64.StdEncoding.DecodeString(raw.Context)
	if err != nil {
		return errors.Wrap(ErrMalformedInput, "context is not base64")
	}
	p.Context = context
	return nil
}

// Prover produces proofs of knowledge for one credential. Safe for
// concurrent use: every Prove call draws its own nonce and shares nothing
// but the immutable group parameters.
type Prover struct {
	params *groups.Parameters
	key    *KeyPair
}

// NewProver binds a credential to a group.
func NewProver(params *groups.Parameters, key *KeyPair) *Prover {
	return &Prover{params: params, key: key}
}

// Prove generates a proof bound to the given context. The nonce is sampled
// fresh from a cryptographically secure source on every call; reusing a
// nonce across two proofs would expose the private key through two linear
// equations in (r, x).
func (p *Prover) Prove(context []byte) (*Proof, error) {
	r, err := p.params.RandomScalar()
	if err != nil {
		return nil, err
	}
	return p.proveWithNonce(r, context), nil
}

// proveWithNonce runs commitment, challenge derivation and response for a
// caller-supplied nonce. Kept internal: fixed nonces are only legitimate in
// tests.
func (p *Prover) proveWithNonce(r *big.Int, context []byte) *Proof {
	commitment := p.params.Exp(r)

	c := Challenge(p.params, commitment, p.key.PublicKey, context)

	// s = (r + c*x) mod Q
	s := new(big.Int).Mul(c, p.key.PrivateKey)
	s.Add(s, r)
	s.Mod(s, p.params.Q())

	ctx := make([]byte, len(context))
	copy(ctx, context)
	return &Proof{
		Commitment: commitment,
		Response:   s,
		PublicKey:  new(big.Int).Set(p.key.PublicKey),
		Context:    ctx,
	}
}

// Verify checks a proof against the group parameters. It is a pure function:
// the challenge is recomputed from the proof's own commitment, public key
// and context, never taken from the wire. Accepts iff
//
//	G^s == R * y^c (mod P)
//
// Returns ErrMalformedInput for out-of-range elements or a public key
// outside the order-Q subgroup, ErrInvalidProof when the equation fails.
func Verify(params *groups.Parameters, proof *Proof) error {
	if proof == nil || proof.Commitment == nil || proof.Response == nil || proof.PublicKey == nil {
		return errors.Wrap(ErrMalformedInput, "missing proof element")
	}
	if !params.InRange(proof.Commitment) {
		return errors.Wrap(ErrMalformedInput, "commitment out of [1, P-1]")
	}
	if !params.InRange(proof.PublicKey) {
		return errors.Wrap(ErrMalformedInput, "public key out of [1, P-1]")
	}
	if proof.Response.Sign() < 0 || proof.Response.Cmp(params.Q()) >= 0 {
		return errors.Wrap(ErrMalformedInput, "response out of [0, Q-1]")
	}
	if !params.InSubgroup(proof.PublicKey) {
		return errors.Wrap(ErrMalformedInput, "public key outside order-Q subgroup")
	}

	c := Challenge(params, proof.Commitment, proof.PublicKey, proof.Context)

	lhs := params.Exp(proof.Response)

	rhs := groups.PowerMod(proof.PublicKey, c, params.P())
	rhs.Mul(rhs, proof.Commitment)
	rhs.Mod(rhs, params.P())

	if lhs.Cmp(rhs) != 0 {
		return ErrInvalidProof
	}
	return nil
}
