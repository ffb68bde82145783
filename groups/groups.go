// Package groups defines the discrete-log group the Schnorr protocol
// operates in: a prime-order subgroup of the integers modulo a safe prime.
package groups

import (
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
)

// default2048PrimeHex is the 2048-bit MODP safe prime from RFC 3526 (group 14).
// (P-1)/2 is prime and 2 is a quadratic residue mod P, so G=2 generates the
// order-Q subgroup.
const default2048PrimeHex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3BE39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA051015728E5A8AACAA68FFFFFFFFFFFFFFFF"

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// Parameters holds the shared group constants {P, G, Q}. P is a safe prime
// (P = 2Q+1 with Q prime) and G generates the order-Q subgroup. Both prover
// and verifier must be constructed with identical parameters. Parameters are
// immutable after construction and safe for concurrent use.
type Parameters struct {
	p *big.Int
	g *big.Int
	q *big.Int
}

// New builds group parameters from an explicit modulus, generator and
// subgroup order. Values are copied; callers may reuse their inputs.
func New(p, g, q *big.Int) (*Parameters, error) {
	if p == nil || g == nil || q == nil {
		return nil, errors.New("groups: nil parameter")
	}
	if p.Cmp(two) <= 0 {
		return nil, errors.New("groups: modulus must be > 2")
	}
	if g.Cmp(one) <= 0 || g.Cmp(p) >= 0 {
		return nil, errors.Errorf("groups: generator %s out of range", g)
	}
	// P must equal 2Q+1 so Q really is the subgroup order.
	expected := new(big.Int).Add(new(big.Int).Mul(q, two), one)
	if expected.Cmp(p) != 0 {
		return nil, errors.New("groups: P != 2Q+1, not a safe-prime group")
	}
	params := &Parameters{
		p: new(big.Int).Set(p),
		g: new(big.Int).Set(g),
		q: new(big.Int).Set(q),
	}
	if !params.InSubgroup(g) {
		return nil, errors.Errorf("groups: generator %s does not generate the order-Q subgroup", g)
	}
	return params, nil
}

// Default2048 returns the production group: the RFC 3526 2048-bit safe prime
// with generator 2. Panics only on a corrupted constant, which cannot happen
// at runtime.
func Default2048() *Parameters {
	p, ok := new(big.Int).SetString(default2048PrimeHex, 16)
	if !ok {
		panic("groups: invalid built-in prime")
	}
	q := new(big.Int).Rsh(new(big.Int).Sub(p, one), 1)
	params, err := New(p, two, q)
	if err != nil {
		panic(err)
	}
	return params
}

// P returns a copy of the group modulus.
func (pr *Parameters) P() *big.Int { return new(big.Int).Set(pr.p) }

// G returns a copy of the subgroup generator.
func (pr *Parameters) G() *big.Int { return new(big.Int).Set(pr.g) }

// Q returns a copy of the subgroup order.
func (pr *Parameters) Q() *big.Int { return new(big.Int).Set(pr.q) }

// PowerMod computes base^exponent mod modulus by binary square-and-multiply,
// O(log exponent) modular multiplications. The exponent must be >= 0 and the
// modulus > 1; callers own those preconditions.
func PowerMod(base, exponent, modulus *big.Int) *big.Int {
	result := big.NewInt(1)
	b := new(big.Int).Mod(base, modulus)
	e := new(big.Int).Set(exponent)
	for e.Sign() > 0 {
		if e.Bit(0) == 1 {
			result.Mul(result, b)
			result.Mod(result, modulus)
		}
		b.Mul(b, b)
		b.Mod(b, modulus)
		e.Rsh(e, 1)
	}
	return result
}

// Exp raises the group generator to the given exponent mod P.
func (pr *Parameters) Exp(exponent *big.Int) *big.Int {
	return PowerMod(pr.g, exponent, pr.p)
}

// InRange reports whether v lies in [1, P-1].
func (pr *Parameters) InRange(v *big.Int) bool {
	return v != nil && v.Sign() > 0 && v.Cmp(pr.p) < 0
}

// InSubgroup reports whether v is an element of the order-Q subgroup,
// i.e. v in [1, P-1] and v^Q == 1 mod P.
func (pr *Parameters) InSubgroup(v *big.Int) bool {
	if !pr.InRange(v) {
		return false
	}
	return PowerMod(v, pr.q, pr.p).Cmp(one) == 0
}

// RandomScalar samples a secret uniformly from [1, Q-1] using crypto/rand.
// Each call draws independently, so concurrent provers need no coordination.
func (pr *Parameters) RandomScalar() (*big.Int, error) {
	// rand.Int returns [0, Q-2]; shift up to land in [1, Q-1].
	limit := new(big.Int).Sub(pr.q, one)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, errors.Wrap(err, "groups: sampling random scalar")
	}
	return n.Add(n, one), nil
}
