package schnorr

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/privaccess/go-privaccess-auth/groups"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGroup(t *testing.T) *groups.Parameters {
	t.Helper()
	params, err := groups.New(big.NewInt(23), big.NewInt(2), big.NewInt(11))
	require.NoError(t, err)
	return params
}

func TestCompleteness(t *testing.T) {
	params := testGroup(t)
	for i := 0; i < 100; i++ {
		key, err := GenerateKeyPair(params)
		require.NoError(t, err)

		proof, err := NewProver(params, key).Prove([]byte("t1q7hk"))
		require.NoError(t, err)
		require.NoError(t, Verify(params, proof))
	}
}

func TestCompleteness2048(t *testing.T) {
	params := groups.Default2048()
	key, err := GenerateKeyPair(params)
	require.NoError(t, err)

	proof, err := NewProver(params, key).Prove([]byte("9q8yyk"))
	require.NoError(t, err)
	require.NoError(t, Verify(params, proof))
}

// The small-group scenario: P=23, G=2 generating the order-11 subgroup,
// x=6 so y = 2^6 mod 23 = 18. With nonce r=7 the proof values are pinned,
// and bumping s by one must fail verification.
func TestFixedNonceScenario(t *testing.T) {
	params := testGroup(t)
	key, err := NewKeyPair(params, big.NewInt(6))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(18), key.PublicKey)

	proof := NewProver(params, key).proveWithNonce(big.NewInt(7), []byte("t1q7hk"))
	require.Equal(t, big.NewInt(13), proof.Commitment)
	require.Equal(t, big.NewInt(10), proof.Response)
	require.NoError(t, Verify(params, proof))

	mutated := &Proof{
		Commitment: proof.Commitment,
		Response:   new(big.Int).Mod(new(big.Int).Add(proof.Response, big.NewInt(1)), params.Q()),
		PublicKey:  proof.PublicKey,
		Context:    proof.Context,
	}
	require.ErrorIs(t, Verify(params, mutated), ErrInvalidProof)
}

func TestSoundnessWrongKey(t *testing.T) {
	params := testGroup(t)
	key, err := NewKeyPair(params, big.NewInt(6))
	require.NoError(t, err)

	// Prover claims y of the honest key but proves with a different secret.
	wrong, err := NewKeyPair(params, big.NewInt(3))
	require.NoError(t, err)

	rejected := 0
	const attempts = 200
	for i := 0; i < attempts; i++ {
		forged, err := NewProver(params, wrong).Prove([]byte("ctx"))
		require.NoError(t, err)
		forged.PublicKey = key.PublicKey

		if err := Verify(params, forged); err != nil {
			rejected++
		}
	}
	// Statistical soundness: chance acceptance is ~1/Q per attempt, so with
	// Q=11 roughly 9% of forgeries slip through. Well over 80% must fail.
	assert.GreaterOrEqual(t, rejected, attempts*8/10)
}

func TestContextBinding(t *testing.T) {
	// Big group: in the P=23 group two contexts collide mod Q one time in
	// eleven, which would make this test flaky.
	params := groups.Default2048()
	key, err := GenerateKeyPair(params)
	require.NoError(t, err)

	proof, err := NewProver(params, key).Prove([]byte("t1q7hk"))
	require.NoError(t, err)

	// Replay against a different resource: rebind the context.
	replayed := &Proof{
		Commitment: proof.Commitment,
		Response:   proof.Response,
		PublicKey:  proof.PublicKey,
		Context:    []byte("9q8yyk"),
	}
	require.ErrorIs(t, Verify(params, replayed), ErrInvalidProof)
}

func TestNonceNonRepetition(t *testing.T) {
	params := groups.Default2048()
	key, err := GenerateKeyPair(params)
	require.NoError(t, err)
	prover := NewProver(params, key)

	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		proof, err := prover.Prove([]byte("ctx"))
		require.NoError(t, err)
		r := proof.Commitment.String()
		require.False(t, seen[r], "commitment repeated across attempts")
		seen[r] = true
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	params := testGroup(t)
	key, err := NewKeyPair(params, big.NewInt(6))
	require.NoError(t, err)
	valid, err := NewProver(params, key).Prove([]byte("ctx"))
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(p *Proof)
	}{
		{"zero commitment", func(p *Proof) { p.Commitment = big.NewInt(0) }},
		{"commitment >= P", func(p *Proof) { p.Commitment = big.NewInt(23) }},
		{"negative response", func(p *Proof) { p.Response = big.NewInt(-1) }},
		{"response >= Q", func(p *Proof) { p.Response = big.NewInt(11) }},
		{"zero public key", func(p *Proof) { p.PublicKey = big.NewInt(0) }},
		{"public key >= P", func(p *Proof) { p.PublicKey = big.NewInt(30) }},
		// 5 has order 22 mod 23, so it is outside the order-11 subgroup.
		{"public key outside subgroup", func(p *Proof) { p.PublicKey = big.NewInt(5) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Proof{
				Commitment: valid.Commitment,
				Response:   valid.Response,
				PublicKey:  valid.PublicKey,
				Context:    valid.Context,
			}
			tc.mutate(p)
			require.ErrorIs(t, Verify(params, p), ErrMalformedInput)
		})
	}

	require.ErrorIs(t, Verify(params, nil), ErrMalformedInput)
}

func TestChallengeFixedVectors(t *testing.T) {
	params := testGroup(t)
	// SHA-256("13" || "18" || "t1q7hk") =
	// 720f5c60f7d6e6e505f58694564655d644b82b4af07dc2da8f59215eab492cfe,
	// which reduces to 6 mod 11.
	c := Challenge(params, big.NewInt(13), big.NewInt(18), []byte("t1q7hk"))
	require.Equal(t, big.NewInt(6), c)

	big2048 := groups.Default2048()
	c = Challenge(big2048, big.NewInt(5), big.NewInt(7), []byte("context"))
	want, ok := new(big.Int).SetString("85388000190633754727436312806115120337486853596250684451931006933880462438889", 10)
	require.True(t, ok)
	require.Equal(t, want, c)
}

func TestKeyPairValidation(t *testing.T) {
	params := testGroup(t)

	_, err := NewKeyPair(params, big.NewInt(0))
	require.Error(t, err)
	_, err = NewKeyPair(params, big.NewInt(11))
	require.Error(t, err)
	_, err = NewKeyPair(params, nil)
	require.Error(t, err)

	key, err := NewKeyPair(params, big.NewInt(6))
	require.NoError(t, err)
	assert.True(t, params.InSubgroup(key.PublicKey))
}

func TestProofJSONRoundTrip(t *testing.T) {
	params := testGroup(t)
	key, err := NewKeyPair(params, big.NewInt(6))
	require.NoError(t, err)
	proof, err := NewProver(params, key).Prove([]byte("t1q7hk"))
	require.NoError(t, err)

	data, err := json.Marshal(proof)
	require.NoError(t, err)

	var decoded Proof
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, proof.Commitment, decoded.Commitment)
	require.Equal(t, 0, proof.Response.Cmp(decoded.Response))
	require.Equal(t, proof.PublicKey, decoded.PublicKey)
	require.Equal(t, proof.Context, decoded.Context)
	require.NoError(t, Verify(params, &decoded))

	var bad Proof
	require.Error(t, json.Unmarshal([]byte(`{"public_key":"zz","commitment":"1","response":"1","context":""}`), &bad))
	require.Error(t, json.Unmarshal([]byte(`{"public_key":"1","commitment":"1","response":"1","context":"!!"}`), &bad))
}

func TestProofJSONBinaryContext(t *testing.T) {
	// The bound context is an opaque byte string (a server nonce, say), not
	// text. Bytes invalid as UTF-8 must survive the wire intact, or a valid
	// proof would be rejected after transport.
	params := testGroup(t)
	key, err := NewKeyPair(params, big.NewInt(6))
	require.NoError(t, err)
	context := []byte{0xff, 0x01, 0x80, 0x00, 0xfe}
	proof, err := NewProver(params, key).Prove(context)
	require.NoError(t, err)

	data, err := json.Marshal(proof)
	require.NoError(t, err)

	var decoded Proof
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, context, decoded.Context)
	require.NoError(t, Verify(params, &decoded))
}
