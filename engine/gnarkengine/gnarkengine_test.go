package gnarkengine

import (
	"context"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privaccess/go-privaccess-auth/circuits"
	"github.com/privaccess/go-privaccess-auth/engine"
)

func testInputs(t *testing.T, fingerprint, prefix string) map[string]interface{} {
	t.Helper()
	w, err := circuits.NewWitness(fingerprint, prefix)
	require.NoError(t, err)
	return w.Inputs()
}

func TestCircuitConstraints(t *testing.T) {
	var circuit geofenceCircuit
	test.NewAssert(t).CheckCircuit(&circuit,
		test.WithCurves(ecc.BN254),
		test.WithValidAssignment(assignmentFor("9q8yyk8", "9q8yyk", 1)),
		// Fingerprint matches the prefix but the claimed output is 0.
		test.WithInvalidAssignment(assignmentFor("9q8yyk8", "9q8yyk", 0)),
	)
}

func assignmentFor(fingerprint, prefix string, isInside int64) *geofenceCircuit {
	var a geofenceCircuit
	for i := 0; i < circuits.FingerprintLength; i++ {
		a.Fingerprint[i] = int(fingerprint[i])
	}
	for i := 0; i < circuits.PrefixLength; i++ {
		a.AllowedPrefix[i] = int(prefix[i])
	}
	a.IsInside = isInside
	return &a
}

func TestProveVerifyRoundTrip(t *testing.T) {
	eng, err := Default()
	require.NoError(t, err)
	ctx := context.Background()

	wtns, err := eng.ComputeWitness(ctx, testInputs(t, "9q8yyk8", "9q8yyk"))
	require.NoError(t, err)

	proof, err := eng.Prove(ctx, wtns)
	require.NoError(t, err)
	require.Equal(t, circuits.GeofenceCircuitID, proof.CircuitID)
	require.Equal(t, "groth16", proof.Protocol)

	want, err := circuits.ExpectedPubSignals("9q8yyk")
	require.NoError(t, err)
	assert.Equal(t, want, proof.PubSignals)

	require.NoError(t, eng.Verify(ctx, proof))
}

func TestProofForOutsideFingerprint(t *testing.T) {
	eng, err := Default()
	require.NoError(t, err)
	ctx := context.Background()

	// Fingerprint far from the fence: the assignment still satisfies the
	// constraints, but the public validity signal is not 1, so a policy
	// check against the expected signals rejects it.
	wtns, err := eng.ComputeWitness(ctx, testInputs(t, "t1q7hk8", "9q8yyk"))
	require.NoError(t, err)

	proof, err := eng.Prove(ctx, wtns)
	require.NoError(t, err)
	require.NoError(t, eng.Verify(ctx, proof))
	assert.NotEqual(t, "1", proof.PubSignals[0])
}

func TestVerifyRejectsTamperedSignals(t *testing.T) {
	eng, err := Default()
	require.NoError(t, err)
	ctx := context.Background()

	wtns, err := eng.ComputeWitness(ctx, testInputs(t, "t1q7hk8", "9q8yyk"))
	require.NoError(t, err)
	proof, err := eng.Prove(ctx, wtns)
	require.NoError(t, err)

	// Claim validity 1 over the same proof data.
	proof.PubSignals[0] = "1"
	require.ErrorIs(t, eng.Verify(ctx, proof), engine.ErrProofRejected)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	eng, err := Default()
	require.NoError(t, err)
	ctx := context.Background()

	require.ErrorIs(t, eng.Verify(ctx, nil), engine.ErrProofRejected)

	require.ErrorIs(t, eng.Verify(ctx, &engine.Proof{
		Protocol: "plonk",
		Data:     []byte(`"AA=="`),
	}), engine.ErrProofRejected)

	require.ErrorIs(t, eng.Verify(ctx, &engine.Proof{
		Protocol:   "groth16",
		Data:       []byte(`"not-base64!!"`),
		PubSignals: []string{"1", "57", "113", "56", "121", "121", "107"},
	}), engine.ErrProofRejected)
}

func TestComputeWitnessRejectsBadInputs(t *testing.T) {
	eng, err := Default()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.ComputeWitness(ctx, map[string]interface{}{})
	require.ErrorIs(t, err, engine.ErrEngineFailure)

	_, err = eng.ComputeWitness(ctx, map[string]interface{}{
		"fingerprint":   []string{"57"},
		"allowedPrefix": []string{"57", "57", "57", "57", "57", "57"},
	})
	require.ErrorIs(t, err, engine.ErrEngineFailure)
}

func TestComputeWitnessHonorsCancellation(t *testing.T) {
	eng, err := Default()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.ComputeWitness(ctx, testInputs(t, "9q8yyk8", "9q8yyk"))
	require.ErrorIs(t, err, context.Canceled)
}
