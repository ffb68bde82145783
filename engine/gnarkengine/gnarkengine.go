package gnarkengine

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/pkg/errors"

	"github.com/privaccess/go-privaccess-auth/circuits"
	"github.com/privaccess/go-privaccess-auth/engine"
)

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
	defaultErr    error
)

// Engine holds the compiled constraint system and groth16 key pair.
// Immutable after New; safe for concurrent proving and verification.
type Engine struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// New compiles the geofence circuit and runs an in-process groth16 setup.
// Expensive; call once per parameter set. The setup here is not a ceremony:
// it is suitable for tests and single-operator deployments only.
func New() (*Engine, error) {
	var circuit geofenceCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "compiling circuit: %v", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "groth16 setup: %v", err)
	}
	return &Engine{ccs: ccs, pk: pk, vk: vk}, nil
}

// Default returns a process-wide shared engine, compiling it on first use.
func Default() (*Engine, error) {
	defaultOnce.Do(func() {
		defaultEngine, defaultErr = New()
	})
	return defaultEngine, defaultErr
}

// ComputeWitness builds and serializes the full assignment. Inputs use the
// same keys and decimal-string character codes as the external calculator:
// "fingerprint" and "allowedPrefix". The validity output signal is computed
// here, because the assignment must satisfy the product constraint exactly.
func (e *Engine) ComputeWitness(ctx context.Context, inputs map[string]interface{}) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fingerprint, err := stringSignals(inputs, "fingerprint", circuits.FingerprintLength)
	if err != nil {
		return nil, err
	}
	prefix, err := stringSignals(inputs, "allowedPrefix", circuits.PrefixLength)
	if err != nil {
		return nil, err
	}

	var assignment geofenceCircuit
	for i, s := range fingerprint {
		assignment.Fingerprint[i] = s
	}
	for i, s := range prefix {
		assignment.AllowedPrefix[i] = s
	}
	assignment.IsInside = evaluateValidity(fingerprint, prefix)

	w, err := frontend.NewWitness(&assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "building witness: %v", err)
	}
	data, err := w.MarshalBinary()
	if err != nil {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "encoding witness: %v", err)
	}
	return data, nil
}

// Prove runs groth16 over a witness produced by ComputeWitness.
func (e *Engine) Prove(ctx context.Context, wtns []byte) (*engine.Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "allocating witness: %v", err)
	}
	if err := w.UnmarshalBinary(wtns); err != nil {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "decoding witness: %v", err)
	}

	proof, err := groth16.Prove(e.ccs, e.pk, w)
	if err != nil {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "proving: %v", err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "encoding proof: %v", err)
	}
	data, err := json.Marshal(buf.Bytes())
	if err != nil {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "encoding proof: %v", err)
	}

	pubSignals, err := publicSignals(w)
	if err != nil {
		return nil, err
	}
	return &engine.Proof{
		CircuitID:  circuits.GeofenceCircuitID,
		Protocol:   "groth16",
		Data:       data,
		PubSignals: pubSignals,
	}, nil
}

// Verify checks a proof against its public signals.
func (e *Engine) Verify(ctx context.Context, proof *engine.Proof) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if proof == nil || len(proof.Data) == 0 {
		return errors.Wrap(engine.ErrProofRejected, "missing proof data")
	}
	if proof.Protocol != "groth16" {
		return errors.Wrapf(engine.ErrProofRejected, "%s protocol is not supported", proof.Protocol)
	}

	var raw []byte
	if err := json.Unmarshal(proof.Data, &raw); err != nil {
		return errors.Wrapf(engine.ErrProofRejected, "decoding proof data: %v", err)
	}
	gproof := groth16.NewProof(ecc.BN254)
	if _, err := gproof.ReadFrom(bytes.NewReader(raw)); err != nil {
		return errors.Wrapf(engine.ErrProofRejected, "decoding proof data: %v", err)
	}

	pubW, err := publicWitness(proof.PubSignals)
	if err != nil {
		return err
	}
	if err := groth16.Verify(gproof, e.vk, pubW); err != nil {
		return errors.Wrapf(engine.ErrProofRejected, "groth16 verification: %v", err)
	}
	return nil
}

// publicSignals extracts the canonical [isInside, prefix...] layout from a
// full witness. The gnark public vector is ordered by declaration:
// AllowedPrefix first, then IsInside.
func publicSignals(w witness.Witness) ([]string, error) {
	pub, err := w.Public()
	if err != nil {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "extracting public witness: %v", err)
	}
	vec, ok := pub.Vector().(fr.Vector)
	if !ok {
		return nil, errors.Wrap(engine.ErrEngineFailure, "unexpected public witness vector type")
	}
	if len(vec) != circuits.PrefixLength+1 {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "unexpected public witness length %d", len(vec))
	}
	out := make([]string, 0, len(vec))
	out = append(out, vec[circuits.PrefixLength].String())
	for i := 0; i < circuits.PrefixLength; i++ {
		out = append(out, vec[i].String())
	}
	return out, nil
}

// publicWitness rebuilds the public-only witness from canonical signals.
func publicWitness(signals []string) (witness.Witness, error) {
	if len(signals) != circuits.PrefixLength+1 {
		return nil, errors.Wrapf(engine.ErrProofRejected, "expected %d public signals, got %d", circuits.PrefixLength+1, len(signals))
	}
	var assignment geofenceCircuit
	isInside, ok := new(big.Int).SetString(signals[0], 10)
	if !ok {
		return nil, errors.Wrapf(engine.ErrProofRejected, "invalid validity signal %q", signals[0])
	}
	assignment.IsInside = isInside
	for i, s := range signals[1:] {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, errors.Wrapf(engine.ErrProofRejected, "invalid public signal %q", s)
		}
		assignment.AllowedPrefix[i] = v
	}
	w, err := frontend.NewWitness(&assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return nil, errors.Wrapf(engine.ErrProofRejected, "building public witness: %v", err)
	}
	return w, nil
}

func stringSignals(inputs map[string]interface{}, key string, want int) ([]string, error) {
	raw, ok := inputs[key]
	if !ok {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "missing input %q", key)
	}
	signals, ok := raw.([]string)
	if !ok {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "input %q must be a string array", key)
	}
	if len(signals) != want {
		return nil, errors.Wrapf(engine.ErrEngineFailure, "input %q must have %d signals, got %d", key, want, len(signals))
	}
	return signals, nil
}

// evaluateValidity mirrors circuits.Witness.Evaluate over raw decimal
// signals, so witness construction accepts whatever assignment the circuit
// accepts.
func evaluateValidity(fingerprint, prefix []string) *big.Int {
	r := circuits.Field()
	one := big.NewInt(1)
	validity := new(big.Int).Set(one)
	for i := 0; i < circuits.PrefixLength; i++ {
		f, _ := new(big.Int).SetString(fingerprint[i], 10)
		a, _ := new(big.Int).SetString(prefix[i], 10)
		if f == nil || a == nil {
			continue
		}
		diff := new(big.Int).Sub(f, a)
		diff.Mul(diff, diff)
		matched := new(big.Int).Sub(one, diff)
		matched.Mod(matched, r)
		validity.Mul(validity, matched)
		validity.Mod(validity, r)
	}
	return validity
}
