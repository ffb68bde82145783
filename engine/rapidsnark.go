package engine

import (
	"context"
	"encoding/json"

	"github.com/iden3/go-rapidsnark/prover"
	"github.com/iden3/go-rapidsnark/types"
	"github.com/iden3/go-rapidsnark/verifier"
	"github.com/iden3/go-rapidsnark/witness"
	"github.com/pkg/errors"

	"github.com/privaccess/go-privaccess-auth/circuits"
)

// Rapidsnark runs the circom/groth16 toolchain in-process: a wasm witness
// calculator plus the rapidsnark prover and verifier. Artifacts follow the
// snarkjs JSON layout (arrays of decimal-string field elements).
type Rapidsnark struct {
	calc            *witness.Circom2WitnessCalculator
	provingKey      []byte
	verificationKey []byte
}

// NewRapidsnark builds a full prover+verifier engine from compiled circuit
// artifacts: the witness-calculator wasm, the groth16 proving key (zkey) and
// the verification key JSON.
func NewRapidsnark(wasm, provingKey, verificationKey []byte) (*Rapidsnark, error) {
	if len(wasm) == 0 || len(provingKey) == 0 || len(verificationKey) == 0 {
		return nil, errors.Wrap(ErrEngineFailure, "missing circuit artifacts")
	}
	calc, err := witness.NewCircom2WitnessCalculator(wasm, true)
	if err != nil {
		return nil, errors.Wrapf(ErrEngineFailure, "loading witness calculator: %v", err)
	}
	return &Rapidsnark{calc: calc, provingKey: provingKey, verificationKey: verificationKey}, nil
}

// NewRapidsnarkVerifier builds a verifier-only engine. ComputeWitness and
// Prove fail on it.
func NewRapidsnarkVerifier(verificationKey []byte) (*Rapidsnark, error) {
	if len(verificationKey) == 0 {
		return nil, errors.Wrap(ErrEngineFailure, "missing verification key")
	}
	return &Rapidsnark{verificationKey: verificationKey}, nil
}

// ComputeWitness solves the circuit through the wasm calculator.
func (r *Rapidsnark) ComputeWitness(ctx context.Context, inputs map[string]interface{}) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.calc == nil {
		return nil, errors.Wrap(ErrEngineFailure, "engine has no witness calculator")
	}
	wtns, err := r.calc.CalculateWTNSBin(inputs, true)
	if err != nil {
		return nil, errors.Wrapf(ErrEngineFailure, "computing witness: %v", err)
	}
	return wtns, nil
}

// Prove runs the groth16 prover over a computed witness.
func (r *Rapidsnark) Prove(ctx context.Context, wtns []byte) (*Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(r.provingKey) == 0 {
		return nil, errors.Wrap(ErrEngineFailure, "engine has no proving key")
	}
	zkp, err := prover.Groth16Prover(r.provingKey, wtns)
	if err != nil {
		return nil, errors.Wrapf(ErrEngineFailure, "proving: %v", err)
	}
	data, err := json.Marshal(zkp.Proof)
	if err != nil {
		return nil, errors.Wrapf(ErrEngineFailure, "encoding proof: %v", err)
	}
	return &Proof{
		CircuitID:  circuits.GeofenceCircuitID,
		Protocol:   "groth16",
		Data:       data,
		PubSignals: zkp.PubSignals,
	}, nil
}

// Verify checks a rapidsnark artifact against the verification key.
func (r *Rapidsnark) Verify(ctx context.Context, proof *Proof) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if proof == nil || len(proof.Data) == 0 {
		return errors.Wrap(ErrProofRejected, "missing proof data")
	}
	if proof.Protocol != "groth16" {
		return errors.Wrapf(ErrProofRejected, "%s protocol is not supported", proof.Protocol)
	}
	var proofData types.ProofData
	if err := json.Unmarshal(proof.Data, &proofData); err != nil {
		return errors.Wrapf(ErrProofRejected, "decoding proof data: %v", err)
	}
	zkp := types.ZKProof{Proof: &proofData, PubSignals: proof.PubSignals}
	if err := verifier.VerifyGroth16(zkp, r.verificationKey); err != nil {
		return errors.Wrapf(ErrProofRejected, "groth16 verification: %v", err)
	}
	return nil
}
