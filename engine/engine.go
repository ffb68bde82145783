// Package engine defines the call contract with the external proving and
// verification engine. The core hands it a constraint system's witness
// inputs and treats everything it returns as opaque: artifacts are produced
// by Prove and consumed unchanged by Verify.
package engine

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrEngineFailure wraps any error coming out of a proving or verification
// backend, as opposed to a proof being judged invalid.
var ErrEngineFailure = errors.New("engine: backend failure")

// ErrProofRejected is returned by Verify when the backend ran correctly and
// judged the proof invalid. Retrying cannot change the outcome.
var ErrProofRejected = errors.New("engine: proof rejected")

// Proof is an opaque artifact. Data is backend-specific; PubSignals are the
// decimal-string public signals the constraint system exposes.
type Proof struct {
	CircuitID  string          `json:"circuit_id"`
	Protocol   string          `json:"protocol"`
	Data       json.RawMessage `json:"data"`
	PubSignals []string        `json:"pub_signals"`
}

// Engine is the proving/verification black box. Implementations must be
// safe for concurrent use; calls share no mutable state.
type Engine interface {
	// ComputeWitness solves the constraint system for the given private and
	// public inputs and returns the serialized witness. Inputs that violate
	// a constraint make the backend fail.
	ComputeWitness(ctx context.Context, inputs map[string]interface{}) ([]byte, error)

	// Prove produces a succinct proof from a witness.
	Prove(ctx context.Context, wtns []byte) (*Proof, error)

	// Verify checks a proof against its public signals. Returns
	// ErrProofRejected for a well-formed but invalid proof.
	Verify(ctx context.Context, proof *Proof) error
}
