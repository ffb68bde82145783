package privaccess

import "github.com/pkg/errors"

// Failure taxonomy for the orchestration layer. Match with errors.Is;
// messages carry detail but callers branch on the sentinel.
var (
	// ErrInvalidInput marks malformed requests: unknown doors, bad
	// coordinates, envelopes missing fields, out-of-range proof elements.
	ErrInvalidInput = errors.New("privaccess: invalid input")
	// ErrEngineFailure marks an operational failure of the proving engine,
	// as opposed to a rejected proof.
	ErrEngineFailure = errors.New("privaccess: proving engine failure")
	// ErrInvalidProof marks a well-formed proof that fails verification,
	// including context tampering.
	ErrInvalidProof = errors.New("privaccess: invalid proof")
	// ErrTimeout marks a location acquisition that exceeded its deadline.
	ErrTimeout = errors.New("privaccess: timed out")
)
