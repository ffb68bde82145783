// Package types defines the wire envelopes exchanged between a prover and a
// verifier: the access request carrying both proofs, and the resulting
// access decision.
package types

import (
	"github.com/pkg/errors"

	"github.com/privaccess/go-privaccess-auth/engine"
	"github.com/privaccess/go-privaccess-auth/schnorr"
)

// ProtocolMessage tags the envelope kind.
type ProtocolMessage string

const (
	// AccessRequestMessage is an attempt to open a door.
	AccessRequestMessage ProtocolMessage = "privaccess/1.0/access-request"
	// AccessDecisionMessage is the verifier's answer.
	AccessDecisionMessage ProtocolMessage = "privaccess/1.0/access-decision"
)

// LocationProofKind distinguishes a real SNARK from the demonstration
// fallback. The two are never interchangeable: a demonstration payload
// reveals the fingerprint and proves nothing cryptographically.
type LocationProofKind string

const (
	// SnarkLocationProof is a groth16 proof over the geofence circuit.
	SnarkLocationProof LocationProofKind = "zeroknowledge"
	// DemoLocationProof is a plaintext assertion, accepted only by
	// verifiers explicitly configured for demonstrations.
	DemoLocationProof LocationProofKind = "demonstration"
)

// DemoAssertion is the demonstration payload: the raw fingerprint in the
// clear alongside the prefix it claims to match.
type DemoAssertion struct {
	Fingerprint   string `json:"fingerprint"`
	AllowedPrefix string `json:"allowed_prefix"`
}

// LocationProof is one of the two location proof forms, tagged by Kind.
type LocationProof struct {
	Kind  LocationProofKind `json:"kind"`
	Snark *engine.Proof     `json:"snark,omitempty"`
	Demo  *DemoAssertion    `json:"demo,omitempty"`
}

// AccessRequest is a complete door-opening attempt: who (Schnorr proof of a
// provisioned credential) and where (location proof), bound together by the
// door's authorized prefix as proof context.
type AccessRequest struct {
	Type      ProtocolMessage `json:"type"`
	AttemptID string          `json:"attempt_id"`
	DoorID    string          `json:"door_id"`
	Identity  *schnorr.Proof  `json:"identity"`
	Location  *LocationProof  `json:"location"`
}

// Validate checks structural completeness. Cryptographic checks are the
// verifier's job.
func (r *AccessRequest) Validate() error {
	if r == nil {
		return errors.New("nil access request")
	}
	if r.Type != AccessRequestMessage {
		return errors.Errorf("unexpected message type %q", r.Type)
	}
	if r.DoorID == "" {
		return errors.New("missing door ID")
	}
	if r.Identity == nil {
		return errors.New("missing identity proof")
	}
	if r.Location == nil {
		return errors.New("missing location proof")
	}
	switch r.Location.Kind {
	case SnarkLocationProof:
		if r.Location.Snark == nil {
			return errors.New("location proof tagged zeroknowledge carries no snark")
		}
	case DemoLocationProof:
		if r.Location.Demo == nil {
			return errors.New("location proof tagged demonstration carries no payload")
		}
	default:
		return errors.Errorf("unknown location proof kind %q", r.Location.Kind)
	}
	return nil
}

// AccessDecision is the verifier's verdict for one attempt.
type AccessDecision struct {
	Type          ProtocolMessage `json:"type"`
	AttemptID     string          `json:"attempt_id"`
	AccessGranted bool            `json:"access_granted"`
	Role          string          `json:"role,omitempty"`
	Message       string          `json:"message"`
}
