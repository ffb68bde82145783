package privaccess

import (
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/privaccess/go-privaccess-auth/circuits"
	"github.com/privaccess/go-privaccess-auth/engine"
	"github.com/privaccess/go-privaccess-auth/groups"
	"github.com/privaccess/go-privaccess-auth/rbac"
	"github.com/privaccess/go-privaccess-auth/schnorr"
	"github.com/privaccess/go-privaccess-auth/types"
)

// minDemoPrefixLength is the shortest prefix a demonstration payload may
// claim; anything coarser is too weak even for a demo.
const minDemoPrefixLength = 6

// Verifier turns access requests into access decisions. Stateless across
// attempts apart from the immutable policy store and resolver cache.
type Verifier struct {
	params    *groups.Parameters
	store     *rbac.Store
	resolver  rbac.Resolver
	engine    engine.Engine
	allowDemo bool
	log       zerolog.Logger
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithDemoProofs makes the verifier accept tagged demonstration payloads.
// Decisions from such payloads are explicitly marked non-cryptographic.
func WithDemoProofs() VerifierOption {
	return func(v *Verifier) {
		v.allowDemo = true
	}
}

// WithResolver replaces the default cached resolver over the policy store.
func WithResolver(r rbac.Resolver) VerifierOption {
	return func(v *Verifier) {
		v.resolver = r
	}
}

// WithVerifierLogger attaches a logger. The default logger is disabled.
func WithVerifierLogger(log zerolog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.log = log
	}
}

// NewVerifier binds a policy store and a verification engine.
func NewVerifier(params *groups.Parameters, store *rbac.Store, eng engine.Engine, opts ...VerifierOption) (*Verifier, error) {
	if params == nil || store == nil || eng == nil {
		return nil, errors.Wrap(ErrInvalidInput, "verifier requires group parameters, policy store and engine")
	}
	v := &Verifier{
		params: params,
		store:  store,
		engine: eng,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.resolver == nil {
		v.resolver = rbac.NewCachedResolver(store)
	}
	return v, nil
}

// VerifyRequest runs the full cryptographic check of a request without
// making an access decision: envelope shape, context binding against the
// door's authorized prefix, the Schnorr identity proof, and the location
// proof. Failures map onto the package sentinels.
func (v *Verifier) VerifyRequest(ctx context.Context, req *types.AccessRequest) error {
	if err := req.Validate(); err != nil {
		return errors.Wrap(ErrInvalidInput, err.Error())
	}
	door, err := v.store.Door(req.DoorID)
	if err != nil {
		return errors.Wrap(ErrInvalidInput, err.Error())
	}

	// Context binding before any crypto: a proof generated for a different
	// prefix is tampering, not a verification failure worth paying for.
	if !bytes.Equal(req.Identity.Context, []byte(door.GeohashPrefix)) {
		return errors.Wrap(ErrInvalidProof, "identity proof bound to a different prefix")
	}

	if err := schnorr.Verify(v.params, req.Identity); err != nil {
		switch {
		case errors.Is(err, schnorr.ErrMalformedInput):
			return errors.Wrap(ErrInvalidInput, err.Error())
		default:
			return errors.Wrap(ErrInvalidProof, "identity proof rejected")
		}
	}

	switch req.Location.Kind {
	case types.SnarkLocationProof:
		return v.verifySnark(ctx, door, req.Location.Snark)
	case types.DemoLocationProof:
		return v.verifyDemo(door, req.Location.Demo)
	default:
		return errors.Wrapf(ErrInvalidInput, "unknown location proof kind %q", req.Location.Kind)
	}
}

func (v *Verifier) verifySnark(ctx context.Context, door rbac.Door, proof *engine.Proof) error {
	if proof.CircuitID != circuits.GeofenceCircuitID {
		return errors.Wrapf(ErrInvalidInput, "unexpected circuit %q", proof.CircuitID)
	}
	expected, err := circuits.ExpectedPubSignals(door.GeohashPrefix)
	if err != nil {
		return errors.Wrap(ErrInvalidInput, err.Error())
	}
	if len(proof.PubSignals) != len(expected) {
		return errors.Wrapf(ErrInvalidInput, "expected %d public signals, got %d", len(expected), len(proof.PubSignals))
	}
	// The proof must assert membership in this door's fence, not merely be
	// valid for some assignment.
	for i := range expected {
		if proof.PubSignals[i] != expected[i] {
			return errors.Wrap(ErrInvalidProof, "public signals do not match the door's authorized prefix")
		}
	}
	if err := v.engine.Verify(ctx, proof); err != nil {
		if errors.Is(err, engine.ErrProofRejected) {
			return errors.Wrap(ErrInvalidProof, "location proof rejected")
		}
		return errors.Wrap(ErrEngineFailure, err.Error())
	}
	return nil
}

func (v *Verifier) verifyDemo(door rbac.Door, demo *types.DemoAssertion) error {
	if !v.allowDemo {
		return errors.Wrap(ErrInvalidProof, "demonstration payloads are not accepted")
	}
	if len(demo.AllowedPrefix) < minDemoPrefixLength {
		return errors.Wrapf(ErrInvalidInput, "demonstration prefix must have at least %d characters", minDemoPrefixLength)
	}
	if demo.AllowedPrefix != door.GeohashPrefix {
		return errors.Wrap(ErrInvalidProof, "demonstration prefix does not match the door")
	}
	if !strings.HasPrefix(demo.Fingerprint, demo.AllowedPrefix) {
		return errors.Wrap(ErrInvalidProof, "fingerprint outside the authorized region")
	}
	return nil
}

// Authorize verifies a request and produces the access decision. Rejected
// proofs deny access rather than erroring; malformed requests and engine
// failures surface as errors since no decision was reached.
func (v *Verifier) Authorize(ctx context.Context, req *types.AccessRequest) (*types.AccessDecision, error) {
	log := v.log.With().Str("attempt", attemptID(req)).Logger()

	if err := v.VerifyRequest(ctx, req); err != nil {
		if errors.Is(err, ErrInvalidProof) {
			log.Info().Str("reason", err.Error()).Msg("access denied")
			return v.decision(req, false, "", err.Error()), nil
		}
		return nil, err
	}

	role, err := v.resolver.ResolveRole(ctx, req.Identity.PublicKey)
	if err != nil {
		if errors.Is(err, rbac.ErrUnknownIdentity) {
			log.Info().Msg("access denied: unknown identity")
			return v.decision(req, false, "", "credential does not belong to a provisioned role"), nil
		}
		return nil, err
	}

	msg := "access granted"
	if req.Location.Kind == types.DemoLocationProof {
		msg = "access granted (demonstration payload, not cryptographically verified)"
	}
	log.Info().Str("role", role.Name).Str("kind", string(req.Location.Kind)).Msg("access granted")
	return v.decision(req, true, role.Name, msg), nil
}

func (v *Verifier) decision(req *types.AccessRequest, granted bool, role, msg string) *types.AccessDecision {
	return &types.AccessDecision{
		Type:          types.AccessDecisionMessage,
		AttemptID:     attemptID(req),
		AccessGranted: granted,
		Role:          role,
		Message:       msg,
	}
}

func attemptID(req *types.AccessRequest) string {
	if req == nil {
		return ""
	}
	return req.AttemptID
}
