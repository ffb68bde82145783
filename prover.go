// Package privaccess orchestrates privacy-preserving door access: a prover
// turns its position and credential into an access request, a verifier
// turns the request into an access decision. Position coordinates never
// leave the prover; the verifier sees only proofs bound to a door's
// authorized geohash prefix.
package privaccess

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/privaccess/go-privaccess-auth/circuits"
	"github.com/privaccess/go-privaccess-auth/engine"
	"github.com/privaccess/go-privaccess-auth/geohash"
	"github.com/privaccess/go-privaccess-auth/groups"
	"github.com/privaccess/go-privaccess-auth/rbac"
	"github.com/privaccess/go-privaccess-auth/schnorr"
	"github.com/privaccess/go-privaccess-auth/types"
)

const defaultLocationTimeout = 5 * time.Second

// Position is a point reported by a location provider.
type Position struct {
	Latitude  float64
	Longitude float64
}

// LocationProvider supplies the prover's current position. Implementations
// wrap GPS hardware, platform location services, or fixtures in tests.
type LocationProvider interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// Prover assembles access requests. It holds no per-attempt state, so one
// Prover may serve concurrent attempts.
type Prover struct {
	params          *groups.Parameters
	identity        *schnorr.Prover
	location        LocationProvider
	engine          engine.Engine
	locationTimeout time.Duration
	allowDemo       bool
	log             zerolog.Logger
}

// ProverOption configures a Prover.
type ProverOption func(*Prover)

// WithLocationTimeout bounds position acquisition. Default 5s.
func WithLocationTimeout(d time.Duration) ProverOption {
	return func(p *Prover) {
		p.locationTimeout = d
	}
}

// WithProverLogger attaches a logger. The default logger is disabled.
func WithProverLogger(log zerolog.Logger) ProverOption {
	return func(p *Prover) {
		p.log = log
	}
}

// WithDemoFallback lets the prover fall back to a plaintext demonstration
// payload when the engine fails. The payload is tagged and reveals the
// fingerprint; only demonstration verifiers accept it.
func WithDemoFallback() ProverOption {
	return func(p *Prover) {
		p.allowDemo = true
	}
}

// NewProver binds a credential, a location source and a proving engine.
func NewProver(params *groups.Parameters, key *schnorr.KeyPair, location LocationProvider, eng engine.Engine, opts ...ProverOption) (*Prover, error) {
	if params == nil || key == nil || location == nil || eng == nil {
		return nil, errors.Wrap(ErrInvalidInput, "prover requires group parameters, key pair, location provider and engine")
	}
	p := &Prover{
		params:          params,
		identity:        schnorr.NewProver(params, key),
		location:        location,
		engine:          eng,
		locationTimeout: defaultLocationTimeout,
		log:             zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// RequestAccess runs one attempt against a door: acquire position, encode
// the fingerprint, prove the geofence predicate, and prove knowledge of the
// credential bound to the door's prefix. The returned request carries no
// coordinates and, unless the demonstration fallback fired, no fingerprint.
func (p *Prover) RequestAccess(ctx context.Context, door rbac.Door) (*types.AccessRequest, error) {
	attemptID := uuid.NewString()
	log := p.log.With().Str("attempt", attemptID).Str("door", door.ID).Logger()

	if len(door.GeohashPrefix) != circuits.PrefixLength {
		return nil, errors.Wrapf(ErrInvalidInput, "door %s has prefix of length %d, need %d", door.ID, len(door.GeohashPrefix), circuits.PrefixLength)
	}

	pos, err := p.currentPosition(ctx)
	if err != nil {
		return nil, err
	}

	fingerprint, err := geohash.Encode(pos.Latitude, pos.Longitude, circuits.FingerprintLength)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}

	witness, err := circuits.NewWitness(fingerprint, door.GeohashPrefix)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}

	location, err := p.proveLocation(ctx, witness, log)
	if err != nil {
		return nil, err
	}

	identity, err := p.identity.Prove([]byte(door.GeohashPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "identity proof")
	}

	log.Info().Str("kind", string(location.Kind)).Msg("access request assembled")
	return &types.AccessRequest{
		Type:      types.AccessRequestMessage,
		AttemptID: attemptID,
		DoorID:    door.ID,
		Identity:  identity,
		Location:  location,
	}, nil
}

func (p *Prover) currentPosition(ctx context.Context) (Position, error) {
	ctx, cancel := context.WithTimeout(ctx, p.locationTimeout)
	defer cancel()

	pos, err := p.location.CurrentPosition(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Position{}, errors.Wrap(ErrTimeout, "location acquisition")
		}
		return Position{}, errors.Wrap(err, "location acquisition")
	}
	return pos, nil
}

// proveLocation runs the engine; on engine failure with the fallback
// enabled it degrades to the tagged demonstration payload.
func (p *Prover) proveLocation(ctx context.Context, w *circuits.Witness, log zerolog.Logger) (*types.LocationProof, error) {
	wtns, err := p.engine.ComputeWitness(ctx, w.Inputs())
	if err == nil {
		var proof *engine.Proof
		proof, err = p.engine.Prove(ctx, wtns)
		if err == nil {
			return &types.LocationProof{Kind: types.SnarkLocationProof, Snark: proof}, nil
		}
	}
	if ctx.Err() != nil {
		return nil, errors.Wrap(ctx.Err(), "location proof")
	}
	if !p.allowDemo {
		return nil, errors.Wrap(ErrEngineFailure, err.Error())
	}
	log.Warn().Err(err).Msg("engine failed, falling back to demonstration payload")
	return &types.LocationProof{
		Kind: types.DemoLocationProof,
		Demo: &types.DemoAssertion{Fingerprint: w.Fingerprint, AllowedPrefix: w.AllowedPrefix},
	}, nil
}
