// Package loaders fetches compiled circuit artifacts (witness-calculator
// wasm, groth16 proving key, verification key) for the proving engine.
package loaders

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/privaccess/go-privaccess-auth/cache"
)

// ErrArtifactNotFound is returned when a loader has no artifact for the
// requested circuit.
var ErrArtifactNotFound = errors.New("loaders: artifact not found")

// ArtifactKind selects which compiled artifact to load.
type ArtifactKind string

const (
	// KindWasm is the circom witness-calculator module.
	KindWasm ArtifactKind = "wasm"
	// KindProvingKey is the groth16 zkey.
	KindProvingKey ArtifactKind = "zkey"
	// KindVerificationKey is the snarkjs verification key JSON.
	KindVerificationKey ArtifactKind = "vkey"
)

// fileName maps a circuit and kind to the snarkjs on-disk naming.
func fileName(circuitID string, kind ArtifactKind) (string, error) {
	switch kind {
	case KindWasm:
		return circuitID + ".wasm", nil
	case KindProvingKey:
		return circuitID + "_final.zkey", nil
	case KindVerificationKey:
		return circuitID + "_verification_key.json", nil
	default:
		return "", errors.Errorf("loaders: unknown artifact kind %q", kind)
	}
}

// ArtifactLoader loads one compiled artifact for a circuit.
type ArtifactLoader interface {
	Load(circuitID string, kind ArtifactKind) ([]byte, error)
}

// FSLoader reads artifacts from a directory.
type FSLoader struct {
	Dir string
}

// Load reads the artifact file, returning ErrArtifactNotFound when absent.
func (l FSLoader) Load(circuitID string, kind ArtifactKind) ([]byte, error) {
	name, err := fileName(circuitID, kind)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(l.Dir, name))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrArtifactNotFound, "%s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loaders: reading %s", name)
	}
	return data, nil
}

// CachedLoader memoizes another loader. Proving keys run to tens of
// megabytes, so re-reading them per authentication attempt is wasteful.
type CachedLoader struct {
	inner ArtifactLoader
	cache cache.Cache[[]byte]
}

// Option configures a CachedLoader.
type Option func(*CachedLoader)

// WithCache replaces the default in-memory cache.
func WithCache(c cache.Cache[[]byte]) Option {
	return func(l *CachedLoader) {
		l.cache = c
	}
}

// NewCachedLoader wraps inner with an in-memory cache (default: 16 entries,
// one-hour TTL).
func NewCachedLoader(inner ArtifactLoader, opts ...Option) *CachedLoader {
	l := &CachedLoader{
		inner: inner,
		cache: cache.NewMemory[[]byte](16, time.Hour),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the cached artifact or falls through to the inner loader.
func (l *CachedLoader) Load(circuitID string, kind ArtifactKind) ([]byte, error) {
	key := circuitID + ":" + string(kind)
	if data, ok := l.cache.Get(key); ok {
		return data, nil
	}
	data, err := l.inner.Load(circuitID, kind)
	if err != nil {
		return nil, err
	}
	l.cache.Set(key, data)
	return data, nil
}

// CircuitArtifacts bundles everything a full prover+verifier engine needs.
type CircuitArtifacts struct {
	Wasm            []byte
	ProvingKey      []byte
	VerificationKey []byte
}

// LoadAll fetches the three artifacts of a circuit.
func LoadAll(l ArtifactLoader, circuitID string) (*CircuitArtifacts, error) {
	wasm, err := l.Load(circuitID, KindWasm)
	if err != nil {
		return nil, err
	}
	zkey, err := l.Load(circuitID, KindProvingKey)
	if err != nil {
		return nil, err
	}
	vkey, err := l.Load(circuitID, KindVerificationKey)
	if err != nil {
		return nil, err
	}
	return &CircuitArtifacts{Wasm: wasm, ProvingKey: zkey, VerificationKey: vkey}, nil
}
