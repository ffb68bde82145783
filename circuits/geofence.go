// Package circuits describes the geofence constraint system handed to the
// proving engine: its signal layout, its witness inputs, and a local
// evaluator used to check assignments before an expensive proving call.
package circuits

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/privaccess/go-privaccess-auth/geohash"
)

// GeofenceCircuitID identifies the prefix-match circuit.
const GeofenceCircuitID = "geofencePrefixMatch"

const (
	// FingerprintLength is the number of private fingerprint signals.
	FingerprintLength = 7
	// PrefixLength is the number of public authorized-prefix signals. A
	// shorter prefix would make the fence too coarse to be meaningful.
	PrefixLength = 6
)

// GeofencePublicSignalsSchema maps public signal names to their positions in
// the engine's output. The validity signal comes first, then the
// authorized-prefix character codes.
const GeofencePublicSignalsSchema = `{"isInside":0,"allowedPrefix_0":1,"allowedPrefix_1":2,"allowedPrefix_2":3,"allowedPrefix_3":4,"allowedPrefix_4":5,"allowedPrefix_5":6}`

// fieldModulus is the BN254 scalar field the engine's constraint system is
// defined over.
const fieldModulus = "21888242871839275222246405745257275088548364400416034343698204186575808495617"

// Field returns the constraint-system field modulus.
func Field() *big.Int {
	r, ok := new(big.Int).SetString(fieldModulus, 10)
	if !ok {
		panic("circuits: invalid field modulus")
	}
	return r
}

// Witness is the full assignment for one geofence proof: the private
// fingerprint and the public authorized prefix.
type Witness struct {
	// Fingerprint is the prover's full geohash. Private input.
	Fingerprint string
	// AllowedPrefix is the authorized region prefix. Public input.
	AllowedPrefix string
}

// NewWitness validates lengths and alphabet and builds an assignment.
func NewWitness(fingerprint, allowedPrefix string) (*Witness, error) {
	if len(fingerprint) != FingerprintLength {
		return nil, errors.Errorf("circuits: fingerprint must have %d characters, got %d", FingerprintLength, len(fingerprint))
	}
	if len(allowedPrefix) != PrefixLength {
		return nil, errors.Errorf("circuits: allowed prefix must have %d characters, got %d", PrefixLength, len(allowedPrefix))
	}
	if !geohash.Valid(fingerprint) {
		return nil, errors.Errorf("circuits: fingerprint is not a geohash")
	}
	if !geohash.Valid(allowedPrefix) {
		return nil, errors.Errorf("circuits: allowed prefix is not a geohash")
	}
	return &Witness{Fingerprint: fingerprint, AllowedPrefix: allowedPrefix}, nil
}

// Inputs renders the assignment as the engine's witness-calculator input
// map: one decimal-string character code per signal.
func (w *Witness) Inputs() map[string]interface{} {
	return map[string]interface{}{
		"fingerprint":   charCodes(w.Fingerprint),
		"allowedPrefix": charCodes(w.AllowedPrefix),
	}
}

// Evaluate runs the circuit's constraints locally over the field and returns
// the validity signal.
//
// Per prefix position i the equality gadget is
//
//	matched[i] = 1 - (fingerprint[i] - allowedPrefix[i])^2
//
// and the output is the product of all matched[i]. The gadget is exact only
// when the character-code difference is in {-1, 0, 1}: a difference of 0
// yields 1 and a difference of +-1 yields 0, but larger differences leave a
// nonzero non-unit factor, so crafted multi-position differences can
// multiply back to 1 in the field. Known limitation of the deployed circuit;
// kept as-is so Go-side evaluation matches the engine's artifacts.
func (w *Witness) Evaluate() *big.Int {
	r := Field()
	one := big.NewInt(1)

	validity := new(big.Int).Set(one)
	for i := 0; i < PrefixLength; i++ {
		diff := big.NewInt(int64(w.Fingerprint[i]) - int64(w.AllowedPrefix[i]))
		diff.Mul(diff, diff)
		matched := new(big.Int).Sub(one, diff)
		matched.Mod(matched, r)
		validity.Mul(validity, matched)
		validity.Mod(validity, r)
	}
	return validity
}

// IsInside reports whether the assignment satisfies the circuit with
// validity 1.
func (w *Witness) IsInside() bool {
	return w.Evaluate().Cmp(big.NewInt(1)) == 0
}

// PubSignals is the decoded public output of a geofence proof.
type PubSignals struct {
	IsInside      *big.Int
	AllowedPrefix string
}

// ExpectedPubSignals renders the public signals a verifier must see for a
// valid proof over the given prefix.
func ExpectedPubSignals(allowedPrefix string) ([]string, error) {
	if len(allowedPrefix) != PrefixLength {
		return nil, errors.Errorf("circuits: allowed prefix must have %d characters, got %d", PrefixLength, len(allowedPrefix))
	}
	out := make([]string, 0, PrefixLength+1)
	out = append(out, "1")
	out = append(out, charCodes(allowedPrefix)...)
	return out, nil
}

// ParsePubSignals decodes the engine's public-signal array according to
// GeofencePublicSignalsSchema.
func ParsePubSignals(signals []string) (*PubSignals, error) {
	if len(signals) != PrefixLength+1 {
		return nil, errors.Errorf("circuits: expected %d public signals, got %d", PrefixLength+1, len(signals))
	}
	isInside, ok := new(big.Int).SetString(signals[0], 10)
	if !ok {
		return nil, errors.Errorf("circuits: invalid validity signal %q", signals[0])
	}

	var sb strings.Builder
	for i, s := range signals[1:] {
		code, err := strconv.Atoi(s)
		if err != nil || code < 0 || code > 255 {
			return nil, errors.Errorf("circuits: invalid character code %q at position %d", s, i)
		}
		sb.WriteByte(byte(code))
	}
	prefix := sb.String()
	if !geohash.Valid(prefix) {
		return nil, errors.Errorf("circuits: public prefix is not a geohash")
	}
	return &PubSignals{IsInside: isInside, AllowedPrefix: prefix}, nil
}

func charCodes(s string) []string {
	codes := make([]string, len(s))
	for i := 0; i < len(s); i++ {
		codes[i] = strconv.Itoa(int(s[i]))
	}
	return codes
}
