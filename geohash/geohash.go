// Package geohash converts coordinates into base-32 spatial fingerprints.
// Encoding is total and deterministic, and fingerprints are prefix-stable:
// the first k characters of a precision-n fingerprint equal the precision-k
// fingerprint of the same point. That property is what makes shared prefixes
// usable as geofences.
package geohash

import (
	"strings"

	"github.com/pkg/errors"
)

// Alphabet is the standard geohash base-32 symbol set.
const Alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Encode returns the fingerprint of (lat, lon) with the given number of
// characters. Latitude must be in [-90, 90], longitude in [-180, 180] and
// precision positive.
func Encode(lat, lon float64, precision int) (string, error) {
	if precision <= 0 {
		return "", errors.Errorf("geohash: precision must be positive, got %d", precision)
	}
	if lat < -90 || lat > 90 {
		return "", errors.Errorf("geohash: latitude %f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return "", errors.Errorf("geohash: longitude %f out of range [-180, 180]", lon)
	}

	var (
		sb                 strings.Builder
		latMin, latMax     = -90.0, 90.0
		lonMin, lonMax     = -180.0, 180.0
		evenBit            = true // longitude first
		accumulator, nbits int
	)
	sb.Grow(precision)

	for sb.Len() < precision {
		accumulator <<= 1
		if evenBit {
			mid := (lonMin + lonMax) / 2
			if lon >= mid {
				accumulator |= 1
				lonMin = mid
			} else {
				lonMax = mid
			}
		} else {
			mid := (latMin + latMax) / 2
			if lat >= mid {
				accumulator |= 1
				latMin = mid
			} else {
				latMax = mid
			}
		}
		evenBit = !evenBit

		nbits++
		if nbits == 5 {
			sb.WriteByte(Alphabet[accumulator])
			accumulator, nbits = 0, 0
		}
	}
	return sb.String(), nil
}

// Valid reports whether s is a non-empty string over the geohash alphabet.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(Alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}
