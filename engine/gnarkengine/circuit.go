// Package gnarkengine is an in-process proving engine: the geofence
// constraint system expressed as a gnark circuit, proved and verified with
// groth16 over BN254. It serves deployments and tests that have no compiled
// circom artifacts; the wire contract is the same as the external engine's.
package gnarkengine

import (
	"github.com/consensys/gnark/frontend"

	"github.com/privaccess/go-privaccess-auth/circuits"
)

// geofenceCircuit mirrors the deployed circom circuit. Per prefix position
// an equality gadget computes matched = 1 - (fingerprint - prefix)^2 and the
// output is the product of all matched signals; the gadget is exact only for
// unit-magnitude character-code differences (see circuits.Witness.Evaluate).
type geofenceCircuit struct {
	Fingerprint   [circuits.FingerprintLength]frontend.Variable `gnark:",secret"`
	AllowedPrefix [circuits.PrefixLength]frontend.Variable      `gnark:",public"`
	IsInside      frontend.Variable                             `gnark:",public"`
}

func (c *geofenceCircuit) Define(api frontend.API) error {
	validity := frontend.Variable(1)
	for i := 0; i < circuits.PrefixLength; i++ {
		diff := api.Sub(c.Fingerprint[i], c.AllowedPrefix[i])
		matched := api.Sub(1, api.Mul(diff, diff))
		validity = api.Mul(validity, matched)
	}
	api.AssertIsEqual(validity, c.IsInside)
	return nil
}
