// Package rbac is the policy side of the system: named roles with
// discrete-log credentials and permission sets, doors with their authorized
// geofence prefixes, and resolution from a proof's public key back to a
// role.
package rbac

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/privaccess/go-privaccess-auth/groups"
	"github.com/privaccess/go-privaccess-auth/schnorr"
)

var (
	// ErrUnknownIdentity is returned when no provisioned role matches a
	// public key.
	ErrUnknownIdentity = errors.New("rbac: unknown identity")
	// ErrUnknownRole is returned for a role name that was never provisioned.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrUnknownDoor is returned for an unregistered door ID.
	ErrUnknownDoor = errors.New("rbac: unknown door")
)

// Role is a provisioned identity with its permissions.
type Role struct {
	Name        string
	PublicKey   *big.Int
	Permissions []string
}

// Can reports whether the role carries a permission.
func (r *Role) Can(permission string) bool {
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Door is an access point guarded by a geofence prefix.
type Door struct {
	ID            string
	Name          string
	GeohashPrefix string
}

// Resolver maps a proof's public key to a provisioned role.
type Resolver interface {
	ResolveRole(ctx context.Context, publicKey *big.Int) (*Role, error)
}

// Store holds roles and doors for one group-parameter set. Read-only after
// construction, so concurrent attempts need no locking.
type Store struct {
	params *groups.Parameters
	roles  map[string]*role
	doors  map[string]Door
}

type role struct {
	name        string
	secret      *big.Int
	publicKey   *big.Int
	permissions []string
}

// NewStore creates an empty policy store bound to a group.
func NewStore(params *groups.Parameters) *Store {
	return &Store{
		params: params,
		roles:  make(map[string]*role),
		doors:  make(map[string]Door),
	}
}

// AddRole provisions a role with an explicit secret. The public key is
// derived immediately; the secret stays inside the store and is only handed
// out by Provision.
func (s *Store) AddRole(name string, secret *big.Int, permissions []string) error {
	key, err := schnorr.NewKeyPair(s.params, secret)
	if err != nil {
		return errors.Wrapf(err, "rbac: provisioning role %s", name)
	}
	s.roles[name] = &role{
		name:        name,
		secret:      new(big.Int).Set(secret),
		publicKey:   key.PublicKey,
		permissions: permissions,
	}
	return nil
}

// AddDoor registers an access point.
func (s *Store) AddDoor(d Door) {
	s.doors[d.ID] = d
}

// Door looks up an access point by ID.
func (s *Store) Door(id string) (Door, error) {
	d, ok := s.doors[id]
	if !ok {
		return Door{}, errors.Wrapf(ErrUnknownDoor, "%s", id)
	}
	return d, nil
}

// Provision returns the credential key pair for a role, for handing to that
// role's prover.
func (s *Store) Provision(name string) (*schnorr.KeyPair, error) {
	r, ok := s.roles[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownRole, "%s", name)
	}
	return schnorr.NewKeyPair(s.params, r.secret)
}

// ResolveRole scans provisioned roles for a matching public key.
func (s *Store) ResolveRole(_ context.Context, publicKey *big.Int) (*Role, error) {
	if publicKey == nil {
		return nil, errors.Wrap(ErrUnknownIdentity, "nil public key")
	}
	for _, r := range s.roles {
		if r.publicKey.Cmp(publicKey) == 0 {
			return &Role{Name: r.name, PublicKey: new(big.Int).Set(r.publicKey), Permissions: r.permissions}, nil
		}
	}
	return nil, ErrUnknownIdentity
}

// Demo role secrets carried over from the reference deployment. Real
// deployments provision their own.
var demoRoles = []struct {
	name        string
	secret      string
	permissions []string
}{
	{"ADMIN", "123456789012345678901234567890", []string{"read", "write", "delete"}},
	{"FACULTY", "98765432109876543210987654321", []string{"read", "write"}},
	{"STUDENT", "112233445566778899001122334455", []string{"read"}},
}

// NewDemoStore builds the reference policy: three roles and one door
// ("Computer Lab A") fenced to the t1q7hk prefix.
func NewDemoStore(params *groups.Parameters) (*Store, error) {
	s := NewStore(params)
	for _, r := range demoRoles {
		secret, ok := new(big.Int).SetString(r.secret, 10)
		if !ok {
			return nil, errors.Errorf("rbac: invalid demo secret for %s", r.name)
		}
		if err := s.AddRole(r.name, secret, r.permissions); err != nil {
			return nil, err
		}
	}
	s.AddDoor(Door{ID: "101", Name: "Computer Lab A", GeohashPrefix: "t1q7hk"})
	return s, nil
}
