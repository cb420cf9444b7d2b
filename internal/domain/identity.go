// Package domain holds the relay's value types: the closed identity set,
// mutation events and their sentinel errors.
package domain

import "fmt"

// Identity is the logical participant a connection represents.
// It is used as a room key and is not an authenticated principal.
type Identity string

const (
	IdentityA Identity = "A"
	IdentityB Identity = "B"
)

// Identities is the closed set of rooms a connection may join.
var Identities = []Identity{IdentityA, IdentityB}

// ParseIdentity is case-sensitive: "a" is not "A".
func ParseIdentity(raw string) (Identity, error) {
	id := Identity(raw)
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, raw)
	}
	return id, nil
}

func (i Identity) Valid() bool {
	switch i {
	case IdentityA, IdentityB:
		return true
	}
	return false
}

func (i Identity) String() string { return string(i) }
