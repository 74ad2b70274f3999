// Package auth defines the authorization capability: proving that the
// current top-level call controls a given principal. The platform supplies
// the real implementation; Static serves tests and reference wiring.
package auth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openscf/scf-go/types"
)

// Authorizer fails the enclosing transaction when the caller cannot prove
// control of principal.
type Authorizer interface {
	RequireAuth(principal common.Address) error
}

var _ Authorizer = (*Static)(nil)

// Static authorizes a fixed set of principals.
type Static struct {
	allowed map[common.Address]struct{}
}

func NewStatic(principals ...common.Address) *Static {
	s := &Static{allowed: map[common.Address]struct{}{}}
	for _, p := range principals {
		s.Allow(p)
	}
	return s
}

func (s *Static) Allow(principal common.Address) {
	s.allowed[principal] = struct{}{}
}

func (s *Static) Revoke(principal common.Address) {
	delete(s.allowed, principal)
}

func (s *Static) RequireAuth(principal common.Address) error {
	if _, ok := s.allowed[principal]; !ok {
		return fmt.Errorf("%w: %s", types.ErrNotAuthorized, principal)
	}
	return nil
}
