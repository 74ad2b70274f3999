/*
Package pool implements the collateralized offer engine: a liquidity
provider escrows funds in a whitelisted token against a specific certificate
and the certificate's holder may accept, exchanging the certificate as
collateral for the escrowed amount. Closing the loan pays the fee-scaled
remainder back to the borrower and releases the collateral status.

The pool reaches certificate state only through the narrow Collateral
interface and moves funds only through the token service; all of it inside
one transaction per top-level call.
*/
package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openscf/scf-go/auth"
	"github.com/openscf/scf-go/event"
	"github.com/openscf/scf-go/storage"
	"github.com/openscf/scf-go/token"
	"github.com/openscf/scf-go/types"
)

// Collateral is the certificate ledger surface the pool depends on. The
// ledger re-checks ownership and authenticates principals itself, so the
// pool never has to trust its own view of certificate state.
type Collateral interface {
	Amount(id types.CertID) (uint32, error)
	IsDisabled(id types.CertID) (bool, error)
	LoanStatus(id types.CertID) (types.LoanStatus, error)
	TryLoanTransition(id types.CertID, from, to types.LoanStatus) error
	Transfer(from, to common.Address, id types.CertID) error
}

// CollateralRegistry resolves a certificate contract address to its ledger.
type CollateralRegistry interface {
	CollateralFor(contract common.Address) (Collateral, error)
}

var _ CollateralRegistry = (MapCollateral)(nil)

type MapCollateral map[common.Address]Collateral

func (r MapCollateral) CollateralFor(contract common.Address) (Collateral, error) {
	coll, ok := r[contract]
	if !ok {
		return nil, fmt.Errorf("%w: certificate contract %s", types.ErrInvalidContract, contract)
	}
	return coll, nil
}

// Pool is the offer engine. It exclusively owns offer records and the token
// whitelist under its storage namespace.
type Pool struct {
	store  storage.TxStore
	self   common.Address
	tokens token.Registry
	certs  CollateralRegistry
	auth   auth.Authorizer
	events event.Publisher
	log    *zap.Logger
}

type Option func(*Pool)

func WithLogger(log *zap.Logger) Option {
	return func(p *Pool) { p.log = log }
}

func New(store storage.TxStore, self common.Address, tokens token.Registry, certs CollateralRegistry, authorizer auth.Authorizer, events event.Publisher, opts ...Option) *Pool {
	p := &Pool{
		store:  store,
		self:   self,
		tokens: tokens,
		certs:  certs,
		auth:   authorizer,
		events: events,
		log:    zap.NewNop(),
	}
	if p.events == nil {
		p.events = event.Nop{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Address returns the pool's own contract address, the escrow holder for
// pending offers.
func (p *Pool) Address() common.Address {
	return p.self
}

func (p *Pool) Initialize(admin common.Address) error {
	return storage.WithTx(p.store, func() error {
		initialized, err := p.store.Has(storage.AdminKey())
		if err != nil {
			return err
		}
		if initialized {
			return types.ErrAlreadyInitialized
		}
		return p.store.Set(storage.AdminKey(), admin)
	})
}

func (p *Pool) Admin() (common.Address, error) {
	var admin common.Address
	err := storage.WithTx(p.store, func() (err error) {
		admin, err = p.admin()
		return err
	})
	return admin, err
}

func (p *Pool) SetAdmin(newAdmin common.Address) error {
	return storage.WithTx(p.store, func() error {
		admin, err := p.requireAdmin()
		if err != nil {
			return err
		}
		if err := p.store.Set(storage.AdminKey(), newAdmin); err != nil {
			return err
		}
		p.events.Publish(event.SetAdmin{Admin: admin, NewAdmin: newAdmin})
		return nil
	})
}

// AddWhitelistedToken makes a token eligible for offers. Adding a token that
// is already whitelisted is a no-op.
func (p *Pool) AddWhitelistedToken(contract common.Address) error {
	return storage.WithTx(p.store, func() error {
		if _, err := p.requireAdmin(); err != nil {
			return err
		}
		return p.store.Set(storage.WhitelistKey(contract), true)
	})
}

// RemoveWhitelistedToken removes a token from the whitelist. Removing an
// absent token is a no-op. Existing offers in that token are unaffected.
func (p *Pool) RemoveWhitelistedToken(contract common.Address) error {
	return storage.WithTx(p.store, func() error {
		if _, err := p.requireAdmin(); err != nil {
			return err
		}
		return p.store.Remove(storage.WhitelistKey(contract))
	})
}

func (p *Pool) IsWhitelisted(contract common.Address) (bool, error) {
	return p.store.Has(storage.WhitelistKey(contract))
}

func (p *Pool) admin() (common.Address, error) {
	var admin common.Address
	ok, err := p.store.Get(storage.AdminKey(), &admin)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: pool is not initialized", types.ErrNotFound)
	}
	return admin, nil
}

func (p *Pool) requireAdmin() (common.Address, error) {
	admin, err := p.admin()
	if err != nil {
		return common.Address{}, err
	}
	if err := p.auth.RequireAuth(admin); err != nil {
		return common.Address{}, err
	}
	return admin, nil
}
