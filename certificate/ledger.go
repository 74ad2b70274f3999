/*
Package certificate implements the invoice certificate ledger: a fractionally
splittable claim on an invoice's value with a maturity-gated redemption
lifecycle.

One Ledger instance represents one invoice. The root certificate (id 0)
carries the full invoice amount; splitting produces escrowed child
certificates pending sign-off plus a remainder kept by the splitter, and
disables the parent. After maturity, unclaimed escrowed certificates sweep
back to the root owner, and once the buyer has paid the invoice off, any
enabled certificate redeems for its amount in the external payment token.

Every exported operation runs in one storage transaction; any failure rolls
back all nested writes, including token balance movements.
*/
package certificate

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openscf/scf-go/auth"
	"github.com/openscf/scf-go/event"
	"github.com/openscf/scf-go/storage"
	"github.com/openscf/scf-go/token"
	"github.com/openscf/scf-go/types"
)

// Ledger is the certificate ledger of a single invoice. It exclusively owns
// all certificate, order and loan-status state under its storage namespace.
type Ledger struct {
	store  storage.TxStore
	self   common.Address
	tokens token.Registry
	auth   auth.Authorizer
	events event.Publisher
	log    *zap.Logger
	now    func() uint64
}

type Option func(*Ledger)

func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithClock overrides the time source (unix seconds) used for expiry.
func WithClock(now func() uint64) Option {
	return func(l *Ledger) { l.now = now }
}

// New returns a ledger bound to its own contract address and collaborators.
// The address identifies the ledger as an owner: certificates owned by self
// are escrowed pending sign-off.
func New(store storage.TxStore, self common.Address, tokens token.Registry, authorizer auth.Authorizer, events event.Publisher, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		self:   self,
		tokens: tokens,
		auth:   authorizer,
		events: events,
		log:    zap.NewNop(),
		now:    func() uint64 { return uint64(time.Now().Unix()) },
	}
	if l.events == nil {
		l.events = event.Nop{}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Address returns the ledger's own contract address.
func (l *Ledger) Address() common.Address {
	return l.self
}

// Initialize fixes the order info. It may be called once per instance and
// requires a maturity in the future.
func (l *Ledger) Initialize(admin, buyer common.Address, totalAmount uint32, endTime uint64) error {
	return storage.WithTx(l.store, func() error {
		initialized, err := l.store.Has(storage.AdminKey())
		if err != nil {
			return err
		}
		if initialized {
			return types.ErrAlreadyInitialized
		}
		if endTime <= l.now() {
			return fmt.Errorf("%w: end time %d is not in the future", types.ErrInvalidArgs, endTime)
		}
		if err := l.store.Set(storage.AdminKey(), admin); err != nil {
			return err
		}
		if err := l.store.Set(storage.OrderInfoKey(), OrderInfo{Buyer: buyer, TotalAmount: totalAmount, EndTime: endTime}); err != nil {
			return err
		}
		l.log.Debug("ledger initialized",
			zap.Stringer("admin", admin),
			zap.Stringer("buyer", buyer),
			zap.Uint32("totalAmount", totalAmount),
			zap.Uint64("endTime", endTime))
		return nil
	})
}

func (l *Ledger) Admin() (common.Address, error) {
	var admin common.Address
	err := storage.WithTx(l.store, func() (err error) {
		admin, err = l.admin()
		return err
	})
	return admin, err
}

// SetAdmin hands the administrator role to newAdmin.
func (l *Ledger) SetAdmin(newAdmin common.Address) error {
	return storage.WithTx(l.store, func() error {
		admin, err := l.requireAdmin()
		if err != nil {
			return err
		}
		if err := l.store.Set(storage.AdminKey(), newAdmin); err != nil {
			return err
		}
		l.events.Publish(event.SetAdmin{Admin: admin, NewAdmin: newAdmin})
		return nil
	})
}

// SetExternalToken registers the payment token used by PayOff and Redeem.
func (l *Ledger) SetExternalToken(contract common.Address, decimals uint32) error {
	return storage.WithTx(l.store, func() error {
		if _, err := l.requireAdmin(); err != nil {
			return err
		}
		if decimals > 255 {
			return fmt.Errorf("%w: decimals must not exceed 255, got %d", types.ErrInvalidArgs, decimals)
		}
		return l.store.Set(storage.ExternalTokenKey(), ExternalToken{Contract: contract, Decimals: decimals})
	})
}

// Amount returns the certificate's unscaled invoice-currency amount.
func (l *Ledger) Amount(id types.CertID) (uint32, error) {
	info, err := l.certInfo(id)
	if err != nil {
		return 0, err
	}
	return info.Amount, nil
}

func (l *Ledger) Parent(id types.CertID) (types.CertID, error) {
	info, err := l.certInfo(id)
	if err != nil {
		return 0, err
	}
	return info.Parent, nil
}

func (l *Ledger) Depth(id types.CertID) (uint32, error) {
	info, err := l.certInfo(id)
	if err != nil {
		return 0, err
	}
	return info.Depth, nil
}

// IsDisabled reports whether the certificate has been split.
func (l *Ledger) IsDisabled(id types.CertID) (bool, error) {
	var disabled bool
	ok, err := l.store.Get(storage.DisabledKey(id), &disabled)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w: certificate %s", types.ErrNotFound, id)
	}
	return disabled, nil
}

// Supply returns the number of certificate ids allocated so far.
func (l *Ledger) Supply() (int64, error) {
	return l.supply()
}

// Recipient returns the pending sign-off beneficiary of an escrowed id.
func (l *Ledger) Recipient(id types.CertID) (common.Address, error) {
	var recipient common.Address
	ok, err := l.store.Get(storage.RecipientKey(id), &recipient)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: no recipient for certificate %s", types.ErrNotFound, id)
	}
	return recipient, nil
}

// internal store accessors

func (l *Ledger) admin() (common.Address, error) {
	var admin common.Address
	ok, err := l.store.Get(storage.AdminKey(), &admin)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: ledger is not initialized", types.ErrNotFound)
	}
	return admin, nil
}

func (l *Ledger) requireAdmin() (common.Address, error) {
	admin, err := l.admin()
	if err != nil {
		return common.Address{}, err
	}
	if err := l.auth.RequireAuth(admin); err != nil {
		return common.Address{}, err
	}
	return admin, nil
}

func (l *Ledger) orderInfo() (OrderInfo, error) {
	var info OrderInfo
	ok, err := l.store.Get(storage.OrderInfoKey(), &info)
	if err != nil {
		return OrderInfo{}, err
	}
	if !ok {
		return OrderInfo{}, fmt.Errorf("%w: order info", types.ErrNotFound)
	}
	return info, nil
}

func (l *Ledger) externalToken() (ExternalToken, token.Service, error) {
	var ext ExternalToken
	ok, err := l.store.Get(storage.ExternalTokenKey(), &ext)
	if err != nil {
		return ExternalToken{}, nil, err
	}
	if !ok {
		return ExternalToken{}, nil, fmt.Errorf("%w: external token is not set", types.ErrInvalidContract)
	}
	svc, err := l.tokens.ServiceFor(ext.Contract)
	if err != nil {
		return ExternalToken{}, nil, err
	}
	return ext, svc, nil
}

func (l *Ledger) certInfo(id types.CertID) (CertInfo, error) {
	var info CertInfo
	ok, err := l.store.Get(storage.CertInfoKey(id), &info)
	if err != nil {
		return CertInfo{}, err
	}
	if !ok {
		return CertInfo{}, fmt.Errorf("%w: certificate %s", types.ErrNotFound, id)
	}
	return info, nil
}

func (l *Ledger) supply() (int64, error) {
	var supply int64
	if _, err := l.store.Get(storage.SupplyKey(), &supply); err != nil {
		return 0, err
	}
	return supply, nil
}

func (l *Ledger) incrementSupply() error {
	supply, err := l.supply()
	if err != nil {
		return err
	}
	return l.store.Set(storage.SupplyKey(), supply+1)
}
