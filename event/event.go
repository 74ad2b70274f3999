// Package event defines the fixed event schema emitted by the certificate
// ledger and the offer pool. The schema is part of the external interface
// and must stay stable; consumers key on Event.Name.
package event

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/openscf/scf-go/types"
)

type Event interface {
	Name() string
}

// Publisher delivers events to the platform's event system. Publication
// happens inside the emitting transaction; an aborted transaction publishes
// nothing.
type Publisher interface {
	Publish(e Event)
}

type SetAdmin struct {
	Admin    common.Address `json:"admin"`
	NewAdmin common.Address `json:"newAdmin"`
}

type SetLoanContract struct {
	Contract common.Address `json:"contract"`
}

type Mint struct {
	To common.Address `json:"to"`
	ID types.CertID   `json:"id"`
}

type Transfer struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	ID   types.CertID   `json:"id"`
}

type Burn struct {
	From common.Address `json:"from"`
	ID   types.CertID   `json:"id"`
}

type Split struct {
	From   common.Address `json:"from"`
	ID     types.CertID   `json:"id"`
	NewIDs []types.CertID `json:"newIds"`
}

type Redeem struct {
	Owner common.Address `json:"owner"`
	ID    types.CertID   `json:"id"`
}

type Loan struct {
	ID     types.CertID     `json:"id"`
	Status types.LoanStatus `json:"status"`
}

type CreateOffer struct {
	From    common.Address  `json:"from"`
	OfferID types.OfferID   `json:"offerId"`
	Amount  types.Amount128 `json:"amount"`
	Fee     types.Amount128 `json:"fee"`
}

type AcceptOffer struct {
	To      common.Address `json:"to"`
	OfferID types.OfferID  `json:"offerId"`
}

type ExpireOffer struct {
	From    common.Address `json:"from"`
	OfferID types.OfferID  `json:"offerId"`
}

type CloseOffer struct {
	From    common.Address  `json:"from"`
	OfferID types.OfferID   `json:"offerId"`
	Amount  types.Amount128 `json:"amount"`
}

func (SetAdmin) Name() string        { return "set_admin" }
func (SetLoanContract) Name() string { return "set_loan" }
func (Mint) Name() string            { return "mint" }
func (Transfer) Name() string        { return "transfer" }
func (Burn) Name() string            { return "burn" }
func (Split) Name() string           { return "split" }
func (Redeem) Name() string          { return "redeem" }
func (Loan) Name() string            { return "loan" }
func (CreateOffer) Name() string     { return "create" }
func (AcceptOffer) Name() string     { return "accept" }
func (ExpireOffer) Name() string     { return "expire" }
func (CloseOffer) Name() string      { return "close" }

// Nop discards all events.
type Nop struct{}

func (Nop) Publish(Event) {}

// Recorder appends every published event, for tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(e Event) {
	r.Events = append(r.Events, e)
}

// Named returns the recorded events with the given name, in order.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}
