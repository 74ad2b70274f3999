package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openscf/scf-go/event"
	"github.com/openscf/scf-go/storage"
	"github.com/openscf/scf-go/types"
)

// Offer is one collateralized liquidity offer. Recipient is meaningful only
// once the offer has been accepted.
type Offer struct {
	_          struct{}          `cbor:",toarray"`
	From       common.Address    `json:"from"`
	ExtToken   common.Address    `json:"extToken"`
	Amount     types.Amount128   `json:"amount"`
	FeePercent types.Amount128   `json:"feePercent"`
	Remainder  types.Amount128   `json:"remainder"`
	TCContract common.Address    `json:"tcContract"`
	TCID       types.CertID      `json:"tcId"`
	Recipient  common.Address    `json:"recipient"`
	Status     types.OfferStatus `json:"status"`
}

// CreateOffer escrows amount of a whitelisted token against the certificate
// (tcContract, tcID). The certificate must be enabled and free of loans, and
// its fee-scaled value must cover the offered amount; the difference is
// stored as the remainder owed at close-out.
func (p *Pool) CreateOffer(from, extToken common.Address, amount, feePercent types.Amount128, tcContract common.Address, tcID types.CertID) (types.OfferID, error) {
	var id types.OfferID
	err := storage.WithTx(p.store, func() error {
		whitelisted, err := p.IsWhitelisted(extToken)
		if err != nil {
			return err
		}
		if !whitelisted {
			return fmt.Errorf("%w: %s", types.ErrTokenNotSupported, extToken)
		}
		coll, err := p.certs.CollateralFor(tcContract)
		if err != nil {
			return err
		}
		if err := p.checkCollateralFree(coll, tcID); err != nil {
			return err
		}
		certAmount, err := coll.Amount(tcID)
		if err != nil {
			return err
		}
		svc, err := p.tokens.ServiceFor(extToken)
		if err != nil {
			return err
		}
		certValue, err := Scaled(types.NewAmount128(uint64(certAmount)), svc.Decimals(), feePercent)
		if err != nil {
			return err
		}
		remainder, ok := certValue.Sub(amount)
		if !ok {
			return fmt.Errorf("%w: offered %s exceeds certificate value %s", types.ErrInvalidAmount, amount, certValue)
		}
		if err := p.auth.RequireAuth(from); err != nil {
			return err
		}
		if err := svc.Transfer(from, p.self, amount); err != nil {
			return err
		}
		id, err = p.nextOfferID()
		if err != nil {
			return err
		}
		offer := Offer{
			From:       from,
			ExtToken:   extToken,
			Amount:     amount,
			FeePercent: feePercent,
			Remainder:  remainder,
			TCContract: tcContract,
			TCID:       tcID,
			Status:     types.OfferPending,
		}
		if err := p.store.Set(storage.OfferKey(id), offer); err != nil {
			return err
		}
		p.events.Publish(event.CreateOffer{From: from, OfferID: id, Amount: amount, Fee: feePercent})
		p.log.Debug("offer created",
			zap.Stringer("offerId", id),
			zap.Stringer("from", from),
			zap.Stringer("amount", amount),
			zap.Stringer("certId", tcID))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetOffer returns the offer record.
func (p *Pool) GetOffer(id types.OfferID) (Offer, error) {
	var offer Offer
	ok, err := p.store.Get(storage.OfferKey(id), &offer)
	if err != nil {
		return Offer{}, err
	}
	if !ok {
		return Offer{}, fmt.Errorf("%w: offer %s", types.ErrNotFound, id)
	}
	return offer, nil
}

// ExpireOffer cancels a pending offer and refunds the escrowed amount to its
// creator. Only the creator or the pool admin may expire an offer.
func (p *Pool) ExpireOffer(caller common.Address, id types.OfferID) error {
	return storage.WithTx(p.store, func() error {
		offer, err := p.GetOffer(id)
		if err != nil {
			return err
		}
		if offer.Status != types.OfferPending {
			return fmt.Errorf("%w: offer %s is %s", types.ErrOfferChanged, id, offer.Status)
		}
		admin, err := p.admin()
		if err != nil {
			return err
		}
		if caller != offer.From && caller != admin {
			return fmt.Errorf("%w: %s may not expire offer %s", types.ErrNotAuthorized, caller, id)
		}
		if err := p.auth.RequireAuth(caller); err != nil {
			return err
		}
		svc, err := p.tokens.ServiceFor(offer.ExtToken)
		if err != nil {
			return err
		}
		if err := svc.Transfer(p.self, offer.From, offer.Amount); err != nil {
			return err
		}
		offer.Status = types.OfferClosed
		if err := p.store.Set(storage.OfferKey(id), offer); err != nil {
			return err
		}
		p.events.Publish(event.ExpireOffer{From: offer.From, OfferID: id})
		p.log.Debug("offer expired", zap.Stringer("offerId", id))
		return nil
	})
}

// AcceptOffer lets the certificate's holder take a pending offer: the
// certificate moves to the offer's creator as collateral, the escrowed
// amount is released to the accepter, and the certificate is marked loaned.
func (p *Pool) AcceptOffer(to common.Address, id types.OfferID) error {
	return storage.WithTx(p.store, func() error {
		offer, err := p.GetOffer(id)
		if err != nil {
			return err
		}
		if offer.Status != types.OfferPending {
			return fmt.Errorf("%w: offer %s is %s", types.ErrOfferChanged, id, offer.Status)
		}
		coll, err := p.certs.CollateralFor(offer.TCContract)
		if err != nil {
			return err
		}
		if err := p.checkCollateralFree(coll, offer.TCID); err != nil {
			return err
		}
		if err := p.auth.RequireAuth(to); err != nil {
			return err
		}
		// the ledger enforces that `to` actually owns the certificate
		if err := coll.Transfer(to, offer.From, offer.TCID); err != nil {
			return err
		}
		svc, err := p.tokens.ServiceFor(offer.ExtToken)
		if err != nil {
			return err
		}
		if err := svc.Transfer(p.self, to, offer.Amount); err != nil {
			return err
		}
		if err := coll.TryLoanTransition(offer.TCID, types.LoanFree, types.LoanLoaned); err != nil {
			return err
		}
		offer.Recipient = to
		offer.Status = types.OfferAccepted
		if err := p.store.Set(storage.OfferKey(id), offer); err != nil {
			return err
		}
		p.events.Publish(event.AcceptOffer{To: to, OfferID: id})
		p.log.Debug("offer accepted", zap.Stringer("offerId", id), zap.Stringer("to", to))
		return nil
	})
}

// CloseOffer settles an accepted offer: the creator pays the fee-scaled
// remainder to the borrower and the certificate's loan is closed. The
// certificate stays with the creator.
func (p *Pool) CloseOffer(id types.OfferID) error {
	return storage.WithTx(p.store, func() error {
		offer, err := p.GetOffer(id)
		if err != nil {
			return err
		}
		if offer.Status != types.OfferAccepted {
			return fmt.Errorf("%w: offer %s is %s", types.ErrOfferChanged, id, offer.Status)
		}
		if err := p.auth.RequireAuth(offer.From); err != nil {
			return err
		}
		svc, err := p.tokens.ServiceFor(offer.ExtToken)
		if err != nil {
			return err
		}
		if err := svc.Transfer(offer.From, offer.Recipient, offer.Remainder); err != nil {
			return err
		}
		coll, err := p.certs.CollateralFor(offer.TCContract)
		if err != nil {
			return err
		}
		if err := coll.TryLoanTransition(offer.TCID, types.LoanLoaned, types.LoanClosed); err != nil {
			return err
		}
		offer.Status = types.OfferClosed
		if err := p.store.Set(storage.OfferKey(id), offer); err != nil {
			return err
		}
		p.events.Publish(event.CloseOffer{From: offer.From, OfferID: id, Amount: offer.Remainder})
		p.log.Debug("offer closed", zap.Stringer("offerId", id), zap.Stringer("remainder", offer.Remainder))
		return nil
	})
}

func (p *Pool) checkCollateralFree(coll Collateral, id types.CertID) error {
	disabled, err := coll.IsDisabled(id)
	if err != nil {
		return err
	}
	if disabled {
		return fmt.Errorf("%w: certificate %s", types.ErrTCDisabled, id)
	}
	status, err := coll.LoanStatus(id)
	if err != nil {
		return err
	}
	if status != types.LoanFree {
		return fmt.Errorf("%w: certificate %s has loan status %s", types.ErrTCAlreadyLoaned, id, status)
	}
	return nil
}

func (p *Pool) nextOfferID() (types.OfferID, error) {
	var count int64
	if _, err := p.store.Get(storage.OfferCountKey(), &count); err != nil {
		return 0, err
	}
	if err := p.store.Set(storage.OfferCountKey(), count+1); err != nil {
		return 0, err
	}
	return types.OfferID(count), nil
}
