package certificate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openscf/scf-go/event"
	"github.com/openscf/scf-go/storage"
	"github.com/openscf/scf-go/types"
)

// CheckExpired reports whether the order has matured, running the expiry
// sweep on the first maturity observation.
func (l *Ledger) CheckExpired() (bool, error) {
	var expired bool
	err := storage.WithTx(l.store, func() (err error) {
		expired, err = l.updateExpired()
		return err
	})
	return expired, err
}

// CheckPaid reports whether the buyer has paid the invoice off.
func (l *Ledger) CheckPaid() (bool, error) {
	return l.paid()
}

// PayOff pulls the full scaled invoice amount from the buyer into the
// ledger's escrow balance, unlocking redemption. It succeeds exactly once.
func (l *Ledger) PayOff(from common.Address) error {
	return storage.WithTx(l.store, func() error {
		paid, err := l.paid()
		if err != nil {
			return err
		}
		if paid {
			return fmt.Errorf("%w: order is already paid off", types.ErrNotEmpty)
		}
		order, err := l.orderInfo()
		if err != nil {
			return err
		}
		if from != order.Buyer {
			return fmt.Errorf("%w: only the buyer %s may pay off", types.ErrNotPermitted, order.Buyer)
		}
		if err := l.auth.RequireAuth(from); err != nil {
			return err
		}
		ext, svc, err := l.externalToken()
		if err != nil {
			return err
		}
		amount, ok := types.NewAmount128(uint64(order.TotalAmount)).ScalePow10(ext.Decimals)
		if !ok {
			return fmt.Errorf("%w: scaling pay-off amount", types.ErrIntegerOverflow)
		}
		if err := svc.Transfer(from, l.self, amount); err != nil {
			return err
		}
		if err := l.store.Set(storage.PaidKey(), true); err != nil {
			return err
		}
		l.log.Debug("order paid off", zap.Stringer("from", from), zap.Stringer("amount", amount))
		return nil
	})
}

// Redeem burns a certificate and pays its scaled amount from the ledger's
// escrow to the owner. Requires maturity, completed pay-off, an enabled
// certificate and no active loan against it.
func (l *Ledger) Redeem(id types.CertID) error {
	return storage.WithTx(l.store, func() error {
		expired, err := l.updateExpired()
		if err != nil {
			return err
		}
		paid, err := l.paid()
		if err != nil {
			return err
		}
		disabled, err := l.IsDisabled(id)
		if err != nil {
			return err
		}
		if !expired || !paid || disabled {
			return fmt.Errorf("%w: certificate %s is not redeemable", types.ErrNotPermitted, id)
		}
		status, err := l.LoanStatus(id)
		if err != nil {
			return err
		}
		if status == types.LoanLoaned {
			return fmt.Errorf("%w: certificate %s is pledged as collateral", types.ErrNotPermitted, id)
		}
		owner, err := l.owner(id)
		if err != nil {
			return err
		}
		if err := l.auth.RequireAuth(owner); err != nil {
			return err
		}
		info, err := l.certInfo(id)
		if err != nil {
			return err
		}
		ext, svc, err := l.externalToken()
		if err != nil {
			return err
		}
		amount, ok := types.NewAmount128(uint64(info.Amount)).ScalePow10(ext.Decimals)
		if !ok {
			return fmt.Errorf("%w: scaling redemption amount", types.ErrIntegerOverflow)
		}
		if err := svc.Transfer(l.self, owner, amount); err != nil {
			return err
		}
		if err := l.store.Remove(storage.OwnerKey(id)); err != nil {
			return err
		}
		l.events.Publish(event.Redeem{Owner: owner, ID: id})
		l.log.Debug("certificate redeemed", zap.Stringer("id", id), zap.Stringer("amount", amount))
		return nil
	})
}

// updateExpired is the expiry sweep. The expired flag is a one-way cache:
// once set it short-circuits. On the first evaluation at or past maturity,
// every certificate still escrowed to the ledger is force-transferred to the
// root certificate's owner, so abandoned splits cannot strand value.
//
// Must run inside a transaction, before any ownership-sensitive read or
// mutation.
func (l *Ledger) updateExpired() (bool, error) {
	var cached bool
	if _, err := l.store.Get(storage.ExpiredKey(), &cached); err != nil {
		return false, err
	}
	if cached {
		return true, nil
	}
	order, err := l.orderInfo()
	if err != nil {
		return false, err
	}
	if l.now() < order.EndTime {
		return false, nil
	}
	if err := l.store.Set(storage.ExpiredKey(), true); err != nil {
		return false, err
	}
	supply, err := l.supply()
	if err != nil {
		return false, err
	}
	if supply > 0 {
		rootOwner, err := l.owner(0)
		if err != nil {
			return false, err
		}
		swept := 0
		for i := int64(1); i < supply; i++ {
			id := types.CertID(i)
			owner, ok, err := l.ownerIfAny(id)
			if err != nil {
				return false, err
			}
			if !ok || owner != l.self {
				continue
			}
			if err := l.moveOwner(l.self, rootOwner, id); err != nil {
				return false, err
			}
			swept++
		}
		if swept > 0 {
			l.log.Debug("expiry sweep returned unclaimed certificates",
				zap.Int("count", swept), zap.Stringer("to", rootOwner))
		}
	}
	return true, nil
}

func (l *Ledger) paid() (bool, error) {
	var paid bool
	if _, err := l.store.Get(storage.PaidKey(), &paid); err != nil {
		return false, err
	}
	return paid, nil
}
