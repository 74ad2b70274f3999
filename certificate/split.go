package certificate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openscf/scf-go/event"
	"github.com/openscf/scf-go/storage"
	"github.com/openscf/scf-go/types"
	"github.com/openscf/scf-go/util"
)

// MintOriginal creates the root certificate carrying the full invoice
// amount. It can only happen once, before any other id exists.
func (l *Ledger) MintOriginal(to common.Address) error {
	return storage.WithTx(l.store, func() error {
		if _, err := l.requireAdmin(); err != nil {
			return err
		}
		supply, err := l.supply()
		if err != nil {
			return err
		}
		if supply != 0 {
			return fmt.Errorf("%w: root certificate is already minted", types.ErrNotEmpty)
		}
		info, err := l.orderInfo()
		if err != nil {
			return err
		}
		const rootID = types.CertID(0)
		if err := l.createCert(rootID, CertInfo{Parent: rootID, Depth: 0, Amount: info.TotalAmount}, to); err != nil {
			return err
		}
		l.events.Publish(event.Mint{To: to, ID: rootID})
		l.log.Debug("root certificate minted", zap.Stringer("to", to), zap.Uint32("amount", info.TotalAmount))
		return nil
	})
}

// Split divides certificate id into one escrowed child per request plus, if
// the requests do not exhaust the parent's amount, a remainder certificate
// owned directly by the current owner. The parent is disabled afterwards.
//
// Returns the new ids in creation order: requested children first, the
// remainder last.
func (l *Ledger) Split(id types.CertID, requests []SplitRequest) ([]types.CertID, error) {
	var newIDs []types.CertID
	err := storage.WithTx(l.store, func() error {
		disabled, err := l.IsDisabled(id)
		if err != nil {
			return err
		}
		if disabled {
			// a disabled certificate has already been split
			return fmt.Errorf("%w: certificate %s is disabled", types.ErrNotPermitted, id)
		}
		if len(requests) == 0 {
			return fmt.Errorf("%w: split requires at least one request", types.ErrInvalidArgs)
		}
		expired, err := l.updateExpired()
		if err != nil {
			return err
		}
		if expired {
			return fmt.Errorf("%w: order has matured", types.ErrNotPermitted)
		}
		status, err := l.LoanStatus(id)
		if err != nil {
			return err
		}
		if status != types.LoanFree {
			return fmt.Errorf("%w: certificate %s has loan status %s", types.ErrNotPermitted, id, status)
		}
		parent, err := l.certInfo(id)
		if err != nil {
			return err
		}
		if parent.Depth >= MaxSplitDepth {
			return fmt.Errorf("%w: certificate %s is at depth %d", types.ErrSplitLimitReached, id, parent.Depth)
		}
		order, err := l.orderInfo()
		if err != nil {
			return err
		}
		var sum uint32
		for _, req := range requests {
			if uint64(req.Amount)*minSplitDivisor < uint64(order.TotalAmount) {
				return fmt.Errorf("%w: %d is below 1/%d of the order total %d",
					types.ErrSplitAmountTooLow, req.Amount, minSplitDivisor, order.TotalAmount)
			}
			var ok bool
			if sum, ok = util.SafeAdd(sum, req.Amount); !ok {
				return fmt.Errorf("%w: split request sum overflows", types.ErrAmountTooMuch)
			}
		}
		if sum > parent.Amount {
			return fmt.Errorf("%w: requested %d of %d", types.ErrAmountTooMuch, sum, parent.Amount)
		}
		owner, err := l.owner(id)
		if err != nil {
			return err
		}
		if err := l.auth.RequireAuth(owner); err != nil {
			return err
		}

		for _, req := range requests {
			childID, err := l.nextID()
			if err != nil {
				return err
			}
			child := CertInfo{Parent: id, Depth: parent.Depth + 1, Amount: req.Amount}
			// escrow to the ledger itself until the recipient signs off
			if err := l.createCert(childID, child, l.self); err != nil {
				return err
			}
			if err := l.store.Set(storage.RecipientKey(childID), req.To); err != nil {
				return err
			}
			newIDs = append(newIDs, childID)
		}

		if remaining, ok := util.SafeSub(parent.Amount, sum); ok && remaining > 0 {
			childID, err := l.nextID()
			if err != nil {
				return err
			}
			child := CertInfo{Parent: id, Depth: parent.Depth + 1, Amount: remaining}
			if err := l.createCert(childID, child, owner); err != nil {
				return err
			}
			newIDs = append(newIDs, childID)
		}

		if err := l.store.Set(storage.DisabledKey(id), true); err != nil {
			return err
		}
		l.events.Publish(event.Split{From: owner, ID: id, NewIDs: newIDs})
		l.log.Debug("certificate split",
			zap.Stringer("id", id),
			zap.Int("children", len(newIDs)),
			zap.Uint32("requested", sum))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newIDs, nil
}

func (l *Ledger) nextID() (types.CertID, error) {
	supply, err := l.supply()
	if err != nil {
		return 0, err
	}
	return types.CertID(supply), nil
}

// createCert writes the full record set of a new certificate: split-tree
// info, owner, enabled flag, free loan status, and bumps the supply.
func (l *Ledger) createCert(id types.CertID, info CertInfo, owner common.Address) error {
	has, err := l.store.Has(storage.CertInfoKey(id))
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("%w: certificate %s", types.ErrNotEmpty, id)
	}
	if err := l.store.Set(storage.CertInfoKey(id), info); err != nil {
		return err
	}
	if err := l.store.Set(storage.OwnerKey(id), owner); err != nil {
		return err
	}
	if err := l.store.Set(storage.DisabledKey(id), false); err != nil {
		return err
	}
	if err := l.store.Set(storage.LoanStatusKey(id), types.LoanFree); err != nil {
		return err
	}
	return l.incrementSupply()
}
