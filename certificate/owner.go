package certificate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openscf/scf-go/event"
	"github.com/openscf/scf-go/storage"
	"github.com/openscf/scf-go/types"
)

// Owner returns the current owner of a certificate. The expiry sweep runs
// first, so a just-matured instance reports swept owners, never stale
// escrow.
func (l *Ledger) Owner(id types.CertID) (common.Address, error) {
	var owner common.Address
	err := storage.WithTx(l.store, func() error {
		if _, err := l.updateExpired(); err != nil {
			return err
		}
		var err error
		owner, err = l.owner(id)
		return err
	})
	return owner, err
}

// AllOwned returns the ids of all enabled certificates owned by addr.
func (l *Ledger) AllOwned(addr common.Address) ([]types.CertID, error) {
	var ids []types.CertID
	err := storage.WithTx(l.store, func() error {
		if _, err := l.updateExpired(); err != nil {
			return err
		}
		supply, err := l.supply()
		if err != nil {
			return err
		}
		for i := int64(0); i < supply; i++ {
			id := types.CertID(i)
			owner, ok, err := l.ownerIfAny(id)
			if err != nil {
				return err
			}
			if !ok || owner != addr {
				continue
			}
			disabled, err := l.IsDisabled(id)
			if err != nil {
				return err
			}
			if !disabled {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return ids, err
}

// Transfer moves certificate id from its owner to another holder. The caller
// must be the owner and able to authenticate as such.
func (l *Ledger) Transfer(from, to common.Address, id types.CertID) error {
	return storage.WithTx(l.store, func() error {
		if _, err := l.updateExpired(); err != nil {
			return err
		}
		if err := l.checkOwner(from, id); err != nil {
			return err
		}
		if err := l.auth.RequireAuth(from); err != nil {
			return err
		}
		return l.moveOwner(from, to, id)
	})
}

// TransferFrom moves certificate id on behalf of its owner, consuming the
// spender's approval. The spender must hold a per-id approval or a blanket
// approval from the owner.
func (l *Ledger) TransferFrom(spender, from, to common.Address, id types.CertID) error {
	return storage.WithTx(l.store, func() error {
		if _, err := l.updateExpired(); err != nil {
			return err
		}
		if err := l.checkOwner(from, id); err != nil {
			return err
		}
		if err := l.auth.RequireAuth(spender); err != nil {
			return err
		}
		allApproved, err := l.IsApprovedAll(from, spender)
		if err != nil {
			return err
		}
		if !allApproved {
			approved, ok, err := l.approvedFor(id)
			if err != nil {
				return err
			}
			if !ok || approved != spender {
				return fmt.Errorf("%w: %s may not transfer certificate %s", types.ErrNotAuthorized, spender, id)
			}
		}
		if err := l.store.Remove(storage.ApprovalKey(id)); err != nil {
			return err
		}
		return l.moveOwner(from, to, id)
	})
}

// Approve allows operator to transfer certificate id once.
func (l *Ledger) Approve(owner, operator common.Address, id types.CertID) error {
	return storage.WithTx(l.store, func() error {
		if err := l.auth.RequireAuth(owner); err != nil {
			return err
		}
		if err := l.checkOwner(owner, id); err != nil {
			return err
		}
		return l.store.Set(storage.ApprovalKey(id), operator)
	})
}

// ApproveAll grants or revokes operator's right to transfer any certificate
// of owner.
func (l *Ledger) ApproveAll(owner, operator common.Address, approved bool) error {
	return storage.WithTx(l.store, func() error {
		if err := l.auth.RequireAuth(owner); err != nil {
			return err
		}
		if !approved {
			return l.store.Remove(storage.ApprovalAllKey(owner, operator))
		}
		return l.store.Set(storage.ApprovalAllKey(owner, operator), true)
	})
}

// GetApproved returns the operator approved for certificate id, if any.
func (l *Ledger) GetApproved(id types.CertID) (common.Address, bool, error) {
	return l.approvedFor(id)
}

func (l *Ledger) IsApprovedAll(owner, operator common.Address) (bool, error) {
	return l.store.Has(storage.ApprovalAllKey(owner, operator))
}

// SignOff claims an escrowed certificate for its recipient. Only valid while
// the id is owned by the ledger itself, enabled and not expired.
func (l *Ledger) SignOff(id types.CertID) error {
	return storage.WithTx(l.store, func() error {
		expired, err := l.updateExpired()
		if err != nil {
			return err
		}
		owner, err := l.owner(id)
		if err != nil {
			return err
		}
		disabled, err := l.IsDisabled(id)
		if err != nil {
			return err
		}
		if owner != l.self || disabled || expired {
			return fmt.Errorf("%w: certificate %s is not pending sign-off", types.ErrNotPermitted, id)
		}
		recipient, err := l.Recipient(id)
		if err != nil {
			return err
		}
		if err := l.auth.RequireAuth(recipient); err != nil {
			return err
		}
		return l.moveOwner(l.self, recipient, id)
	})
}

// Burn removes a certificate without paying anything out.
func (l *Ledger) Burn(id types.CertID) error {
	return storage.WithTx(l.store, func() error {
		if _, err := l.requireAdmin(); err != nil {
			return err
		}
		if _, err := l.updateExpired(); err != nil {
			return err
		}
		from, err := l.owner(id)
		if err != nil {
			return err
		}
		if err := l.store.Remove(storage.OwnerKey(id)); err != nil {
			return err
		}
		l.events.Publish(event.Burn{From: from, ID: id})
		l.log.Debug("certificate burned", zap.Stringer("id", id), zap.Stringer("from", from))
		return nil
	})
}

func (l *Ledger) owner(id types.CertID) (common.Address, error) {
	owner, ok, err := l.ownerIfAny(id)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: certificate %s has no owner", types.ErrNotFound, id)
	}
	return owner, nil
}

func (l *Ledger) ownerIfAny(id types.CertID) (common.Address, bool, error) {
	var owner common.Address
	ok, err := l.store.Get(storage.OwnerKey(id), &owner)
	if err != nil {
		return common.Address{}, false, err
	}
	return owner, ok, nil
}

func (l *Ledger) checkOwner(addr common.Address, id types.CertID) error {
	owner, err := l.owner(id)
	if err != nil {
		return err
	}
	if owner != addr {
		return fmt.Errorf("%w: certificate %s is owned by %s", types.ErrNotOwned, id, owner)
	}
	return nil
}

func (l *Ledger) approvedFor(id types.CertID) (common.Address, bool, error) {
	var operator common.Address
	ok, err := l.store.Get(storage.ApprovalKey(id), &operator)
	if err != nil {
		return common.Address{}, false, err
	}
	return operator, ok, nil
}

func (l *Ledger) moveOwner(from, to common.Address, id types.CertID) error {
	// a recipient is meaningful only while the id sits in escrow
	if from == l.self {
		if err := l.store.Remove(storage.RecipientKey(id)); err != nil {
			return err
		}
	}
	if err := l.store.Set(storage.OwnerKey(id), to); err != nil {
		return err
	}
	l.events.Publish(event.Transfer{From: from, To: to, ID: id})
	return nil
}
