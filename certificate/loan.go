package certificate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openscf/scf-go/event"
	"github.com/openscf/scf-go/storage"
	"github.com/openscf/scf-go/types"
)

// SetLoanContract registers the external loan contract allowed to change
// loan statuses. It can be set exactly once.
func (l *Ledger) SetLoanContract(contract common.Address) error {
	return storage.WithTx(l.store, func() error {
		if _, err := l.requireAdmin(); err != nil {
			return err
		}
		has, err := l.store.Has(storage.LoanContractKey())
		if err != nil {
			return err
		}
		if has {
			return fmt.Errorf("%w: loan contract is already set", types.ErrNotEmpty)
		}
		if err := l.store.Set(storage.LoanContractKey(), contract); err != nil {
			return err
		}
		l.events.Publish(event.SetLoanContract{Contract: contract})
		return nil
	})
}

// LoanStatus returns the loan status of a certificate.
func (l *Ledger) LoanStatus(id types.CertID) (types.LoanStatus, error) {
	var status types.LoanStatus
	ok, err := l.store.Get(storage.LoanStatusKey(id), &status)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: no loan status for certificate %s", types.ErrNotFound, id)
	}
	return status, nil
}

// SetLoanStatus sets a certificate's loan status unconditionally. Only the
// registered loan contract may call it; prefer TryLoanTransition, which
// stays correct under racing offers.
func (l *Ledger) SetLoanStatus(id types.CertID, status types.LoanStatus) error {
	return storage.WithTx(l.store, func() error {
		if err := l.requireLoanContract(); err != nil {
			return err
		}
		if err := l.checkLoanTarget(id); err != nil {
			return err
		}
		return l.writeLoanStatus(id, status)
	})
}

// TryLoanTransition atomically moves a certificate's loan status from one
// value to another, failing if the current status does not match. A
// Free->Loaned transition against an already loaned certificate reports
// ErrTCAlreadyLoaned; an expected-Loaned transition against anything else
// reports ErrTCNotLoaned.
func (l *Ledger) TryLoanTransition(id types.CertID, from, to types.LoanStatus) error {
	return storage.WithTx(l.store, func() error {
		if err := l.requireLoanContract(); err != nil {
			return err
		}
		if err := l.checkLoanTarget(id); err != nil {
			return err
		}
		current, err := l.LoanStatus(id)
		if err != nil {
			return err
		}
		if current != from {
			switch {
			case from == types.LoanFree && current == types.LoanLoaned:
				return fmt.Errorf("%w: certificate %s", types.ErrTCAlreadyLoaned, id)
			case from == types.LoanLoaned:
				return fmt.Errorf("%w: certificate %s has status %s", types.ErrTCNotLoaned, id, current)
			default:
				return fmt.Errorf("%w: certificate %s has status %s, expected %s", types.ErrNotPermitted, id, current, from)
			}
		}
		return l.writeLoanStatus(id, to)
	})
}

func (l *Ledger) requireLoanContract() error {
	var contract common.Address
	ok, err := l.store.Get(storage.LoanContractKey(), &contract)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: loan contract is not set", types.ErrInvalidContract)
	}
	return l.auth.RequireAuth(contract)
}

// checkLoanTarget validates that the certificate exists and has not been
// split away.
func (l *Ledger) checkLoanTarget(id types.CertID) error {
	disabled, err := l.IsDisabled(id)
	if err != nil {
		return err
	}
	if disabled {
		return fmt.Errorf("%w: certificate %s is disabled", types.ErrNotPermitted, id)
	}
	return nil
}

func (l *Ledger) writeLoanStatus(id types.CertID, status types.LoanStatus) error {
	if err := l.store.Set(storage.LoanStatusKey(id), status); err != nil {
		return err
	}
	l.events.Publish(event.Loan{ID: id, Status: status})
	l.log.Debug("loan status changed", zap.Stringer("id", id), zap.Stringer("status", status))
	return nil
}
