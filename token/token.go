// Package token defines the fungible token service consumed by the
// certificate ledger and the offer pool, plus a store-backed implementation
// so token balances participate in the same transactions as ledger state.
package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openscf/scf-go/storage"
	"github.com/openscf/scf-go/types"
)

// Service is the narrow token interface the ledger and pool depend on.
type Service interface {
	Transfer(from, to common.Address, amount types.Amount128) error
	Balance(holder common.Address) (types.Amount128, error)
	Decimals() uint32
}

// Registry resolves a token contract address to its service. The offer pool
// uses it to reach any whitelisted token.
type Registry interface {
	ServiceFor(contract common.Address) (Service, error)
}

var _ Service = (*StoreService)(nil)

// StoreService keeps balances in an injected store, normally a namespaced
// view of the same store the ledger and pool use.
type StoreService struct {
	store    storage.Store
	decimals uint32
}

func New(store storage.Store, decimals uint32) (*StoreService, error) {
	if decimals > 255 {
		return nil, fmt.Errorf("%w: decimals must not exceed 255, got %d", types.ErrInvalidArgs, decimals)
	}
	return &StoreService{store: store, decimals: decimals}, nil
}

func (s *StoreService) Transfer(from, to common.Address, amount types.Amount128) error {
	fromBalance, err := s.Balance(from)
	if err != nil {
		return err
	}
	newFrom, ok := fromBalance.Sub(amount)
	if !ok {
		return fmt.Errorf("%w: %s has %s, needs %s", types.ErrInsufficientBalance, from, fromBalance, amount)
	}
	// a self-transfer must not replay the pre-debit balance on the credit side
	if from == to {
		return nil
	}
	toBalance, err := s.Balance(to)
	if err != nil {
		return err
	}
	newTo, ok := toBalance.Add(amount)
	if !ok {
		return fmt.Errorf("%w: balance of %s", types.ErrIntegerOverflow, to)
	}
	if err := s.store.Set(storage.BalanceKey(from), newFrom); err != nil {
		return err
	}
	return s.store.Set(storage.BalanceKey(to), newTo)
}

func (s *StoreService) Balance(holder common.Address) (types.Amount128, error) {
	var balance types.Amount128
	if _, err := s.store.Get(storage.BalanceKey(holder), &balance); err != nil {
		return types.Amount128{}, err
	}
	return balance, nil
}

func (s *StoreService) Decimals() uint32 {
	return s.decimals
}

// Credit mints amount to the holder's balance. It is the issuance hook for
// wiring up test and reference deployments; real deployments back the
// service with an actual token ledger.
func (s *StoreService) Credit(holder common.Address, amount types.Amount128) error {
	balance, err := s.Balance(holder)
	if err != nil {
		return err
	}
	newBalance, ok := balance.Add(amount)
	if !ok {
		return fmt.Errorf("%w: balance of %s", types.ErrIntegerOverflow, holder)
	}
	return s.store.Set(storage.BalanceKey(holder), newBalance)
}

var _ Registry = (MapRegistry)(nil)

// MapRegistry is a fixed address-to-service mapping.
type MapRegistry map[common.Address]Service

func (r MapRegistry) ServiceFor(contract common.Address) (Service, error) {
	svc, ok := r[contract]
	if !ok {
		return nil, fmt.Errorf("%w: token %s", types.ErrInvalidContract, contract)
	}
	return svc, nil
}
