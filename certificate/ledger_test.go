package certificate

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/openscf/scf-go/auth"
	"github.com/openscf/scf-go/event"
	"github.com/openscf/scf-go/storage"
	"github.com/openscf/scf-go/token"
	"github.com/openscf/scf-go/types"
)

const (
	totalAmount = uint32(1_000_000)
	startTime   = uint64(1_000_000)
	endTime     = uint64(2_000_000)
)

var (
	adminAddr    = common.Address{0x01}
	buyerAddr    = common.Address{0x02}
	supplierAddr = common.Address{0x03}
	aliceAddr    = common.Address{0x04}
	bobAddr      = common.Address{0x05}
	tokenAddr    = common.Address{0xa0}
	ledgerAddr   = common.Address{0xa1}
	loanAddr     = common.Address{0xa2}
)

type fixture struct {
	t      *testing.T
	now    uint64
	store  *storage.MemStore
	tok    *token.StoreService
	auth   *auth.Static
	events *event.Recorder
	ledger *Ledger
}

func newFixture(t *testing.T, decimals uint32) *fixture {
	f := &fixture{t: t, now: startTime, store: storage.NewMemStore()}
	var err error
	f.tok, err = token.New(f.store.Namespace(tokenAddr), decimals)
	require.NoError(t, err)
	f.auth = auth.NewStatic(adminAddr, buyerAddr, supplierAddr, aliceAddr, bobAddr, loanAddr)
	f.events = &event.Recorder{}
	f.ledger = New(
		f.store.Namespace(ledgerAddr),
		ledgerAddr,
		token.MapRegistry{tokenAddr: f.tok},
		f.auth,
		f.events,
		WithClock(func() uint64 { return f.now }),
	)
	return f
}

func (f *fixture) initialized() *fixture {
	require.NoError(f.t, f.ledger.Initialize(adminAddr, buyerAddr, totalAmount, endTime))
	require.NoError(f.t, f.ledger.SetExternalToken(tokenAddr, f.tok.Decimals()))
	return f
}

func (f *fixture) minted() *fixture {
	f.initialized()
	require.NoError(f.t, f.ledger.MintOriginal(supplierAddr))
	return f
}

func TestInitialize(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		f := newFixture(t, 2)
		require.NoError(t, f.ledger.Initialize(adminAddr, buyerAddr, totalAmount, endTime))

		admin, err := f.ledger.Admin()
		require.NoError(t, err)
		require.Equal(t, adminAddr, admin)
	})
	t.Run("twice fails", func(t *testing.T) {
		f := newFixture(t, 2)
		require.NoError(t, f.ledger.Initialize(adminAddr, buyerAddr, totalAmount, endTime))
		err := f.ledger.Initialize(adminAddr, buyerAddr, totalAmount, endTime)
		require.ErrorIs(t, err, types.ErrAlreadyInitialized)
	})
	t.Run("maturity must be in the future", func(t *testing.T) {
		f := newFixture(t, 2)
		err := f.ledger.Initialize(adminAddr, buyerAddr, totalAmount, startTime)
		require.ErrorIs(t, err, types.ErrInvalidArgs)
	})
}

func TestMintOriginal(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		f := newFixture(t, 2).initialized()
		require.NoError(t, f.ledger.MintOriginal(supplierAddr))

		owner, err := f.ledger.Owner(0)
		require.NoError(t, err)
		require.Equal(t, supplierAddr, owner)

		amount, err := f.ledger.Amount(0)
		require.NoError(t, err)
		require.Equal(t, totalAmount, amount)

		depth, err := f.ledger.Depth(0)
		require.NoError(t, err)
		require.EqualValues(t, 0, depth)

		status, err := f.ledger.LoanStatus(0)
		require.NoError(t, err)
		require.Equal(t, types.LoanFree, status)

		supply, err := f.ledger.Supply()
		require.NoError(t, err)
		require.EqualValues(t, 1, supply)

		require.Len(t, f.events.Named("mint"), 1)
	})
	t.Run("root already exists", func(t *testing.T) {
		f := newFixture(t, 2).minted()
		require.ErrorIs(t, f.ledger.MintOriginal(supplierAddr), types.ErrNotEmpty)
	})
	t.Run("uninitialized", func(t *testing.T) {
		f := newFixture(t, 2)
		require.ErrorIs(t, f.ledger.MintOriginal(supplierAddr), types.ErrNotFound)
	})
}

func TestSetAdmin(t *testing.T) {
	f := newFixture(t, 2).initialized()
	require.NoError(t, f.ledger.SetAdmin(bobAddr))

	admin, err := f.ledger.Admin()
	require.NoError(t, err)
	require.Equal(t, bobAddr, admin)
	require.Len(t, f.events.Named("set_admin"), 1)

	// previous admin can no longer administrate
	f.auth.Revoke(bobAddr)
	require.ErrorIs(t, f.ledger.SetAdmin(adminAddr), types.ErrNotAuthorized)
}

func TestSetExternalToken(t *testing.T) {
	f := newFixture(t, 2)
	require.NoError(t, f.ledger.Initialize(adminAddr, buyerAddr, totalAmount, endTime))
	require.ErrorIs(t, f.ledger.SetExternalToken(tokenAddr, 256), types.ErrInvalidArgs)
	require.NoError(t, f.ledger.SetExternalToken(tokenAddr, 2))
}

func TestTransfer(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		f := newFixture(t, 2).minted()
		require.NoError(t, f.ledger.Transfer(supplierAddr, aliceAddr, 0))

		owner, err := f.ledger.Owner(0)
		require.NoError(t, err)
		require.Equal(t, aliceAddr, owner)
		require.Len(t, f.events.Named("transfer"), 1)
	})
	t.Run("not owner", func(t *testing.T) {
		f := newFixture(t, 2).minted()
		require.ErrorIs(t, f.ledger.Transfer(aliceAddr, bobAddr, 0), types.ErrNotOwned)
	})
	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t, 2).minted()
		require.ErrorIs(t, f.ledger.Transfer(supplierAddr, aliceAddr, 7), types.ErrNotFound)
	})
	t.Run("unauthenticated owner", func(t *testing.T) {
		f := newFixture(t, 2).minted()
		f.auth.Revoke(supplierAddr)
		require.ErrorIs(t, f.ledger.Transfer(supplierAddr, aliceAddr, 0), types.ErrNotAuthorized)
	})
}

func TestApprovals(t *testing.T) {
	t.Run("per-id approval is consumed on use", func(t *testing.T) {
		f := newFixture(t, 2).minted()
		require.NoError(t, f.ledger.Approve(supplierAddr, bobAddr, 0))

		operator, ok, err := f.ledger.GetApproved(0)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, bobAddr, operator)

		require.NoError(t, f.ledger.TransferFrom(bobAddr, supplierAddr, aliceAddr, 0))
		owner, err := f.ledger.Owner(0)
		require.NoError(t, err)
		require.Equal(t, aliceAddr, owner)

		// the approval does not survive the transfer
		require.NoError(t, f.ledger.Transfer(aliceAddr, supplierAddr, 0))
		err = f.ledger.TransferFrom(bobAddr, supplierAddr, aliceAddr, 0)
		require.ErrorIs(t, err, types.ErrNotAuthorized)
	})
	t.Run("blanket approval", func(t *testing.T) {
		f := newFixture(t, 2).minted()
		require.NoError(t, f.ledger.ApproveAll(supplierAddr, bobAddr, true))
		require.NoError(t, f.ledger.TransferFrom(bobAddr, supplierAddr, aliceAddr, 0))

		approved, err := f.ledger.IsApprovedAll(supplierAddr, bobAddr)
		require.NoError(t, err)
		require.True(t, approved)

		require.NoError(t, f.ledger.ApproveAll(supplierAddr, bobAddr, false))
		approved, err = f.ledger.IsApprovedAll(supplierAddr, bobAddr)
		require.NoError(t, err)
		require.False(t, approved)
	})
	t.Run("unapproved spender", func(t *testing.T) {
		f := newFixture(t, 2).minted()
		err := f.ledger.TransferFrom(bobAddr, supplierAddr, aliceAddr, 0)
		require.ErrorIs(t, err, types.ErrNotAuthorized)
	})
	t.Run("approve requires ownership", func(t *testing.T) {
		f := newFixture(t, 2).minted()
		require.ErrorIs(t, f.ledger.Approve(aliceAddr, bobAddr, 0), types.ErrNotOwned)
	})
}

func TestSignOff(t *testing.T) {
	f := newFixture(t, 2).minted()
	newIDs, err := f.ledger.Split(0, []SplitRequest{{Amount: 300_000, To: aliceAddr}})
	require.NoError(t, err)
	escrowed := newIDs[0]

	require.NoError(t, f.ledger.SignOff(escrowed))

	owner, err := f.ledger.Owner(escrowed)
	require.NoError(t, err)
	require.Equal(t, aliceAddr, owner)

	// the recipient entry ends with the escrow
	_, err = f.ledger.Recipient(escrowed)
	require.ErrorIs(t, err, types.ErrNotFound)

	// a directly-held certificate cannot be signed off
	require.ErrorIs(t, f.ledger.SignOff(escrowed), types.ErrNotPermitted)
	require.ErrorIs(t, f.ledger.SignOff(newIDs[1]), types.ErrNotPermitted)
}

func TestBurn(t *testing.T) {
	f := newFixture(t, 2).minted()
	require.NoError(t, f.ledger.Burn(0))

	_, err := f.ledger.Owner(0)
	require.ErrorIs(t, err, types.ErrNotFound)
	require.Len(t, f.events.Named("burn"), 1)
}

func TestAllOwned(t *testing.T) {
	f := newFixture(t, 2).minted()
	newIDs, err := f.ledger.Split(0, []SplitRequest{{Amount: 300_000, To: aliceAddr}})
	require.NoError(t, err)
	require.NoError(t, f.ledger.SignOff(newIDs[0]))

	owned, err := f.ledger.AllOwned(aliceAddr)
	require.NoError(t, err)
	require.Equal(t, []types.CertID{newIDs[0]}, owned)

	// the disabled parent is not reported for its owner
	owned, err = f.ledger.AllOwned(supplierAddr)
	require.NoError(t, err)
	require.Equal(t, []types.CertID{newIDs[1]}, owned)
}
