package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var assertErr = errors.New("abort")

func TestMemStore_GetSetRemove(t *testing.T) {
	store := NewMemStore()

	var out uint32
	ok, err := store.Get(CertInfoKey(1), &out)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(CertInfoKey(1), uint32(42)))
	ok, err = store.Get(CertInfoKey(1), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 42, out)

	has, err := store.Has(CertInfoKey(1))
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, store.Remove(CertInfoKey(1)))
	has, err = store.Has(CertInfoKey(1))
	require.NoError(t, err)
	require.False(t, has)
}

func TestMemStore_KeysAreDistinct(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.Set(OwnerKey(1), "a"))
	require.NoError(t, store.Set(RecipientKey(1), "b"))
	require.NoError(t, store.Set(OwnerKey(2), "c"))

	var out string
	_, err := store.Get(OwnerKey(1), &out)
	require.NoError(t, err)
	require.Equal(t, "a", out)
	_, err = store.Get(RecipientKey(1), &out)
	require.NoError(t, err)
	require.Equal(t, "b", out)
}

func TestMemStore_Namespace(t *testing.T) {
	store := NewMemStore()
	a := store.Namespace(common.Address{0x01})
	b := store.Namespace(common.Address{0x02})

	require.NoError(t, a.Set(AdminKey(), "alice"))
	require.NoError(t, b.Set(AdminKey(), "bob"))

	var out string
	_, err := a.Get(AdminKey(), &out)
	require.NoError(t, err)
	require.Equal(t, "alice", out)
	_, err = b.Get(AdminKey(), &out)
	require.NoError(t, err)
	require.Equal(t, "bob", out)
}

func TestMemStore_TTL(t *testing.T) {
	now := time.Unix(1000, 0)
	store := NewMemStore(
		WithTTL(100*time.Second),
		WithClock(func() time.Time { return now }),
	)

	require.NoError(t, store.Set(OwnerKey(1), "alice"))
	require.NoError(t, store.Set(AdminKey(), "admin"))

	// within the TTL the entry is alive and the access refreshes it
	now = now.Add(90 * time.Second)
	var out string
	ok, err := store.Get(OwnerKey(1), &out)
	require.NoError(t, err)
	require.True(t, ok)

	// 90s after the refresh it is still alive
	now = now.Add(90 * time.Second)
	ok, err = store.Get(OwnerKey(1), &out)
	require.NoError(t, err)
	require.True(t, ok)

	// unaccessed past the deadline it reads as absent
	now = now.Add(101 * time.Second)
	ok, err = store.Get(OwnerKey(1), &out)
	require.NoError(t, err)
	require.False(t, ok)

	// instance-lifetime keys never expire
	ok, err = store.Get(AdminKey(), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "admin", out)
}

func TestMemStore_TxRollback(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.Set(OwnerKey(1), "alice"))

	store.Begin()
	require.NoError(t, store.Set(OwnerKey(1), "bob"))
	require.NoError(t, store.Set(OwnerKey(2), "carol"))
	require.NoError(t, store.Remove(OwnerKey(1)))
	store.Rollback()

	var out string
	ok, err := store.Get(OwnerKey(1), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", out, "rollback restores the pre-transaction value")

	has, err := store.Has(OwnerKey(2))
	require.NoError(t, err)
	require.False(t, has, "rollback removes entries created in the transaction")
}

func TestMemStore_TxCommit(t *testing.T) {
	store := NewMemStore()
	store.Begin()
	require.NoError(t, store.Set(OwnerKey(1), "alice"))
	store.Commit()

	var out string
	ok, err := store.Get(OwnerKey(1), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", out)
}

func TestMemStore_NestedTx(t *testing.T) {
	store := NewMemStore()

	store.Begin()
	require.NoError(t, store.Set(OwnerKey(1), "alice"))

	store.Begin()
	require.NoError(t, store.Set(OwnerKey(2), "bob"))
	store.Rollback()

	store.Commit()

	has, err := store.Has(OwnerKey(1))
	require.NoError(t, err)
	require.True(t, has, "outer transaction commits")
	has, err = store.Has(OwnerKey(2))
	require.NoError(t, err)
	require.False(t, has, "inner savepoint rolled back")
}

func TestMemStore_TxSpansNamespaces(t *testing.T) {
	store := NewMemStore()
	a := store.Namespace(common.Address{0x01})
	b := store.Namespace(common.Address{0x02})

	err := WithTx(a, func() error {
		require.NoError(t, a.Set(OwnerKey(1), "alice"))
		require.NoError(t, b.Set(BalanceKey(common.Address{0x03}), uint64(7)))
		return assertErr
	})
	require.ErrorIs(t, err, assertErr)

	has, err := a.Has(OwnerKey(1))
	require.NoError(t, err)
	require.False(t, has)
	has, err = b.Has(BalanceKey(common.Address{0x03}))
	require.NoError(t, err)
	require.False(t, has, "rollback covers every namespace of the shared store")
}
