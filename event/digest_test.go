package event

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestDigest(t *testing.T) {
	alice := common.Address{0x0a}
	bob := common.Address{0x0b}

	empty, err := NewDigest().Sum()
	require.NoError(t, err)
	require.Len(t, empty, 32)

	a := NewDigest()
	a.Publish(Mint{To: alice, ID: 0})
	a.Publish(Transfer{From: alice, To: bob, ID: 0})
	sumA, err := a.Sum()
	require.NoError(t, err)
	require.NotEqual(t, empty, sumA)

	// the same stream yields the same digest
	b := NewDigest()
	b.Publish(Mint{To: alice, ID: 0})
	b.Publish(Transfer{From: alice, To: bob, ID: 0})
	sumB, err := b.Sum()
	require.NoError(t, err)
	require.Equal(t, sumA, sumB)

	// order matters
	c := NewDigest()
	c.Publish(Transfer{From: alice, To: bob, ID: 0})
	c.Publish(Mint{To: alice, ID: 0})
	sumC, err := c.Sum()
	require.NoError(t, err)
	require.NotEqual(t, sumA, sumC)
}
