package types

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func TestAmount128_Arithmetic(t *testing.T) {
	a := NewAmount128(1000)
	b := NewAmount128(234)

	sum, ok := a.Add(b)
	require.True(t, ok)
	require.Equal(t, NewAmount128(1234), sum)

	diff, ok := a.Sub(b)
	require.True(t, ok)
	require.Equal(t, NewAmount128(766), diff)

	_, ok = b.Sub(a)
	require.False(t, ok, "underflow must be reported")

	prod, ok := a.Mul(b)
	require.True(t, ok)
	require.Equal(t, NewAmount128(234000), prod)

	quot, ok := a.Div(NewAmount128(3))
	require.True(t, ok)
	require.Equal(t, NewAmount128(333), quot, "division truncates toward zero")

	_, ok = a.Div(Amount128{})
	require.False(t, ok)
}

func TestAmount128_OverflowAt128Bits(t *testing.T) {
	// maxAmount = 2^127-1 ~ 1.7*10^38; build a value close to it and push it over
	big, ok := NewAmount128(1).ScalePow10(38)
	require.True(t, ok, "10^38 < 2^127")

	_, ok = big.Mul(NewAmount128(2))
	require.False(t, ok, "2*10^38 exceeds the 128-bit range")

	_, ok = big.Mul(big)
	require.False(t, ok)

	_, ok = NewAmount128(1).ScalePow10(39)
	require.False(t, ok)
}

func TestAmount128_ScalePow10(t *testing.T) {
	scaled, ok := NewAmount128(42).ScalePow10(6)
	require.True(t, ok)
	require.Equal(t, NewAmount128(42_000_000), scaled)

	scaled, ok = NewAmount128(42).ScalePow10(0)
	require.True(t, ok)
	require.Equal(t, NewAmount128(42), scaled)

	zero, ok := Amount128{}.ScalePow10(40)
	require.True(t, ok, "zero scales to zero at any precision")
	require.True(t, zero.IsZero())
}

func Test_Amount128CBOR(t *testing.T) {
	amount, ok := NewAmount128(123456789).ScalePow10(18)
	require.True(t, ok)

	data, err := cbor.Marshal(amount)
	require.NoError(t, err)
	var decoded Amount128
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	require.Equal(t, amount, decoded)
}

func TestAmount128_Text(t *testing.T) {
	var a Amount128
	require.NoError(t, a.UnmarshalText([]byte("170141183460469231731687303715884105727")))
	require.Equal(t, "170141183460469231731687303715884105727", a.String())

	require.Error(t, a.UnmarshalText([]byte("170141183460469231731687303715884105728")), "2^127 is out of range")
}
