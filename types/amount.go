package types

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

// maxAmount is the largest value representable in the signed 128-bit money
// domain (2^127 - 1). Amounts themselves are never negative; underflow is
// reported to the caller instead.
var maxAmount = func() *uint256.Int {
	max := uint256.NewInt(1)
	max.Lsh(max, 127)
	return max.Sub(max, uint256.NewInt(1))
}()

// Amount128 is a monetary amount in the signed 128-bit domain used for all
// token values (certificate amounts scaled by token decimals, offer amounts,
// fees and remainders). The zero value is the amount 0.
//
// All arithmetic is checked: operations report overflow past 2^127-1 and
// underflow below zero rather than wrapping.
type Amount128 struct {
	v uint256.Int
}

func NewAmount128(v uint64) Amount128 {
	var a Amount128
	a.v.SetUint64(v)
	return a
}

// Add returns a+b, with ok=false if the result exceeds the 128-bit range.
func (a Amount128) Add(b Amount128) (sum Amount128, ok bool) {
	if _, carry := sum.v.AddOverflow(&a.v, &b.v); carry {
		return Amount128{}, false
	}
	if sum.v.Cmp(maxAmount) > 0 {
		return Amount128{}, false
	}
	return sum, true
}

// Sub returns a-b, with ok=false if the result would be negative.
func (a Amount128) Sub(b Amount128) (diff Amount128, ok bool) {
	if _, borrow := diff.v.SubOverflow(&a.v, &b.v); borrow {
		return Amount128{}, false
	}
	return diff, true
}

// Mul returns a*b, with ok=false if the result exceeds the 128-bit range.
func (a Amount128) Mul(b Amount128) (prod Amount128, ok bool) {
	if _, overflow := prod.v.MulOverflow(&a.v, &b.v); overflow {
		return Amount128{}, false
	}
	if prod.v.Cmp(maxAmount) > 0 {
		return Amount128{}, false
	}
	return prod, true
}

// Div returns a/b truncated toward zero. Division by zero reports ok=false.
func (a Amount128) Div(b Amount128) (quot Amount128, ok bool) {
	if b.v.IsZero() {
		return Amount128{}, false
	}
	quot.v.Div(&a.v, &b.v)
	return quot, true
}

// ScalePow10 returns a*10^decimals, with ok=false on overflow.
func (a Amount128) ScalePow10(decimals uint32) (Amount128, bool) {
	ten := NewAmount128(10)
	scaled := a
	for i := uint32(0); i < decimals; i++ {
		var ok bool
		if scaled, ok = scaled.Mul(ten); !ok {
			return Amount128{}, false
		}
	}
	return scaled, true
}

func (a Amount128) Cmp(b Amount128) int {
	return a.v.Cmp(&b.v)
}

func (a Amount128) IsZero() bool {
	return a.v.IsZero()
}

// Uint64 returns the amount as uint64, with ok=false if it does not fit.
func (a Amount128) Uint64() (uint64, bool) {
	if !a.v.IsUint64() {
		return 0, false
	}
	return a.v.Uint64(), true
}

func (a Amount128) String() string {
	return a.v.Dec()
}

func (a Amount128) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(a.v.Bytes())
}

func (a *Amount128) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cbor.Unmarshal(data, &buf); err != nil {
		return fmt.Errorf("decoding amount: %w", err)
	}
	if len(buf) > 16 {
		return fmt.Errorf("amount out of range: %d bytes", len(buf))
	}
	a.v.SetBytes(buf)
	return nil
}

func (a Amount128) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

func (a *Amount128) UnmarshalText(src []byte) error {
	v, err := uint256.FromDecimal(string(src))
	if err != nil {
		return err
	}
	if v.Cmp(maxAmount) > 0 {
		return fmt.Errorf("amount out of range: %s", src)
	}
	a.v = *v
	return nil
}
