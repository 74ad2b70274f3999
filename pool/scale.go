package pool

import (
	"fmt"

	"github.com/openscf/scf-go/types"
)

var hundred = types.NewAmount128(100)

// Scaled converts an unscaled amount to token units and applies a
// percentage fee: amount * 10^decimals * (100+feePercent) / 100, with the
// division truncating toward zero. A zero fee yields exactly
// amount * 10^decimals. Every step is overflow-checked; nothing ever wraps.
func Scaled(amount types.Amount128, decimals uint32, feePercent types.Amount128) (types.Amount128, error) {
	base, ok := amount.ScalePow10(decimals)
	if !ok {
		return types.Amount128{}, fmt.Errorf("%w: %s * 10^%d", types.ErrIntegerOverflow, amount, decimals)
	}
	if feePercent.IsZero() {
		return base, nil
	}
	factor, ok := hundred.Add(feePercent)
	if !ok {
		return types.Amount128{}, fmt.Errorf("%w: fee factor 100+%s", types.ErrIntegerOverflow, feePercent)
	}
	scaled, ok := base.Mul(factor)
	if !ok {
		return types.Amount128{}, fmt.Errorf("%w: %s * %s", types.ErrIntegerOverflow, base, factor)
	}
	scaled, _ = scaled.Div(hundred)
	return scaled, nil
}
