package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Split is the division of one payment between platform and creator.
type Split struct {
	Amount        int64
	PlatformFee   int64
	CreatorAmount int64
}

// SplitFee computes floor(amount * feePercent / 100) as the platform share and
// gives the remainder to the creator. Both parts are non-negative and add up
// to amount.
func SplitFee(amount int64, feePercent decimal.Decimal) (Split, error) {
	if amount < 0 {
		return Split{}, fmt.Errorf("amount must be non-negative, got %d", amount)
	}
	if feePercent.IsNegative() || feePercent.GreaterThan(hundred) {
		return Split{}, fmt.Errorf("fee percentage must be between 0 and 100, got %s", feePercent)
	}
	fee := decimal.NewFromInt(amount).Mul(feePercent).Div(hundred).Floor().IntPart()
	return Split{
		Amount:        amount,
		PlatformFee:   fee,
		CreatorAmount: amount - fee,
	}, nil
}
