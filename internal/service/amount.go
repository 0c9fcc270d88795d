package service

import "github.com/shopspring/decimal"

// Apportion splits total across n tickets. Each share is truncated to two decimal
// places and the remainder goes to the first ticket, so the shares sum to total exactly.
func Apportion(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}

	count := decimal.NewFromInt(int64(n))
	share := total.Div(count).Truncate(2)
	remainder := total.Sub(share.Mul(count))

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = share
	}
	shares[0] = shares[0].Add(remainder)
	return shares
}
