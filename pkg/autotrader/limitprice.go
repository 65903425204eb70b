package autotrader

import "github.com/shopspring/decimal"

var (
	minLimitPrice  = decimal.NewFromFloat(0.05)
	askDiscount    = decimal.NewFromFloat(0.9)
	strikeFraction = decimal.NewFromFloat(0.01)
	two            = decimal.NewFromInt(2)
)

// ResolveLimitPrice computes an executable limit price from whatever parts
// of the quote are usable, first satisfied rule wins:
//
//	bid and ask        -> midpoint
//	bid only           -> bid
//	ask only           -> 90% of ask
//	last trade         -> last
//	recorded premium   -> premium
//	nothing            -> max(1% of strike, 0.05)
//
// The result is never below 0.05 and is rounded to the cent.
func ResolveLimitPrice(bid, ask, last, premium, strike decimal.Decimal) decimal.Decimal {
	var price decimal.Decimal
	switch {
	case bid.IsPositive() && ask.IsPositive():
		price = bid.Add(ask).Div(two)
	case bid.IsPositive():
		price = bid
	case ask.IsPositive():
		price = ask.Mul(askDiscount)
	case last.IsPositive():
		price = last
	case premium.IsPositive():
		price = premium
	default:
		price = decimal.Max(strike.Mul(strikeFraction), minLimitPrice)
	}

	if price.LessThan(minLimitPrice) {
		price = minLimitPrice
	}
	return price.Round(2)
}
