package position

import "github.com/shopspring/decimal"

// trade is one buy or sell event flattened to the numbers the matcher
// needs: quantity, price per unit and the total fee of the event.
type trade struct {
	quantity decimal.Decimal
	price    decimal.Decimal
	fee      decimal.Decimal
}

// lot is a block of units acquired in one purchase, tracked with its own
// basis until fully consumed by sells. feePerUnit amortizes the purchase
// fee over the lot and is computed once at lot creation so that partial
// consumption keeps the basis price stable.
type lot struct {
	quantity   decimal.Decimal
	price      decimal.Decimal
	feePerUnit decimal.Decimal
}

// fifoResult is the outcome of matching all sells against the buy lots
// of one symbol.
type fifoResult struct {
	remainingQuantity decimal.Decimal
	averageCost       decimal.Decimal
	totalCost         decimal.Decimal
	realizedGains     decimal.Decimal
	oversoldQuantity  decimal.Decimal
}

// matchFIFO consumes buy lots in first-in-first-out order against the
// given sells and reports what remains plus the realized gain.
//
// Both slices must already be ordered by transaction date. The function is
// pure: same inputs, same result, no shared state.
//
// Sell quantity that exceeds the available lots is absorbed rather than
// rejected; the excess is reported in oversoldQuantity so the caller can
// surface it.
func matchFIFO(buys, sells []trade) fifoResult {
	queue := make([]lot, 0, len(buys))
	for _, b := range buys {
		feePerUnit := decimal.Zero
		if !b.quantity.IsZero() {
			feePerUnit = b.fee.Div(b.quantity)
		}
		queue = append(queue, lot{
			quantity:   b.quantity,
			price:      b.price,
			feePerUnit: feePerUnit,
		})
	}

	realized := decimal.Zero
	oversold := decimal.Zero

	for _, s := range sells {
		remaining := s.quantity
		for remaining.IsPositive() && len(queue) > 0 {
			front := queue[0]
			unitCost := front.price.Add(front.feePerUnit)

			if remaining.GreaterThanOrEqual(front.quantity) {
				// Consume the whole lot
				realized = realized.Add(front.quantity.Mul(s.price.Sub(unitCost)))
				remaining = remaining.Sub(front.quantity)
				queue = queue[1:]
			} else {
				// Partial consumption: shrink the front lot, basis unchanged
				realized = realized.Add(remaining.Mul(s.price.Sub(unitCost)))
				queue[0].quantity = front.quantity.Sub(remaining)
				remaining = decimal.Zero
			}
		}

		// Fees reduce the gain once per sell event, not per matched lot
		realized = realized.Sub(s.fee)

		if remaining.IsPositive() {
			oversold = oversold.Add(remaining)
		}
	}

	remainingQuantity := decimal.Zero
	totalCost := decimal.Zero
	for _, l := range queue {
		remainingQuantity = remainingQuantity.Add(l.quantity)
		totalCost = totalCost.Add(l.price.Add(l.feePerUnit).Mul(l.quantity))
	}

	averageCost := decimal.Zero
	if remainingQuantity.IsPositive() {
		averageCost = totalCost.Div(remainingQuantity)
	}

	return fifoResult{
		remainingQuantity: remainingQuantity,
		averageCost:       averageCost,
		totalCost:         totalCost,
		realizedGains:     realized,
		oversoldQuantity:  oversold,
	}
}
