// Package money holds fixed-point amount arithmetic for booking settlement.
// Amounts are integer minor units (cents); floats never touch money.
package money

// BpsDenominator is the basis-point scale for commission rates.
const BpsDenominator = 10000

// Split divides an amount paid between expert earnings and the platform fee
// using a basis-point commission rate. The expert share is floored, so any
// rounding remainder lands in the platform fee and
// earnings + fee == amount holds exactly.
func Split(amount int64, commissionBps int64) (earnings int64, fee int64) {
	if amount <= 0 {
		return 0, 0
	}
	if commissionBps < 0 {
		commissionBps = 0
	}
	if commissionBps > BpsDenominator {
		commissionBps = BpsDenominator
	}
	earnings = amount * (BpsDenominator - commissionBps) / BpsDenominator
	fee = amount - earnings
	return earnings, fee
}
