package applications

import (
	"fmt"
	"math"
)

// DistributeInterest spreads totalInterest over the line amounts in
// proportion to each amount. Every share except the last rounds half-to-even
// at cent precision; the last line absorbs the remainder so the distributed
// cents always sum to totalInterest exactly.
func DistributeInterest(amounts []float64, totalInterest float64) []float64 {
	if len(amounts) == 0 {
		return nil
	}
	shares := make([]float64, len(amounts))

	var base float64
	for _, a := range amounts {
		base += a
	}
	if base == 0 || totalInterest == 0 {
		return shares
	}

	totalCents := int64(math.Round(totalInterest * 100))
	var assigned int64
	for i, a := range amounts[:len(amounts)-1] {
		cents := int64(math.RoundToEven(totalInterest * (a / base) * 100))
		shares[i] = float64(cents) / 100
		assigned += cents
	}
	shares[len(amounts)-1] = float64(totalCents-assigned) / 100
	return shares
}

// ValidateFinancedTotal checks that the invoice lines, interest included,
// add up to the expected financed total at cent precision.
func ValidateFinancedTotal(lines []InvoiceLine, expected float64) error {
	var total float64
	for _, l := range lines {
		total += l.Amount + l.InterestAmount
	}
	if math.Abs(total-expected) >= 0.005 {
		return fmt.Errorf("financed total mismatch: lines sum to %.2f, expected %.2f", total, expected)
	}
	return nil
}
