// Package tax computes the tax charged on a cart after any coupon discount.
package tax

import (
	"context"

	"github.com/shopspring/decimal"
)

// Calculator defines the interface for tax calculation.
// Implementations: PercentageCalculator, NoTaxCalculator
type Calculator interface {
	// CalculateTax computes tax on the taxable amount.
	// Amounts are rounded to cents.
	CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error)
}

// NewCalculator returns the calculator for a flat rate.
// A zero rate charges no tax.
func NewCalculator(rate decimal.Decimal) (Calculator, error) {
	if rate.IsZero() {
		return NewNoTaxCalculator(), nil
	}
	calc, err := NewPercentageCalculator(rate)
	if err != nil {
		return nil, err
	}
	return calc, nil
}

// TaxParams contains all information needed for tax calculation.
type TaxParams struct {
	LineItems []LineItem

	// TaxableAmount is the amount tax is charged on: the cart subtotal, or the
	// coupon's final amount when one is applied.
	TaxableAmount decimal.Decimal
}

// LineItem represents a single item being taxed.
type LineItem struct {
	ID          string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	Kind        string // "product" or "service"
}

// TaxResult contains the calculated tax amount and breakdown.
type TaxResult struct {
	TotalTax   decimal.Decimal
	Breakdown  []TaxBreakdown
	IsEstimate bool
}

// TaxBreakdown represents tax for a single jurisdiction.
type TaxBreakdown struct {
	Jurisdiction string          // "state", "county", "city"
	Name         string          // e.g., "Default Sales Tax"
	Rate         decimal.Decimal // e.g., 0.065 for 6.5%
	Amount       decimal.Decimal
}
