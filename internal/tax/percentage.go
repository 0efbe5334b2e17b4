package tax

import (
	"context"

	"github.com/shopspring/decimal"
)

// PercentageCalculator calculates tax using a simple percentage rate.
type PercentageCalculator struct {
	rate decimal.Decimal // e.g., 0.08 for 8%
}

// NewPercentageCalculator creates a new percentage-based tax calculator.
// rate must be in [0, 1].
func NewPercentageCalculator(rate decimal.Decimal) (*PercentageCalculator, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, ErrInvalidTaxRate
	}
	return &PercentageCalculator{rate: rate}, nil
}

// Rate returns the configured rate.
func (c *PercentageCalculator) Rate() decimal.Decimal {
	return c.rate
}

// CalculateTax charges the configured rate on the taxable amount, rounding
// half up to cents.
func (c *PercentageCalculator) CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error) {
	if params.TaxableAmount.IsNegative() {
		return nil, ErrNegativeTaxableAmount
	}

	amount := params.TaxableAmount.Mul(c.rate).Round(2)

	return &TaxResult{
		TotalTax: amount,
		Breakdown: []TaxBreakdown{
			{
				Jurisdiction: "state",
				Name:         "Default Sales Tax",
				Rate:         c.rate,
				Amount:       amount,
			},
		},
		IsEstimate: false,
	}, nil
}
