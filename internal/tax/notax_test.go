package tax_test

import (
	"context"
	"testing"

	"github.com/dukerupert/resell/internal/tax"
	"github.com/stretchr/testify/assert"
)

func TestNoTaxCalculator_CalculateTax_ReturnsZeroTax(t *testing.T) {
	calc := tax.NewNoTaxCalculator()

	params := tax.TaxParams{
		LineItems: []tax.LineItem{
			{ID: "prod-1", Description: "Denim Jacket", Quantity: 2, UnitPrice: d("18.00"), TotalPrice: d("36.00"), Kind: "product"},
			{ID: "svc-1", Description: "Alterations", Quantity: 1, UnitPrice: d("22.00"), TotalPrice: d("22.00"), Kind: "service"},
		},
		TaxableAmount: d("58.00"),
	}

	result, err := calc.CalculateTax(context.Background(), params)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.True(t, result.TotalTax.IsZero(), "NoTaxCalculator should always return zero tax")
	assert.Empty(t, result.Breakdown, "NoTaxCalculator should return empty breakdown")
	assert.False(t, result.IsEstimate, "NoTaxCalculator result should not be marked as estimate")
}

func TestNoTaxCalculator_CalculateTax_EmptyLineItems(t *testing.T) {
	calc := tax.NewNoTaxCalculator()

	result, err := calc.CalculateTax(context.Background(), tax.TaxParams{})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.True(t, result.TotalTax.IsZero())
}

func TestNoTaxCalculator_CalculateTax_CanceledContext(t *testing.T) {
	calc := tax.NewNoTaxCalculator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := calc.CalculateTax(ctx, tax.TaxParams{TaxableAmount: d("10")})

	assert.NoError(t, err, "NoTaxCalculator does not block so cancellation is irrelevant")
	assert.True(t, result.TotalTax.IsZero())
}

func TestNoTaxCalculator_ImplementsCalculator(t *testing.T) {
	var _ tax.Calculator = tax.NewNoTaxCalculator()
	var _ tax.Calculator = &tax.PercentageCalculator{}
	var _ tax.Calculator = tax.NewMockCalculator()
}
