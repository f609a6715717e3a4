package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethold/entity"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestQuoteAllocation(t *testing.T) {
	testCases := []struct {
		name          string
		allocation    entity.HoldTicketAllocation
		originalCents int64
		wantUnit      int64
		wantSavings   int64
	}{
		{
			name:          "original price",
			allocation:    entity.HoldTicketAllocation{PricingMode: entity.PricingModeOriginal},
			originalCents: 10000,
			wantUnit:      10000,
			wantSavings:   0,
		},
		{
			name: "fixed below original",
			allocation: entity.HoldTicketAllocation{
				PricingMode:      entity.PricingModeFixed,
				CustomPriceCents: int64Ptr(5000),
			},
			originalCents: 10000,
			wantUnit:      5000,
			wantSavings:   5000,
		},
		{
			name: "fixed above original clamps savings to zero",
			allocation: entity.HoldTicketAllocation{
				PricingMode:      entity.PricingModeFixed,
				CustomPriceCents: int64Ptr(15000),
			},
			originalCents: 10000,
			wantUnit:      15000,
			wantSavings:   0,
		},
		{
			name: "fixed without custom price falls back to original",
			allocation: entity.HoldTicketAllocation{
				PricingMode: entity.PricingModeFixed,
			},
			originalCents: 10000,
			wantUnit:      10000,
			wantSavings:   0,
		},
		{
			name: "percentage discount",
			allocation: entity.HoldTicketAllocation{
				PricingMode:     entity.PricingModePercentageDiscount,
				DiscountPercent: intPtr(25),
			},
			originalCents: 10000,
			wantUnit:      7500,
			wantSavings:   2500,
		},
		{
			name: "percentage discount rounds half up",
			allocation: entity.HoldTicketAllocation{
				PricingMode:     entity.PricingModePercentageDiscount,
				DiscountPercent: intPtr(33),
			},
			originalCents: 999,
			// 999 * 0.67 = 669.33, rounds to 669
			wantUnit:    669,
			wantSavings: 330,
		},
		{
			name: "100 percent discount",
			allocation: entity.HoldTicketAllocation{
				PricingMode:     entity.PricingModePercentageDiscount,
				DiscountPercent: intPtr(100),
			},
			originalCents: 10000,
			wantUnit:      0,
			wantSavings:   10000,
		},
		{
			name: "discount without percent defaults to zero",
			allocation: entity.HoldTicketAllocation{
				PricingMode: entity.PricingModePercentageDiscount,
			},
			originalCents: 10000,
			wantUnit:      10000,
			wantSavings:   0,
		},
		{
			name:          "free",
			allocation:    entity.HoldTicketAllocation{PricingMode: entity.PricingModeFree},
			originalCents: 10000,
			wantUnit:      0,
			wantSavings:   10000,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			quote := QuoteAllocation(tc.allocation, tc.originalCents)
			assert.Equal(t, tc.wantUnit, quote.UnitPriceCents)
			assert.Equal(t, tc.wantSavings, quote.SavingsCents)
			assert.Equal(t, tc.originalCents, quote.OriginalPriceCents)
		})
	}
}

func TestQuoteForTicketType(t *testing.T) {
	ticketTypeID := uuid.NewString()
	allocations := []entity.HoldTicketAllocation{
		{TicketTypeID: ticketTypeID, PricingMode: entity.PricingModeFree},
	}

	quote, ok := QuoteForTicketType(allocations, ticketTypeID, 2000)
	require.True(t, ok)
	assert.Equal(t, int64(0), quote.UnitPriceCents)

	_, ok = QuoteForTicketType(allocations, uuid.NewString(), 2000)
	assert.False(t, ok)
}

func TestCalculateOrderTotals(t *testing.T) {
	discountedType := uuid.NewString()
	freeType := uuid.NewString()

	allocations := []entity.HoldTicketAllocation{
		{
			TicketTypeID:    discountedType,
			PricingMode:     entity.PricingModePercentageDiscount,
			DiscountPercent: intPtr(50),
		},
		{
			TicketTypeID: freeType,
			PricingMode:  entity.PricingModeFree,
		},
	}
	originalPrices := map[string]int64{
		discountedType: 10000,
		freeType:       4000,
	}

	totals := CalculateOrderTotals(allocations, originalPrices, []OrderLine{
		{TicketTypeID: discountedType, Quantity: 2},
		{TicketTypeID: freeType, Quantity: 3},
	})

	require.Len(t, totals.Lines, 2)
	assert.Equal(t, int64(10000), totals.SubtotalCents)
	assert.Equal(t, int64(10000+12000), totals.TotalSavingsCents)

	assert.Equal(t, int64(5000), totals.Lines[0].UnitPriceCents)
	assert.Equal(t, int64(10000), totals.Lines[0].LineTotalCents)
	assert.Equal(t, int64(0), totals.Lines[1].UnitPriceCents)
	assert.Equal(t, int64(12000), totals.Lines[1].LineSavingsCents)
}

func TestCalculateOrderTotals_skipsUnknownTicketTypes(t *testing.T) {
	ticketTypeID := uuid.NewString()
	allocations := []entity.HoldTicketAllocation{
		{TicketTypeID: ticketTypeID, PricingMode: entity.PricingModeOriginal},
	}

	totals := CalculateOrderTotals(
		allocations,
		map[string]int64{ticketTypeID: 1000},
		[]OrderLine{
			{TicketTypeID: ticketTypeID, Quantity: 1},
			{TicketTypeID: uuid.NewString(), Quantity: 5},
		},
	)

	require.Len(t, totals.Lines, 1)
	assert.Equal(t, int64(1000), totals.SubtotalCents)
}
