// Package pricing computes unit prices and savings for hold allocations.
// Everything here is pure: prices go in as integer cents, quotes come out.
package pricing

import (
	"github.com/samber/lo"

	"tickethold/entity"
)

// Quote is the price of one unit sold through an allocation.
type Quote struct {
	UnitPriceCents     int64              `json:"unit_price_cents"`
	OriginalPriceCents int64              `json:"original_price_cents"`
	SavingsCents       int64              `json:"savings_cents"`
	Mode               entity.PricingMode `json:"mode"`
}

// QuoteAllocation applies the allocation's pricing mode to the ticket's
// original price. Savings never go negative, even when a fixed price is set
// above the original.
func QuoteAllocation(allocation entity.HoldTicketAllocation, originalPriceCents int64) Quote {
	var unit int64

	switch allocation.PricingMode {
	case entity.PricingModeFixed:
		if allocation.CustomPriceCents != nil {
			unit = *allocation.CustomPriceCents
		} else {
			unit = originalPriceCents
		}
	case entity.PricingModePercentageDiscount:
		discount := 0
		if allocation.DiscountPercent != nil {
			discount = *allocation.DiscountPercent
		}
		unit = discountedPrice(originalPriceCents, discount)
	case entity.PricingModeFree:
		unit = 0
	default: // ORIGINAL
		unit = originalPriceCents
	}

	savings := originalPriceCents - unit
	if savings < 0 {
		savings = 0
	}

	return Quote{
		UnitPriceCents:     unit,
		OriginalPriceCents: originalPriceCents,
		SavingsCents:       savings,
		Mode:               allocation.PricingMode,
	}
}

// discountedPrice rounds half-up on integer cents.
func discountedPrice(originalCents int64, discountPercent int) int64 {
	return (originalCents*int64(100-discountPercent) + 50) / 100
}

// QuoteForTicketType prices one ticket type against a hold's allocations.
// The second return value is false when the ticket type is not part of the
// hold; that is not an error.
func QuoteForTicketType(
	allocations []entity.HoldTicketAllocation,
	ticketTypeID string,
	originalPriceCents int64,
) (Quote, bool) {
	allocation, found := lo.Find(allocations, func(a entity.HoldTicketAllocation) bool {
		return a.TicketTypeID == ticketTypeID
	})
	if !found {
		return Quote{}, false
	}
	return QuoteAllocation(allocation, originalPriceCents), true
}

// OrderLine is one requested {ticket type, quantity} pair.
type OrderLine struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

// LineTotal is the priced breakdown of one order line.
type LineTotal struct {
	TicketTypeID       string             `json:"ticket_type_id"`
	Quantity           int                `json:"quantity"`
	UnitPriceCents     int64              `json:"unit_price_cents"`
	OriginalPriceCents int64              `json:"original_price_cents"`
	LineTotalCents     int64              `json:"line_total_cents"`
	LineSavingsCents   int64              `json:"line_savings_cents"`
	Mode               entity.PricingMode `json:"mode"`
}

type OrderTotals struct {
	SubtotalCents     int64       `json:"subtotal_cents"`
	TotalSavingsCents int64       `json:"total_savings_cents"`
	Lines             []LineTotal `json:"lines"`
}

// CalculateOrderTotals prices a multi-line order against one hold's
// allocations. Lines whose ticket type has no allocation are silently
// skipped; originalPrices maps ticket type id to its public price in cents.
func CalculateOrderTotals(
	allocations []entity.HoldTicketAllocation,
	originalPrices map[string]int64,
	lines []OrderLine,
) OrderTotals {
	totals := OrderTotals{Lines: make([]LineTotal, 0, len(lines))}

	for _, line := range lines {
		quote, ok := QuoteForTicketType(allocations, line.TicketTypeID, originalPrices[line.TicketTypeID])
		if !ok {
			continue
		}

		totals.Lines = append(totals.Lines, LineTotal{
			TicketTypeID:       line.TicketTypeID,
			Quantity:           line.Quantity,
			UnitPriceCents:     quote.UnitPriceCents,
			OriginalPriceCents: quote.OriginalPriceCents,
			LineTotalCents:     quote.UnitPriceCents * int64(line.Quantity),
			LineSavingsCents:   quote.SavingsCents * int64(line.Quantity),
			Mode:               quote.Mode,
		})
	}

	totals.SubtotalCents = lo.SumBy(totals.Lines, func(l LineTotal) int64 { return l.LineTotalCents })
	totals.TotalSavingsCents = lo.SumBy(totals.Lines, func(l LineTotal) int64 { return l.LineSavingsCents })

	return totals
}
