package entity

import (
	"fmt"
	"time"
)

type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "ACTIVE"
	HoldStatusReleased HoldStatus = "RELEASED"
)

type PricingMode string

const (
	PricingModeOriginal           PricingMode = "ORIGINAL"
	PricingModeFixed              PricingMode = "FIXED"
	PricingModePercentageDiscount PricingMode = "PERCENTAGE_DISCOUNT"
	PricingModeFree               PricingMode = "FREE"
)

// TicketHold reserves a slice of a show's ticket inventory for one organizer.
// Holds are never hard-deleted: release is the only terminal transition.
type TicketHold struct {
	HoldID        string     `db:"hold_id" json:"hold_id"`
	ShowID        string     `db:"show_id" json:"show_id"`
	OrganizerID   string     `db:"organizer_id" json:"organizer_id"`
	CreatedBy     string     `db:"created_by" json:"created_by"`
	Name          string     `db:"name" json:"name"`
	Description   string     `db:"description" json:"description"`
	InternalNotes string     `db:"internal_notes" json:"internal_notes"`
	Status        HoldStatus `db:"status" json:"status"`
	ExpiresAt     *time.Time `db:"expires_at" json:"expires_at"`
	ReleasedAt    *time.Time `db:"released_at" json:"released_at"`
	ReleasedBy    *string    `db:"released_by" json:"released_by"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`

	Allocations []HoldTicketAllocation `db:"-" json:"allocations"`
}

func NewTicketHold(
	holdID string,
	showID string,
	organizerID string,
	createdBy string,
	name string,
	expiresAt *time.Time,
	allocations []HoldTicketAllocation,
) (*TicketHold, error) {
	if holdID == "" {
		return nil, fmt.Errorf("hold id must be set")
	}
	if showID == "" {
		return nil, fmt.Errorf("show id must be set")
	}
	if organizerID == "" {
		return nil, fmt.Errorf("organizer id must be set")
	}
	if createdBy == "" {
		return nil, fmt.Errorf("created by must be set")
	}
	if name == "" {
		return nil, fmt.Errorf("name must be set")
	}
	if len(allocations) == 0 {
		return nil, fmt.Errorf("at least one allocation must be set")
	}
	for i := range allocations {
		allocations[i].HoldID = holdID
		if err := allocations[i].Validate(); err != nil {
			return nil, err
		}
	}

	return &TicketHold{
		HoldID:      holdID,
		ShowID:      showID,
		OrganizerID: organizerID,
		CreatedBy:   createdBy,
		Name:        name,
		Status:      HoldStatusActive,
		ExpiresAt:   expiresAt,
		Allocations: allocations,
	}, nil
}

func (h TicketHold) IsExpired(now time.Time) bool {
	return h.ExpiresAt != nil && h.ExpiresAt.Before(now)
}

// IsActive reports whether the hold still backs its links: it must not be
// released and not expired.
func (h TicketHold) IsActive(now time.Time) bool {
	return h.Status == HoldStatusActive && !h.IsExpired(now)
}

// HoldTicketAllocation is one ticket-type line within a hold. PurchasedQuantity
// only ever grows, and only the purchase flow writes it.
type HoldTicketAllocation struct {
	HoldID            string      `db:"hold_id" json:"hold_id"`
	TicketTypeID      string      `db:"ticket_type_id" json:"ticket_type_id"`
	AllocatedQuantity int         `db:"allocated_quantity" json:"allocated_quantity"`
	PurchasedQuantity int         `db:"purchased_quantity" json:"purchased_quantity"`
	PricingMode       PricingMode `db:"pricing_mode" json:"pricing_mode"`
	CustomPriceCents  *int64      `db:"custom_price_cents" json:"custom_price_cents"`
	DiscountPercent   *int        `db:"discount_percent" json:"discount_percent"`
}

// Remaining is the number of units still purchasable through this allocation.
func (a HoldTicketAllocation) Remaining() int {
	return a.AllocatedQuantity - a.PurchasedQuantity
}

func (a HoldTicketAllocation) Validate() error {
	if a.TicketTypeID == "" {
		return fmt.Errorf("ticket type id must be set")
	}
	if a.AllocatedQuantity < 0 {
		return fmt.Errorf("allocated quantity must not be negative")
	}

	switch a.PricingMode {
	case PricingModeOriginal, PricingModeFree:
	case PricingModeFixed:
		if a.CustomPriceCents == nil {
			return fmt.Errorf("custom price must be set for fixed pricing")
		}
		if *a.CustomPriceCents < 0 {
			return fmt.Errorf("custom price must not be negative")
		}
	case PricingModePercentageDiscount:
		if a.DiscountPercent == nil {
			return fmt.Errorf("discount percent must be set for percentage discount pricing")
		}
		if *a.DiscountPercent < 0 || *a.DiscountPercent > 100 {
			return fmt.Errorf("discount percent must be between 0 and 100")
		}
	default:
		return fmt.Errorf("unknown pricing mode: %s", a.PricingMode)
	}

	return nil
}
