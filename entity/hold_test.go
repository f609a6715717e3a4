package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicketHold(t *testing.T) {
	allocation := HoldTicketAllocation{
		TicketTypeID:      uuid.NewString(),
		AllocatedQuantity: 10,
		PricingMode:       PricingModeOriginal,
	}

	hold, err := NewTicketHold(
		uuid.NewString(),
		uuid.NewString(),
		uuid.NewString(),
		uuid.NewString(),
		"press allocation",
		nil,
		[]HoldTicketAllocation{allocation},
	)
	require.NoError(t, err)

	assert.Equal(t, HoldStatusActive, hold.Status)
	require.Len(t, hold.Allocations, 1)
	assert.Equal(t, hold.HoldID, hold.Allocations[0].HoldID)
}

func TestNewTicketHold_validation(t *testing.T) {
	validAllocation := HoldTicketAllocation{
		TicketTypeID:      uuid.NewString(),
		AllocatedQuantity: 1,
		PricingMode:       PricingModeOriginal,
	}

	testCases := []struct {
		name        string
		holdID      string
		showID      string
		holdName    string
		allocations []HoldTicketAllocation
	}{
		{
			name:        "missing hold id",
			showID:      uuid.NewString(),
			holdName:    "x",
			allocations: []HoldTicketAllocation{validAllocation},
		},
		{
			name:        "missing show id",
			holdID:      uuid.NewString(),
			holdName:    "x",
			allocations: []HoldTicketAllocation{validAllocation},
		},
		{
			name:        "missing name",
			holdID:      uuid.NewString(),
			showID:      uuid.NewString(),
			allocations: []HoldTicketAllocation{validAllocation},
		},
		{
			name:     "no allocations",
			holdID:   uuid.NewString(),
			showID:   uuid.NewString(),
			holdName: "x",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTicketHold(
				tc.holdID,
				tc.showID,
				uuid.NewString(),
				uuid.NewString(),
				tc.holdName,
				nil,
				tc.allocations,
			)
			assert.Error(t, err)
		})
	}
}

func TestTicketHold_IsActive(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	testCases := []struct {
		name      string
		status    HoldStatus
		expiresAt *time.Time
		active    bool
	}{
		{name: "active without expiry", status: HoldStatusActive, active: true},
		{name: "active before expiry", status: HoldStatusActive, expiresAt: &future, active: true},
		{name: "expired", status: HoldStatusActive, expiresAt: &past, active: false},
		{name: "released", status: HoldStatusReleased, active: false},
		{name: "released and expired", status: HoldStatusReleased, expiresAt: &past, active: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hold := TicketHold{Status: tc.status, ExpiresAt: tc.expiresAt}
			assert.Equal(t, tc.active, hold.IsActive(now))
		})
	}
}

func TestHoldTicketAllocation_Validate(t *testing.T) {
	price := int64(5000)
	negativePrice := int64(-1)
	discount := 25
	tooBigDiscount := 101

	testCases := []struct {
		name       string
		allocation HoldTicketAllocation
		wantErr    bool
	}{
		{
			name: "original",
			allocation: HoldTicketAllocation{
				TicketTypeID: uuid.NewString(), AllocatedQuantity: 1, PricingMode: PricingModeOriginal,
			},
		},
		{
			name: "free",
			allocation: HoldTicketAllocation{
				TicketTypeID: uuid.NewString(), AllocatedQuantity: 1, PricingMode: PricingModeFree,
			},
		},
		{
			name: "fixed with price",
			allocation: HoldTicketAllocation{
				TicketTypeID: uuid.NewString(), AllocatedQuantity: 1,
				PricingMode: PricingModeFixed, CustomPriceCents: &price,
			},
		},
		{
			name: "fixed without price",
			allocation: HoldTicketAllocation{
				TicketTypeID: uuid.NewString(), AllocatedQuantity: 1, PricingMode: PricingModeFixed,
			},
			wantErr: true,
		},
		{
			name: "fixed with negative price",
			allocation: HoldTicketAllocation{
				TicketTypeID: uuid.NewString(), AllocatedQuantity: 1,
				PricingMode: PricingModeFixed, CustomPriceCents: &negativePrice,
			},
			wantErr: true,
		},
		{
			name: "discount with percent",
			allocation: HoldTicketAllocation{
				TicketTypeID: uuid.NewString(), AllocatedQuantity: 1,
				PricingMode: PricingModePercentageDiscount, DiscountPercent: &discount,
			},
		},
		{
			name: "discount without percent",
			allocation: HoldTicketAllocation{
				TicketTypeID: uuid.NewString(), AllocatedQuantity: 1,
				PricingMode: PricingModePercentageDiscount,
			},
			wantErr: true,
		},
		{
			name: "discount above 100",
			allocation: HoldTicketAllocation{
				TicketTypeID: uuid.NewString(), AllocatedQuantity: 1,
				PricingMode: PricingModePercentageDiscount, DiscountPercent: &tooBigDiscount,
			},
			wantErr: true,
		},
		{
			name: "unknown mode",
			allocation: HoldTicketAllocation{
				TicketTypeID: uuid.NewString(), AllocatedQuantity: 1, PricingMode: "HALF_OFF",
			},
			wantErr: true,
		},
		{
			name: "negative quantity",
			allocation: HoldTicketAllocation{
				TicketTypeID: uuid.NewString(), AllocatedQuantity: -1, PricingMode: PricingModeOriginal,
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.allocation.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHoldTicketAllocation_Remaining(t *testing.T) {
	a := HoldTicketAllocation{AllocatedQuantity: 10, PurchasedQuantity: 3}
	assert.Equal(t, 7, a.Remaining())
}
