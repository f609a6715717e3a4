package entity

import "time"

// HoldSummary is the denormalized per-hold view maintained from events. It
// is eventually consistent with the write side and must never be used for
// capacity decisions.
type HoldSummary struct {
	HoldID      string `json:"hold_id"`
	ShowID      string `json:"show_id"`
	OrganizerID string `json:"organizer_id"`
	Status      string `json:"status"`

	TotalAllocated int `json:"total_allocated"`
	TotalPurchased int `json:"total_purchased"`

	ActiveLinks  int `json:"active_links"`
	RevokedLinks int `json:"revoked_links"`

	TotalRevenueCents int64 `json:"total_revenue_cents"`
	TotalSavingsCents int64 `json:"total_savings_cents"`

	LastUpdate time.Time `json:"last_update"`
}
