package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type TicketHoldCreated struct {
	Header EventHeader `json:"header"`

	HoldID      string `json:"hold_id"`
	ShowID      string `json:"show_id"`
	OrganizerID string `json:"organizer_id"`

	TotalAllocated int `json:"total_allocated"`
}

type TicketHoldReleased struct {
	Header EventHeader `json:"header"`

	HoldID     string `json:"hold_id"`
	ReleasedBy string `json:"released_by"`

	RevokedLinkIDs []string `json:"revoked_link_ids"`
}

type PurchaseLinkCreated struct {
	Header EventHeader `json:"header"`

	LinkID   string `json:"link_id"`
	HoldID   string `json:"hold_id"`
	PublicID string `json:"public_id"`
}

type PurchaseLinkRevoked struct {
	Header EventHeader `json:"header"`

	LinkID    string `json:"link_id"`
	HoldID    string `json:"hold_id"`
	RevokedBy string `json:"revoked_by"`
}

type HoldPurchaseLine struct {
	TicketTypeID   string `json:"ticket_type_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type HoldPurchaseCompleted struct {
	Header EventHeader `json:"header"`

	TransactionID string  `json:"transaction_id"`
	LinkID        string  `json:"link_id"`
	HoldID        string  `json:"hold_id"`
	UserID        *string `json:"user_id"`

	TotalQuantity     int   `json:"total_quantity"`
	TotalCents        int64 `json:"total_cents"`
	TotalSavingsCents int64 `json:"total_savings_cents"`

	Lines []HoldPurchaseLine `json:"lines"`
}
