package entity

import (
	"encoding/json"
	"time"
)

type BookingStatus string

const (
	BookingStatusConfirmed           BookingStatus = "CONFIRMED"
	BookingStatusPendingConfirmation BookingStatus = "PENDING_CONFIRMATION"
	BookingStatusCanceled            BookingStatus = "CANCELED"
)

type TransactionStatus string

const (
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
)

// Booking is one physical ticket unit. The general booking subsystem owns
// these rows; the purchase flow only creates them.
type Booking struct {
	BookingID     string        `db:"booking_id" json:"booking_id"`
	ShowID        string        `db:"show_id" json:"show_id"`
	TicketTypeID  string        `db:"ticket_type_id" json:"ticket_type_id"`
	UserID        *string       `db:"user_id" json:"user_id"`
	Status        BookingStatus `db:"status" json:"status"`
	PriceCents    int64         `db:"price_cents" json:"price_cents"`
	RedemptionID  string        `db:"redemption_id" json:"redemption_id"`
	TransactionID string        `db:"transaction_id" json:"transaction_id"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// Transaction groups the bookings of one purchase call.
type Transaction struct {
	TransactionID string            `db:"transaction_id" json:"transaction_id"`
	Status        TransactionStatus `db:"status" json:"status"`
	TotalCents    int64             `db:"total_cents" json:"total_cents"`
	Metadata      json.RawMessage   `db:"metadata" json:"metadata"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

// TransactionMetadata records where a transaction came from.
type TransactionMetadata struct {
	Source            string `json:"source"`
	LinkID            string `json:"link_id"`
	TotalSavingsCents int64  `json:"total_savings_cents"`
}
