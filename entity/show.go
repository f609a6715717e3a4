package entity

import "time"

// Show is one occurrence of an event. Owned by the event-management
// subsystem; this module only reads it.
type Show struct {
	ShowID    string    `db:"show_id" json:"show_id"`
	Title     string    `db:"title" json:"title"`
	Venue     string    `db:"venue" json:"venue"`
	StartTime time.Time `db:"start_time" json:"start_time"`
}

// TicketType is one sellable ticket definition for a show. A nil
// TotalCapacity means unlimited inventory.
type TicketType struct {
	TicketTypeID  string `db:"ticket_type_id" json:"ticket_type_id"`
	ShowID        string `db:"show_id" json:"show_id"`
	Name          string `db:"name" json:"name"`
	PriceCents    int64  `db:"price_cents" json:"price_cents"`
	TotalCapacity *int   `db:"total_capacity" json:"total_capacity"`
}
