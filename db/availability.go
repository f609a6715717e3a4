package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tickethold/entity"
)

// lockedTicketType is the ticket type row as read under a FOR UPDATE lock.
type lockedTicketType struct {
	TicketTypeID  string `db:"ticket_type_id"`
	ShowID        string `db:"show_id"`
	Name          string `db:"name"`
	PriceCents    int64  `db:"price_cents"`
	TotalCapacity *int   `db:"total_capacity"`
}

// lockTicketType takes an exclusive row lock on the ticket type for the
// remainder of the transaction. Every mutation that checks capacity must go
// through this lock so that concurrent check-then-write sequences serialize.
func lockTicketType(ctx context.Context, tx *sqlx.Tx, ticketTypeID string) (lockedTicketType, error) {
	var tt lockedTicketType
	err := tx.GetContext(ctx, &tt, `
		SELECT ticket_type_id, show_id, name, price_cents, total_capacity
		FROM ticket_types
		WHERE ticket_type_id = $1
		FOR UPDATE
	`, ticketTypeID)
	if errors.Is(err, sql.ErrNoRows) {
		return lockedTicketType{}, fmt.Errorf("ticket type %s: %w", ticketTypeID, entity.ErrNotFound)
	}
	if err != nil {
		return lockedTicketType{}, fmt.Errorf("could not lock ticket type: %w", err)
	}
	return tt, nil
}

// availableQuantity recomputes remaining inventory from bookings and other
// active holds. It is never stored; recomputing at lock time avoids a
// separately maintained counter that could drift.
func availableQuantity(ctx context.Context, tx *sqlx.Tx, tt lockedTicketType, excludeHoldID string) (int, error) {
	var booked int
	err := tx.GetContext(ctx, &booked, `
		SELECT COUNT(*)
		FROM bookings
		WHERE ticket_type_id = $1
		  AND show_id = $2
		  AND status IN ($3, $4)
	`, tt.TicketTypeID, tt.ShowID, entity.BookingStatusConfirmed, entity.BookingStatusPendingConfirmation)
	if err != nil {
		return 0, fmt.Errorf("could not count booked tickets: %w", err)
	}

	var held int
	err = tx.GetContext(ctx, &held, `
		SELECT COALESCE(SUM(a.allocated_quantity - a.purchased_quantity), 0)
		FROM hold_allocations a
		JOIN ticket_holds h ON h.hold_id = a.hold_id
		WHERE a.ticket_type_id = $1
		  AND h.status = $2
		  AND (h.expires_at IS NULL OR h.expires_at > now())
		  AND h.hold_id <> $3
	`, tt.TicketTypeID, entity.HoldStatusActive, excludeHoldID)
	if err != nil {
		return 0, fmt.Errorf("could not sum held tickets: %w", err)
	}

	return *tt.TotalCapacity - booked - held, nil
}

// ensureAvailable fails with entity.InsufficientInventoryError when the
// requested quantity does not fit the remaining inventory. excludeHoldID
// removes one hold from the computation (pass the hold's own id when
// re-validating an update, the zero UUID otherwise). The ticket type row
// must already be locked via lockTicketType.
func ensureAvailable(
	ctx context.Context,
	tx *sqlx.Tx,
	tt lockedTicketType,
	requested int,
	excludeHoldID string,
) error {
	if tt.TotalCapacity == nil {
		// unlimited capacity always passes
		return nil
	}

	available, err := availableQuantity(ctx, tx, tt, excludeHoldID)
	if err != nil {
		return err
	}

	if requested > available {
		return entity.InsufficientInventoryError{
			TicketTypeName: tt.Name,
			Requested:      requested,
			Available:      available,
		}
	}

	return nil
}

// noHoldID is passed as excludeHoldID when no hold should be excluded.
// The column is a UUID, so the sentinel must be a valid one.
const noHoldID = "00000000-0000-0000-0000-000000000000"

// RemainingCapacity is the lock-free variant for display purposes. The
// second return value is false for unlimited ticket types.
func RemainingCapacity(ctx context.Context, db *sqlx.DB, ticketTypeID string) (int, bool, error) {
	var remaining sql.NullInt64
	err := db.GetContext(ctx, &remaining, `
		SELECT tt.total_capacity
			- (
				SELECT COUNT(*)
				FROM bookings b
				WHERE b.ticket_type_id = tt.ticket_type_id
				  AND b.show_id = tt.show_id
				  AND b.status IN ($2, $3)
			)
			- (
				SELECT COALESCE(SUM(a.allocated_quantity - a.purchased_quantity), 0)
				FROM hold_allocations a
				JOIN ticket_holds h ON h.hold_id = a.hold_id
				WHERE a.ticket_type_id = tt.ticket_type_id
				  AND h.status = $4
				  AND (h.expires_at IS NULL OR h.expires_at > now())
			)
		FROM ticket_types tt
		WHERE tt.ticket_type_id = $1
	`, ticketTypeID,
		entity.BookingStatusConfirmed, entity.BookingStatusPendingConfirmation,
		entity.HoldStatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("ticket type %s: %w", ticketTypeID, entity.ErrNotFound)
	}
	if err != nil {
		return 0, false, fmt.Errorf("could not compute remaining capacity: %w", err)
	}

	if !remaining.Valid {
		return 0, false, nil
	}
	return int(remaining.Int64), true, nil
}
