package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"tickethold/entity"
	"tickethold/pricing"
)

// PurchasesPostgresRepository is the redemption entry point: it resolves a
// link by code, authorizes the caller, re-validates capacity and creates
// the sale records in one atomic unit of work.
type PurchasesPostgresRepository struct {
	db *sqlx.DB
}

func NewPurchasesPostgresRepository(db *sqlx.DB) *PurchasesPostgresRepository {
	if db == nil {
		panic("db must be set")
	}
	return &PurchasesPostgresRepository{db: db}
}

type PurchaseRequest struct {
	Code     string
	Lines    []pricing.OrderLine
	UserID   *string
	AccessID *string
}

type PurchaseResult struct {
	Transaction entity.Transaction
	Bookings    []entity.Booking
	Ledger      []entity.PurchaseLinkPurchase
	Totals      pricing.OrderTotals
}

// mergeOrderLines collapses duplicate ticket-type lines into one, so the
// inventory check, the ledger and the pricing all see a single line per
// ticket type. First occurrence order is preserved.
func mergeOrderLines(lines []pricing.OrderLine) []pricing.OrderLine {
	merged := make([]pricing.OrderLine, 0, len(lines))
	indexByType := make(map[string]int, len(lines))
	for _, line := range lines {
		if i, ok := indexByType[line.TicketTypeID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		indexByType[line.TicketTypeID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

// Purchase executes one redemption. All checks and writes happen inside a
// single transaction holding row locks on the link, the hold and the
// touched allocations, so two concurrent calls against the same link or
// allocation serialize; a failure at any step leaves every counter and row
// exactly as it was. The transaction runs at read committed: a caller that
// blocked on the row locks re-reads the winner's committed counters after
// the wait and fails with the domain error, not a serialization failure.
func (r *PurchasesPostgresRepository) Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	if len(req.Lines) == 0 {
		return PurchaseResult{}, fmt.Errorf("at least one line must be requested")
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return PurchaseResult{}, fmt.Errorf("quantity for ticket type %s must be positive", line.TicketTypeID)
		}
	}
	orderLines := mergeOrderLines(req.Lines)

	var result PurchaseResult

	err := UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		now := time.Now().UTC()

		link, err := getLinkBy(ctx, tx, "code", req.Code, true)
		if err != nil {
			return err
		}
		if !link.IsUsable(now) {
			return entity.ErrLinkNotUsable
		}

		if link.AssignedUserID != nil {
			if req.UserID == nil || *req.UserID != *link.AssignedUserID {
				return entity.ErrUserNotAuthorized
			}
		}

		hold, err := getHold(ctx, tx, link.HoldID, true)
		if err != nil {
			return err
		}
		if !hold.IsActive(now) {
			return entity.ErrHoldNotActive
		}

		allocations, err := selectAllocationsForUpdate(ctx, tx, hold.HoldID)
		if err != nil {
			return err
		}
		allocationsByType := lo.KeyBy(allocations, func(a entity.HoldTicketAllocation) string {
			return a.TicketTypeID
		})

		for _, line := range orderLines {
			allocation, ok := allocationsByType[line.TicketTypeID]
			if !ok {
				return fmt.Errorf("ticket type %s: %w", line.TicketTypeID, entity.ErrNoAllocation)
			}
			if line.Quantity > allocation.Remaining() {
				return entity.InsufficientHoldInventoryError{
					TicketTypeID: line.TicketTypeID,
					Requested:    line.Quantity,
					Remaining:    allocation.Remaining(),
				}
			}
		}

		totalQuantity := lo.SumBy(orderLines, func(l pricing.OrderLine) int { return l.Quantity })
		if link.QuantityLimit != nil && link.QuantityPurchased+totalQuantity > *link.QuantityLimit {
			return entity.ErrLinkNotUsable
		}

		// lock ticket types in a stable order; prices and names are read
		// under the same lock the availability check uses
		ticketTypeIDs := lo.Map(orderLines, func(l pricing.OrderLine, _ int) string { return l.TicketTypeID })
		sort.Strings(ticketTypeIDs)

		ticketTypes := make(map[string]lockedTicketType, len(ticketTypeIDs))
		originalPrices := make(map[string]int64, len(ticketTypeIDs))
		for _, id := range ticketTypeIDs {
			tt, err := lockTicketType(ctx, tx, id)
			if err != nil {
				return err
			}
			ticketTypes[id] = tt
			originalPrices[id] = tt.PriceCents
		}

		totals := pricing.CalculateOrderTotals(allocations, originalPrices, orderLines)

		metadata, err := json.Marshal(entity.TransactionMetadata{
			Source:            "purchase_link",
			LinkID:            link.LinkID,
			TotalSavingsCents: totals.TotalSavingsCents,
		})
		if err != nil {
			return fmt.Errorf("could not marshal transaction metadata: %w", err)
		}

		transaction := entity.Transaction{
			TransactionID: uuid.NewString(),
			Status:        entity.TransactionStatusConfirmed,
			TotalCents:    totals.SubtotalCents,
			Metadata:      metadata,
			CreatedAt:     now,
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO transactions (transaction_id, status, total_cents, metadata, created_at)
			VALUES (:transaction_id, :status, :total_cents, :metadata, :created_at)
		`, transaction)
		if err != nil {
			return fmt.Errorf("could not insert transaction: %w", err)
		}

		var (
			bookings []entity.Booking
			ledger   []entity.PurchaseLinkPurchase
			lines    []entity.HoldPurchaseLine
		)

		for _, lineTotal := range totals.Lines {
			tt := ticketTypes[lineTotal.TicketTypeID]

			// one booking per physical ticket unit
			for i := 0; i < lineTotal.Quantity; i++ {
				booking := entity.Booking{
					BookingID:     uuid.NewString(),
					ShowID:        tt.ShowID,
					TicketTypeID:  tt.TicketTypeID,
					UserID:        req.UserID,
					Status:        entity.BookingStatusConfirmed,
					PriceCents:    lineTotal.UnitPriceCents,
					RedemptionID:  uuid.NewString(),
					TransactionID: transaction.TransactionID,
					CreatedAt:     now,
				}
				_, err = tx.NamedExecContext(ctx, `
					INSERT INTO bookings
						(booking_id, show_id, ticket_type_id, user_id, status, price_cents, redemption_id, transaction_id, created_at)
					VALUES
						(:booking_id, :show_id, :ticket_type_id, :user_id, :status, :price_cents, :redemption_id, :transaction_id, :created_at)
				`, booking)
				if err != nil {
					return fmt.Errorf("could not insert booking: %w", err)
				}
				bookings = append(bookings, booking)
			}

			// one ledger row per distinct ticket type, not per unit
			purchase := entity.PurchaseLinkPurchase{
				PurchaseID:         uuid.NewString(),
				LinkID:             link.LinkID,
				UserID:             req.UserID,
				TicketTypeID:       lineTotal.TicketTypeID,
				Quantity:           lineTotal.Quantity,
				UnitPriceCents:     lineTotal.UnitPriceCents,
				OriginalPriceCents: lineTotal.OriginalPriceCents,
				CreatedAt:          now,
			}
			_, err = tx.NamedExecContext(ctx, `
				INSERT INTO purchase_link_purchases
					(purchase_id, link_id, user_id, ticket_type_id, quantity, unit_price_cents, original_price_cents, created_at)
				VALUES
					(:purchase_id, :link_id, :user_id, :ticket_type_id, :quantity, :unit_price_cents, :original_price_cents, :created_at)
			`, purchase)
			if err != nil {
				return fmt.Errorf("could not insert ledger row: %w", err)
			}
			ledger = append(ledger, purchase)

			_, err = tx.ExecContext(ctx, `
				UPDATE hold_allocations
				SET purchased_quantity = purchased_quantity + $1
				WHERE hold_id = $2 AND ticket_type_id = $3
			`, lineTotal.Quantity, hold.HoldID, lineTotal.TicketTypeID)
			if err != nil {
				return fmt.Errorf("could not increment allocation counter: %w", err)
			}

			lines = append(lines, entity.HoldPurchaseLine{
				TicketTypeID:   lineTotal.TicketTypeID,
				Quantity:       lineTotal.Quantity,
				UnitPriceCents: lineTotal.UnitPriceCents,
			})
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_links
			SET quantity_purchased = quantity_purchased + $1
			WHERE link_id = $2
		`, totalQuantity, link.LinkID)
		if err != nil {
			return fmt.Errorf("could not increment link counter: %w", err)
		}

		if req.AccessID != nil {
			// the stamp flips true at most once, and only on an audit row
			// belonging to the redeemed link
			_, err = tx.ExecContext(ctx, `
				UPDATE purchase_link_accesses
				SET resulted_in_purchase = TRUE
				WHERE access_id = $1 AND link_id = $2 AND resulted_in_purchase = FALSE
			`, *req.AccessID, link.LinkID)
			if err != nil {
				return fmt.Errorf("could not mark access as converted: %w", err)
			}
		}

		// global capacity must still hold after the counters moved; a
		// violation aborts the whole unit of work
		for _, id := range ticketTypeIDs {
			if err := ensureAvailable(ctx, tx, ticketTypes[id], 0, noHoldID); err != nil {
				return err
			}
		}

		err = publishInTx(ctx, tx, entity.HoldPurchaseCompleted{
			Header:            entity.NewEventHeader(),
			TransactionID:     transaction.TransactionID,
			LinkID:            link.LinkID,
			HoldID:            hold.HoldID,
			UserID:            req.UserID,
			TotalQuantity:     totalQuantity,
			TotalCents:        totals.SubtotalCents,
			TotalSavingsCents: totals.TotalSavingsCents,
			Lines:             lines,
		})
		if err != nil {
			return err
		}

		result = PurchaseResult{
			Transaction: transaction,
			Bookings:    bookings,
			Ledger:      ledger,
			Totals:      totals,
		}
		return nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	return result, nil
}
