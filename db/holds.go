package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"tickethold/entity"
	"tickethold/pubsub/bus"
	"tickethold/pubsub/outbox"
)

type HoldsPostgresRepository struct {
	db *sqlx.DB
}

func NewHoldsPostgresRepository(db *sqlx.DB) *HoldsPostgresRepository {
	if db == nil {
		panic("db must be set")
	}
	return &HoldsPostgresRepository{db: db}
}

// Create validates every allocation line against the remaining public
// inventory and persists the hold with all its lines as one unit of work.
func (r *HoldsPostgresRepository) Create(ctx context.Context, hold entity.TicketHold) (entity.TicketHold, error) {
	for _, a := range hold.Allocations {
		if err := a.Validate(); err != nil {
			return entity.TicketHold{}, err
		}
	}

	hold.Status = entity.HoldStatusActive
	hold.CreatedAt = time.Now().UTC()

	err := UpdateInTx(ctx, r.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		// lock ticket types in a stable order to avoid deadlocks between
		// concurrent multi-line holds
		allocations := append([]entity.HoldTicketAllocation(nil), hold.Allocations...)
		sort.Slice(allocations, func(i, j int) bool {
			return allocations[i].TicketTypeID < allocations[j].TicketTypeID
		})

		for _, a := range allocations {
			tt, err := lockTicketType(ctx, tx, a.TicketTypeID)
			if err != nil {
				return err
			}
			if tt.ShowID != hold.ShowID {
				return fmt.Errorf("ticket type %s does not belong to show %s", a.TicketTypeID, hold.ShowID)
			}
			if err := ensureAvailable(ctx, tx, tt, a.AllocatedQuantity, noHoldID); err != nil {
				return err
			}
		}

		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO ticket_holds
				(hold_id, show_id, organizer_id, created_by, name, description, internal_notes, status, expires_at, created_at)
			VALUES
				(:hold_id, :show_id, :organizer_id, :created_by, :name, :description, :internal_notes, :status, :expires_at, :created_at)
		`, hold)
		if err != nil {
			return fmt.Errorf("could not insert hold: %w", err)
		}

		for i := range hold.Allocations {
			hold.Allocations[i].HoldID = hold.HoldID
			hold.Allocations[i].PurchasedQuantity = 0
		}
		if err := insertAllocations(ctx, tx, hold.Allocations); err != nil {
			return err
		}

		return publishInTx(ctx, tx, entity.TicketHoldCreated{
			Header:      entity.NewEventHeader(),
			HoldID:      hold.HoldID,
			ShowID:      hold.ShowID,
			OrganizerID: hold.OrganizerID,
			TotalAllocated: lo.SumBy(hold.Allocations, func(a entity.HoldTicketAllocation) int {
				return a.AllocatedQuantity
			}),
		})
	})
	if err != nil {
		return entity.TicketHold{}, err
	}

	return hold, nil
}

func (r *HoldsPostgresRepository) GetByID(ctx context.Context, holdID string) (entity.TicketHold, error) {
	hold, err := getHold(ctx, r.db, holdID, false)
	if err != nil {
		return entity.TicketHold{}, err
	}

	hold.Allocations, err = selectAllocations(ctx, r.db, holdID)
	if err != nil {
		return entity.TicketHold{}, err
	}

	return hold, nil
}

func (r *HoldsPostgresRepository) ListByShow(ctx context.Context, showID string) ([]entity.TicketHold, error) {
	var holds []entity.TicketHold
	err := r.db.SelectContext(ctx, &holds, `
		SELECT hold_id, show_id, organizer_id, created_by, name, description, internal_notes,
		       status, expires_at, released_at, released_by, created_at
		FROM ticket_holds
		WHERE show_id = $1
		ORDER BY created_at DESC
	`, showID)
	if err != nil {
		return nil, fmt.Errorf("could not list holds: %w", err)
	}

	for i := range holds {
		holds[i].Allocations, err = selectAllocations(ctx, r.db, holds[i].HoldID)
		if err != nil {
			return nil, err
		}
	}

	return holds, nil
}

// UpdateAllocations diffs the requested lines against the stored ones:
// changed lines are updated, new ticket types inserted, absent lines
// removed. A line with recorded purchases cannot be removed. Attached links
// and purchased counters are never touched.
func (r *HoldsPostgresRepository) UpdateAllocations(
	ctx context.Context,
	holdID string,
	requested []entity.HoldTicketAllocation,
) (entity.TicketHold, error) {
	if len(requested) == 0 {
		return entity.TicketHold{}, fmt.Errorf("at least one allocation must be requested")
	}
	for i := range requested {
		requested[i].HoldID = holdID
		if err := requested[i].Validate(); err != nil {
			return entity.TicketHold{}, err
		}
	}

	var hold entity.TicketHold

	err := UpdateInTx(ctx, r.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		hold, err = getHold(ctx, tx, holdID, true)
		if err != nil {
			return err
		}
		if !hold.IsActive(time.Now().UTC()) {
			return entity.ErrHoldNotActive
		}

		existing, err := selectAllocationsForUpdate(ctx, tx, holdID)
		if err != nil {
			return err
		}

		existingByType := lo.KeyBy(existing, func(a entity.HoldTicketAllocation) string {
			return a.TicketTypeID
		})
		requestedTypes := lo.Map(requested, func(a entity.HoldTicketAllocation, _ int) string {
			return a.TicketTypeID
		})

		// drop lines that are no longer requested, unless units were sold
		for _, a := range existing {
			if lo.Contains(requestedTypes, a.TicketTypeID) {
				continue
			}
			if a.PurchasedQuantity > 0 {
				return fmt.Errorf("ticket type %s: %w", a.TicketTypeID, entity.ErrAllocationHasPurchases)
			}
			_, err := tx.ExecContext(ctx, `
				DELETE FROM hold_allocations
				WHERE hold_id = $1 AND ticket_type_id = $2
			`, holdID, a.TicketTypeID)
			if err != nil {
				return fmt.Errorf("could not delete allocation: %w", err)
			}
		}

		sorted := append([]entity.HoldTicketAllocation(nil), requested...)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].TicketTypeID < sorted[j].TicketTypeID
		})

		for _, a := range sorted {
			tt, err := lockTicketType(ctx, tx, a.TicketTypeID)
			if err != nil {
				return err
			}
			if tt.ShowID != hold.ShowID {
				return fmt.Errorf("ticket type %s does not belong to show %s", a.TicketTypeID, hold.ShowID)
			}

			// re-validate the new quantity with this hold excluded, so the
			// hold's own current consumption never counts against itself
			if err := ensureAvailable(ctx, tx, tt, a.AllocatedQuantity, holdID); err != nil {
				return err
			}

			if prev, ok := existingByType[a.TicketTypeID]; ok && a.AllocatedQuantity < prev.PurchasedQuantity {
				return fmt.Errorf(
					"allocated quantity %d for ticket type %s is below already purchased %d",
					a.AllocatedQuantity, a.TicketTypeID, prev.PurchasedQuantity,
				)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO hold_allocations
					(hold_id, ticket_type_id, allocated_quantity, purchased_quantity, pricing_mode, custom_price_cents, discount_percent)
				VALUES ($1, $2, $3, 0, $4, $5, $6)
				ON CONFLICT (hold_id, ticket_type_id) DO UPDATE SET
					allocated_quantity = excluded.allocated_quantity,
					pricing_mode = excluded.pricing_mode,
					custom_price_cents = excluded.custom_price_cents,
					discount_percent = excluded.discount_percent
			`, holdID, a.TicketTypeID, a.AllocatedQuantity, a.PricingMode, a.CustomPriceCents, a.DiscountPercent)
			if err != nil {
				return fmt.Errorf("could not upsert allocation: %w", err)
			}
		}

		hold.Allocations, err = selectAllocationsTx(ctx, tx, holdID)
		return err
	})
	if err != nil {
		return entity.TicketHold{}, err
	}

	return hold, nil
}

// Release is the terminal hold transition. Every still-ACTIVE link under
// the hold is revoked in the same unit of work with a single conditional
// bulk update; links already in a terminal state keep their original
// revoker and timestamp. Releasing an already released hold is a no-op.
func (r *HoldsPostgresRepository) Release(ctx context.Context, holdID, releasedBy string) (entity.TicketHold, error) {
	var hold entity.TicketHold

	err := UpdateInTx(ctx, r.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		hold, err = getHold(ctx, tx, holdID, true)
		if err != nil {
			return err
		}

		if hold.Status == entity.HoldStatusReleased {
			hold.Allocations, err = selectAllocationsTx(ctx, tx, holdID)
			return err
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			UPDATE ticket_holds
			SET status = $1, released_at = $2, released_by = $3
			WHERE hold_id = $4
		`, entity.HoldStatusReleased, now, releasedBy, holdID)
		if err != nil {
			return fmt.Errorf("could not release hold: %w", err)
		}

		var revokedLinkIDs []string
		err = tx.SelectContext(ctx, &revokedLinkIDs, `
			UPDATE purchase_links
			SET status = $1, revoked_at = $2, revoked_by = $3
			WHERE hold_id = $4 AND status = $5
			RETURNING link_id
		`, entity.LinkStatusRevoked, now, releasedBy, holdID, entity.LinkStatusActive)
		if err != nil {
			return fmt.Errorf("could not revoke links: %w", err)
		}

		hold.Status = entity.HoldStatusReleased
		hold.ReleasedAt = &now
		hold.ReleasedBy = &releasedBy

		hold.Allocations, err = selectAllocationsTx(ctx, tx, holdID)
		if err != nil {
			return err
		}

		return publishInTx(ctx, tx, entity.TicketHoldReleased{
			Header:         entity.NewEventHeader(),
			HoldID:         holdID,
			ReleasedBy:     releasedBy,
			RevokedLinkIDs: revokedLinkIDs,
		})
	})
	if err != nil {
		return entity.TicketHold{}, err
	}

	return hold, nil
}

func getHold(ctx context.Context, q sqlx.QueryerContext, holdID string, forUpdate bool) (entity.TicketHold, error) {
	query := `
		SELECT hold_id, show_id, organizer_id, created_by, name, description, internal_notes,
		       status, expires_at, released_at, released_by, created_at
		FROM ticket_holds
		WHERE hold_id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var hold entity.TicketHold
	err := sqlx.GetContext(ctx, q, &hold, query, holdID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.TicketHold{}, fmt.Errorf("hold %s: %w", holdID, entity.ErrNotFound)
	}
	if err != nil {
		return entity.TicketHold{}, fmt.Errorf("could not get hold: %w", err)
	}
	return hold, nil
}

func selectAllocations(ctx context.Context, db *sqlx.DB, holdID string) ([]entity.HoldTicketAllocation, error) {
	return selectAllocationsWith(ctx, db, holdID, "")
}

func selectAllocationsTx(ctx context.Context, tx *sqlx.Tx, holdID string) ([]entity.HoldTicketAllocation, error) {
	return selectAllocationsWith(ctx, tx, holdID, "")
}

func selectAllocationsForUpdate(ctx context.Context, tx *sqlx.Tx, holdID string) ([]entity.HoldTicketAllocation, error) {
	return selectAllocationsWith(ctx, tx, holdID, " FOR UPDATE")
}

func selectAllocationsWith(ctx context.Context, q sqlx.QueryerContext, holdID, suffix string) ([]entity.HoldTicketAllocation, error) {
	var allocations []entity.HoldTicketAllocation
	err := sqlx.SelectContext(ctx, q, &allocations, `
		SELECT hold_id, ticket_type_id, allocated_quantity, purchased_quantity,
		       pricing_mode, custom_price_cents, discount_percent
		FROM hold_allocations
		WHERE hold_id = $1
		ORDER BY ticket_type_id`+suffix, holdID)
	if err != nil {
		return nil, fmt.Errorf("could not select allocations: %w", err)
	}
	return allocations, nil
}

func insertAllocations(ctx context.Context, tx *sqlx.Tx, allocations []entity.HoldTicketAllocation) error {
	for _, a := range allocations {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO hold_allocations
				(hold_id, ticket_type_id, allocated_quantity, purchased_quantity, pricing_mode, custom_price_cents, discount_percent)
			VALUES
				(:hold_id, :ticket_type_id, :allocated_quantity, :purchased_quantity, :pricing_mode, :custom_price_cents, :discount_percent)
		`, a)
		if err != nil {
			return fmt.Errorf("could not insert allocation: %w", err)
		}
	}
	return nil
}

func publishInTx(ctx context.Context, tx *sqlx.Tx, event any) error {
	outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return fmt.Errorf("could not create event bus: %w", err)
	}

	if err := eventBus.Publish(ctx, event); err != nil {
		return fmt.Errorf("could not publish event: %w", err)
	}

	return nil
}
