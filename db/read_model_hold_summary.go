package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tickethold/entity"
)

// HoldSummariesReadModel keeps one denormalized document per hold, driven
// entirely by the domain events. It is eventually consistent and exists so
// dashboards never query the write-side tables.
type HoldSummariesReadModel struct {
	db *sqlx.DB
}

func NewHoldSummariesReadModel(db *sqlx.DB) HoldSummariesReadModel {
	if db == nil {
		panic("db is nil")
	}
	return HoldSummariesReadModel{db: db}
}

func (r HoldSummariesReadModel) AllSummaries(ctx context.Context) ([]entity.HoldSummary, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT payload FROM hold_summaries")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []entity.HoldSummary
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}

		var summary entity.HoldSummary
		if err := json.Unmarshal(payload, &summary); err != nil {
			return nil, err
		}

		result = append(result, summary)
	}

	return result, rows.Err()
}

func (r HoldSummariesReadModel) SummaryByHoldID(ctx context.Context, holdID string) (entity.HoldSummary, error) {
	summary, err := r.findSummary(ctx, r.db, holdID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.HoldSummary{}, fmt.Errorf("hold summary %s: %w", holdID, entity.ErrNotFound)
	}
	return summary, err
}

func (r HoldSummariesReadModel) OnHoldCreated(ctx context.Context, event *entity.TicketHoldCreated) error {
	summary := entity.HoldSummary{
		HoldID:         event.HoldID,
		ShowID:         event.ShowID,
		OrganizerID:    event.OrganizerID,
		Status:         string(entity.HoldStatusActive),
		TotalAllocated: event.TotalAllocated,
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	// may already exist when the event is redelivered
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO hold_summaries (hold_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (hold_id) DO NOTHING
	`, summary.HoldID, payload)
	if err != nil {
		return fmt.Errorf("could not create hold summary: %w", err)
	}

	return nil
}

func (r HoldSummariesReadModel) OnHoldReleased(ctx context.Context, event *entity.TicketHoldReleased) error {
	return r.updateSummary(ctx, event.HoldID, func(s entity.HoldSummary) (entity.HoldSummary, error) {
		s.Status = string(entity.HoldStatusReleased)
		s.ActiveLinks -= len(event.RevokedLinkIDs)
		if s.ActiveLinks < 0 {
			s.ActiveLinks = 0
		}
		s.RevokedLinks += len(event.RevokedLinkIDs)
		return s, nil
	})
}

func (r HoldSummariesReadModel) OnLinkCreated(ctx context.Context, event *entity.PurchaseLinkCreated) error {
	return r.updateSummary(ctx, event.HoldID, func(s entity.HoldSummary) (entity.HoldSummary, error) {
		s.ActiveLinks++
		return s, nil
	})
}

func (r HoldSummariesReadModel) OnLinkRevoked(ctx context.Context, event *entity.PurchaseLinkRevoked) error {
	return r.updateSummary(ctx, event.HoldID, func(s entity.HoldSummary) (entity.HoldSummary, error) {
		if s.ActiveLinks > 0 {
			s.ActiveLinks--
		}
		s.RevokedLinks++
		return s, nil
	})
}

func (r HoldSummariesReadModel) OnPurchaseCompleted(ctx context.Context, event *entity.HoldPurchaseCompleted) error {
	return r.updateSummary(ctx, event.HoldID, func(s entity.HoldSummary) (entity.HoldSummary, error) {
		s.TotalPurchased += event.TotalQuantity
		s.TotalRevenueCents += event.TotalCents
		s.TotalSavingsCents += event.TotalSavingsCents
		return s, nil
	})
}

func (r HoldSummariesReadModel) updateSummary(
	ctx context.Context,
	holdID string,
	updateFunc func(s entity.HoldSummary) (entity.HoldSummary, error),
) error {
	return UpdateInTx(
		ctx,
		r.db,
		sql.LevelRepeatableRead,
		func(ctx context.Context, tx *sqlx.Tx) error {
			summary, err := r.findSummary(ctx, tx, holdID)
			if errors.Is(err, sql.ErrNoRows) {
				// events arrived out of order, retry until the summary exists
				return fmt.Errorf("hold summary %s does not exist yet", holdID)
			} else if err != nil {
				return fmt.Errorf("could not find hold summary: %w", err)
			}

			updated, err := updateFunc(summary)
			if err != nil {
				return err
			}

			updated.LastUpdate = time.Now().UTC()

			payload, err := json.Marshal(updated)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO hold_summaries (hold_id, payload)
				VALUES ($1, $2)
				ON CONFLICT (hold_id) DO UPDATE SET payload = excluded.payload
			`, holdID, payload)
			if err != nil {
				return fmt.Errorf("could not update hold summary: %w", err)
			}

			return nil
		},
	)
}

func (r HoldSummariesReadModel) findSummary(
	ctx context.Context,
	db dbExecutor,
	holdID string,
) (entity.HoldSummary, error) {
	var payload []byte

	err := db.QueryRowContext(
		ctx,
		"SELECT payload FROM hold_summaries WHERE hold_id = $1",
		holdID,
	).Scan(&payload)
	if err != nil {
		return entity.HoldSummary{}, err
	}

	var summary entity.HoldSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return entity.HoldSummary{}, err
	}

	return summary, nil
}
