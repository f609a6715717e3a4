package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tickethold/entity"
)

// ShowsPostgresRepository reads the show and ticket type catalog. The
// event-management subsystem owns these rows; Store methods exist so the
// module can be exercised standalone.
type ShowsPostgresRepository struct {
	db *sqlx.DB
}

func NewShowsPostgresRepository(db *sqlx.DB) *ShowsPostgresRepository {
	if db == nil {
		panic("db must be set")
	}
	return &ShowsPostgresRepository{db: db}
}

func (r *ShowsPostgresRepository) Store(ctx context.Context, show entity.Show) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO shows (show_id, title, venue, start_time)
		VALUES (:show_id, :title, :venue, :start_time)
		ON CONFLICT DO NOTHING -- ignore if already exists
	`, show)
	return err
}

func (r *ShowsPostgresRepository) StoreTicketType(ctx context.Context, ticketType entity.TicketType) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO ticket_types (ticket_type_id, show_id, name, price_cents, total_capacity)
		VALUES (:ticket_type_id, :show_id, :name, :price_cents, :total_capacity)
		ON CONFLICT DO NOTHING -- ignore if already exists
	`, ticketType)
	return err
}

func (r *ShowsPostgresRepository) Get(ctx context.Context, showID string) (entity.Show, error) {
	var show entity.Show
	err := r.db.GetContext(ctx, &show, `
		SELECT show_id, title, venue, start_time
		FROM shows
		WHERE show_id = $1
	`, showID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Show{}, entity.ErrNotFound
	}
	return show, err
}

func (r *ShowsPostgresRepository) GetTicketType(ctx context.Context, ticketTypeID string) (entity.TicketType, error) {
	var tt entity.TicketType
	err := r.db.GetContext(ctx, &tt, `
		SELECT ticket_type_id, show_id, name, price_cents, total_capacity
		FROM ticket_types
		WHERE ticket_type_id = $1
	`, ticketTypeID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.TicketType{}, entity.ErrNotFound
	}
	return tt, err
}

func (r *ShowsPostgresRepository) ListTicketTypes(ctx context.Context, showID string) ([]entity.TicketType, error) {
	var tts []entity.TicketType
	err := r.db.SelectContext(ctx, &tts, `
		SELECT ticket_type_id, show_id, name, price_cents, total_capacity
		FROM ticket_types
		WHERE show_id = $1
		ORDER BY name
	`, showID)
	if err != nil {
		return nil, fmt.Errorf("could not list ticket types: %w", err)
	}
	return tts, nil
}
