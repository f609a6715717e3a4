package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"tickethold/entity"
)

func intPtr(v int) *int { return &v }

func storeShowFixture(t *testing.T, db *sqlx.DB) entity.Show {
	t.Helper()

	show := entity.Show{
		ShowID: uuid.NewString(),
		Title:  "some show",
		Venue:  "some venue",
	}
	err := NewShowsPostgresRepository(db).Store(context.Background(), show)
	require.NoError(t, err)

	return show
}

func storeTicketTypeFixture(t *testing.T, db *sqlx.DB, showID string, priceCents int64, capacity *int) entity.TicketType {
	t.Helper()

	ticketType := entity.TicketType{
		TicketTypeID:  uuid.NewString(),
		ShowID:        showID,
		Name:          "standard",
		PriceCents:    priceCents,
		TotalCapacity: capacity,
	}
	err := NewShowsPostgresRepository(db).StoreTicketType(context.Background(), ticketType)
	require.NoError(t, err)

	return ticketType
}

func createHoldFixture(t *testing.T, db *sqlx.DB, showID string, allocations []entity.HoldTicketAllocation) entity.TicketHold {
	t.Helper()

	hold, err := entity.NewTicketHold(
		uuid.NewString(),
		showID,
		uuid.NewString(),
		uuid.NewString(),
		"test hold",
		nil,
		allocations,
	)
	require.NoError(t, err)

	stored, err := NewHoldsPostgresRepository(db).Create(context.Background(), *hold)
	require.NoError(t, err)

	return stored
}

func createLinkFixture(t *testing.T, db *sqlx.DB, holdID string, quantityLimit *int) entity.PurchaseLink {
	t.Helper()

	mode := entity.QuantityModeUnlimited
	if quantityLimit != nil {
		mode = entity.QuantityModeMaximum
	}

	link, err := entity.NewPurchaseLink(
		uuid.NewString(),
		holdID,
		"test link",
		nil,
		mode,
		quantityLimit,
		nil,
		"",
		nil,
	)
	require.NoError(t, err)

	stored, err := NewLinksPostgresRepository(db).Create(context.Background(), *link)
	require.NoError(t, err)

	return stored
}
