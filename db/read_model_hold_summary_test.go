package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethold/entity"
)

func TestHoldSummariesReadModel(t *testing.T) {
	ctx := context.Background()
	readModel := NewHoldSummariesReadModel(GetDb(t))

	holdID := uuid.NewString()
	showID := uuid.NewString()
	linkID := uuid.NewString()
	secondLinkID := uuid.NewString()

	t.Run("holdCreated", func(t *testing.T) {
		err := readModel.OnHoldCreated(ctx, &entity.TicketHoldCreated{
			Header:         entity.NewEventHeader(),
			HoldID:         holdID,
			ShowID:         showID,
			OrganizerID:    uuid.NewString(),
			TotalAllocated: 15,
		})
		require.NoError(t, err)

		summary, err := readModel.SummaryByHoldID(ctx, holdID)
		require.NoError(t, err)
		assert.Equal(t, string(entity.HoldStatusActive), summary.Status)
		assert.Equal(t, 15, summary.TotalAllocated)
	})

	t.Run("holdCreated is idempotent", func(t *testing.T) {
		err := readModel.OnHoldCreated(ctx, &entity.TicketHoldCreated{
			Header:         entity.NewEventHeader(),
			HoldID:         holdID,
			ShowID:         showID,
			TotalAllocated: 999,
		})
		require.NoError(t, err)

		summary, err := readModel.SummaryByHoldID(ctx, holdID)
		require.NoError(t, err)
		assert.Equal(t, 15, summary.TotalAllocated)
	})

	t.Run("linkCreated", func(t *testing.T) {
		for _, id := range []string{linkID, secondLinkID} {
			err := readModel.OnLinkCreated(ctx, &entity.PurchaseLinkCreated{
				Header: entity.NewEventHeader(),
				LinkID: id,
				HoldID: holdID,
			})
			require.NoError(t, err)
		}

		summary, err := readModel.SummaryByHoldID(ctx, holdID)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.ActiveLinks)
	})

	t.Run("purchaseCompleted", func(t *testing.T) {
		err := readModel.OnPurchaseCompleted(ctx, &entity.HoldPurchaseCompleted{
			Header:            entity.NewEventHeader(),
			TransactionID:     uuid.NewString(),
			LinkID:            linkID,
			HoldID:            holdID,
			TotalQuantity:     3,
			TotalCents:        15000,
			TotalSavingsCents: 5000,
		})
		require.NoError(t, err)

		summary, err := readModel.SummaryByHoldID(ctx, holdID)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.TotalPurchased)
		assert.Equal(t, int64(15000), summary.TotalRevenueCents)
		assert.Equal(t, int64(5000), summary.TotalSavingsCents)
	})

	t.Run("linkRevoked", func(t *testing.T) {
		err := readModel.OnLinkRevoked(ctx, &entity.PurchaseLinkRevoked{
			Header: entity.NewEventHeader(),
			LinkID: linkID,
			HoldID: holdID,
		})
		require.NoError(t, err)

		summary, err := readModel.SummaryByHoldID(ctx, holdID)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.ActiveLinks)
		assert.Equal(t, 1, summary.RevokedLinks)
	})

	t.Run("holdReleased", func(t *testing.T) {
		err := readModel.OnHoldReleased(ctx, &entity.TicketHoldReleased{
			Header:         entity.NewEventHeader(),
			HoldID:         holdID,
			ReleasedBy:     uuid.NewString(),
			RevokedLinkIDs: []string{secondLinkID},
		})
		require.NoError(t, err)

		summary, err := readModel.SummaryByHoldID(ctx, holdID)
		require.NoError(t, err)
		assert.Equal(t, string(entity.HoldStatusReleased), summary.Status)
		assert.Equal(t, 0, summary.ActiveLinks)
		assert.Equal(t, 2, summary.RevokedLinks)
	})

	t.Run("unknown hold", func(t *testing.T) {
		_, err := readModel.SummaryByHoldID(ctx, uuid.NewString())
		require.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("update before create keeps failing for redelivery", func(t *testing.T) {
		err := readModel.OnLinkCreated(ctx, &entity.PurchaseLinkCreated{
			Header: entity.NewEventHeader(),
			LinkID: uuid.NewString(),
			HoldID: uuid.NewString(),
		})
		require.Error(t, err)
	})
}
