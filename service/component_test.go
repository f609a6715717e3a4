package service

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tickethold/db"
	"tickethold/entity"
	"tickethold/pricing"
)

var httpAddress = ":8080"

func TestComponent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/testcontainers/testcontainers-go.(*Reaper).Connect.func1"))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbconn, err := sqlx.Open("postgres", postgresURL)
	require.NoError(t, err)
	defer dbconn.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
	defer redisClient.Close()

	svc := New(httpAddress, dbconn, redisClient)

	done := make(chan struct{})
	go func() {
		<-done
		e := syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		require.NoError(t, e)
	}()

	finished := make(chan struct{})
	go func() {
		assert.NoError(t, svc.Run(ctx))
		close(finished)
	}()

	defer func() {
		close(done)
		<-finished
	}()

	waitForHttpServer(t)

	// whole flow: hold, link, purchase
	show := entity.Show{ShowID: uuid.NewString(), Title: "component test show"}
	require.NoError(t, svc.Shows.Store(ctx, show))

	ticketType := entity.TicketType{
		TicketTypeID:  uuid.NewString(),
		ShowID:        show.ShowID,
		Name:          "standard",
		PriceCents:    10000,
		TotalCapacity: capacity(50),
	}
	require.NoError(t, svc.Shows.StoreTicketType(ctx, ticketType))

	hold, err := entity.NewTicketHold(
		uuid.NewString(), show.ShowID, uuid.NewString(), uuid.NewString(), "press", nil,
		[]entity.HoldTicketAllocation{
			{TicketTypeID: ticketType.TicketTypeID, AllocatedQuantity: 10, PricingMode: entity.PricingModeFree},
		},
	)
	require.NoError(t, err)
	storedHold, err := svc.Holds.Create(ctx, *hold)
	require.NoError(t, err)

	link, err := entity.NewPurchaseLink(
		uuid.NewString(), storedHold.HoldID, "press link", nil,
		entity.QuantityModeUnlimited, nil, nil, "", nil,
	)
	require.NoError(t, err)
	storedLink, err := svc.Links.Create(ctx, *link)
	require.NoError(t, err)

	result, err := svc.Purchases.Purchase(ctx, db.PurchaseRequest{
		Code:  storedLink.Code,
		Lines: []pricing.OrderLine{{TicketTypeID: ticketType.TicketTypeID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Transaction.TotalCents)

	// the events travel through the outbox and the forwarder before the
	// read model observes them
	assert.Eventually(
		t,
		func() bool {
			summary, err := svc.Summaries.SummaryByHoldID(ctx, storedHold.HoldID)
			if err != nil {
				return false
			}
			return summary.TotalPurchased == 2 && summary.ActiveLinks == 1
		},
		15*time.Second,
		100*time.Millisecond,
	)
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get("http://localhost" + httpAddress + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			if assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode) {
				return
			}
		},
		time.Second*10,
		time.Millisecond*50,
	)
}

func capacity(v int) *int { return &v }
