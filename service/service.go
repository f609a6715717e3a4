package service

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tickethold/db"
	"tickethold/http"
	"tickethold/pubsub"
	"tickethold/pubsub/event"
	"tickethold/pubsub/outbox"
)

func init() {
	log.Init(logrus.InfoLevel)
}

// Service owns the process-level wiring. The repositories are exported so
// embedding callers (and component tests) reach the domain operations
// directly; the background router and ops HTTP server run via Run.
type Service struct {
	Shows     *db.ShowsPostgresRepository
	Holds     *db.HoldsPostgresRepository
	Links     *db.LinksPostgresRepository
	Purchases *db.PurchasesPostgresRepository
	Summaries db.HoldSummariesReadModel

	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *http.Server
}

func New(
	addr string,
	dbConn *sqlx.DB,
	redisClient *redis.Client,
) Service {
	showsRepo := db.NewShowsPostgresRepository(dbConn)
	holdsRepo := db.NewHoldsPostgresRepository(dbConn)
	linksRepo := db.NewLinksPostgresRepository(dbConn)
	purchasesRepo := db.NewPurchasesPostgresRepository(dbConn)
	holdSummaries := db.NewHoldSummariesReadModel(dbConn)

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	redisPublisher := pubsub.NewRedisPublisher(redisClient, watermillLogger)

	postgresSubscriber := outbox.NewPostgresSubscriber(dbConn, watermillLogger)
	eventProcessorConfig := event.NewProcessorConfig(redisClient, watermillLogger)

	watermillRouter, err := pubsub.NewWatermillRouter(
		postgresSubscriber,
		redisPublisher,
		eventProcessorConfig,
		holdSummaries,
		event.NewMetricsHandlers(),
		watermillLogger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create watermill router: %w", err))
	}

	httpServer := http.NewServer(addr, holdSummaries)

	return Service{
		Shows:     showsRepo,
		Holds:     holdsRepo,
		Links:     linksRepo,
		Purchases: purchasesRepo,
		Summaries: holdSummaries,

		db:              dbConn,
		watermillRouter: watermillRouter,
		httpServer:      httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	watermillLogger := log.NewWatermill(log.FromContext(ctx))
	if err := outbox.InitializeSchema(s.db, watermillLogger); err != nil {
		return fmt.Errorf("failed to initialize outbox schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		// the HTTP server starts after the router so the health endpoint
		// only reports ready once messages are flowing
		<-s.watermillRouter.Running()

		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
