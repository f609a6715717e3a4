package outbox

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
)

// Topic is the Postgres staging topic. Events published inside a database
// transaction land here and the forwarder moves them to Redis after commit.
const Topic = "events_to_forward"

// NewPublisherForDb returns a publisher writing to the outbox table within
// the caller's transaction. Events become visible to the forwarder only
// when that transaction commits.
func NewPublisherForDb(ctx context.Context, tx *sqlx.Tx) (message.Publisher, error) {
	var publisher message.Publisher

	publisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		log.NewWatermill(log.FromContext(ctx)),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create outbox publisher: %w", err)
	}

	publisher = forwarder.NewPublisher(publisher, forwarder.PublisherConfig{
		ForwarderTopic: Topic,
	})

	return log.CorrelationPublisherDecorator{Publisher: publisher}, nil
}

// InitializeSchema creates the staging topic's tables. The forwarder's
// subscriber does this on Subscribe too; call it explicitly when events may
// be published before the forwarder starts.
func InitializeSchema(db *sqlx.DB, logger watermill.LoggerAdapter) error {
	subscriber, err := watermillSQL.NewSubscriber(
		db,
		watermillSQL.SubscriberConfig{
			SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("could not create outbox subscriber: %w", err)
	}
	return subscriber.SubscribeInitialize(Topic)
}

func NewPostgresSubscriber(db *sqlx.DB, logger watermill.LoggerAdapter) message.Subscriber {
	subscriber, err := watermillSQL.NewSubscriber(
		db,
		watermillSQL.SubscriberConfig{
			SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
		},
		logger,
	)
	if err != nil {
		panic(err)
	}
	return subscriber
}

// AddForwarderHandler attaches the outbox forwarder to the router. It
// consumes the staging topic from Postgres and republishes each message to
// its target topic on Redis.
func AddForwarderHandler(
	postgresSubscriber message.Subscriber,
	publisher message.Publisher,
	router *message.Router,
	logger watermill.LoggerAdapter,
) {
	_, err := forwarder.NewForwarder(postgresSubscriber, publisher, logger, forwarder.Config{
		ForwarderTopic: Topic,
		Router:         router,
	})
	if err != nil {
		panic(err)
	}
}
