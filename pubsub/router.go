package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"tickethold/db"
	"tickethold/pubsub/event"
	"tickethold/pubsub/outbox"
)

func NewWatermillRouter(
	postgresSubscriber message.Subscriber,
	redisPublisher message.Publisher,
	eventProcessorConfig cqrs.EventProcessorConfig,
	holdSummaries db.HoldSummariesReadModel,
	metricsHandlers event.MetricsHandlers,
	watermillLogger watermill.LoggerAdapter,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("could not create router: %w", err)
	}

	useMiddlewares(router, watermillLogger)

	outbox.AddForwarderHandler(postgresSubscriber, redisPublisher, router, watermillLogger)

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, eventProcessorConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create event processor: %w", err)
	}

	err = eventProcessor.AddHandlers(
		cqrs.NewEventHandler(
			"hold_summaries.OnHoldCreated",
			holdSummaries.OnHoldCreated,
		),
		cqrs.NewEventHandler(
			"hold_summaries.OnHoldReleased",
			holdSummaries.OnHoldReleased,
		),
		cqrs.NewEventHandler(
			"hold_summaries.OnLinkCreated",
			holdSummaries.OnLinkCreated,
		),
		cqrs.NewEventHandler(
			"hold_summaries.OnLinkRevoked",
			holdSummaries.OnLinkRevoked,
		),
		cqrs.NewEventHandler(
			"hold_summaries.OnPurchaseCompleted",
			holdSummaries.OnPurchaseCompleted,
		),
		cqrs.NewEventHandler(
			"metrics.OnHoldCreated",
			metricsHandlers.OnHoldCreated,
		),
		cqrs.NewEventHandler(
			"metrics.OnHoldReleased",
			metricsHandlers.OnHoldReleased,
		),
		cqrs.NewEventHandler(
			"metrics.OnLinkCreated",
			metricsHandlers.OnLinkCreated,
		),
		cqrs.NewEventHandler(
			"metrics.OnLinkRevoked",
			metricsHandlers.OnLinkRevoked,
		),
		cqrs.NewEventHandler(
			"metrics.OnPurchaseCompleted",
			metricsHandlers.OnPurchaseCompleted,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("could not add handlers to event processor: %w", err)
	}

	return router, nil
}
