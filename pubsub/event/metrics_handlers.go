package event

import (
	"context"

	"tickethold/entity"
	"tickethold/metrics"
)

// MetricsHandlers feeds the business counters from the event stream, so the
// write side never touches Prometheus directly.
type MetricsHandlers struct{}

func NewMetricsHandlers() MetricsHandlers {
	return MetricsHandlers{}
}

func (h MetricsHandlers) OnHoldCreated(ctx context.Context, event *entity.TicketHoldCreated) error {
	metrics.HoldsCreated.Inc()
	return nil
}

func (h MetricsHandlers) OnHoldReleased(ctx context.Context, event *entity.TicketHoldReleased) error {
	metrics.HoldsReleased.Inc()
	metrics.LinksRevoked.Add(float64(len(event.RevokedLinkIDs)))
	return nil
}

func (h MetricsHandlers) OnLinkCreated(ctx context.Context, event *entity.PurchaseLinkCreated) error {
	metrics.LinksCreated.Inc()
	return nil
}

func (h MetricsHandlers) OnLinkRevoked(ctx context.Context, event *entity.PurchaseLinkRevoked) error {
	metrics.LinksRevoked.Inc()
	return nil
}

func (h MetricsHandlers) OnPurchaseCompleted(ctx context.Context, event *entity.HoldPurchaseCompleted) error {
	metrics.PurchasesCompleted.Inc()
	metrics.PurchasedTickets.Add(float64(event.TotalQuantity))
	return nil
}
