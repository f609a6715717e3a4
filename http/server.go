package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tickethold/entity"
)

// HoldSummariesReadModel serves the operational dashboard endpoints.
type HoldSummariesReadModel interface {
	AllSummaries(ctx context.Context) ([]entity.HoldSummary, error)
	SummaryByHoldID(ctx context.Context, holdID string) (entity.HoldSummary, error)
}

// Server is the ops surface only. Hold, link and purchase operations have
// no route here; callers reach them through the repository APIs.
type Server struct {
	addr          string
	e             *echo.Echo
	holdSummaries HoldSummariesReadModel
}

func NewServer(
	addr string,
	holdSummaries HoldSummariesReadModel,
) *Server {
	e := echoHTTP.NewEcho()

	server := &Server{
		addr:          addr,
		e:             e,
		holdSummaries: holdSummaries,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/ops/holds", server.GetHoldSummaries)
	e.GET("/ops/holds/:hold_id", server.GetHoldSummary)

	return server
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(ctx)
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
