package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"tickethold/entity"
)

func (s Server) GetHoldSummaries(c echo.Context) error {
	summaries, err := s.holdSummaries.AllSummaries(c.Request().Context())
	if err != nil {
		return fmt.Errorf("failed to get hold summaries: %w", err)
	}

	return c.JSON(http.StatusOK, summaries)
}

func (s Server) GetHoldSummary(c echo.Context) error {
	summary, err := s.holdSummaries.SummaryByHoldID(c.Request().Context(), c.Param("hold_id"))
	if errors.Is(err, entity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "hold summary not found")
	}
	if err != nil {
		return fmt.Errorf("failed to get hold summary: %w", err)
	}

	return c.JSON(http.StatusOK, summary)
}
