package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/tablehub/internal/domain"
	apperrors "github.com/pscheid92/tablehub/internal/platform/errors"
)

const snapshotTimeout = 2 * time.Second

// handleState returns every collection. Clients that missed the bootstrap or a
// broadcast use it to resynchronize.
func (s *Server) handleState(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), snapshotTimeout)
	defer cancel()

	snap, err := s.hub.Snapshot(ctx)
	if errors.Is(err, domain.ErrHubStopped) {
		return apperrors.UnavailableError("hub is shutting down", err)
	}
	if err != nil {
		return apperrors.UnavailableError("hub did not answer in time", err)
	}

	if err := c.JSON(http.StatusOK, snap); err != nil {
		return fmt.Errorf("failed to write state response: %w", err)
	}
	return nil
}
