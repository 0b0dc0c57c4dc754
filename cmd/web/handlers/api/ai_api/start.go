// Package ai_api provides bulk AI enrichment API handlers.
package ai_api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/enrich"
)

// HandleBulkStart kicks off a bulk enrichment job. The job detaches from this
// request; the response only carries its identifier for polling.
func HandleBulkStart(registry *enrich.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := registry.Start(c.Request().Context())
		if err != nil {
			if errors.Is(err, enrich.ErrAlreadyRunning) {
				return common.ErrConflict("an enrichment job is already running")
			}
			slog.Error("failed to start enrichment job", "error", err)
			return common.ErrInternal("failed to start enrichment job")
		}

		return c.JSON(http.StatusAccepted, map[string]any{
			"job_id": jobID.String(),
			"status": string(enrich.StatusRunning),
		})
	}
}
