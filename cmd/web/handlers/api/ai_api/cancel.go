// Package ai_api provides bulk AI enrichment API handlers.
package ai_api

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/enrich"
)

// HandleBulkCancel requests cooperative cancellation. Cancelling an already
// finished job still returns 200; the caller learns the final state from the
// snapshot either way.
func HandleBulkCancel(registry *enrich.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := uuid.Parse(c.Param("jobId"))
		if err != nil {
			return common.ErrBadRequest("invalid jobId")
		}

		if err := registry.Cancel(jobID); err != nil {
			if errors.Is(err, enrich.ErrUnknownJob) {
				return common.ErrNotFound("job not found")
			}
			return common.ErrInternal("failed to cancel job")
		}

		snap, err := registry.Status(jobID)
		if err != nil {
			return common.ErrNotFound("job not found")
		}
		return c.JSON(200, snap)
	}
}
