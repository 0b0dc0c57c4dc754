// Package ai_api provides bulk AI enrichment API handlers.
package ai_api

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/enrich"
)

// HandleBulkStatus returns a consistent snapshot of the job for the polling
// progress overlay.
func HandleBulkStatus(registry *enrich.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := uuid.Parse(c.Param("jobId"))
		if err != nil {
			return common.ErrBadRequest("invalid jobId")
		}

		snap, err := registry.Status(jobID)
		if err != nil {
			if errors.Is(err, enrich.ErrUnknownJob) {
				return common.ErrNotFound("job not found")
			}
			return common.ErrInternal("failed to read job status")
		}
		return c.JSON(200, snap)
	}
}
