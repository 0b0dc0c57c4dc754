// package video_api provides video-related API handlers.
package video_api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/db"
)

// HandleView bumps the view counter. The player calls it once per playback
// session rather than per range request.
func HandleView(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		videoUUID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		if err := dbc.Queries(c.Request().Context()).IncrementViewCount(c.Request().Context(), videoUUID); err != nil {
			slog.Error("failed to increment view count", "video_id", videoUUID, "error", err)
			return common.ErrInternal("failed to record view")
		}
		return c.JSON(200, map[string]any{"status": "ok"})
	}
}
