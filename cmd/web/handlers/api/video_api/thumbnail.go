// package video_api provides video-related API handlers.
package video_api

import (
	"errors"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/db"
	"thirdcoast.systems/mytube/internal/store"
	"thirdcoast.systems/mytube/internal/thumbnail"
)

// HandleThumbnail serves the video thumbnail, falling back to a generated
// placeholder when no artifact exists yet.
func HandleThumbnail(dbc *db.DatabaseConnection, st *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		videoUUID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		if _, err := dbc.Queries(c.Request().Context()).GetVideoByID(c.Request().Context(), videoUUID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.ErrNotFound("video not found")
			}
			slog.Error("failed to fetch video", "video_id", videoUUID, "error", err)
			return common.ErrInternal("failed to fetch video")
		}

		videoID := videoUUID.String()
		path, err := st.ThumbnailPath(thumbnail.ArtifactName(videoID))
		if err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				c.Response().Header().Set("Cache-Control", "private, max-age=86400, stale-while-revalidate=3600")
				return c.File(path)
			}
		}

		placeholder, err := thumbnail.Placeholder(videoID)
		if err != nil {
			slog.Error("failed to render placeholder", "video_id", videoID, "error", err)
			return common.ErrInternal("thumbnail unavailable")
		}
		c.Response().Header().Set("Cache-Control", "private, no-cache")
		return c.Blob(200, "image/jpeg", placeholder)
	}
}
