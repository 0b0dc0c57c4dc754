// Package admin provides administrative API handlers.
package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/db"
	"thirdcoast.systems/mytube/internal/store"
	"thirdcoast.systems/mytube/internal/thumbnail"
)

// HandleThumbnailRegenerate extracts a fresh thumbnail for one video. A
// concurrent regeneration for the same video is rejected with 409 rather than
// queued behind the in-flight one.
func HandleThumbnailRegenerate(dbc *db.DatabaseConnection, st *store.Store, gen *thumbnail.Generator) echo.HandlerFunc {
	return func(c echo.Context) error {
		videoUUID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		video, err := dbc.Queries(ctx).GetVideoByID(ctx, videoUUID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.ErrNotFound("video not found")
			}
			slog.Error("failed to fetch video", "video_id", videoUUID, "error", err)
			return common.ErrInternal("failed to fetch video")
		}

		blobPath, err := st.BlobPath(video.Filename)
		if err != nil {
			return common.ErrInternal("video file unavailable")
		}

		if err := gen.Generate(ctx, videoUUID.String(), blobPath); err != nil {
			switch {
			case errors.Is(err, thumbnail.ErrConflict):
				return common.ErrConflict("thumbnail generation already in progress for this video")
			case errors.Is(err, thumbnail.ErrToolUnavailable):
				return echo.NewHTTPError(http.StatusServiceUnavailable, "thumbnail tool unavailable")
			case errors.Is(err, thumbnail.ErrTimeout):
				return echo.NewHTTPError(http.StatusGatewayTimeout, "thumbnail extraction timed out")
			default:
				slog.Error("thumbnail extraction failed", "video_id", videoUUID, "error", err)
				return common.ErrInternal("thumbnail extraction failed")
			}
		}

		if err := dbc.Queries(ctx).MarkVideoThumbnailed(ctx, videoUUID); err != nil {
			// The artifact is committed; only the bookkeeping write failed.
			slog.Warn("failed to record thumbnail timestamp", "video_id", videoUUID, "error", err)
		}

		return c.JSON(200, map[string]any{"status": "regenerated", "video_id": videoUUID.String()})
	}
}
