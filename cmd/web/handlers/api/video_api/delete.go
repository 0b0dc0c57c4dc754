// package video_api provides video-related API handlers.
package video_api

import (
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/db"
	"thirdcoast.systems/mytube/internal/store"
	"thirdcoast.systems/mytube/internal/thumbnail"
)

// HandleDelete removes a video: catalog row first, then the blob and its
// thumbnail together. Blob removal is idempotent, so a crash after the row
// delete can be cleaned up by re-issuing the request.
func HandleDelete(dbc *db.DatabaseConnection, st *store.Store) echo.HandlerFunc {
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
			return common.ErrInternal("failed to delete video")
		}

		if err := dbc.Queries(ctx).DeleteVideo(ctx, videoUUID); err != nil {
			slog.Error("failed to delete video row", "video_id", videoUUID, "error", err)
			return common.ErrInternal("failed to delete video")
		}

		// Blob and derived thumbnail go together; deleting one without the
		// other leaves the library inconsistent.
		if err := st.Remove(video.Filename); err != nil {
			slog.Error("failed to delete blob", "video_id", videoUUID, "filename", video.Filename, "error", err)
			return common.ErrInternal("video removed from catalog but blob deletion failed")
		}
		if err := st.RemoveThumbnail(thumbnail.ArtifactName(videoUUID.String())); err != nil {
			slog.Error("failed to delete thumbnail", "video_id", videoUUID, "error", err)
			return common.ErrInternal("video removed but thumbnail deletion failed")
		}

		slog.Info("video deleted", "video_id", videoUUID, "filename", video.Filename)
		return c.JSON(200, map[string]any{"status": "deleted", "video_id": videoUUID.String()})
	}
}
