package admin

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/db"
)

// HandleMetadataUpdate writes an operator-supplied title and description for
// one video, bypassing AI enrichment entirely.
func HandleMetadataUpdate(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		videoUUID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			return common.ErrBadRequest("title must not be empty")
		}

		ctx := c.Request().Context()
		if _, err := dbc.Queries(ctx).GetVideoByID(ctx, videoUUID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.ErrNotFound("video not found")
			}
			slog.Error("failed to fetch video", "video_id", videoUUID, "error", err)
			return common.ErrInternal("failed to fetch video")
		}

		if err := dbc.Queries(ctx).UpdateVideoMetadata(ctx, videoUUID, title, strings.TrimSpace(req.Description)); err != nil {
			slog.Error("failed to update video metadata", "video_id", videoUUID, "error", err)
			return common.ErrInternal("failed to update metadata")
		}

		return c.JSON(200, map[string]any{
			"video_id":    videoUUID.String(),
			"title":       title,
			"description": strings.TrimSpace(req.Description),
		})
	}
}
