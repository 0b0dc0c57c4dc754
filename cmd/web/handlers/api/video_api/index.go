// package video_api provides video-related API handlers.
package video_api

import (
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/db"
)

func HandleIndex(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		videos, err := dbc.Queries(c.Request().Context()).ListVideos(c.Request().Context())
		if err != nil {
			slog.Error("failed to list videos", "error", err)
			return common.ErrInternal("failed to list videos")
		}

		items := make([]map[string]any, 0, len(videos))
		for _, v := range videos {
			items = append(items, videoJSON(v))
		}
		return c.JSON(200, map[string]any{"videos": items, "count": len(items)})
	}
}

func videoJSON(v *db.Video) map[string]any {
	item := map[string]any{
		"id":           v.ID.String(),
		"filename":     v.Filename,
		"title":        v.Title,
		"description":  v.Description,
		"content_type": v.ContentType,
		"size_bytes":   v.SizeBytes,
		"size":         humanize.Bytes(uint64(v.SizeBytes)),
		"duration":     v.DurationSeconds,
		"view_count":   v.ViewCount,
		"uploaded_at":  v.UploadedAt.Time,
	}
	if t := db.NilTimePtr(v.MetadataUpdatedAt); t != nil {
		item["metadata_updated_at"] = t
	}
	if t := db.NilTimePtr(v.ThumbnailedAt); t != nil {
		item["thumbnailed_at"] = t
	}
	return item
}
