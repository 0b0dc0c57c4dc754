// package video_api provides video-related API handlers.
package video_api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/db"
	"thirdcoast.systems/mytube/internal/store"
	"thirdcoast.systems/mytube/internal/stream"
)

func HandleStream(dbc *db.DatabaseConnection, st *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		videoUUID, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		video, err := dbc.Queries(c.Request().Context()).GetVideoByID(c.Request().Context(), videoUUID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.ErrNotFound("video not found")
			}
			slog.Error("failed to fetch video", "video_id", videoUUID, "error", err)
			return common.ErrInternal("failed to fetch video")
		}

		blob, err := st.Open(video.Filename)
		if err != nil {
			// The catalog row exists, so a missing or unreadable blob is a
			// catalog/disk inconsistency, not a 404.
			slog.Error("video blob unavailable", "video_id", videoUUID, "filename", video.Filename, "error", err)
			return common.ErrInternal("video file unavailable")
		}
		defer blob.Close()

		if video.SizeBytes > 0 && video.SizeBytes != blob.Size {
			slog.Error("blob size does not match catalog",
				"video_id", videoUUID, "catalog_bytes", video.SizeBytes, "disk_bytes", blob.Size)
			return common.ErrInternal("video file inconsistent with catalog")
		}

		plan, err := stream.Negotiate(c.Request().Header.Get("Range"), blob.Size)
		if err != nil {
			if errors.Is(err, stream.ErrUnsatisfiable) {
				c.Response().Header().Set("Content-Range", stream.UnsatisfiableContentRange(blob.Size))
				return echo.NewHTTPError(http.StatusRequestedRangeNotSatisfiable, "range not satisfiable")
			}
			return common.ErrBadRequest("invalid range header")
		}

		contentType := video.ContentType
		if contentType == "" {
			contentType = stream.GuessMIMEType(video.Filename)
		}

		h := c.Response().Header()
		h.Set(echo.HeaderContentType, contentType)
		h.Set("Cache-Control", "private, no-cache")
		h.Set("Accept-Ranges", "bytes")
		h.Set(echo.HeaderContentLength, strconv.FormatInt(plan.Size(), 10))
		if plan.Status == http.StatusPartialContent {
			h.Set("Content-Range", plan.ContentRange())
		}

		if c.Request().Method == http.MethodHead {
			c.Response().WriteHeader(plan.Status)
			return nil
		}

		c.Response().WriteHeader(plan.Status)
		if _, err := blob.WriteRangeTo(c.Response(), plan.Start, plan.End); err != nil {
			// Headers are already on the wire; all we can do is log and drop
			// the connection short.
			if errors.Is(err, store.ErrIO) {
				slog.Error("stream aborted on blob error", "video_id", videoUUID, "error", err)
			} else {
				slog.Debug("client closed stream", "video_id", videoUUID, "error", err)
			}
			return nil
		}
		return nil
	}
}
