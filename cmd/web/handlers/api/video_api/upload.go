// package video_api provides video-related API handlers.
package video_api

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mytube/cmd/web/handlers/common"
	"thirdcoast.systems/mytube/internal/db"
	"thirdcoast.systems/mytube/internal/enrich"
	"thirdcoast.systems/mytube/internal/store"
	"thirdcoast.systems/mytube/internal/stream"
	"thirdcoast.systems/mytube/pkg/ffmpeg"
)

// allowed upload extensions
var videoExtensions = map[string]struct{}{
	".mp4": {}, ".webm": {}, ".mkv": {}, ".avi": {}, ".mov": {},
}

// HandleUpload accepts a multipart video upload, stores the blob, probes its
// duration, and inserts the catalog row. The stored filename is derived from
// the new video ID, never from client input.
func HandleUpload(dbc *db.DatabaseConnection, st *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		fileHeader, err := c.FormFile("video")
		if err != nil {
			return common.ErrBadRequest("missing video file")
		}

		originalName := filepath.Base(fileHeader.Filename)
		ext := strings.ToLower(filepath.Ext(originalName))
		if _, ok := videoExtensions[ext]; !ok {
			return common.ErrBadRequest("unsupported video format " + ext)
		}

		src, err := fileHeader.Open()
		if err != nil {
			return common.ErrBadRequest("unreadable upload")
		}
		defer src.Close()

		videoID := uuid.New()
		storedName := videoID.String() + ext

		size, err := st.SaveBlob(storedName, src)
		if err != nil {
			slog.Error("failed to store upload", "filename", storedName, "error", err)
			return common.ErrInternal("failed to store video")
		}

		durationSecs := probeDuration(c.Request().Context(), st, storedName)

		video, err := dbc.Queries(c.Request().Context()).InsertVideo(c.Request().Context(), &db.InsertVideoParams{
			ID:              db.PgUUID(videoID),
			Filename:        storedName,
			Title:           enrich.TitleHint(originalName),
			ContentType:     stream.GuessMIMEType(storedName),
			SizeBytes:       size,
			DurationSeconds: durationSecs,
		})
		if err != nil {
			slog.Error("failed to insert video", "video_id", videoID, "error", err)
			// Do not leave an orphaned blob behind the failed row.
			if rmErr := st.Remove(storedName); rmErr != nil {
				slog.Error("failed to remove orphaned blob", "filename", storedName, "error", rmErr)
			}
			return common.ErrInternal("failed to register video")
		}

		return c.JSON(201, videoJSON(video))
	}
}

func probeDuration(ctx context.Context, st *store.Store, storedName string) float64 {
	path, err := st.BlobPath(storedName)
	if err != nil {
		return 0
	}
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	secs, err := ffmpeg.ProbeDuration(probeCtx, path)
	if err != nil {
		slog.Warn("duration probe failed", "filename", storedName, "error", err)
		return 0
	}
	return secs
}
