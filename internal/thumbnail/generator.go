// Package thumbnail produces and caches still-frame artwork for videos by
// driving an external ffmpeg process.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"thirdcoast.systems/mytube/internal/store"
	"thirdcoast.systems/mytube/pkg/ffmpeg"
)

var (
	// ErrToolUnavailable means ffmpeg is not installed. Thumbnailing stays
	// disabled until the binary appears; callers should not retry per request.
	ErrToolUnavailable = errors.New("ffmpeg not available")

	// ErrExtractionFailed means ffmpeg exited non-zero or produced an empty
	// image. Callers fall back to a placeholder and may retry later.
	ErrExtractionFailed = errors.New("thumbnail extraction failed")

	// ErrTimeout means the subprocess exceeded its deadline and was killed.
	ErrTimeout = errors.New("thumbnail extraction timed out")

	// ErrConflict means a generation for the same video is already in flight.
	ErrConflict = errors.New("thumbnail generation already in progress")
)

// Options configures frame selection and subprocess limits.
type Options struct {
	OffsetPercent float64       // fraction of duration to seek to (default 0.10)
	OffsetFloor   time.Duration // never extract earlier than this (default 1s)
	OffsetCap     time.Duration // never extract later than this (default 30s)
	Timeout       time.Duration // subprocess deadline (default 30s)
	MaxWidth      int           // output width (default 1280)
	Quality       int           // JPEG q:v, lower is better (default 5)
}

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.OffsetPercent <= 0 {
		out.OffsetPercent = 0.10
	}
	if out.OffsetFloor <= 0 {
		out.OffsetFloor = time.Second
	}
	if out.OffsetCap <= 0 {
		out.OffsetCap = 30 * time.Second
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	if out.MaxWidth <= 0 {
		out.MaxWidth = 1280
	}
	if out.Quality <= 0 {
		out.Quality = 5
	}
	return out
}

// Generator extracts one frame per video and commits it atomically into the
// thumbnail store. Concurrent generation for different videos runs in
// parallel; a second request for the same video is rejected with ErrConflict
// so two writers never race on the same replace target.
type Generator struct {
	store   *store.Store
	opts    Options
	toolErr error

	mu       sync.Mutex
	inflight map[string]struct{}

	// Hooks for tests; default to the real ffmpeg invocations.
	extract func(ctx context.Context, input, output string, o *ffmpeg.ThumbnailOptions) ffmpeg.RunResult
	probe   func(ctx context.Context, path string) (float64, error)
}

// NewGenerator creates a Generator. The ffmpeg binary is looked up once here;
// if it is missing, every Generate call fails with ErrToolUnavailable.
func NewGenerator(st *store.Store, opts *Options) *Generator {
	g := &Generator{
		store:    st,
		opts:     opts.withDefaults(),
		inflight: make(map[string]struct{}),
		extract:  ffmpeg.ExtractThumbnailCapture,
		probe:    ffmpeg.ProbeDuration,
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		g.toolErr = fmt.Errorf("%w: %v", ErrToolUnavailable, err)
		slog.Error("ffmpeg not found, thumbnailing disabled", "error", err)
	}
	return g
}

// ArtifactName returns the thumbnail filename for a video identifier.
func ArtifactName(videoID string) string {
	return videoID + ".jpg"
}

// Generate extracts a frame from videoPath and commits it as the thumbnail
// for videoID. Regeneration is idempotent: the previous artifact is replaced
// by a rename, so a concurrent reader observes either the old or the new
// image, never a partial one.
func (g *Generator) Generate(ctx context.Context, videoID, videoPath string) error {
	if g.toolErr != nil {
		return g.toolErr
	}

	if !g.claim(videoID) {
		return fmt.Errorf("%w: video %s", ErrConflict, videoID)
	}
	defer g.release(videoID)

	offset := g.frameOffset(ctx, videoPath)

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	tmp, err := os.CreateTemp(g.store.ThumbnailDir(), videoID+".tmp-*.jpg")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrExtractionFailed, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	result := g.extract(ctx, videoPath, tmpPath, &ffmpeg.ThumbnailOptions{
		Offset:   offset,
		MaxWidth: g.opts.MaxWidth,
		Quality:  g.opts.Quality,
	})
	if result.Err != nil {
		_ = os.Remove(tmpPath)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Warn("thumbnail extraction killed on timeout", "video_id", videoID, "timeout", g.opts.Timeout)
			return fmt.Errorf("%w after %s", ErrTimeout, g.opts.Timeout)
		}
		return fmt.Errorf("%w: %v", ErrExtractionFailed, result.Err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: ffmpeg produced no output", ErrExtractionFailed)
	}

	if err := g.store.ReplaceThumbnail(tmpPath, ArtifactName(videoID)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	slog.Info("thumbnail generated", "video_id", videoID, "offset", offset, "bytes", info.Size())
	return nil
}

// frameOffset picks the seek position: a fixed fraction into the stream,
// floored to skip black leading frames and capped for very long videos.
// A probe failure falls back to the floor offset rather than failing the job.
func (g *Generator) frameOffset(ctx context.Context, videoPath string) time.Duration {
	duration, err := g.probe(ctx, videoPath)
	if err != nil || duration <= 0 {
		if err != nil {
			slog.Warn("ffprobe failed, using floor offset", "path", videoPath, "error", err)
		}
		return g.opts.OffsetFloor
	}

	offset := time.Duration(duration * g.opts.OffsetPercent * float64(time.Second))
	if offset < g.opts.OffsetFloor {
		offset = g.opts.OffsetFloor
	}
	if offset > g.opts.OffsetCap {
		offset = g.opts.OffsetCap
	}
	// Never seek past the end of a very short clip.
	if total := time.Duration(duration * float64(time.Second)); offset >= total {
		offset = 0
	}
	return offset
}

func (g *Generator) claim(videoID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[videoID]; busy {
		return false
	}
	g.inflight[videoID] = struct{}{}
	return true
}

func (g *Generator) release(videoID string) {
	g.mu.Lock()
	delete(g.inflight, videoID)
	g.mu.Unlock()
}
