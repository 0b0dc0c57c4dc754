package thumbnail

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirdcoast.systems/mytube/internal/store"
	"thirdcoast.systems/mytube/pkg/ffmpeg"
)

func newTestGenerator(t *testing.T) (*Generator, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "media"), filepath.Join(t.TempDir(), "thumbs"))
	require.NoError(t, err)
	g := NewGenerator(st, nil)
	// Tests stub out the subprocess so they pass without ffmpeg installed.
	g.toolErr = nil
	g.probe = func(ctx context.Context, path string) (float64, error) {
		return 120, nil
	}
	return g, st
}

func TestGenerateCommitsAtomically(t *testing.T) {
	g, st := newTestGenerator(t)
	g.extract = func(ctx context.Context, input, output string, o *ffmpeg.ThumbnailOptions) ffmpeg.RunResult {
		require.NoError(t, os.WriteFile(output, []byte("jpeg-bytes"), 0o644))
		return ffmpeg.RunResult{}
	}

	require.NoError(t, g.Generate(context.Background(), "vid-1", "/tmp/vid-1.mp4"))

	path, err := st.ThumbnailPath(ArtifactName("vid-1"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	// Temp files never survive a successful run.
	entries, err := os.ReadDir(st.ThumbnailDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGenerateExtractionFailure(t *testing.T) {
	g, st := newTestGenerator(t)
	g.extract = func(ctx context.Context, input, output string, o *ffmpeg.ThumbnailOptions) ffmpeg.RunResult {
		return ffmpeg.RunResult{Err: &ffmpeg.Error{Stderr: "moov atom not found"}}
	}

	err := g.Generate(context.Background(), "vid-2", "/tmp/vid-2.mp4")
	require.ErrorIs(t, err, ErrExtractionFailed)

	entries, readErr := os.ReadDir(st.ThumbnailDir())
	require.NoError(t, readErr)
	assert.Empty(t, entries, "failed extraction must not leave temp files")
}

func TestGenerateEmptyOutputFails(t *testing.T) {
	g, _ := newTestGenerator(t)
	g.extract = func(ctx context.Context, input, output string, o *ffmpeg.ThumbnailOptions) ffmpeg.RunResult {
		// ffmpeg "succeeded" but wrote nothing.
		return ffmpeg.RunResult{}
	}

	err := g.Generate(context.Background(), "vid-3", "/tmp/vid-3.mp4")
	require.ErrorIs(t, err, ErrExtractionFailed)
}

func TestGenerateTimeout(t *testing.T) {
	g, _ := newTestGenerator(t)
	g.opts.Timeout = 10 * time.Millisecond
	g.extract = func(ctx context.Context, input, output string, o *ffmpeg.ThumbnailOptions) ffmpeg.RunResult {
		<-ctx.Done()
		return ffmpeg.RunResult{Err: ctx.Err()}
	}

	err := g.Generate(context.Background(), "vid-4", "/tmp/vid-4.mp4")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestGenerateToolUnavailable(t *testing.T) {
	g, _ := newTestGenerator(t)
	g.toolErr = ErrToolUnavailable

	err := g.Generate(context.Background(), "vid-5", "/tmp/vid-5.mp4")
	require.ErrorIs(t, err, ErrToolUnavailable)
}

func TestGenerateSameIDConflicts(t *testing.T) {
	g, _ := newTestGenerator(t)

	started := make(chan struct{})
	unblock := make(chan struct{})
	g.extract = func(ctx context.Context, input, output string, o *ffmpeg.ThumbnailOptions) ffmpeg.RunResult {
		close(started)
		<-unblock
		require.NoError(t, os.WriteFile(output, []byte("img"), 0o644))
		return ffmpeg.RunResult{}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = g.Generate(context.Background(), "same-id", "/tmp/same.mp4")
	}()

	<-started
	err := g.Generate(context.Background(), "same-id", "/tmp/same.mp4")
	require.ErrorIs(t, err, ErrConflict)

	close(unblock)
	wg.Wait()
	require.NoError(t, firstErr)

	// A different identifier is not serialized against it.
	g.extract = func(ctx context.Context, input, output string, o *ffmpeg.ThumbnailOptions) ffmpeg.RunResult {
		require.NoError(t, os.WriteFile(output, []byte("img"), 0o644))
		return ffmpeg.RunResult{}
	}
	require.NoError(t, g.Generate(context.Background(), "other-id", "/tmp/other.mp4"))
}

func TestFrameOffset(t *testing.T) {
	g, _ := newTestGenerator(t)

	tests := []struct {
		name     string
		duration float64
		probeErr error
		want     time.Duration
	}{
		{"ten percent of two minutes", 120, nil, 12 * time.Second},
		{"floor for short clips", 5, nil, time.Second},
		{"cap for long videos", 7200, nil, 30 * time.Second},
		{"probe failure falls back to floor", 0, assert.AnError, time.Second},
		{"zero duration falls back to floor", 0, nil, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.probe = func(ctx context.Context, path string) (float64, error) {
				return tt.duration, tt.probeErr
			}
			assert.Equal(t, tt.want, g.frameOffset(context.Background(), "x.mp4"))
		})
	}
}

func TestPlaceholderDeterministic(t *testing.T) {
	a, err := Placeholder("video-123")
	require.NoError(t, err)
	b, err := Placeholder("video-123")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Placeholder("video-456")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(a))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, placeholderWidth, cfg.Width)
	assert.Equal(t, placeholderHeight, cfg.Height)
}
