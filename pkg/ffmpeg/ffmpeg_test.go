package ffmpeg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBuild(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		output   string
		opts     []Option
		wantArgs []string
	}{
		{
			name:   "bare command",
			input:  "input.mp4",
			output: "output.jpg",
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"output.jpg",
			},
		},
		{
			name:   "seek before input",
			input:  "input.mkv",
			output: "frame.jpg",
			opts: []Option{
				Seek(12500 * time.Millisecond),
				Frames(1),
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-ss", "12.500",
				"-i", "input.mkv",
				"-frames:v", "1",
				"frame.jpg",
			},
		},
		{
			name:   "thumbnail extraction",
			input:  "input.webm",
			output: "thumb.jpg",
			opts: []Option{
				Seek(5 * time.Second),
				ScaleWidth(640),
				Frames(1),
				Quality(4),
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-ss", "5.000",
				"-i", "input.webm",
				"-frames:v", "1",
				"-q:v", "4",
				"-vf", "scale=640:-2",
				"thumb.jpg",
			},
		},
		{
			name:   "filters are combined",
			input:  "input.mp4",
			output: "out.jpg",
			opts: []Option{
				Scale(320, -2),
				Filter("hue=s=0"),
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-vf", "scale=320:-2,hue=s=0",
				"out.jpg",
			},
		},
		{
			name:   "loglevel goes first",
			input:  "input.mp4",
			output: "out.jpg",
			opts: []Option{
				Seek(time.Second),
				LogLevel("error"),
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-loglevel", "error",
				"-ss", "1.000",
				"-i", "input.mp4",
				"out.jpg",
			},
		},
		{
			name:   "extra args escape hatch",
			input:  "input.mp4",
			output: "out.jpg",
			opts: []Option{
				ExtraArgs("-update", "1"),
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-update", "1",
				"out.jpg",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand(tt.input, tt.output, tt.opts...)
			assert.Equal(t, tt.wantArgs, cmd.Build())
		})
	}
}

func TestThumbnailDefaults(t *testing.T) {
	// Defaults are applied when options are zero.
	cmd := NewCommand("in.mp4", "out.jpg",
		Seek(5*time.Second),
		ScaleWidth(640),
		Frames(1),
		Quality(4),
	)
	args := cmd.Build()
	require.Contains(t, args, "-ss")
	require.Contains(t, args, "5.000")
	require.Contains(t, args, "scale=640:-2")
}

func TestErrorMessageTruncatesStderr(t *testing.T) {
	err := &Error{
		Args:   []string{"-i", "in.mp4", "out.jpg"},
		Stderr: "line1\nline2\nline3\nline4\nline5",
		Err:    assert.AnError,
	}
	msg := err.Error()
	assert.Contains(t, msg, "line5")
	assert.NotContains(t, msg, "line1")
	assert.Equal(t, "ffmpeg -i in.mp4 out.jpg", err.Command())
	assert.ErrorIs(t, err, assert.AnError)
}
