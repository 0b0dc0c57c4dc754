// Package ffmpeg provides a composable API for building and executing ffmpeg
// commands, focused on single-frame extraction for thumbnailing.
package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Command represents an ffmpeg command being built.
type Command struct {
	input     string
	output    string
	preInput  []string // args before -i (like -ss for input seeking)
	postInput []string // args after -i
	filters   []string // collected -vf filters
}

// Option modifies a Command. Options are composable and order-independent
// (ffmpeg will receive args in correct order regardless of option order).
type Option interface {
	Apply(cmd *Command)
}

// OptionFunc is a function that implements Option.
type OptionFunc func(cmd *Command)

// Apply implements Option.
func (f OptionFunc) Apply(cmd *Command) { f(cmd) }

// NewCommand creates a command with input/output and applies options.
func NewCommand(input, output string, opts ...Option) *Command {
	cmd := &Command{
		input:  input,
		output: output,
	}
	for _, opt := range opts {
		opt.Apply(cmd)
	}
	return cmd
}

// Build returns the complete ffmpeg argument list.
func (c *Command) Build() []string {
	args := []string{"-hide_banner", "-y"}

	args = append(args, c.preInput...)
	args = append(args, "-i", c.input)
	args = append(args, c.postInput...)

	if len(c.filters) > 0 {
		args = append(args, "-vf", strings.Join(c.filters, ","))
	}

	args = append(args, c.output)
	return args
}

// Run executes the ffmpeg command.
func (c *Command) Run(ctx context.Context) error {
	return run(ctx, c.Build())
}

// RunCapture executes the ffmpeg command and returns both stderr logs and any error.
func (c *Command) RunCapture(ctx context.Context) RunResult {
	return runCapture(ctx, c.Build())
}

// Run executes an ffmpeg command with the given options.
func Run(ctx context.Context, input, output string, opts ...Option) error {
	return NewCommand(input, output, opts...).Run(ctx)
}

// RunCapture executes an ffmpeg command and returns the stderr logs and any error.
func RunCapture(ctx context.Context, input, output string, opts ...Option) RunResult {
	return NewCommand(input, output, opts...).RunCapture(ctx)
}

// --- Seeking Options ---

// Seek sets the start position (input seeking, before -i).
func Seek(start time.Duration) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.preInput = append(cmd.preInput, "-ss", formatDuration(start))
	})
}

// --- Filter Options ---

// Filter adds a video filter to the filter chain.
func Filter(f string) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.filters = append(cmd.filters, f)
	})
}

// Scale adds a scale filter. Use -2 for width or height to auto-calculate
// while maintaining aspect ratio and ensuring even dimensions.
func Scale(width, height int) Option {
	return Filter(fmt.Sprintf("scale=%d:%d", width, height))
}

// ScaleWidth scales to a specific width, auto-calculating height with even dimensions.
func ScaleWidth(width int) Option {
	return Scale(width, -2)
}

// --- Output Options ---

// Frames sets the number of frames to output (-frames:v).
func Frames(n int) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.postInput = append(cmd.postInput, "-frames:v", strconv.Itoa(n))
	})
}

// Quality sets the output quality for images (-q:v).
func Quality(q int) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.postInput = append(cmd.postInput, "-q:v", strconv.Itoa(q))
	})
}

// --- Misc ---

// LogLevel sets the logging level.
func LogLevel(level string) Option {
	return OptionFunc(func(cmd *Command) {
		// Insert at beginning of preInput so it's early in args
		cmd.preInput = append([]string{"-loglevel", level}, cmd.preInput...)
	})
}

// ExtraArgs adds raw arguments (escape hatch for unsupported options).
func ExtraArgs(args ...string) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.postInput = append(cmd.postInput, args...)
	})
}

// ThumbnailOptions configures thumbnail extraction.
type ThumbnailOptions struct {
	Offset   time.Duration // Where to extract from (default: 5s)
	MaxWidth int           // Maximum width (default: 640)
	Quality  int           // JPEG quality 1-31, lower is better (default: 4)
}

// ExtractThumbnail extracts a single frame as an image.
func ExtractThumbnail(ctx context.Context, input, output string, opts *ThumbnailOptions) error {
	return ExtractThumbnailCapture(ctx, input, output, opts).Err
}

// ExtractThumbnailCapture is like ExtractThumbnail but returns ffmpeg logs.
func ExtractThumbnailCapture(ctx context.Context, input, output string, opts *ThumbnailOptions) RunResult {
	if opts == nil {
		opts = &ThumbnailOptions{}
	}
	if opts.Offset == 0 {
		opts.Offset = 5 * time.Second
	}
	if opts.MaxWidth == 0 {
		opts.MaxWidth = 640
	}
	if opts.Quality == 0 {
		opts.Quality = 4
	}

	return RunCapture(ctx, input, output,
		Seek(opts.Offset),
		ScaleWidth(opts.MaxWidth),
		Frames(1),
		Quality(opts.Quality),
	)
}

func formatDuration(d time.Duration) string {
	// Format as seconds with millisecond precision for ffmpeg
	secs := d.Seconds()
	return strconv.FormatFloat(secs, 'f', 3, 64)
}
