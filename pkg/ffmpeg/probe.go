package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// ProbeResult contains media file metadata.
type ProbeResult struct {
	Width      int     // Video width in pixels
	Height     int     // Video height in pixels
	VideoCodec string  // Video codec name (h264, vp9, etc.)
	Duration   float64 // Duration in seconds
	Size       int64   // File size in bytes
	FormatName string  // Container format (mp4, webm, mkv, etc.)
}

// ffprobeOutput matches ffprobe JSON output structure.
type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe runs ffprobe on a file and returns metadata.
func Probe(ctx context.Context, path string) (*ProbeResult, error) {
	args := []string{
		"-hide_banner",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe: %w: %s", err, stderr.String())
	}

	var output ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return nil, fmt.Errorf("ffprobe: failed to parse output: %w", err)
	}

	result := &ProbeResult{FormatName: output.Format.FormatName}
	if output.Format.Duration != "" {
		result.Duration, _ = strconv.ParseFloat(output.Format.Duration, 64)
	}
	if output.Format.Size != "" {
		result.Size, _ = strconv.ParseInt(output.Format.Size, 10, 64)
	}

	for _, stream := range output.Streams {
		if stream.CodecType != "video" {
			continue
		}
		// Only take first video stream metadata
		if result.VideoCodec == "" {
			result.Width = stream.Width
			result.Height = stream.Height
			result.VideoCodec = stream.CodecName
		}
	}

	return result, nil
}

// ProbeDuration is a convenience function that returns just the duration.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	result, err := Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return result.Duration, nil
}
