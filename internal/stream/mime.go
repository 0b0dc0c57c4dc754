package stream

import (
	"path/filepath"
	"strings"
)

// GuessMIMEType maps a video filename to its content type. Unknown extensions
// fall back to application/octet-stream so the browser still offers playback
// or download instead of failing.
func GuessMIMEType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}
