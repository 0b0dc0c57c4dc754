// Package stream implements HTTP range negotiation for video playback.
package stream

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrUnsatisfiable is returned when a Range header is malformed or cannot be
// served against the object length. Callers respond with 416 and must not
// fall back to partial content.
var ErrUnsatisfiable = errors.New("range not satisfiable")

// Plan describes how a single request will be answered: either the whole
// object with 200, or one validated byte interval with 206. Start and End are
// inclusive offsets.
type Plan struct {
	Status int
	Start  int64
	End    int64
	Length int64
}

// Size returns the number of bytes the plan covers.
func (p Plan) Size() int64 {
	return p.End - p.Start + 1
}

// ContentRange returns the Content-Range header value for a partial plan.
func (p Plan) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", p.Start, p.End, p.Length)
}

// UnsatisfiableContentRange is the Content-Range value sent with a 416
// response for an object of the given length.
func UnsatisfiableContentRange(length int64) string {
	return fmt.Sprintf("bytes */%d", length)
}

// Negotiate resolves a Range header against the object length.
//
// An absent header yields a full-content 200 plan. A single "bytes" range
// yields a 206 plan with the interval validated and clamped to the object.
// Everything else, including multi-range headers, fails with ErrUnsatisfiable:
// multipart/byteranges responses are deliberately not supported, a request for
// several intervals is rejected rather than silently truncated to one.
//
// Negotiate is a pure function over (header, length) so it can be tested
// without touching disk.
func Negotiate(header string, length int64) (Plan, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		if length == 0 {
			return Plan{Status: http.StatusOK, Start: 0, End: -1, Length: 0}, nil
		}
		return Plan{Status: http.StatusOK, Start: 0, End: length - 1, Length: length}, nil
	}

	unit, spec, found := strings.Cut(header, "=")
	if !found || strings.TrimSpace(unit) != "bytes" {
		return Plan{}, fmt.Errorf("%w: unsupported range unit in %q", ErrUnsatisfiable, header)
	}
	if strings.Contains(spec, ",") {
		return Plan{}, fmt.Errorf("%w: multi-range requests are not supported", ErrUnsatisfiable)
	}

	spec = strings.TrimSpace(spec)
	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return Plan{}, fmt.Errorf("%w: malformed range spec %q", ErrUnsatisfiable, spec)
	}

	if startStr == "" {
		// Suffix form "-N": the last N bytes.
		return negotiateSuffix(endStr, length)
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return Plan{}, fmt.Errorf("%w: invalid range start %q", ErrUnsatisfiable, startStr)
	}
	if start >= length {
		return Plan{}, fmt.Errorf("%w: start %d beyond object length %d", ErrUnsatisfiable, start, length)
	}

	end := length - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < 0 {
			return Plan{}, fmt.Errorf("%w: invalid range end %q", ErrUnsatisfiable, endStr)
		}
		if start > end {
			return Plan{}, fmt.Errorf("%w: start %d after end %d", ErrUnsatisfiable, start, end)
		}
		if end > length-1 {
			end = length - 1
		}
	}

	return Plan{Status: http.StatusPartialContent, Start: start, End: end, Length: length}, nil
}

func negotiateSuffix(nStr string, length int64) (Plan, error) {
	n, err := strconv.ParseInt(nStr, 10, 64)
	if err != nil || n <= 0 {
		return Plan{}, fmt.Errorf("%w: invalid suffix length %q", ErrUnsatisfiable, nStr)
	}
	if length == 0 {
		return Plan{}, fmt.Errorf("%w: empty object", ErrUnsatisfiable)
	}
	start := length - n
	if start < 0 {
		start = 0
	}
	return Plan{Status: http.StatusPartialContent, Start: start, End: length - 1, Length: length}, nil
}
