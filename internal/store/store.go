// Package store maps video identifiers to on-disk blobs and provides
// seekable, bounded-memory read access to them.
package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	// ErrNotFound means no blob exists for the requested filename.
	ErrNotFound = errors.New("blob not found")

	// ErrIO means the blob exists but could not be read completely. It is
	// surfaced as a server error, never masked as a 404: a catalog row whose
	// file is unreadable is a consistency violation worth noticing.
	ErrIO = errors.New("blob i/o error")
)

// copyChunkSize is the fixed transfer unit for streaming. Serving a
// multi-gigabyte file never buffers more than this per request.
const copyChunkSize = 64 * 1024

// Store serves video blobs and thumbnail artifacts from two directories.
type Store struct {
	mediaDir string
	thumbDir string
}

// New creates a Store rooted at the given media and thumbnail directories,
// creating them if needed.
func New(mediaDir, thumbDir string) (*Store, error) {
	for _, dir := range []string{mediaDir, thumbDir} {
		if strings.TrimSpace(dir) == "" {
			return nil, errors.New("store: directory must not be empty")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}
	return &Store{mediaDir: mediaDir, thumbDir: thumbDir}, nil
}

// Blob is an open, sized, seekable byte source for one video file.
type Blob struct {
	f    *os.File
	path string

	// Size is the authoritative byte length at open time.
	Size int64
}

// Path returns the absolute on-disk path of the blob.
func (b *Blob) Path() string {
	return b.path
}

// Close releases the underlying file handle.
func (b *Blob) Close() error {
	return b.f.Close()
}

// Open resolves a video filename to an open Blob. A missing file yields
// ErrNotFound; a file that exists but cannot be opened or stat'ed yields ErrIO.
func (s *Store) Open(filename string) (*Blob, error) {
	path, err := s.mediaPath(filename)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, filename, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, filename, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrIO, filename)
	}

	return &Blob{f: f, path: path, Size: info.Size()}, nil
}

// WriteRangeTo copies the inclusive interval [start, end] to w in fixed-size
// chunks. It returns ErrIO if the underlying file turns out shorter than the
// interval: callers must never receive a silently short body.
func (b *Blob) WriteRangeTo(w io.Writer, start, end int64) (int64, error) {
	if start > end {
		return 0, nil
	}
	if _, err := b.f.Seek(start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w: seek: %v", ErrIO, err)
	}

	remaining := end - start + 1
	buf := make([]byte, copyChunkSize)
	var written int64

	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, err := io.ReadFull(b.f, buf[:n])
		if read > 0 {
			wrote, werr := w.Write(buf[:read])
			written += int64(wrote)
			if werr != nil {
				// Client went away mid-stream; not a store fault.
				return written, werr
			}
			remaining -= int64(read)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return written, fmt.Errorf("%w: blob truncated, %s short of requested range",
					ErrIO, humanize.Bytes(uint64(remaining)))
			}
			return written, fmt.Errorf("%w: read: %v", ErrIO, err)
		}
	}
	return written, nil
}

// SaveBlob writes a new video blob from r via a temp-file rename and returns
// its byte size. An existing blob with the same name is replaced atomically.
func (s *Store) SaveBlob(filename string, r io.Reader) (int64, error) {
	path, err := s.mediaPath(filename)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.mediaDir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("%w: create temp: %v", ErrIO, err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("%w: write blob: %v", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("%w: close temp: %v", ErrIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("%w: rename into place: %v", ErrIO, err)
	}

	slog.Info("blob stored", "filename", filename, "size", humanize.Bytes(uint64(written)))
	return written, nil
}

// BlobPath resolves a video filename inside the media root without opening it.
func (s *Store) BlobPath(filename string) (string, error) {
	return s.mediaPath(filename)
}

// ThumbnailPath returns the on-disk path for a thumbnail artifact.
func (s *Store) ThumbnailPath(filename string) (string, error) {
	return securePath(s.thumbDir, filename)
}

// Remove deletes a video blob. A blob already gone is not an error; deletion
// must be idempotent so a crash between blob and row removal can be retried.
func (s *Store) Remove(filename string) error {
	path, err := s.mediaPath(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", ErrIO, filename, err)
	}
	return nil
}

// RemoveThumbnail deletes a thumbnail artifact, tolerating its absence.
func (s *Store) RemoveThumbnail(filename string) error {
	path, err := s.ThumbnailPath(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove thumbnail %s: %v", ErrIO, filename, err)
	}
	return nil
}

// WriteThumbnailAtomic commits data as the thumbnail for filename via a
// temp-file rename, so a concurrent reader observes either the old artifact
// or the new one, never a partial write.
func (s *Store) WriteThumbnailAtomic(filename string, data []byte) error {
	path, err := s.ThumbnailPath(filename)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// ReplaceThumbnail renames an already-written temp file into place.
func (s *Store) ReplaceThumbnail(tmpPath, filename string) error {
	path, err := s.ThumbnailPath(filename)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: replace thumbnail %s: %v", ErrIO, filename, err)
	}
	return nil
}

// ThumbnailDir returns the thumbnail directory root.
func (s *Store) ThumbnailDir() string {
	return s.thumbDir
}

func (s *Store) mediaPath(filename string) (string, error) {
	return securePath(s.mediaDir, filename)
}

// securePath joins root and filename, refusing anything that escapes root.
func securePath(root, filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", fmt.Errorf("%w: empty filename", ErrNotFound)
	}
	full := filepath.Clean(filepath.Join(root, filename))
	cleanRoot := filepath.Clean(root)
	if full != cleanRoot && !strings.HasPrefix(full, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes media root", ErrNotFound, filename)
	}
	return full, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrIO, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write temp: %v", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close temp: %v", ErrIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename into place: %v", ErrIO, err)
	}
	slog.Debug("thumbnail committed", "path", path, "size", humanize.Bytes(uint64(len(data))))
	return nil
}
