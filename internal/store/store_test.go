package store

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "media"), filepath.Join(t.TempDir(), "thumbs"))
	require.NoError(t, err)
	return s
}

func writeBlob(t *testing.T, s *Store, name string, data []byte) {
	t.Helper()
	path, err := s.mediaPath(name)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestOpenNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Open("missing.mp4")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpenRejectsPathEscape(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Open("../../../etc/passwd")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Open("")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWriteRangeTo(t *testing.T) {
	s := newTestStore(t)
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i % 251)
	}
	writeBlob(t, s, "a.mp4", data)

	blob, err := s.Open("a.mp4")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(1000), blob.Size)

	var buf bytes.Buffer
	n, err := blob.WriteRangeTo(&buf, 200, 299)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)
	assert.Equal(t, data[200:300], buf.Bytes())
}

func TestWriteRangeToWholeFile(t *testing.T) {
	s := newTestStore(t)
	data := []byte("hello video world")
	writeBlob(t, s, "b.mp4", data)

	blob, err := s.Open("b.mp4")
	require.NoError(t, err)
	defer blob.Close()

	var buf bytes.Buffer
	n, err := blob.WriteRangeTo(&buf, 0, blob.Size-1)
	require.NoError(t, err)
	assert.Equal(t, blob.Size, n)
	assert.Equal(t, data, buf.Bytes())
}

func TestWriteRangeToTruncatedBlob(t *testing.T) {
	s := newTestStore(t)
	writeBlob(t, s, "c.mp4", make([]byte, 500))

	blob, err := s.Open("c.mp4")
	require.NoError(t, err)
	defer blob.Close()

	// Truncate underneath the open handle, then ask for the original size.
	path, err := s.mediaPath("c.mp4")
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, 100))

	var buf bytes.Buffer
	_, err = blob.WriteRangeTo(&buf, 0, 499)
	require.ErrorIs(t, err, ErrIO)
}

func TestSaveBlob(t *testing.T) {
	s := newTestStore(t)
	data := []byte("uploaded video bytes")

	n, err := s.SaveBlob("e.mp4", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	blob, err := s.Open("e.mp4")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(len(data)), blob.Size)

	// No temp droppings left behind in the media dir.
	entries, err := os.ReadDir(filepath.Dir(mustMediaPath(t, s, "e.mp4")))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSaveBlobRejectsPathEscape(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveBlob("../escape.mp4", bytes.NewReader([]byte("x")))
	require.Error(t, err)
}

func mustMediaPath(t *testing.T, s *Store, name string) string {
	t.Helper()
	path, err := s.mediaPath(name)
	require.NoError(t, err)
	return path
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	writeBlob(t, s, "d.mp4", []byte("x"))

	require.NoError(t, s.Remove("d.mp4"))
	require.NoError(t, s.Remove("d.mp4"))
	require.NoError(t, s.RemoveThumbnail("d.jpg"))
}

func TestWriteThumbnailAtomic(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.WriteThumbnailAtomic("v.jpg", []byte("old")))
	require.NoError(t, s.WriteThumbnailAtomic("v.jpg", []byte("new artwork")))

	path, err := s.ThumbnailPath("v.jpg")
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("new artwork"), got)

	// No temp droppings left behind.
	entries, err := os.ReadDir(s.ThumbnailDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
