// Package enrich runs cancellable bulk metadata enrichment over the video
// catalog. At most one job runs per process; handlers start, cancel, and poll
// it through a Registry.
package enrich

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Target is one video a job may enrich, computed fresh from the live catalog
// when the job starts.
type Target struct {
	ID          uuid.UUID
	Filename    string
	Title       string
	Description string
}

// NeedsEnrichment reports whether the target's metadata is still missing or a
// filename-derived placeholder.
func (t Target) NeedsEnrichment() bool {
	title := strings.TrimSpace(t.Title)
	if title == "" || strings.TrimSpace(t.Description) == "" {
		return true
	}
	return strings.EqualFold(title, t.Filename) || strings.EqualFold(title, stem(t.Filename))
}

// TitleHint derives a human-readable title from a file name, for display
// while real metadata is pending and as context for the suggestion service.
// "beach_day-4k.mp4" becomes "Beach Day 4K".
func TitleHint(filename string) string {
	s := stem(filename)
	s = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return filename
	}
	return cases.Title(language.English, cases.NoLower).String(s)
}

func stem(filename string) string {
	base := path.Base(filename)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Suggestion is the metadata proposed by the AI collaborator for one target.
type Suggestion struct {
	Title       string
	Description string
}

// Catalog supplies the targets a job snapshots at start time.
type Catalog interface {
	ListVideosNeedingEnrichment(ctx context.Context) ([]Target, error)
}

// Persistence writes accepted suggestions back to the catalog. An error here
// is treated as an infrastructure fault and aborts the job.
type Persistence interface {
	UpdateMetadata(ctx context.Context, id uuid.UUID, title, description string) error
}

// AIService produces a suggestion for one target. Errors are recorded per
// item and do not abort the job.
type AIService interface {
	SuggestMetadata(ctx context.Context, target Target) (Suggestion, error)
}
