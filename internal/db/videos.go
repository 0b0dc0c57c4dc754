package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx, and *DatabaseConnection.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Video is one row of the videos table.
type Video struct {
	ID                pgtype.UUID
	Filename          string
	Title             string
	Description       string
	ContentType       string
	SizeBytes         int64
	DurationSeconds   float64
	ViewCount         int64
	UploadedAt        pgtype.Timestamptz
	MetadataUpdatedAt pgtype.Timestamptz
	ThumbnailedAt     pgtype.Timestamptz
}

const videoColumns = `id, filename, title, description, content_type, size_bytes,
	duration_seconds, view_count, uploaded_at, metadata_updated_at, thumbnailed_at`

type InsertVideoParams struct {
	ID              pgtype.UUID
	Filename        string
	Title           string
	Description     string
	ContentType     string
	SizeBytes       int64
	DurationSeconds float64
}

func (q *Queries) InsertVideo(ctx context.Context, params *InsertVideoParams) (*Video, error) {
	rows, err := q.db.Query(ctx, `
		INSERT INTO videos (id, filename, title, description, content_type, size_bytes, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+videoColumns,
		params.ID, params.Filename, params.Title, params.Description,
		params.ContentType, params.SizeBytes, params.DurationSeconds)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[Video])
}

func (q *Queries) GetVideoByID(ctx context.Context, id pgtype.UUID) (*Video, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+videoColumns+`
		FROM videos
		WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[Video])
}

func (q *Queries) ListVideos(ctx context.Context) ([]*Video, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+videoColumns+`
		FROM videos
		ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[Video])
}

// ListVideosNeedingEnrichment returns videos whose metadata is empty or still
// a filename placeholder, oldest upload first so repeated runs converge.
func (q *Queries) ListVideosNeedingEnrichment(ctx context.Context) ([]*Video, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+videoColumns+`
		FROM videos
		WHERE title = ''
		   OR description = ''
		   OR lower(title) = lower(filename)
		   OR lower(title) = lower(regexp_replace(filename, '\.[^.]*$', ''))
		ORDER BY uploaded_at ASC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[Video])
}

func (q *Queries) UpdateVideoMetadata(ctx context.Context, id pgtype.UUID, title, description string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE videos
		SET title = $2, description = $3, metadata_updated_at = now()
		WHERE id = $1`, id, title, description)
	return err
}

func (q *Queries) MarkVideoThumbnailed(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE videos
		SET thumbnailed_at = now()
		WHERE id = $1`, id)
	return err
}

func (q *Queries) IncrementViewCount(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE videos
		SET view_count = view_count + 1
		WHERE id = $1`, id)
	return err
}

func (q *Queries) DeleteVideo(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	return err
}
