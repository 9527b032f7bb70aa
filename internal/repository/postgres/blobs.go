package postgres

import (
	"context"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
)

// CreateBlob records a committed object.
func (r *Repository) CreateBlob(ctx context.Context, blob *domain.Blob) error {
	const query = `INSERT INTO blobs (id, filename, object_key, size, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, blob.ID, blob.Filename, blob.ObjectKey, blob.Size, blob.ContentType, blob.CreatedAt)
	return mapError(err)
}

// GetBlobByID returns the indexed blob.
func (r *Repository) GetBlobByID(ctx context.Context, id string) (*domain.Blob, error) {
	const query = `SELECT id, filename, object_key, size, content_type, created_at FROM blobs WHERE id = $1`
	var b domain.Blob
	if err := r.pool.QueryRow(ctx, query, id).Scan(&b.ID, &b.Filename, &b.ObjectKey, &b.Size, &b.ContentType, &b.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

// GetBlobByFilename returns the newest blob stored under filename.
func (r *Repository) GetBlobByFilename(ctx context.Context, filename string) (*domain.Blob, error) {
	const query = `SELECT id, filename, object_key, size, content_type, created_at FROM blobs
		WHERE filename = $1 ORDER BY created_at DESC LIMIT 1`
	var b domain.Blob
	if err := r.pool.QueryRow(ctx, query, filename).Scan(&b.ID, &b.Filename, &b.ObjectKey, &b.Size, &b.ContentType, &b.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

// DeleteBlob removes an index row.
func (r *Repository) DeleteBlob(ctx context.Context, id string) error {
	const query = `DELETE FROM blobs WHERE id = $1`
	cmdTag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
