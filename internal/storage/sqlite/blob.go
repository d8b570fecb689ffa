package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agalitsyn/artist-scheduler/internal/model"
)

type BlobStorage struct {
	db *sql.DB
}

func NewBlobStorage(db *sql.DB) *BlobStorage {
	return &BlobStorage{db: db}
}

func (s *BlobStorage) FetchBlob(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM blobs WHERE key = ?`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrBlobNotFound
		}
		return nil, fmt.Errorf("could not fetch blob: %w", err)
	}
	return data, nil
}

// SaveBlob replaces the value under key wholesale.
func (s *BlobStorage) SaveBlob(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO blobs (key, value, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("could not save blob: %w", err)
	}
	return nil
}

func (s *BlobStorage) RemoveBlob(ctx context.Context, key string) error {
	query := `DELETE FROM blobs WHERE key = ?`
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("could not remove blob: %w", err)
	}
	return nil
}
