package sqlite

import (
	"context"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

type filesRepo struct {
	db dbtx
}

const fileColumns = `id, owner_id, object_key, original_name, content_type, size, is_public, created_at`

func scanFile(s scanner) (*domain.File, error) {
	var (
		f        domain.File
		isPublic int
		created  int64
	)
	if err := s.Scan(&f.ID, &f.OwnerID, &f.ObjectKey, &f.OriginalName, &f.ContentType, &f.Size, &isPublic, &created); err != nil {
		return nil, err
	}
	f.IsPublic = isPublic == 1
	f.CreatedAt = fromNanos(created)
	return &f, nil
}

func (r *filesRepo) CreateFile(ctx context.Context, f *domain.File) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OwnerID, f.ObjectKey, f.OriginalName, f.ContentType, f.Size, boolToInt(f.IsPublic), toNanos(f.CreatedAt),
	)
	return mapWriteErr(err)
}

func (r *filesRepo) GetFileByID(ctx context.Context, id string) (*domain.File, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return f, nil
}

func (r *filesRepo) ListFilesByOwner(ctx context.Context, ownerID string) ([]*domain.File, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *filesRepo) DeleteFile(ctx context.Context, id string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id))
}
