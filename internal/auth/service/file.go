package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/blob"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// ErrStorageDisabled is returned when no blob storage is configured.
var ErrStorageDisabled = errors.New("file storage is not configured")

type FileService struct {
	Store        store.Store
	Blob         blob.Storage
	Authz        *AuthorizationService
	SignedURLTTL time.Duration
}

type UploadInput struct {
	Name        string
	ContentType string
	Size        int64
	Public      bool
}

func (s *FileService) ttl() time.Duration {
	if s.SignedURLTTL <= 0 {
		return 15 * time.Minute
	}
	return s.SignedURLTTL
}

func (s *FileService) user(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user", id)
	}
	return u, nil
}

// Upload stores r for ownerID, who needs storage:create.
func (s *FileService) Upload(ctx context.Context, ownerID string, in UploadInput, r io.Reader) (*domain.File, error) {
	if s.Blob == nil {
		return nil, ErrStorageDisabled
	}
	owner, err := s.user(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !s.Authz.CanAccessResource(owner, domain.ResourceStorage, domain.ActionCreate) {
		return nil, forbidden("missing storage:create")
	}

	f, err := domain.NewFile(ownerID, in.Name, in.ContentType, in.Size, in.Public)
	if err != nil {
		return nil, err
	}

	if _, err := s.Blob.Upload(ctx, blob.Object{Key: f.ObjectKey, ContentType: f.ContentType, Size: f.Size}, r); err != nil {
		return nil, err
	}
	if err := s.Store.Files().CreateFile(ctx, f); err != nil {
		// don't leave an orphaned object behind
		if derr := s.Blob.Delete(ctx, blob.Descriptor{Key: f.ObjectKey}); derr != nil {
			slogx.FromContext(ctx).Error("failed to remove orphaned object", slog.String("key", f.ObjectKey), slog.Any("error", derr))
		}
		return nil, err
	}

	slogx.FromContext(ctx).Info("file uploaded",
		slog.String("file_id", f.ID),
		slog.String("owner_id", ownerID),
		slog.Int64("size", f.Size),
		slog.Bool("public", f.IsPublic),
	)
	return f, nil
}

// canRead: public files are readable by any active user; private ones by the
// owner or an admin holding storage:read.
func (s *FileService) canRead(u *domain.User, f *domain.File) bool {
	if !u.IsActive() {
		return false
	}
	if f.IsPublic || f.IsOwnedBy(u.ID()) {
		return true
	}
	return s.Authz.CanAccessAdminFeatures(u) && s.Authz.CanAccessResource(u, domain.ResourceStorage, domain.ActionRead)
}

func (s *FileService) canDelete(u *domain.User, f *domain.File) bool {
	if !u.IsActive() {
		return false
	}
	if f.IsOwnedBy(u.ID()) {
		return true
	}
	return s.Authz.CanAccessAdminFeatures(u) && s.Authz.CanAccessResource(u, domain.ResourceStorage, domain.ActionDelete)
}

// Get returns the file and a time-limited download URL.
func (s *FileService) Get(ctx context.Context, userID, fileID string) (*domain.File, string, error) {
	if s.Blob == nil {
		return nil, "", ErrStorageDisabled
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	f, err := s.Store.Files().GetFileByID(ctx, fileID)
	if err != nil {
		return nil, "", storeErr(err, "file", fileID)
	}
	if !s.canRead(u, f) {
		// private files of others look the same as missing ones
		return nil, "", domain.NotFound("file", fileID)
	}

	link, err := s.Blob.SignedURL(ctx, blob.Descriptor{Key: f.ObjectKey, Size: f.Size}, s.ttl())
	if errors.Is(err, blob.ErrObjectNotFound) {
		return nil, "", domain.NotFound("file", fileID)
	}
	if err != nil {
		return nil, "", fmt.Errorf("sign url for %s: %w", fileID, err)
	}
	return f, link, nil
}

func (s *FileService) List(ctx context.Context, ownerID string) ([]*domain.File, error) {
	return s.Store.Files().ListFilesByOwner(ctx, ownerID)
}

func (s *FileService) Delete(ctx context.Context, userID, fileID string) error {
	if s.Blob == nil {
		return ErrStorageDisabled
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	f, err := s.Store.Files().GetFileByID(ctx, fileID)
	if err != nil {
		return storeErr(err, "file", fileID)
	}
	if !s.canDelete(u, f) {
		if s.canRead(u, f) {
			return forbidden("may not delete file " + fileID)
		}
		return domain.NotFound("file", fileID)
	}

	if err := s.Blob.Delete(ctx, blob.Descriptor{Key: f.ObjectKey}); err != nil {
		return err
	}
	if err := s.Store.Files().DeleteFile(ctx, fileID); err != nil {
		return storeErr(err, "file", fileID)
	}
	slogx.FromContext(ctx).Info("file deleted", slog.String("file_id", fileID), slog.String("by", userID))
	return nil
}

// PurgeOwner removes the stored objects of every file ownerID has. The rows
// themselves go when the user is deleted.
func (s *FileService) PurgeOwner(ctx context.Context, ownerID string) error {
	if s.Blob == nil {
		return nil
	}
	files, err := s.Store.Files().ListFilesByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.Blob.Delete(ctx, blob.Descriptor{Key: f.ObjectKey}); err != nil {
			return err
		}
	}
	return nil
}
