package domain

import (
	"path"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
)

const maxFileNameLength = 255

// File describes an uploaded blob owned by a user.
type File struct {
	ID           string
	OwnerID      string
	ObjectKey    string
	OriginalName string
	ContentType  string
	Size         int64
	IsPublic     bool
	CreatedAt    time.Time
}

func NewFile(ownerID, originalName, contentType string, size int64, public bool) (*File, error) {
	if ownerID == "" {
		return nil, invalid("ownerId", "must not be empty")
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(originalName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, invalid("name", "must not be empty")
	}
	if len(name) > maxFileNameLength {
		return nil, invalid("name", "must be at most 255 characters")
	}
	if size <= 0 {
		return nil, invalid("size", "must be positive")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := idx.NewString()
	return &File{
		ID:           id,
		OwnerID:      ownerID,
		ObjectKey:    ownerID + "/" + id + strings.ToLower(path.Ext(name)),
		OriginalName: name,
		ContentType:  contentType,
		Size:         size,
		IsPublic:     public,
		CreatedAt:    now(),
	}, nil
}

func (f *File) IsOwnedBy(userID string) bool { return f.OwnerID == userID }
