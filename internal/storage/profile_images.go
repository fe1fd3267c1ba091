package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ProfileImageArchive keeps the latest uploaded profile image of each user
// under <keyPrefix>/<userID>/.
type ProfileImageArchive struct {
	store     Service
	bucket    string
	keyPrefix string
}

func NewProfileImageArchive(store Service, bucket, keyPrefix string) *ProfileImageArchive {
	return &ProfileImageArchive{
		store:     store,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

func (a *ProfileImageArchive) ArchiveProfileImage(ctx context.Context, userID, contentType string, data []byte) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	userPrefix := a.userPrefix(userID)

	if err := a.store.DeletePrefix(ctx, a.bucket, userPrefix); err != nil {
		return "", fmt.Errorf("drop previous profile images: %w", err)
	}

	key := userPrefix + uuid.NewString() + extensionFor(contentType)
	location, err := a.store.PutObject(ctx, bytes.NewReader(data), PutOptions{
		Bucket:      a.bucket,
		Key:         key,
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store profile image: %w", err)
	}
	return location, nil
}

func (a *ProfileImageArchive) userPrefix(userID string) string {
	return path.Join(a.keyPrefix, userID) + "/"
}

func extensionFor(contentType string) string {
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
