// Package media manages user-uploaded files on local disk.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// AvatarStore persists display pictures.
type AvatarStore interface {
	Save(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error)
	// Remove deletes every stored picture for the user. Removing nothing is not an error.
	Remove(ctx context.Context, userID uuid.UUID) error
}

// DiskAvatarStore keeps one picture per user under root/<user id>/display_pic.png.
type DiskAvatarStore struct {
	root string
}

func NewDiskAvatarStore(root string) *DiskAvatarStore {
	return &DiskAvatarStore{root: root}
}

func (s *DiskAvatarStore) userDir(userID uuid.UUID) string {
	return filepath.Join(s.root, userID.String())
}

// Save writes r as the user's picture and returns its reference relative to root.
func (s *DiskAvatarStore) Save(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := s.userDir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create avatar dir: %w", err)
	}

	path := filepath.Join(dir, "display_pic.png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create avatar: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write avatar: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close avatar: %w", err)
	}
	return filepath.ToSlash(filepath.Join(userID.String(), "display_pic.png")), nil
}

func (s *DiskAvatarStore) Remove(ctx context.Context, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.RemoveAll(s.userDir(userID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove avatar: %w", err)
	}
	return nil
}
