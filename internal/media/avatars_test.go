package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskAvatarStoreSaveAndRemove(t *testing.T) {
	root := t.TempDir()
	store := NewDiskAvatarStore(root)
	ctx := context.Background()
	id := uuid.New()

	ref, err := store.Save(ctx, id, strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, id.String()+"/display_pic.png", ref)

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(ref)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Remove(ctx, id))
	_, err = os.Stat(filepath.Join(root, id.String()))
	assert.True(t, os.IsNotExist(err))
}

func TestDiskAvatarStoreRemoveMissing(t *testing.T) {
	store := NewDiskAvatarStore(t.TempDir())
	assert.NoError(t, store.Remove(context.Background(), uuid.New()))
}
