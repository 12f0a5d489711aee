package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imadegautama/simple-library/internal/storage"
)

func TestCoverStore(t *testing.T) {
	t.Parallel()
	store, err := storage.NewCoverStore(filepath.Join(t.TempDir(), "covers"))
	require.NoError(t, err)

	t.Run("save and remove", func(t *testing.T) {
		name, err := store.Save(".png", strings.NewReader("img-bytes"))
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(name, ".png"))

		b, err := os.ReadFile(filepath.Join(store.Dir(), name))
		require.NoError(t, err)
		require.Equal(t, "img-bytes", string(b))

		require.NoError(t, store.Remove(name))
		_, err = os.Stat(filepath.Join(store.Dir(), name))
		require.True(t, os.IsNotExist(err))
	})

	t.Run("remove tolerates missing files", func(t *testing.T) {
		require.NoError(t, store.Remove("never-saved.png"))
		require.NoError(t, store.Remove(""))
	})

	t.Run("remove strips path traversal", func(t *testing.T) {
		name, err := store.Save(".png", strings.NewReader("keep"))
		require.NoError(t, err)

		require.NoError(t, store.Remove("../covers/"+name))
		_, err = os.Stat(filepath.Join(store.Dir(), name))
		require.True(t, os.IsNotExist(err))
	})
}
