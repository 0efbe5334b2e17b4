package storage_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dukerupert/resell/internal"
	"github.com/dukerupert/resell/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage_Providers(t *testing.T) {
	tests := []struct {
		name    string
		cfg     internal.StorageConfig
		wantErr bool
	}{
		{name: "empty provider defaults to memory", cfg: internal.StorageConfig{}},
		{name: "memory", cfg: internal.StorageConfig{Provider: "memory"}},
		{name: "local", cfg: internal.StorageConfig{Provider: "local", LocalPath: t.TempDir()}},
		{name: "postgres without pool", cfg: internal.StorageConfig{Provider: "postgres"}, wantErr: true},
		{name: "r2 without account", cfg: internal.StorageConfig{Provider: "r2"}, wantErr: true},
		{name: "unknown provider", cfg: internal.StorageConfig{Provider: "floppy"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := storage.NewStorage(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

// exerciseStorage runs the behaviour every backend must share.
func exerciseStorage(t *testing.T, s storage.Storage) {
	t.Helper()
	ctx := context.Background()
	key := "carts/3f2b8c1e-0000-4000-8000-000000000001.json"

	_, err := s.Get(ctx, key)
	assert.True(t, storage.IsNotFound(err), "missing key should be not found, got %v", err)

	require.NoError(t, s.Put(ctx, key, []byte(`[{"id":"p1"}]`)))
	data, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p1"}]`, string(data))

	require.NoError(t, s.Put(ctx, key, []byte(`[]`)))
	data, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data), "put should replace the whole value")

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.True(t, storage.IsNotFound(err))

	assert.NoError(t, s.Delete(ctx, key), "delete should be idempotent")
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, storage.NewMemoryStorage())
}

func TestMemoryStorage_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()

	data := []byte(`[1]`)
	require.NoError(t, s.Put(ctx, "k", data))
	data[1] = '2'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(got))
}

func TestLocalStorage(t *testing.T) {
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../outside.json", "carts/../../etc/passwd", "/etc/passwd"} {
		t.Run(fmt.Sprintf("key %q", key), func(t *testing.T) {
			err := s.Put(ctx, key, []byte(`[]`))
			assert.Error(t, err)

			var se *storage.StorageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "invalid", se.ErrorCode())
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, storage.IsNotFound(storage.ErrKeyNotFound("k")))
	assert.True(t, storage.IsNotFound(fmt.Errorf("wrapped: %w", storage.ErrKeyNotFound("k"))))
	assert.False(t, storage.IsNotFound(errors.New("k not found")))
	assert.False(t, storage.IsNotFound(nil))
}
