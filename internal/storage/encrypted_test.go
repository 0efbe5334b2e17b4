package storage_test

import (
	"context"
	"testing"

	"github.com/dukerupert/resell/internal"
	"github.com/dukerupert/resell/internal/crypto"
	"github.com/dukerupert/resell/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEncrypted(t *testing.T) (*storage.EncryptedStorage, *storage.MemoryStorage) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	enc, err := crypto.NewAESEncryptor(key)
	require.NoError(t, err)

	backend := storage.NewMemoryStorage()
	return storage.NewEncryptedStorage(backend, enc), backend
}

func TestEncryptedStorage(t *testing.T) {
	s, _ := newEncrypted(t)
	exerciseStorage(t, s)
}

func TestEncryptedStorage_SealsAsJSONString(t *testing.T) {
	ctx := context.Background()
	s, backend := newEncrypted(t)
	key := "carts/a.json"

	require.NoError(t, s.Put(ctx, key, []byte(`[{"id":"mug"}]`)))

	raw, err := backend.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, byte('"'), raw[0], "sealed value should be a JSON string")
	assert.NotContains(t, string(raw), "mug")
}

func TestEncryptedStorage_PlaintextPassesThrough(t *testing.T) {
	ctx := context.Background()
	s, backend := newEncrypted(t)

	require.NoError(t, backend.Put(ctx, "carts/old.json", []byte(`[{"id":"p1"}]`)))

	data, err := s.Get(ctx, "carts/old.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p1"}]`, string(data))
}

func TestEncryptedStorage_RejectsMovedSnapshot(t *testing.T) {
	ctx := context.Background()
	s, backend := newEncrypted(t)

	require.NoError(t, s.Put(ctx, "carts/a.json", []byte(`[]`)))
	raw, err := backend.Get(ctx, "carts/a.json")
	require.NoError(t, err)
	require.NoError(t, backend.Put(ctx, "carts/b.json", raw))

	_, err = s.Get(ctx, "carts/b.json")
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
}

func TestNewStorage_EncryptionKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	s, err := storage.NewStorage(internal.StorageConfig{
		Provider:      "memory",
		EncryptionKey: crypto.EncodeKeyBase64(key),
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &storage.EncryptedStorage{}, s)

	_, err = storage.NewStorage(internal.StorageConfig{Provider: "memory", EncryptionKey: "c2hvcnQ="}, nil)
	assert.Error(t, err)
}
