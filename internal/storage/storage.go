package storage

import (
	"context"
	"errors"

	"github.com/dukerupert/resell/internal"
	"github.com/dukerupert/resell/internal/crypto"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage is a durable key-value store for cart snapshots.
// Writes replace the whole value; there is no partial update.
type Storage interface {
	// Get returns the value stored at key.
	// Returns an error with code not_found if nothing is stored there.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored at key.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes the value stored at key.
	// Returns nil if the key doesn't exist (idempotent).
	Delete(ctx context.Context, key string) error
}

// NewStorage creates a Storage implementation based on configuration.
// pool is only used by the "postgres" provider and may be nil otherwise.
// A configured EncryptionKey wraps the backend in EncryptedStorage.
func NewStorage(cfg internal.StorageConfig, pool *pgxpool.Pool) (Storage, error) {
	s, err := newBackend(cfg, pool)
	if err != nil {
		return nil, err
	}
	if cfg.EncryptionKey == "" {
		return s, nil
	}

	key, err := crypto.DecodeKeyBase64(cfg.EncryptionKey)
	if err != nil {
		return nil, newStorageError(codeInvalid, "CART_ENCRYPTION_KEY: "+err.Error())
	}
	enc, err := crypto.NewAESEncryptor(key)
	if err != nil {
		return nil, err
	}
	return NewEncryptedStorage(s, enc), nil
}

func newBackend(cfg internal.StorageConfig, pool *pgxpool.Pool) (Storage, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryStorage(), nil
	case "local":
		return NewLocalStorage(cfg.LocalPath)
	case "postgres":
		if pool == nil {
			return nil, ErrPoolRequired
		}
		return NewPostgresStorage(pool), nil
	case "r2":
		return NewR2Storage(R2Config{
			AccountID:   cfg.R2AccountID,
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretKey,
			BucketName:  cfg.R2BucketName,
			Prefix:      cfg.R2Prefix,
		})
	default:
		return nil, ErrUnknownProvider(cfg.Provider)
	}
}

// IsNotFound reports whether err means the key holds no value.
func IsNotFound(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Code == codeNotFound
}
