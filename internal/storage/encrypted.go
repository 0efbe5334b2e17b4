package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/resell/internal/crypto"
)

// EncryptedStorage seals values before handing them to the wrapped Storage.
//
// Sealed values are written as a JSON string so the postgres JSONB column
// still accepts them. The key is bound as authenticated data, so a snapshot
// copied under another cart's key fails to open. Values that are not a JSON
// string are returned as-is, which lets plaintext snapshots written before
// encryption was enabled keep loading until they are next saved.
type EncryptedStorage struct {
	next Storage
	enc  crypto.Encryptor
}

// NewEncryptedStorage wraps next with enc.
func NewEncryptedStorage(next Storage, enc crypto.Encryptor) *EncryptedStorage {
	return &EncryptedStorage{next: next, enc: enc}
}

func (s *EncryptedStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data[0] != '"' {
		return data, nil
	}

	var sealed string
	if err := json.Unmarshal(data, &sealed); err != nil {
		return nil, fmt.Errorf("failed to read sealed snapshot: %w", err)
	}
	plain, err := s.enc.Decrypt([]byte(sealed), []byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", key, err)
	}
	return plain, nil
}

func (s *EncryptedStorage) Put(ctx context.Context, key string, data []byte) error {
	sealed, err := s.enc.Encrypt(data, []byte(key))
	if err != nil {
		return fmt.Errorf("failed to seal snapshot: %w", err)
	}
	quoted, err := json.Marshal(string(sealed))
	if err != nil {
		return fmt.Errorf("failed to encode sealed snapshot: %w", err)
	}
	return s.next.Put(ctx, key, quoted)
}

func (s *EncryptedStorage) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}
