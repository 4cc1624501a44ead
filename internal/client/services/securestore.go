package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/udinflow/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/udinflow/internal/common"
	"github.com/dmitrijs2005/udinflow/internal/cryptox"
	"github.com/dmitrijs2005/udinflow/internal/logging"
)

const saltSize = 16

// SecureStore keeps JSON values sealed with AES-GCM in the metadata slot,
// under keys prefixed with metadata.SecurePrefix.
type SecureStore interface {
	Put(ctx context.Context, name string, v any) error
	// Get reports false when name is absent or its value cannot be opened.
	Get(ctx context.Context, name string, v any) (bool, error)
	Delete(ctx context.Context, names ...string) error
	Clear(ctx context.Context) error
}

type secureStore struct {
	meta metadata.Repository
	key  []byte
	log  logging.Logger
}

// NewSecureStore loads or creates the store key. With an empty passphrase the
// key is 32 random bytes kept beside the data; otherwise it is derived from
// the passphrase with argon2id and a stored salt.
func NewSecureStore(ctx context.Context, meta metadata.Repository, passphrase []byte, log logging.Logger) (SecureStore, error) {
	if log == nil {
		log = logging.Nop()
	}
	key, err := loadStoreKey(ctx, meta, passphrase)
	if err != nil {
		return nil, fmt.Errorf("secure store: %w", err)
	}
	return &secureStore{meta: meta, key: key, log: log}, nil
}

func loadStoreKey(ctx context.Context, meta metadata.Repository, passphrase []byte) ([]byte, error) {
	if len(passphrase) > 0 {
		salt, err := getOrCreate(ctx, meta, metadata.KeySecureSalt, saltSize)
		if err != nil {
			return nil, err
		}
		return cryptox.DeriveMasterKey(passphrase, salt), nil
	}
	return getOrCreate(ctx, meta, metadata.KeySecureMasterKey, cryptox.KeySize)
}

func getOrCreate(ctx context.Context, meta metadata.Repository, key string, size int) ([]byte, error) {
	v, err := meta.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(v) == size {
		return v, nil
	}
	v = common.GenerateRandByteArray(size)
	if err := meta.Set(ctx, key, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *secureStore) Put(ctx context.Context, name string, v any) error {
	sealed, err := cryptox.Seal(v, s.key)
	if err != nil {
		return fmt.Errorf("seal %s: %w", name, err)
	}
	return s.meta.Set(ctx, metadata.SecurePrefix+name, sealed)
}

// Get drops values that fail to open, e.g. after the passphrase changed.
func (s *secureStore) Get(ctx context.Context, name string, v any) (bool, error) {
	sealed, err := s.meta.Get(ctx, metadata.SecurePrefix+name)
	if err != nil {
		return false, err
	}
	if sealed == nil {
		return false, nil
	}
	if err := cryptox.Open(sealed, s.key, v); err != nil {
		s.log.Warn(ctx, "dropping unreadable secure value", "name", name, "error", err)
		if derr := s.meta.Delete(ctx, metadata.SecurePrefix+name); derr != nil {
			return false, derr
		}
		return false, nil
	}
	return true, nil
}

func (s *secureStore) Delete(ctx context.Context, names ...string) error {
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = metadata.SecurePrefix + n
	}
	return s.meta.Delete(ctx, keys...)
}

func (s *secureStore) Clear(ctx context.Context) error {
	all, err := s.meta.List(ctx, metadata.SecurePrefix)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	return s.meta.Delete(ctx, keys...)
}
