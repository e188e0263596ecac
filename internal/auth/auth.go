// Package auth implements the API-key authentication subsystem the core
// treats as an external collaborator: handlers call Checker.CheckAuth with
// a permission level, and this package owns generating, hashing, storing,
// and validating keys. The registry core never imports this package.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/maric-labs/registrytools/internal/registryerr"
)

// Permission is the access level a credential must present.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

// satisfies reports whether a key's granted permission covers the required
// one: write implies read.
func (p Permission) satisfies(required Permission) bool {
	if p == required {
		return true
	}
	return p == PermissionWrite && required == PermissionRead
}

var keysBucket = []byte("api_keys")

// Key is an API key record. The secret itself is never stored — only its
// SHA-256 hash — so a stolen database does not leak usable credentials.
type Key struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	SecretHash string     `json:"secret_hash"`
	Permission Permission `json:"permission"`
	Created    time.Time  `json:"created"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func (k Key) expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// MarshalBinary/UnmarshalBinary let bbolt store Key values directly,
// matching the teacher's own record-storage idiom (see
// rannow-mcpproxy-go/internal/storage/models.go).
func (k Key) MarshalBinary() ([]byte, error) { return json.Marshal(k) }

func (k *Key) UnmarshalBinary(data []byte) error { return json.Unmarshal(data, k) }

// Store is a bbolt-backed API key store.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) a bbolt database at path and ensures the
// key bucket exists.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("auth: open %s: %w", path, errors.Join(registryerr.ErrStorage, err))
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(keysBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("auth: init bucket: %w", errors.Join(registryerr.ErrStorage, err))
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Create generates a new key ID and secret, persists the hashed record,
// and returns the plaintext secret exactly once — it cannot be recovered
// later.
func (s *Store) Create(ctx context.Context, name string, perm Permission, ttl time.Duration) (id, secret string, err error) {
	id = uuid.NewString()
	secret = generateSecret()
	hash := hashSecret(secret)

	key := Key{
		ID:         id,
		Name:       name,
		SecretHash: hash,
		Permission: perm,
		Created:    time.Now(),
	}
	if ttl > 0 {
		exp := key.Created.Add(ttl)
		key.ExpiresAt = &exp
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		data, err := key.MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(keysBucket).Put([]byte(id), data)
	})
	if err != nil {
		return "", "", fmt.Errorf("auth: create key: %w", errors.Join(registryerr.ErrStorage, err))
	}
	return id, secret, nil
}

// List returns every stored key (without secrets).
func (s *Store) List(ctx context.Context) ([]Key, error) {
	var keys []Key
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(keysBucket).ForEach(func(_, v []byte) error {
			var k Key
			if err := k.UnmarshalBinary(v); err != nil {
				return err
			}
			keys = append(keys, k)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("auth: list keys: %w", errors.Join(registryerr.ErrStorage, err))
	}
	return keys, nil
}

// Delete removes a key by ID, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	existed := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(keysBucket)
		if b.Get([]byte(id)) != nil {
			existed = true
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		return false, fmt.Errorf("auth: delete key %s: %w", id, errors.Join(registryerr.ErrStorage, err))
	}
	return existed, nil
}

// Validate checks a presented "id:secret" credential against the store and
// returns the key's permission if valid.
func (s *Store) Validate(ctx context.Context, id, secret string) (Permission, error) {
	var key Key
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(keysBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return key.UnmarshalBinary(data)
	})
	if err != nil {
		return "", fmt.Errorf("auth: validate: %w", errors.Join(registryerr.ErrStorage, err))
	}
	if !found {
		return "", fmt.Errorf("auth: unknown key: %w", registryerr.ErrPermission)
	}
	if key.expired(time.Now()) {
		return "", fmt.Errorf("auth: key expired: %w", registryerr.ErrPermission)
	}
	if subtle.ConstantTimeCompare([]byte(hashSecret(secret)), []byte(key.SecretHash)) != 1 {
		return "", fmt.Errorf("auth: invalid credential: %w", registryerr.ErrPermission)
	}
	return key.Permission, nil
}

func generateSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("auth: read random secret: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
