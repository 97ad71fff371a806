// Package boltdb implements the local cache tier on a bbolt file. Values
// survive restarts of the process that owns the file.
package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/c2h5oh/datasize"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/bacalhau-project/tiercache/pkg/cache"
)

const (
	tierName        = "local"
	openLockTimeout = time.Second
)

// ErrValueTooLarge is returned by Set when a serialized record exceeds the
// configured maximum value size.
var ErrValueTooLarge = errors.New("value exceeds the local tier quota")

// OpenDB opens (creating if needed) the bolt file at path. Only one process
// can hold the file at a time, so opening gives up after a short lock wait.
func OpenDB(path string) (*bbolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openLockTimeout}) //nolint:gomnd
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database at %s: %w", path, err)
	}
	return db, nil
}

// Tier stores JSON envelopes under prefixed keys in a single bolt bucket.
type Tier[V any] struct {
	db           *bbolt.DB
	bucket       []byte
	prefix       string
	maxValueSize datasize.ByteSize
	clock        clock.Clock
}

func NewTier[V any](db *bbolt.DB, opts ...Option) (*Tier[V], error) {
	if db == nil {
		return nil, errors.New("boltDB instance cannot be nil")
	}

	options := defaultTierOptions()
	for _, opt := range opts {
		opt(options)
	}
	if len(options.bucket) == 0 {
		return nil, errors.New("bucket name cannot be empty")
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(options.bucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", options.bucket, err)
	}

	return &Tier[V]{
		db:           db,
		bucket:       options.bucket,
		prefix:       options.prefix,
		maxValueSize: options.maxValueSize,
		clock:        options.clock,
	}, nil
}

func (t *Tier[V]) Name() string {
	return tierName
}

func (t *Tier[V]) key(key string) []byte {
	return []byte(t.prefix + key)
}

// load decodes the record under key. Expired records are reported as absent
// and removed in a follow-up write transaction, which checks the expiry again
// so that a record written in between is kept.
func load[T any](ctx context.Context, db *bbolt.DB, bucket, key []byte, now time.Time) (cache.Envelope[T], bool, error) {
	var env cache.Envelope[T]
	var data []byte

	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}
		// bolt values are only valid for the life of the transaction
		data = bytes.Clone(b.Get(key))
		return nil
	})
	if err != nil || data == nil {
		return env, false, err
	}

	if err = json.Unmarshal(data, &env); err != nil {
		return env, false, fmt.Errorf("failed to decode record %s: %w", key, err)
	}

	if env.ExpiredAt(now) {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := deleteRecord(tx.Bucket(bucket), key, now, false)
			return err
		})
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Bytes("key", key).Msg("failed to remove expired record from local tier")
		}
		return env, false, nil
	}
	return env, true, nil
}

// deleteRecord removes the record under key when it has expired, or when
// live is set, whatever its expiry. It must run in a write transaction and
// reports whether a live record was removed.
func deleteRecord(b *bbolt.Bucket, key []byte, now time.Time, live bool) (bool, error) {
	data := b.Get(key)
	if data == nil {
		return false, nil
	}
	var env cache.Envelope[json.RawMessage]
	if err := json.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("failed to decode record %s: %w", key, err)
	}
	expired := env.ExpiredAt(now)
	if !expired && !live {
		return false, nil
	}
	return !expired, b.Delete(key)
}

func (t *Tier[V]) Get(ctx context.Context, key string) (V, bool, error) {
	env, ok, err := load[V](ctx, t.db, t.bucket, t.key(key), t.clock.Now())
	return env.Value, ok, err
}

func (t *Tier[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	data, err := json.Marshal(cache.NewEnvelope(value, t.clock.Now(), ttl))
	if err != nil {
		return fmt.Errorf("failed to encode value of key %s: %w", key, err)
	}
	if t.maxValueSize > 0 && datasize.ByteSize(len(data)) > t.maxValueSize {
		return fmt.Errorf("%w: key %s is %s, quota is %s",
			ErrValueTooLarge, key, datasize.ByteSize(len(data)).HR(), t.maxValueSize.HR())
	}

	return t.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(t.bucket).Put(t.key(key), data)
	})
}

// Delete removes key and reports whether a live value was stored under it.
// An expired record is removed as well but reported as absent.
func (t *Tier[V]) Delete(_ context.Context, key string) (bool, error) {
	now := t.clock.Now()
	var deleted bool
	err := t.db.Update(func(tx *bbolt.Tx) error {
		var err error
		deleted, err = deleteRecord(tx.Bucket(t.bucket), t.key(key), now, true)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return deleted, nil
}

func (t *Tier[V]) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := load[json.RawMessage](ctx, t.db, t.bucket, t.key(key), t.clock.Now())
	return ok, err
}

// Clear removes every record carrying the tier prefix and leaves other keys
// in the bucket alone.
func (t *Tier[V]) Clear(_ context.Context) error {
	prefix := []byte(t.prefix)
	return t.db.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket(t.bucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); {
			if err := c.Delete(); err != nil {
				return err
			}
			// Delete leaves the cursor on the following key in current bbolt
			// releases, so seek again instead of relying on Next.
			k, _ = c.Seek(prefix)
		}
		return nil
	})
}

// Keys returns the live keys of the tier, without the prefix.
func (t *Tier[V]) Keys(_ context.Context) ([]string, error) {
	prefix := []byte(t.prefix)
	now := t.clock.Now()

	var keys []string
	err := t.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(t.bucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var env cache.Envelope[json.RawMessage]
			if err := json.Unmarshal(v, &env); err != nil || env.ExpiredAt(now) {
				continue
			}
			keys = append(keys, string(k[len(prefix):]))
		}
		return nil
	})
	return keys, err
}

var _ cache.Tier[string] = (*Tier[string])(nil)
