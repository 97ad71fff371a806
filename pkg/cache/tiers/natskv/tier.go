// Package natskv implements the remote cache tier on top of a NATS JetStream
// key-value bucket. The bucket is shared by every process connected to the
// same NATS cluster.
package natskv

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bacalhau-project/tiercache/pkg/cache"
)

const (
	// DefaultBucketName is used when Params.BucketName is empty.
	DefaultBucketName = "tiercache"
	tierName          = "remote"
)

var errEmptyKey = pkgerrors.New("cache key cannot be empty")

type Params struct {
	Client     *nats.Conn
	BucketName string
	// MaxAge bounds how long the server keeps any key, independent of the
	// ttl a value was written with. Zero keeps keys until purged.
	MaxAge time.Duration
	Clock  clock.Clock
}

// Tier stores JSON envelopes in a JetStream key-value bucket. Expiry is
// checked when a key is read.
type Tier[V any] struct {
	kv    jetstream.KeyValue
	clock clock.Clock
}

func NewTier[V any](ctx context.Context, params Params) (*Tier[V], error) {
	if params.Client == nil {
		return nil, pkgerrors.New("nats client is required")
	}

	js, err := jetstream.New(params.Client)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to jetstream")
	}

	bucketName := strings.ToLower(params.BucketName)
	if bucketName == "" {
		bucketName = DefaultBucketName
	}

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: "tiercache remote tier",
		TTL:         params.MaxAge,
	})
	// a bucket created with another MaxAge is bound as it is
	if pkgerrors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		log.Ctx(ctx).Debug().Str("bucket", bucketName).Msg("binding existing bucket with a different configuration")
		kv, err = js.KeyValue(ctx, bucketName)
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create key-value bucket %s", bucketName)
	}

	clk := params.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Tier[V]{
		kv:    kv,
		clock: clk,
	}, nil
}

func (t *Tier[V]) Name() string {
	return tierName
}

// encodeKey maps an arbitrary cache key onto the NATS key alphabet.
func encodeKey(key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}
	return base64.RawURLEncoding.EncodeToString([]byte(key)), nil
}

// record is an envelope read from the bucket with the revision it was read at.
type record[T any] struct {
	env      cache.Envelope[T]
	natsKey  string
	revision uint64
}

// load fetches and decodes the envelope for key. An expired envelope is
// purged and reported as absent.
func load[T any](ctx context.Context, kv jetstream.KeyValue, now time.Time, key string) (record[T], bool, error) {
	var rec record[T]

	natsKey, err := encodeKey(key)
	if err != nil {
		return rec, false, err
	}
	rec.natsKey = natsKey

	entry, err := kv.Get(ctx, natsKey)
	if err != nil {
		if pkgerrors.Is(err, jetstream.ErrKeyNotFound) {
			return rec, false, nil
		}
		return rec, false, pkgerrors.Wrapf(err, "failed to read key %s from remote tier", key)
	}
	rec.revision = entry.Revision()

	if err = json.Unmarshal(entry.Value(), &rec.env); err != nil {
		return rec, false, pkgerrors.Wrapf(err, "failed to decode value of key %s from remote tier", key)
	}

	if rec.env.ExpiredAt(now) {
		if err := purge(ctx, kv, rec); err != nil {
			log.Ctx(ctx).Debug().Err(err).Str("key", key).Msg("failed to purge expired key from remote tier")
		}
		return rec, false, nil
	}
	return rec, true, nil
}

// purge removes the key of rec unless it was written again after rec was
// read.
func purge[T any](ctx context.Context, kv jetstream.KeyValue, rec record[T]) error {
	err := kv.Purge(ctx, rec.natsKey, jetstream.LastRevision(rec.revision))
	if pkgerrors.Is(err, jetstream.ErrKeyExists) {
		return nil
	}
	return err
}

func (t *Tier[V]) Get(ctx context.Context, key string) (V, bool, error) {
	rec, ok, err := load[V](ctx, t.kv, t.clock.Now(), key)
	return rec.env.Value, ok, err
}

func (t *Tier[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	natsKey, err := encodeKey(key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(cache.NewEnvelope(value, t.clock.Now(), ttl))
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode value of key %s for remote tier", key)
	}

	if _, err = t.kv.Put(ctx, natsKey, data); err != nil {
		return pkgerrors.Wrapf(err, "failed to write key %s to remote tier", key)
	}
	return nil
}

// Delete purges key and reports whether a live value was stored under it. A
// value written after the live one was read is kept: that write is ordered
// after this delete.
func (t *Tier[V]) Delete(ctx context.Context, key string) (bool, error) {
	rec, ok, err := load[json.RawMessage](ctx, t.kv, t.clock.Now(), key)
	if err != nil || !ok {
		return false, err
	}

	if err := purge(ctx, t.kv, rec); err != nil {
		return false, pkgerrors.Wrapf(err, "failed to purge key %s from remote tier", key)
	}
	return true, nil
}

func (t *Tier[V]) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := load[json.RawMessage](ctx, t.kv, t.clock.Now(), key)
	return ok, err
}

// Clear purges every key in the bucket. The bucket belongs to the cache, so
// nothing else is stored there.
func (t *Tier[V]) Clear(ctx context.Context) error {
	keys, err := t.kv.Keys(ctx)
	if err != nil {
		if pkgerrors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}
		return pkgerrors.Wrap(err, "failed to list keys of remote tier")
	}

	for _, k := range keys {
		if err := t.kv.Purge(ctx, k); err != nil {
			return pkgerrors.Wrapf(err, "failed to purge key %s from remote tier", k)
		}
	}
	return nil
}

var _ cache.Tier[string] = (*Tier[string])(nil)
