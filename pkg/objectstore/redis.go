package objectstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tagdb/tagdb/pkg/dberr"
)

// RedisBackend talks to an external append-log daemon over the Redis wire
// protocol (the reference daemon this is grounded on, zdb/0-db, natively
// speaks Redis SET/GET). Keys are assigned from a daemon-side counter so
// they're never recycled even across process restarts; timestamps and
// sizes are tracked in a companion hash so Keys/Rev can report them.
type RedisBackend struct {
	client    *redis.Client
	namespace string
}

// RedisConfig configures a connection to an append-log daemon.
type RedisConfig struct {
	Addr      string // host:port, default daemon port is 9900
	Namespace string // key prefix, isolates multiple logical stores on one daemon
}

// NewRedisBackend dials an append-log daemon.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:9900"
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "tagdb"
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	return &RedisBackend{client: client, namespace: cfg.Namespace}, nil
}

func (r *RedisBackend) blobKey(key uint32) string { return fmt.Sprintf("%s:obj:%d", r.namespace, key) }
func (r *RedisBackend) metaKey(key uint32) string { return fmt.Sprintf("%s:meta:%d", r.namespace, key) }
func (r *RedisBackend) counterKey() string        { return r.namespace + ":counter" }
func (r *RedisBackend) indexKey() string          { return r.namespace + ":index" }

func (r *RedisBackend) Set(ctx context.Context, existingKey *uint32, data []byte) (uint32, error) {
	var key uint32
	if existingKey != nil {
		key = *existingKey
	} else {
		next, err := r.client.Incr(ctx, r.counterKey()).Result()
		if err != nil {
			return 0, dberr.Wrap(dberr.Unknown, "allocate key", err)
		}
		key = uint32(next - 1)
	}

	now := time.Now().Unix()
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.blobKey(key), data, 0)
	pipe.HSet(ctx, r.metaKey(key), "ts", now, "size", len(data))
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(key), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, dberr.Wrap(dberr.Unknown, "write blob", err)
	}
	return key, nil
}

func (r *RedisBackend) Get(ctx context.Context, key uint32) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.blobKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, dberr.Wrap(dberr.Unknown, "read blob", err)
	}
	return data, true, nil
}

func (r *RedisBackend) Keys(ctx context.Context) (<-chan Record, error) {
	return r.scan(ctx, false)
}

func (r *RedisBackend) Rev(ctx context.Context) (<-chan Record, error) {
	return r.scan(ctx, true)
}

func (r *RedisBackend) scan(ctx context.Context, reverse bool) (<-chan Record, error) {
	var members []string
	var err error
	if reverse {
		members, err = r.client.ZRevRange(ctx, r.indexKey(), 0, -1).Result()
	} else {
		members, err = r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	}
	if err != nil {
		return nil, dberr.Wrap(dberr.Unknown, "scan index", err)
	}

	out := make(chan Record, len(members))
	go func() {
		defer close(out)
		for _, m := range members {
			key64, convErr := strconv.ParseUint(m, 10, 32)
			if convErr != nil {
				continue
			}
			key := uint32(key64)

			meta, metaErr := r.client.HGetAll(ctx, r.metaKey(key)).Result()
			rec := Record{Key: key}
			if metaErr == nil {
				if tsStr, ok := meta["ts"]; ok {
					if ts, parseErr := strconv.ParseInt(tsStr, 10, 64); parseErr == nil {
						rec.Timestamp = &ts
					}
				}
				if sizeStr, ok := meta["size"]; ok {
					if size, parseErr := strconv.ParseInt(sizeStr, 10, 64); parseErr == nil {
						rec.Size = &size
					}
				}
			}

			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Clone opens a fresh connection to the same daemon and namespace, so a
// caller doing blocking I/O never contends with its siblings on one socket.
func (r *RedisBackend) Clone() Store {
	return &RedisBackend{
		client:    redis.NewClient(r.client.Options()),
		namespace: r.namespace,
	}
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisBackend)(nil)
