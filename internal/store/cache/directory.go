package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"viewings/backend/internal/domain"
	"viewings/backend/internal/store"
)

const (
	DefaultTTL = 5 * time.Minute

	listingKeyPrefix = "viewings:listing:"
	userKeyPrefix    = "viewings:user:"
)

// Directory is a read-through Redis cache in front of another store.Directory.
// Cache failures are logged and fall through to the backing directory; misses
// in the backing directory are not cached.
type Directory struct {
	next store.Directory
	rdb  redis.Cmdable
	ttl  time.Duration
	log  *slog.Logger
}

func NewDirectory(next store.Directory, rdb redis.Cmdable, ttl time.Duration, log *slog.Logger) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Directory{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With(slog.String("component", "cache.directory")),
	}
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (d *Directory) FindListing(ctx context.Context, id string) (domain.Listing, error) {
	var l domain.Listing
	if d.load(ctx, listingKeyPrefix+id, &l) {
		return l, nil
	}

	l, err := d.next.FindListing(ctx, id)
	if err != nil {
		return domain.Listing{}, err
	}
	d.store(ctx, listingKeyPrefix+id, l)
	return l, nil
}

func (d *Directory) FindUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	if d.load(ctx, userKeyPrefix+id, &u) {
		return u, nil
	}

	u, err := d.next.FindUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	d.store(ctx, userKeyPrefix+id, u)
	return u, nil
}

func (d *Directory) load(ctx context.Context, key string, out any) bool {
	b, err := d.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			d.log.Warn("cache read failed", slog.String("key", key), slog.Any("err", err))
		}
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		d.log.Warn("cache entry undecodable", slog.String("key", key), slog.Any("err", err))
		return false
	}
	return true
}

func (d *Directory) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		d.log.Warn("cache encode failed", slog.String("key", key), slog.Any("err", err))
		return
	}
	if err := d.rdb.Set(ctx, key, b, d.ttl).Err(); err != nil {
		d.log.Warn("cache write failed", slog.String("key", key), slog.Any("err", err))
	}
}
