package store

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/goliatone/go-lobby"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the ledger keys.
const DefaultRedisPrefix = "lobby:orphans"

// RedisOrphanLedger implements lobby.OrphanLedger on Redis so several
// lobby instances can share one cleanup queue. Entries live under
// {prefix}:{uid}; a sorted set {prefix}:pending orders them by mark time.
type RedisOrphanLedger struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

var _ lobby.OrphanLedger = (*RedisOrphanLedger)(nil)

// NewRedisOrphanLedger creates a ledger. Resolved entries expire after
// resolvedTTL, zero keeps them forever.
func NewRedisOrphanLedger(client redis.UniversalClient, prefix string, resolvedTTL time.Duration) *RedisOrphanLedger {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisOrphanLedger{
		client: client,
		prefix: prefix,
		ttl:    resolvedTTL,
		now:    time.Now,
	}
}

func (l *RedisOrphanLedger) entryKey(uid string) string {
	return l.prefix + ":" + uid
}

func (l *RedisOrphanLedger) pendingKey() string {
	return l.prefix + ":pending"
}

// Mark implements lobby.OrphanLedger.
func (l *RedisOrphanLedger) Mark(ctx context.Context, entry lobby.OrphanEntry) error {
	if entry.MarkedAt.IsZero() {
		entry.MarkedAt = l.now()
	}
	entry.ResolvedAt = nil

	payload, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, l.entryKey(entry.UID), payload, 0)
		pipe.ZAdd(ctx, l.pendingKey(), redis.Z{
			Score:  float64(entry.MarkedAt.UnixNano()),
			Member: entry.UID,
		})
		return nil
	})
	return err
}

// Pending implements lobby.OrphanLedger.
func (l *RedisOrphanLedger) Pending(ctx context.Context, limit int) ([]lobby.OrphanEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	uids, err := l.client.ZRange(ctx, l.pendingKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(uids))
	for i, uid := range uids {
		keys[i] = l.entryKey(uid)
	}

	values, err := l.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]lobby.OrphanEntry, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		entry, err := decodeEntry([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// Resolve implements lobby.OrphanLedger.
func (l *RedisOrphanLedger) Resolve(ctx context.Context, uid string) error {
	raw, err := l.client.Get(ctx, l.entryKey(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return l.client.ZRem(ctx, l.pendingKey(), uid).Err()
	}
	if err != nil {
		return err
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		return err
	}
	now := l.now().UTC()
	entry.ResolvedAt = &now

	payload, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, l.entryKey(uid), payload, l.ttl)
		pipe.ZRem(ctx, l.pendingKey(), uid)
		return nil
	})
	return err
}

func encodeEntry(entry lobby.OrphanEntry) ([]byte, error) {
	return json.Marshal(orphanFromEntry(entry))
}

func decodeEntry(raw []byte) (lobby.OrphanEntry, error) {
	var rec OrphanRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return lobby.OrphanEntry{}, err
	}
	return rec.Entry(), nil
}
