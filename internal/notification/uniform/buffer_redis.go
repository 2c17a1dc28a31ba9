package uniform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	platformredis "idsync/internal/platform/redis"
	id "idsync/pkg/domain"
)

// bufferTTL bounds how long an abandoned run's passwords survive in Redis.
const bufferTTL = 24 * time.Hour

// RedisBuffer keeps deferred handouts in a Redis hash per transaction, so a
// restarted server can still flush a run that survived it.
type RedisBuffer struct {
	client *platformredis.Client
}

func NewRedisBuffer(client *platformredis.Client) *RedisBuffer {
	return &RedisBuffer{client: client}
}

func bufferKey(txID string) string {
	return "idsync:uniform:" + txID
}

func (b *RedisBuffer) Add(ctx context.Context, txID string, entityID id.EntityID, password, system string) error {
	key := bufferKey(txID)
	field := entityID.String()

	raw, err := b.client.HGet(ctx, key, field).Result()
	entry := Entry{EntityID: entityID, Password: password}
	if err == nil {
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return fmt.Errorf("decode uniform entry: %w", err)
		}
	} else if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read uniform entry: %w", err)
	}
	entry.Systems = append(entry.Systems, system)

	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode uniform entry: %w", err)
	}
	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, key, field, encoded)
	pipe.Expire(ctx, key, bufferTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store uniform entry: %w", err)
	}
	return nil
}

func (b *RedisBuffer) Flush(ctx context.Context, txID string, send func(Entry) error) error {
	key := bufferKey(txID)

	// Claim-then-send: GETDEL semantics for the whole hash. A second flush
	// sees an empty hash and sends nothing.
	fields, err := b.client.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("read uniform buffer: %w", err)
	}
	if len(fields) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("drain uniform buffer: %w", err)
	}

	entries := make([]Entry, 0, len(fields))
	for _, raw := range fields {
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return fmt.Errorf("decode uniform entry: %w", err)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].EntityID.String() < entries[j].EntityID.String()
	})

	for _, entry := range entries {
		if err := send(entry); err != nil {
			return err
		}
	}
	return nil
}
