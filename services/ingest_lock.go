package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrIngestInProgress = errors.New("document is already being ingested")

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IngestLock keeps two workers from ingesting the same document at once
type IngestLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIngestLock(rdb *redis.Client, ttl time.Duration) *IngestLock {
	return &IngestLock{rdb: rdb, ttl: ttl}
}

func ingestLockKey(documentID string) string {
	return "ingest:lock:" + documentID
}

// Acquire returns a release func, or ErrIngestInProgress when another run holds the lock
func (l *IngestLock) Acquire(ctx context.Context, documentID string) (func(), error) {
	key := ingestLockKey(documentID)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !ok {
		return nil, ErrIngestInProgress
	}
	return func() {
		// the caller's context may already be done
		releaseScript.Run(context.Background(), l.rdb, []string{key}, token)
	}, nil
}
