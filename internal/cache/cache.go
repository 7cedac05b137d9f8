// Package cache defines the item cache contract shared by every backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DefaultTTL is how long a fetched batch stays fresh.
const DefaultTTL = 1800 * time.Second

// Entry is the persisted form of a cached payload.
type Entry struct {
	CreatedAt int64           `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

// Expired reports whether an entry created at createdAt (unix seconds) is
// older than ttl at now.
func Expired(createdAt int64, now time.Time, ttl time.Duration) bool {
	return now.Unix()-createdAt > int64(ttl/time.Second)
}

// Store is a TTL cache of opaque payloads. An expired entry reads as a miss
// and is removed by that read.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	// Sweep removes every expired entry and reports how many went.
	Sweep(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// KeyFor maps a namespace to a key safe for file names and redis keys.
func KeyFor(namespace string) string {
	var b strings.Builder
	for _, r := range namespace {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// HashKey builds a short stable digest of parts, used to tie a namespace to
// its inputs.
func HashKey(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// GetJSON decodes a cached payload into v. A payload that no longer decodes
// is treated as a miss.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache payload: %w", err)
	}
	return s.Set(ctx, key, data)
}
