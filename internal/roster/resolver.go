package roster

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// HashCode derives the student key stored in place of the raw scanned
// code. Raw codes never hit the sessions table or the cache keys.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte("student_" + code))
	return hex.EncodeToString(sum[:])[:16]
}

func cacheKey(tenantID int64, studentKey string) string {
	return fmt.Sprintf("roster:t:%d:code:%s", tenantID, studentKey)
}

// Resolver looks up display names for scanned codes, per tenant. Names go
// through a redis cache with a caller-chosen TTL; the ban flag is never
// cached so admin unbans take effect on the next scan.
type Resolver struct {
	DB    *sql.DB
	Cache *redis.Client
	TTL   time.Duration
}

func NewResolver(db *sql.DB, cache *redis.Client, ttl time.Duration) *Resolver {
	return &Resolver{DB: db, Cache: cache, TTL: ttl}
}

// Resolve maps a scanned code to (studentKey, displayName). ok=false means
// the code is not on the tenant's roster.
func (r *Resolver) Resolve(ctx context.Context, tenantID int64, code string) (string, string, bool, error) {
	key := HashCode(code)

	if r.Cache != nil {
		name, err := r.Cache.Get(ctx, cacheKey(tenantID, key)).Result()
		if err == nil {
			return key, name, true, nil
		}
		if err != redis.Nil {
			log.Printf("[roster] cache read failed, falling back to db: %v", err)
		}
	}

	var name string
	err := r.DB.QueryRowContext(ctx,
		`SELECT display_name FROM students WHERE tenant_id = ? AND name_hash = ?`,
		tenantID, key,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return key, "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("roster lookup: %w", err)
	}

	if r.Cache != nil {
		if err := r.Cache.Set(ctx, cacheKey(tenantID, key), name, r.TTL).Err(); err != nil {
			log.Printf("[roster] cache write failed: %v", err)
		}
	}
	return key, name, true, nil
}

// Invalidate clears all cached names for a tenant. Called after roster
// imports and clears.
func (r *Resolver) Invalidate(ctx context.Context, tenantID int64) {
	if r.Cache == nil {
		return
	}
	pattern := fmt.Sprintf("roster:t:%d:code:*", tenantID)
	iter := r.Cache.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.Cache.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("[roster] cache invalidate failed for %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("[roster] cache scan failed: %v", err)
	}
}
