package state

import (
	"fmt"
	"time"
)

const defaultCacheTTL = time.Hour

// KV is the SQLite-backed key-value cache. Entries expire lazily: reads
// past the expiry delete the row and report ErrNotFound.
type KV struct {
	db *DB
}

// NewKV wraps a DB for key-value operations.
func NewKV(db *DB) *KV {
	return &KV{db: db}
}

// Get returns the value for key, or ErrNotFound if absent or expired.
func (kv *KV) Get(key string) (string, error) {
	kv.db.mu.Lock()
	defer kv.db.mu.Unlock()

	var value string
	var expiresAt int64
	err := kv.db.conn.QueryRow(
		`SELECT value, expires_at FROM kv_cache WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if err != nil {
		return "", ErrNotFound
	}

	if expiresAt <= time.Now().UnixMilli() {
		kv.db.conn.Exec(`DELETE FROM kv_cache WHERE key = ?`, key)
		return "", ErrNotFound
	}

	return value, nil
}

// Set stores value under key with the given TTL. A non-positive TTL uses
// the default of one hour.
func (kv *KV) Set(key, value string, ttl time.Duration) error {
	kv.db.mu.Lock()
	defer kv.db.mu.Unlock()

	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	expiresAt := time.Now().Add(ttl).UnixMilli()

	_, err := kv.db.conn.Exec(
		`INSERT INTO kv_cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (kv *KV) Delete(key string) error {
	kv.db.mu.Lock()
	defer kv.db.mu.Unlock()

	if _, err := kv.db.conn.Exec(`DELETE FROM kv_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// List returns all unexpired keys with the given prefix, sorted.
func (kv *KV) List(prefix string) ([]string, error) {
	kv.db.mu.RLock()
	defer kv.db.mu.RUnlock()

	rows, err := kv.db.conn.Query(
		`SELECT key FROM kv_cache WHERE key LIKE ? || '%' AND expires_at > ? ORDER BY key`,
		prefix, time.Now().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
