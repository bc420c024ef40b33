// Package cache keeps rendered pages and regenerates them in the
// background once they go stale.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ErrMiss is returned by a PageStore that has no entry for a key.
var ErrMiss = errors.New("cache: miss")

// Entry is one rendered page.
type Entry struct {
	Body        []byte    `json:"body"`
	ETag        string    `json:"etag"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// NewEntry stamps body with its ETag and generation time.
func NewEntry(body []byte, now time.Time) *Entry {
	return &Entry{Body: body, ETag: ETag(body), GeneratedAt: now}
}

// Age reports how long ago the entry was generated.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.GeneratedAt)
}

// PageStore persists entries by route path.
type PageStore interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// ETag returns a strong entity tag for body.
func ETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
