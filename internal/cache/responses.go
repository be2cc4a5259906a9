// Package cache keeps recently produced API responses for idempotent replay.
package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Response is a recorded API reply.
type Response struct {
	Status int
	Body   []byte
}

// ResponseCache stores responses keyed by request identity. Claim reserves a key
// for the one request allowed to execute; Put replaces the claim with the
// response and Release drops a claim whose request produced nothing to replay.
type ResponseCache interface {
	Get(key string) (Response, bool)
	Claim(key string) bool
	Put(key string, resp Response)
	Release(key string)
}

// NoopCache never stores anything.
type NoopCache struct{}

// Get always misses.
func (NoopCache) Get(string) (Response, bool) { return Response{}, false }

// Claim always succeeds.
func (NoopCache) Claim(string) bool { return true }

// Put discards the response.
func (NoopCache) Put(string, Response) {}

// Release does nothing.
func (NoopCache) Release(string) {}

// Memory is an in-process ResponseCache with per-entry expiry.
type Memory struct {
	c *gocache.Cache
}

// NewMemory builds a Memory cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Memory{c: gocache.New(ttl, time.Minute)}
}

// Get returns a stored response.
func (m *Memory) Get(key string) (Response, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return Response{}, false
	}
	resp, ok := v.(Response)
	return resp, ok
}

type claim struct{}

// Claim reserves key unless it already holds a claim or a response.
func (m *Memory) Claim(key string) bool {
	return m.c.Add(key, claim{}, gocache.DefaultExpiration) == nil
}

// Release drops an outstanding claim. Stored responses are left alone.
func (m *Memory) Release(key string) {
	if v, ok := m.c.Get(key); ok {
		if _, pending := v.(claim); pending {
			m.c.Delete(key)
		}
	}
}

// Put stores resp under key using the default expiry.
func (m *Memory) Put(key string, resp Response) {
	body := make([]byte, len(resp.Body))
	copy(body, resp.Body)
	m.c.SetDefault(key, Response{Status: resp.Status, Body: body})
}

// Key scopes an idempotency key to the request it was sent with.
func Key(method, path, idempotencyKey string) string {
	return strings.Join([]string{method, path, strings.TrimSpace(idempotencyKey)}, " ")
}
