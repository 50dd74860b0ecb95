package storage

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultSessionTTL bounds how long an idle session keeps its entries.
const DefaultSessionTTL = 30 * time.Minute

type entryKey struct {
	Session   string
	Namespace string
	Key       string
}

// SessionCache keeps values per session and namespace. Entries expire after
// the session has been idle for the configured TTL; reads extend it.
type SessionCache[V any] struct {
	cache *ttlcache.Cache[entryKey, V]
}

// NewSessionCache creates a cache and starts its expiry loop. Call Close to
// stop it.
func NewSessionCache[V any](ttl time.Duration) *SessionCache[V] {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[entryKey, V](ttl),
	)
	go cache.Start()
	return &SessionCache[V]{cache: cache}
}

// Has reports whether a live entry exists.
func (c *SessionCache[V]) Has(session, namespace, key string) bool {
	return c.cache.Has(entryKey{Session: session, Namespace: namespace, Key: key})
}

// Get returns the entry and refreshes the session's expiry.
func (c *SessionCache[V]) Get(session, namespace, key string) (V, bool) {
	item := c.cache.Get(entryKey{Session: session, Namespace: namespace, Key: key})
	if item == nil {
		var zero V
		return zero, false
	}
	return item.Value(), true
}

// Set stores value with the default TTL.
func (c *SessionCache[V]) Set(session, namespace, key string, value V) {
	c.cache.Set(entryKey{Session: session, Namespace: namespace, Key: key}, value, ttlcache.DefaultTTL)
}

// EndSession drops every entry belonging to session.
func (c *SessionCache[V]) EndSession(session string) {
	for _, k := range c.cache.Keys() {
		if k.Session == session {
			c.cache.Delete(k)
		}
	}
}

// Len returns the number of live entries.
func (c *SessionCache[V]) Len() int {
	return c.cache.Len()
}

// Close stops the expiry loop.
func (c *SessionCache[V]) Close() {
	c.cache.Stop()
}
