package settings

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeProbe struct {
	extensions map[string]bool
	urlFetch   bool
	tls        bool
}

func (p fakeProbe) HasLoadedExtension(name string) bool { return p.extensions[name] }
func (p fakeProbe) AllowsURLFetch() bool                { return p.urlFetch }
func (p fakeProbe) SupportsSecureTransport() bool       { return p.tls }

var (
	curlProbe = fakeProbe{extensions: map[string]bool{CurlExtension: true}, urlFetch: true, tls: true}
	fgcProbe  = fakeProbe{urlFetch: true, tls: true}
	bareProbe = fakeProbe{}
)

type fakeHooks struct {
	active   bool
	result   map[string]any
	err      error
	location Location
	panics   bool
	bound    bool
	calls    int
}

func (h *fakeHooks) IsActive(string) bool { return h.active }

func (h *fakeHooks) Invoke(_ string, store *Store) (map[string]any, error) {
	h.calls++
	if h.panics {
		panic("hook exploded")
	}
	if h.location != LocationUnset {
		store.SetLocation(h.location)
	}
	return h.result, h.err
}

func (h *fakeHooks) HasBinding(string, string) bool { return h.bound }

type fakeConfig map[string]any

func (c fakeConfig) Item(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

type fakeDB struct {
	settings map[string]any
	err      error
	calls    int
}

func (d *fakeDB) LoadSettings(context.Context) (map[string]any, bool, error) {
	d.calls++
	if d.err != nil {
		return nil, false, d.err
	}
	return d.settings, d.settings != nil, nil
}

type memoryCache struct {
	entries map[string]CacheEntry
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]CacheEntry{}}
}

func (c *memoryCache) key(session, namespace, key string) string {
	return session + "/" + namespace + "/" + key
}

func (c *memoryCache) Has(session, namespace, key string) bool {
	_, ok := c.entries[c.key(session, namespace, key)]
	return ok
}

func (c *memoryCache) Get(session, namespace, key string) (CacheEntry, bool) {
	e, ok := c.entries[c.key(session, namespace, key)]
	return e, ok
}

func (c *memoryCache) Set(session, namespace, key string, entry CacheEntry) {
	c.sets++
	c.entries[c.key(session, namespace, key)] = entry
}

var errSourceDown = errors.New("source down")

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}
