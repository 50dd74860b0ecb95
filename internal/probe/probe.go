// Package probe reports which remote fetch mechanisms the running process may
// use. Capabilities come from service configuration and can change between
// resolutions.
package probe

import (
	"crypto/tls"
	"strings"
	"sync"
)

// Capabilities is a mutable capability set. It satisfies settings.Probe.
type Capabilities struct {
	mu         sync.RWMutex
	extensions map[string]struct{}
	urlFetch   bool
	secure     bool
}

// New returns a capability set with the given extensions loaded.
func New(extensions []string, allowURLFetch bool) *Capabilities {
	c := &Capabilities{
		extensions: make(map[string]struct{}, len(extensions)),
		urlFetch:   allowURLFetch,
		secure:     len(tls.CipherSuites()) > 0,
	}
	for _, ext := range extensions {
		c.extensions[normalize(ext)] = struct{}{}
	}
	return c
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// HasLoadedExtension reports whether name is loaded.
func (c *Capabilities) HasLoadedExtension(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.extensions[normalize(name)]
	return ok
}

// AllowsURLFetch reports whether URL-based reads are permitted.
func (c *Capabilities) AllowsURLFetch() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.urlFetch
}

// SupportsSecureTransport reports whether TLS is available to URL reads.
func (c *Capabilities) SupportsSecureTransport() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.secure
}

// Load marks an extension as loaded.
func (c *Capabilities) Load(name string) {
	c.mu.Lock()
	c.extensions[normalize(name)] = struct{}{}
	c.mu.Unlock()
}

// Unload marks an extension as unavailable.
func (c *Capabilities) Unload(name string) {
	c.mu.Lock()
	delete(c.extensions, normalize(name))
	c.mu.Unlock()
}

// SetURLFetch toggles URL-based reads.
func (c *Capabilities) SetURLFetch(allowed bool) {
	c.mu.Lock()
	c.urlFetch = allowed
	c.mu.Unlock()
}

// SetSecureTransport overrides TLS availability.
func (c *Capabilities) SetSecureTransport(ok bool) {
	c.mu.Lock()
	c.secure = ok
	c.mu.Unlock()
}
