package settings

import "context"

// HookDispatcher runs extension hooks registered by the host.
type HookDispatcher interface {
	IsActive(hook string) bool
	// Invoke calls the hook with the store under resolution, letting the hook
	// claim a location via Store.SetLocation. An empty mapping means "no data".
	Invoke(hook string, store *Store) (map[string]any, error)
	// HasBinding reports whether class is already bound to hook.
	HasBinding(hook, class string) bool
}

// ConfigSource is the host's structured configuration.
type ConfigSource interface {
	Item(key string) (any, bool)
}

// PersistenceSource loads the settings saved by the extension, if any.
type PersistenceSource interface {
	LoadSettings(ctx context.Context) (map[string]any, bool, error)
}

// SessionCache keeps resolved defaults for the lifetime of a session.
type SessionCache interface {
	Has(sessionID, namespace, key string) bool
	Get(sessionID, namespace, key string) (CacheEntry, bool)
	Set(sessionID, namespace, key string, entry CacheEntry)
}

// CacheEntry is what a resolution leaves behind for later calls in the same
// session.
type CacheEntry struct {
	Defaults Settings
	Location Location
}

// Probe reports runtime capabilities used to pick a remote fetch mode.
type Probe interface {
	HasLoadedExtension(name string) bool
	AllowsURLFetch() bool
	SupportsSecureTransport() bool
}

type noProbe struct{}

func (noProbe) HasLoadedExtension(string) bool { return false }
func (noProbe) AllowsURLFetch() bool           { return false }
func (noProbe) SupportsSecureTransport() bool  { return false }

type emptyConfig struct{}

func (emptyConfig) Item(string) (any, bool) { return nil, false }
