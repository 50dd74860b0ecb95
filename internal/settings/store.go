package settings

import (
	"sync"

	"go.uber.org/zap"
)

// Location records which source produced the default layer. Hooks may use
// their own tags.
type Location string

const (
	LocationUnset   Location = ""
	LocationHook    Location = "hook"
	LocationConfig  Location = "config"
	LocationDB      Location = "db"
	LocationDefault Location = "default"
)

// Store holds the frozen default layer and the runtime overlay. Reads merge
// the two with the overlay winning.
type Store struct {
	sanitizer *Sanitizer
	logger    *zap.Logger

	mu       sync.RWMutex
	defaults Settings
	runtime  Settings
	location Location
	frozen   bool
}

// NewStore returns a store with an empty default layer. Resolver populates it.
func NewStore(sanitizer *Sanitizer, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sanitizer == nil {
		sanitizer = NewSanitizer(nil, logger)
	}
	return &Store{
		sanitizer: sanitizer,
		logger:    logger,
		defaults:  Settings{},
		runtime:   Settings{},
	}
}

// freeze installs the default layer. Only the first call has any effect.
func (s *Store) freeze(defaults Settings, location Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return
	}
	s.defaults = defaults.Clone()
	s.location = location
	s.frozen = true
}

// Location returns the tag of the source that produced the default layer.
func (s *Store) Location() Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// SetLocation claims the location tag. It only succeeds while the tag is
// unset, so the first claimant wins.
func (s *Store) SetLocation(tag Location) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.location != LocationUnset || s.frozen {
		return false
	}
	s.location = tag
	return true
}

func (s *Store) forceLocation(tag Location) {
	s.mu.Lock()
	s.location = tag
	s.mu.Unlock()
}

// Get returns the overlay value for key, falling back to the default layer.
// Unknown keys are logged and yield (nil, false).
func (s *Store) Get(key Key) (any, bool) {
	if !key.Valid() {
		s.logger.Warn("not a valid setting", zap.String("key", string(key)))
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.runtime[key]; ok {
		return v, true
	}
	v, ok := s.defaults[key]
	return v, ok
}

// String returns the value for key as a string, or "" when it is not one.
func (s *Store) String(key Key) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Int returns the value for key as an int, or 0 when it is not one.
func (s *Store) Int(key Key) int {
	v, _ := s.Get(key)
	n, _ := v.(int)
	return n
}

// GetAll merges the default layer with the overlay.
func (s *Store) GetAll() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.defaults.Clone()
	for k, v := range s.runtime {
		out[k] = v
	}
	return out
}

// Defaults returns a copy of the default layer.
func (s *Store) Defaults() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults.Clone()
}

// Overrides returns a copy of the runtime overlay.
func (s *Store) Overrides() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runtime.Clone()
}

// SetAll replaces the overlay with the sanitised form of raw. An empty
// mapping clears the overlay, as does input that is not a mapping.
func (s *Store) SetAll(raw any) {
	var overlay Settings
	if m, ok := toMap(raw); ok && len(m) == 0 {
		overlay = Settings{}
	} else {
		overlay = s.sanitizer.SanitizeAll(raw)
	}

	s.mu.Lock()
	s.runtime = overlay
	s.mu.Unlock()
}

// SetOne sanitises value and writes it to the overlay. Unknown keys are
// ignored.
func (s *Store) SetOne(key Key, value any) {
	if !key.Valid() {
		s.logger.Warn("ignoring unknown setting", zap.String("key", string(key)))
		return
	}
	sanitized := s.sanitizer.SanitizeOne(key, value)

	s.mu.Lock()
	s.runtime[key] = sanitized
	s.mu.Unlock()
}

// Is reports whether key resolves to "yes".
func (s *Store) Is(key Key) bool {
	return s.String(key) == Yes
}

// IsNot reports whether key resolves to "no".
func (s *Store) IsNot(key Key) bool {
	return s.String(key) == No
}

// Reset clears the overlay. The default layer and location are kept.
func (s *Store) Reset() *Store {
	s.mu.Lock()
	s.runtime = Settings{}
	s.mu.Unlock()
	return s
}
