package settings

import (
	"context"

	"go.uber.org/zap"
)

const (
	// CacheNamespace and CacheKey locate the resolved defaults in the session
	// cache.
	CacheNamespace = "Minimee"
	CacheKey       = "config"

	// ExtensionClass names the extension in the database and in hook
	// bindings.
	ExtensionClass = "Minimee_ext"

	// TemplatePostParseHook receives the rendered template for HTML
	// minification.
	TemplatePostParseHook = "template_post_parse"

	templatePostParsePriority = 10
	minifyHTMLMethod          = "minify_html"
)

// HookRegistration describes a hook binding the resolver would like the host
// to add. The host decides whether to apply it.
type HookRegistration struct {
	Hook     string `json:"hook" yaml:"hook"`
	Priority int    `json:"priority" yaml:"priority"`
	Class    string `json:"class" yaml:"class"`
	Method   string `json:"method" yaml:"method"`
	Version  string `json:"version" yaml:"version"`
}

// Resolution is the outcome of Resolver.Resolve.
type Resolution struct {
	Store *Store
	// Registration is set when HTML minification is on but the host has no
	// post-parse binding for it yet. Never set on a cache hit.
	Registration *HookRegistration
	// Cached reports whether the defaults came from the session cache.
	Cached bool
}

// Dependencies are the collaborators a Resolver consults. Hooks, Persistence
// and Cache may be nil.
type Dependencies struct {
	Hooks       HookDispatcher
	Config      ConfigSource
	Persistence PersistenceSource
	Cache       SessionCache
	Probe       Probe
	Logger      *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRootPath sets the host's root filesystem path used for base_path and
// cache_path fallbacks.
func WithRootPath(path string) ResolverOption {
	return func(r *Resolver) {
		r.rootPath = path
	}
}

// WithVersion sets the version reported in hook registrations.
func WithVersion(version string) ResolverOption {
	return func(r *Resolver) {
		r.version = version
	}
}

// Resolver produces a Store per session, computing the default layer at most
// once per session.
type Resolver struct {
	hooks     HookDispatcher
	config    ConfigSource
	db        PersistenceSource
	cache     SessionCache
	sanitizer *Sanitizer
	logger    *zap.Logger

	rootPath string
	version  string
}

// NewResolver constructs a Resolver from its collaborators.
func NewResolver(deps Dependencies, opts ...ResolverOption) *Resolver {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	config := deps.Config
	if config == nil {
		config = emptyConfig{}
	}

	r := &Resolver{
		hooks:     deps.Hooks,
		config:    config,
		db:        deps.Persistence,
		cache:     deps.Cache,
		sanitizer: NewSanitizer(deps.Probe, logger),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sanitizer returns the sanitizer shared by every store this resolver builds.
func (r *Resolver) Sanitizer() *Sanitizer {
	return r.sanitizer
}

// Resolve returns the settings store for sessionID. A cached default layer is
// reused verbatim; otherwise sources are gathered, sanitised and cached. An
// empty sessionID bypasses the cache.
func (r *Resolver) Resolve(ctx context.Context, sessionID string) Resolution {
	store := NewStore(r.sanitizer, r.logger)

	if entry, ok := r.cached(sessionID); ok {
		store.freeze(entry.Defaults, entry.Location)
		r.logger.Info("settings retrieved from session", zap.String("session", sessionID))
		return Resolution{Store: store, Cached: true}
	}

	raw := blankDefaults()
	for k, v := range r.gather(ctx, store) {
		raw[k] = v
	}
	store.freeze(r.sanitizer.SanitizeAll(raw), store.Location())

	res := Resolution{Store: store, Registration: r.registration(store)}

	if r.cache != nil && sessionID != "" {
		r.cache.Set(sessionID, CacheNamespace, CacheKey, CacheEntry{
			Defaults: store.Defaults(),
			Location: store.Location(),
		})
		r.logger.Info("settings saved in session", zap.String("session", sessionID))
	}

	return res
}

func (r *Resolver) cached(sessionID string) (CacheEntry, bool) {
	if r.cache == nil || sessionID == "" {
		return CacheEntry{}, false
	}
	if !r.cache.Has(sessionID, CacheNamespace, CacheKey) {
		return CacheEntry{}, false
	}
	entry, ok := r.cache.Get(sessionID, CacheNamespace, CacheKey)
	if !ok || entry.Defaults == nil {
		return CacheEntry{}, false
	}
	return entry, true
}

func (r *Resolver) registration(store *Store) *HookRegistration {
	if !store.Is(KeyMinifyHTML) || !r.extensionsAllowed() {
		return nil
	}
	if r.hooks != nil && r.hooks.HasBinding(TemplatePostParseHook, ExtensionClass) {
		return nil
	}
	return &HookRegistration{
		Hook:     TemplatePostParseHook,
		Priority: templatePostParsePriority,
		Class:    ExtensionClass,
		Method:   minifyHTMLMethod,
		Version:  r.version,
	}
}
