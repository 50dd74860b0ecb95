package settings

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"
)

const (
	// SettingsHook is offered the first chance to supply settings.
	SettingsHook = "minimee_get_settings"
	// ConfigItem is the host config entry holding a settings mapping.
	ConfigItem = "minimee"

	configBaseURL         = "base_url"
	configAllowExtensions = "allow_extensions"
)

// gather walks hook, host config and database in that order and returns the
// first non-empty mapping, with the four path fallbacks applied. It records
// the winning source on store and never fails.
func (r *Resolver) gather(ctx context.Context, store *Store) map[string]any {
	settings := r.fromHook(store)

	if settings == nil {
		if settings = r.fromConfig(); settings != nil {
			store.forceLocation(LocationConfig)
		}
	}

	if settings == nil {
		if settings = r.fromDB(ctx); settings != nil {
			store.forceLocation(LocationDB)
		}
	}

	if settings == nil {
		r.logger.Warn("could not find any settings to use; using defaults")
		store.forceLocation(LocationDefault)
		settings = map[string]any{}
	}

	r.applyFallbacks(settings)
	return settings
}

func (r *Resolver) fromHook(store *Store) (settings map[string]any) {
	if r.hooks == nil || !r.hooks.IsActive(SettingsHook) {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("settings hook panicked", zap.String("hook", SettingsHook), zap.Any("error", rec))
			settings = nil
		}
	}()

	raw, err := r.hooks.Invoke(SettingsHook, store)
	if err != nil {
		r.logger.Info("settings hook failed", zap.String("hook", SettingsHook), zap.Error(err))
		return nil
	}
	if len(raw) == 0 {
		r.logger.Info("settings hook returned no settings", zap.String("hook", SettingsHook))
		return nil
	}

	// The hook may have claimed its own location already.
	store.SetLocation(LocationHook)
	r.logger.Info("settings taken from hook", zap.String("location", string(store.Location())))
	return copyMap(raw)
}

func (r *Resolver) fromConfig() map[string]any {
	item, ok := r.config.Item(ConfigItem)
	if !ok || isFalsy(item) {
		r.logger.Info("no settings found in host config")
		return nil
	}

	m, ok := toMap(item)
	if !ok || len(m) == 0 {
		r.logger.Info("host config settings are not a mapping", zap.String("type", fmt.Sprintf("%T", item)))
		return nil
	}

	r.logger.Info("settings taken from host config")
	return copyMap(m)
}

func (r *Resolver) fromDB(ctx context.Context) map[string]any {
	if r.db == nil {
		return nil
	}
	if !r.extensionsAllowed() {
		r.logger.Info("extensions disabled; skipping database settings")
		return nil
	}

	m, found, err := r.db.LoadSettings(ctx)
	if err != nil {
		r.logger.Info("failed to load settings from database", zap.Error(err))
		return nil
	}
	if !found || len(m) == 0 {
		r.logger.Info("no settings found in database")
		return nil
	}

	r.logger.Info("settings retrieved from database")
	return copyMap(m)
}

func (r *Resolver) applyFallbacks(settings map[string]any) {
	baseURL := r.configString(configBaseURL)

	if isFalsy(settings[string(KeyCachePath)]) {
		settings[string(KeyCachePath)] = r.rootPath + "/cache"
	}
	if isFalsy(settings[string(KeyCacheURL)]) {
		settings[string(KeyCacheURL)] = baseURL + "/cache"
	}
	if isFalsy(settings[string(KeyBasePath)]) {
		settings[string(KeyBasePath)] = r.rootPath
	}
	if isFalsy(settings[string(KeyBaseURL)]) {
		settings[string(KeyBaseURL)] = baseURL
	}
}

func (r *Resolver) extensionsAllowed() bool {
	return strings.EqualFold(r.configString(configAllowExtensions), "y")
}

func (r *Resolver) configString(key string) string {
	v, ok := r.config.Item(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func copyMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// isFalsy mirrors loose truthiness: nil, false, zero numbers, "", "0" and
// empty collections.
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == "" || t == "0"
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	default:
		return false
	}
}
