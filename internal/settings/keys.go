package settings

import "sort"

// Key identifies a setting. The set of valid keys is closed.
type Key string

const (
	KeyBasePath           Key = "base_path"
	KeyBaseURL            Key = "base_url"
	KeyCachePath          Key = "cache_path"
	KeyCacheURL           Key = "cache_url"
	KeyCombine            Key = "combine"
	KeyCombineCSS         Key = "combine_css"
	KeyCombineJS          Key = "combine_js"
	KeyDebug              Key = "debug"
	KeyDisable            Key = "disable"
	KeyMinify             Key = "minify"
	KeyMinifyCSS          Key = "minify_css"
	KeyMinifyHTML         Key = "minify_html"
	KeyMinifyJS           Key = "minify_js"
	KeyRefreshAfter       Key = "refresh_after"
	KeyRelativePath       Key = "relative_path"
	KeyRemoteMode         Key = "remote_mode"
	KeyRemoteRefreshAfter Key = "remote_refresh_after"
)

const (
	Yes = "yes"
	No  = "no"
)

var knownKeys = map[Key]struct{}{
	KeyBasePath:           {},
	KeyBaseURL:            {},
	KeyCachePath:          {},
	KeyCacheURL:           {},
	KeyCombine:            {},
	KeyCombineCSS:         {},
	KeyCombineJS:          {},
	KeyDebug:              {},
	KeyDisable:            {},
	KeyMinify:             {},
	KeyMinifyCSS:          {},
	KeyMinifyHTML:         {},
	KeyMinifyJS:           {},
	KeyRefreshAfter:       {},
	KeyRelativePath:       {},
	KeyRemoteMode:         {},
	KeyRemoteRefreshAfter: {},
}

// Valid reports whether k belongs to the closed key set.
func (k Key) Valid() bool {
	_, ok := knownKeys[k]
	return ok
}

// Keys returns every valid key in lexical order.
func Keys() []Key {
	out := make([]Key, 0, len(knownKeys))
	for k := range knownKeys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Settings maps keys to normalised values. Values are strings, except for
// the integer keys which hold an int.
type Settings map[Key]any

// Clone returns a shallow copy; values are immutable scalars.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Raw returns the settings keyed by plain strings, the shape sources produce.
func (s Settings) Raw() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[string(k)] = v
	}
	return out
}

func blankDefaults() map[string]any {
	out := make(map[string]any, len(knownKeys))
	for k := range knownKeys {
		out[string(k)] = ""
	}
	return out
}
