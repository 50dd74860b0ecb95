package settings

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Remote fetch modes.
const (
	RemoteModeAuto = "auto"
	RemoteModeCurl = "curl"
	RemoteModeFGC  = "fgc"
)

// CurlExtension is the capability name probed for the curl remote mode.
const CurlExtension = "curl"

var (
	truthyPattern     = regexp.MustCompile(`(?i)^(1|true|on|yes|y)$`)
	falsyPattern      = regexp.MustCompile(`(?i)^(0|false|off|no|n)$`)
	remoteModePattern = regexp.MustCompile(`(?i)^(auto|curl|fgc)$`)

	// Paths collapse every run of slashes unless a colon precedes it.
	pathSlashes = regexp.MustCompile(`(^|[^:])//+`)
	// URLs additionally keep a leading "//" (protocol-relative).
	urlSlashes = regexp.MustCompile(`([^:])//+`)
)

const trailingCutset = "/ \t\n\r\x00\x0b"

// Sanitizer normalises raw values for the closed key set.
type Sanitizer struct {
	probe  Probe
	logger *zap.Logger
}

// NewSanitizer returns a Sanitizer. A nil probe reports no capabilities.
func NewSanitizer(probe Probe, logger *zap.Logger) *Sanitizer {
	if probe == nil {
		probe = noProbe{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sanitizer{probe: probe, logger: logger}
}

// SanitizeAll drops unknown keys and normalises the rest. Input that is not a
// mapping yields an empty result.
func (s *Sanitizer) SanitizeAll(raw any) Settings {
	m, ok := toMap(raw)
	if !ok {
		s.logger.Warn("trying to sanitise a non-mapping of settings", zap.String("type", fmt.Sprintf("%T", raw)))
		return Settings{}
	}

	valid := make(Settings, len(m))
	for name, value := range m {
		key := Key(name)
		if !key.Valid() {
			continue
		}
		valid[key] = s.SanitizeOne(key, value)
	}
	return valid
}

// SanitizeOne normalises a single value according to its key's class.
func (s *Sanitizer) SanitizeOne(key Key, value any) any {
	switch key {
	case KeyDebug, KeyDisable, KeyMinifyHTML:
		if b, ok := value.(bool); ok {
			return yesNo(b)
		}
		return yesNo(truthyPattern.MatchString(scalarString(value)))

	case KeyCombine, KeyCombineCSS, KeyCombineJS, KeyMinify, KeyMinifyJS, KeyRelativePath:
		if b, ok := value.(bool); ok {
			return yesNo(b)
		}
		return yesNo(!falsyPattern.MatchString(scalarString(value)))

	case KeyRefreshAfter, KeyRemoteRefreshAfter:
		return toInt(value)

	case KeyRemoteMode:
		return s.remoteMode(value)

	case KeyBasePath, KeyCachePath:
		return strings.TrimRight(pathSlashes.ReplaceAllString(scalarString(value), "${1}/"), trailingCutset)

	case KeyBaseURL, KeyCacheURL:
		return strings.TrimRight(urlSlashes.ReplaceAllString(scalarString(value), "${1}/"), trailingCutset)

	default:
		return value
	}
}

func (s *Sanitizer) remoteMode(value any) string {
	mode := strings.ToLower(scalarString(value))
	if !remoteModePattern.MatchString(mode) {
		mode = RemoteModeAuto
	}

	if (mode == RemoteModeAuto || mode == RemoteModeCurl) && s.probe.HasLoadedExtension(CurlExtension) {
		s.logger.Info("using curl for remote files")
		return RemoteModeCurl
	}

	if (mode == RemoteModeAuto || mode == RemoteModeFGC) && s.probe.AllowsURLFetch() {
		s.logger.Info("using url fetch for remote files")
		if !s.probe.SupportsSecureTransport() {
			s.logger.Warn("url fetch mode does not support TLS; https remote files will fail")
		}
		return RemoteModeFGC
	}

	s.logger.Warn("remote files cannot be fetched")
	return ""
}

func yesNo(b bool) string {
	if b {
		return Yes
	}
	return No
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// toInt coerces leniently: a leading integer is kept, anything else is 0.
func toInt(value any) int {
	switch v := value.(type) {
	case nil:
		return 0
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return leadingInt(scalarString(v))
	}
}

func leadingInt(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// toMap accepts the mapping shapes produced by config parsers and hooks.
func toMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case Settings:
		return m.Raw(), true
	case map[Key]any:
		return Settings(m).Raw(), true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}
