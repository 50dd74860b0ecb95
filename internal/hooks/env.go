package hooks

import (
	"os"
	"strings"

	"github.com/eugenenazirov/minimee/internal/settings"
)

// DefaultEnvPrefix prefixes the variables read by EnvSettings.
const DefaultEnvPrefix = "MINIMEE_SETTING_"

// LocationEnv tags settings supplied through the environment.
const LocationEnv settings.Location = "env"

// EnvSettings returns a settings hook reading <prefix><KEY> variables, e.g.
// MINIMEE_SETTING_DEBUG=yes. It claims the "env" location when it supplies
// anything.
func EnvSettings(prefix string) Func {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return func(store *settings.Store) (map[string]any, error) {
		out := make(map[string]any)
		for _, key := range settings.Keys() {
			name := prefix + strings.ToUpper(string(key))
			if v, ok := os.LookupEnv(name); ok {
				out[string(key)] = v
			}
		}
		if len(out) > 0 && store != nil {
			store.SetLocation(LocationEnv)
		}
		return out, nil
	}
}
