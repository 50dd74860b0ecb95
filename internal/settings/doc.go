// Package settings resolves the Minimee settings for a session. A Resolver
// gathers a raw mapping from the first source that yields one (hook, host
// config, database), a Sanitizer normalises it against a closed key set, and a
// Store serves the frozen default layer merged with a runtime overlay.
package settings
