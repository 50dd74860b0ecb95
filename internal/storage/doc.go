// Package storage provides the per-session cache that lets a settings
// resolution run once per session.
package storage
