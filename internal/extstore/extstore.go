// Package extstore reads the settings the extension saved in the host
// database. The host keeps one row per extension class in the extensions
// table with a serialised settings blob.
package extstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

const selectSettingsSQL = `SELECT settings FROM extensions WHERE enabled = $1 AND class = $2 LIMIT 1`

const enabledFlag = "y"

// Querier is the subset of pgxpool.Pool used by Store.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store loads extension settings. It satisfies settings.PersistenceSource.
type Store struct {
	db    Querier
	class string
}

// New returns a Store reading the row for class.
func New(db Querier, class string) *Store {
	return &Store{db: db, class: class}
}

// NewPool creates a pgx connection pool for the host database.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// LoadSettings returns the stored settings of the enabled extension row. The
// result set is closed before returning on every path.
func (s *Store) LoadSettings(ctx context.Context) (map[string]any, bool, error) {
	rows, err := s.db.Query(ctx, selectSettingsSQL, enabledFlag, s.class)
	if err != nil {
		return nil, false, fmt.Errorf("query extension settings: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, false, fmt.Errorf("read extension settings: %w", err)
		}
		return nil, false, nil
	}

	var blob *string
	if err := rows.Scan(&blob); err != nil {
		return nil, false, fmt.Errorf("scan extension settings: %w", err)
	}
	rows.Close()

	if blob == nil || *blob == "" {
		return nil, false, nil
	}

	settings, err := Decode([]byte(*blob))
	if err != nil {
		return nil, false, err
	}
	return settings, len(settings) > 0, nil
}

// Decode parses a stored settings blob. Blobs are YAML or JSON mappings.
func Decode(blob []byte) (map[string]any, error) {
	var out map[string]any
	if err := yaml.Unmarshal(blob, &out); err != nil {
		return nil, fmt.Errorf("decode extension settings: %w", err)
	}
	return out, nil
}

// Encode serialises settings in the form Decode reads.
func Encode(settings map[string]any) ([]byte, error) {
	blob, err := yaml.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode extension settings: %w", err)
	}
	return blob, nil
}
