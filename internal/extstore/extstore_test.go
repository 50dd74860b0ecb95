package extstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/minimee/internal/settings"
)

type fakeRows struct {
	values  []*string
	idx     int
	closed  int
	err     error
	scanErr error
}

func (r *fakeRows) Close()                                       { r.closed++ }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.values) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	ptr, ok := dest[0].(**string)
	if !ok {
		return errors.New("unexpected destination")
	}
	*ptr = r.values[r.idx-1]
	return nil
}

func (r *fakeRows) Values() ([]any, error) {
	return []any{r.values[r.idx-1]}, nil
}

type fakeQuerier struct {
	rows *fakeRows
	err  error
	sql  string
	args []any
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql = sql
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func strPtr(s string) *string { return &s }

func TestLoadSettingsJSONBlob(t *testing.T) {
	t.Parallel()

	rows := &fakeRows{values: []*string{strPtr(`{"debug": "yes", "refresh_after": 60}`)}}
	q := &fakeQuerier{rows: rows}

	got, found, err := New(q, settings.ExtensionClass).LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || got["debug"] != "yes" || got["refresh_after"] != 60 {
		t.Fatalf("unexpected settings %v (found=%v)", got, found)
	}
	if !strings.Contains(q.sql, "FROM extensions") || q.args[0] != "y" || q.args[1] != settings.ExtensionClass {
		t.Fatalf("unexpected query %q %v", q.sql, q.args)
	}
	if rows.closed == 0 {
		t.Fatalf("rows must be closed")
	}
}

func TestLoadSettingsYAMLBlob(t *testing.T) {
	t.Parallel()

	rows := &fakeRows{values: []*string{strPtr("combine: \"no\"\ncache_url: http://cdn.test\n")}}

	got, found, err := New(&fakeQuerier{rows: rows}, settings.ExtensionClass).LoadSettings(context.Background())
	if err != nil || !found {
		t.Fatalf("unexpected result %v, %v", found, err)
	}
	if got["combine"] != "no" || got["cache_url"] != "http://cdn.test" {
		t.Fatalf("unexpected settings %v", got)
	}
}

func TestLoadSettingsNoRows(t *testing.T) {
	t.Parallel()

	rows := &fakeRows{}
	got, found, err := New(&fakeQuerier{rows: rows}, settings.ExtensionClass).LoadSettings(context.Background())
	if err != nil || found || got != nil {
		t.Fatalf("expected not found, got %v, %v, %v", got, found, err)
	}
	if rows.closed == 0 {
		t.Fatalf("rows must be closed")
	}
}

func TestLoadSettingsEmptyOrNullBlob(t *testing.T) {
	t.Parallel()

	for _, v := range []*string{nil, strPtr("")} {
		rows := &fakeRows{values: []*string{v}}
		_, found, err := New(&fakeQuerier{rows: rows}, settings.ExtensionClass).LoadSettings(context.Background())
		if err != nil || found {
			t.Fatalf("expected not found, got %v, %v", found, err)
		}
		if rows.closed == 0 {
			t.Fatalf("rows must be closed")
		}
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	cases := map[string]*fakeQuerier{
		"query":     {err: boom},
		"iteration": {rows: &fakeRows{err: boom}},
		"scan":      {rows: &fakeRows{values: []*string{strPtr("x")}, scanErr: boom}},
	}
	for name, q := range cases {
		if _, _, err := New(q, settings.ExtensionClass).LoadSettings(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("%s: expected wrapped error, got %v", name, err)
		}
		if q.rows != nil && q.rows.closed == 0 {
			t.Fatalf("%s: rows must be closed", name)
		}
	}

	malformed := &fakeRows{values: []*string{strPtr("- just\n- a list\n")}}
	if _, _, err := New(&fakeQuerier{rows: malformed}, settings.ExtensionClass).LoadSettings(context.Background()); err == nil {
		t.Fatalf("expected decode error for non-mapping blob")
	}
	if malformed.closed == 0 {
		t.Fatalf("rows must be closed")
	}
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	blob, err := Encode(map[string]any{"debug": "yes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Decode(blob)
	if err != nil || got["debug"] != "yes" {
		t.Fatalf("unexpected decode %v, %v", got, err)
	}
}

func TestStoreFeedsResolver(t *testing.T) {
	t.Parallel()

	rows := &fakeRows{values: []*string{strPtr(`{"minify": "no"}`)}}
	resolver := settings.NewResolver(settings.Dependencies{
		Config:      staticConfig{"allow_extensions": "y"},
		Persistence: New(&fakeQuerier{rows: rows}, settings.ExtensionClass),
		Logger:      zaptest.NewLogger(t),
	})

	res := resolver.Resolve(context.Background(), "")
	if res.Store.Location() != settings.LocationDB || !res.Store.IsNot(settings.KeyMinify) {
		t.Fatalf("expected db settings, got %q", res.Store.Location())
	}
}

type staticConfig map[string]any

func (c staticConfig) Item(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}
