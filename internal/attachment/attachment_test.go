package attachment

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hfi/remote-media-staging/internal/cache"
	"github.com/hfi/remote-media-staging/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// A second connection would see a different in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := NewSQLiteStore(context.Background(), db)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	return s
}

func mustCreate(t *testing.T, s *SQLiteStore, guid string) int64 {
	t.Helper()
	id, err := s.Create(context.Background(), guid)
	if err != nil {
		t.Fatalf("Create(%q) error: %v", guid, err)
	}
	return id
}

// countingStore counts locator queries
type countingStore struct {
	Store
	finds int
	err   error
}

func (c *countingStore) FindByLocator(ctx context.Context, substr string) ([]int64, error) {
	c.finds++
	if c.err != nil {
		return nil, c.err
	}
	return c.Store.FindByLocator(ctx, substr)
}

func TestSQLiteStore_Interface(t *testing.T) {
	var _ Store = (*SQLiteStore)(nil)
}

func TestSQLiteStore_FindByLocator(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	photo := mustCreate(t, s, "https://staging.example.com/wp-content/uploads/2019/01/photo.jpg")
	mustCreate(t, s, "https://staging.example.com/wp-content/uploads/2019/01/other.jpg")

	tests := []struct {
		name   string
		substr string
		want   []int64
	}{
		{"exact path", "/wp-content/uploads/2019/01/photo.jpg", []int64{photo}},
		{"no match", "/wp-content/uploads/2020/01/photo.jpg", []int64{}},
		{"shared substring", "/wp-content/uploads/2019/01/", []int64{photo, photo + 1}},
		{"percent is literal", "%", []int64{}},
		{"underscore is literal", "_", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindByLocator(ctx, tt.substr)
			if err != nil {
				t.Fatalf("FindByLocator() error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("FindByLocator(%q) = %v, want %v", tt.substr, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FindByLocator(%q)[%d] = %d, want %d", tt.substr, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSQLiteStore_Meta(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "/a.jpg")

	if _, found, err := s.GetMeta(ctx, id, "k"); err != nil || found {
		t.Fatalf("GetMeta() on unset key = found %v, err %v", found, err)
	}

	if err := s.SetMeta(ctx, id, "k", "1"); err != nil {
		t.Fatalf("SetMeta() error: %v", err)
	}
	if err := s.SetMeta(ctx, id, "k", "2"); err != nil {
		t.Fatalf("SetMeta() overwrite error: %v", err)
	}

	v, found, err := s.GetMeta(ctx, id, "k")
	if err != nil || !found || v != "2" {
		t.Errorf("GetMeta() = %q, %v, %v; want \"2\", true, nil", v, found, err)
	}
}

func TestSQLiteStore_Get(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "/a.jpg")

	a, err := s.Get(ctx, id)
	if err != nil || a.GUID != "/a.jpg" {
		t.Errorf("Get() = %+v, %v", a, err)
	}
	if _, err := s.Get(ctx, id+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() missing error = %v, want ErrNotFound", err)
	}
}

func newTestResolver(t *testing.T, store Store, cacheStore storage.CacheStore) *Resolver {
	t.Helper()
	c := cache.New(cacheStore, cache.Options{}, zerolog.Nop())
	return NewResolver(store, c, zerolog.Nop())
}

func TestResolver_ResolveID(t *testing.T) {
	s := newTestStore(t)
	photo := mustCreate(t, s, "https://staging.example.com/wp-content/uploads/2019/01/photo.jpg")

	mem := storage.NewMemoryStore()
	defer mem.Close()
	r := newTestResolver(t, s, mem)
	ctx := context.Background()

	tests := []struct {
		name   string
		url    string
		wantID int64
		wantOK bool
	}{
		{"absolute", "https://staging.example.com/wp-content/uploads/2019/01/photo.jpg", photo, true},
		{"other host", "https://cdn.example.com/wp-content/uploads/2019/01/photo.jpg", photo, true},
		{"relative", "/wp-content/uploads/2019/01/photo.jpg", photo, true},
		{"query ignored", "/wp-content/uploads/2019/01/photo.jpg?ver=2", photo, true},
		{"unknown", "https://staging.example.com/wp-content/uploads/2019/01/missing.jpg", 0, false},
		{"no path", "https://staging.example.com", 0, false},
		{"malformed", "http://[::1", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := r.ResolveID(ctx, tt.url)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("ResolveID(%q) = %d, %v; want %d, %v", tt.url, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestResolver_CacheTransparency(t *testing.T) {
	s := newTestStore(t)
	id := mustCreate(t, s, "/wp-content/uploads/photo.jpg")
	counting := &countingStore{Store: s}

	mem := storage.NewMemoryStore()
	defer mem.Close()
	r := newTestResolver(t, counting, mem)
	ctx := context.Background()
	url := "https://staging.example.com/wp-content/uploads/photo.jpg"

	cold, coldOK := r.ResolveID(ctx, url)
	warm, warmOK := r.ResolveID(ctx, url)

	if cold != warm || coldOK != warmOK || cold != id {
		t.Errorf("cold = %d/%v, warm = %d/%v, want %d", cold, coldOK, warm, warmOK, id)
	}
	if counting.finds != 1 {
		t.Errorf("store queried %d times, want 1", counting.finds)
	}

	// Negative results are cached too
	r.ResolveID(ctx, "/nothing.jpg")
	r.ResolveID(ctx, "/nothing.jpg")
	if counting.finds != 2 {
		t.Errorf("store queried %d times, want 2", counting.finds)
	}
}

func TestResolver_StoreErrorIsUnresolved(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "/photo.jpg")
	counting := &countingStore{Store: s, err: errors.New("database is locked")}

	mem := storage.NewMemoryStore()
	defer mem.Close()
	r := newTestResolver(t, counting, mem)

	if _, ok := r.ResolveID(context.Background(), "/photo.jpg"); ok {
		t.Error("ResolveID() should not resolve when the store fails")
	}
	if mem.Size() != 0 {
		t.Error("failed lookups must not be cached")
	}
}

func TestClassifier_IsLocal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := NewClassifier(s, zerolog.Nop())

	remote := mustCreate(t, s, "/remote.jpg")
	local := mustCreate(t, s, "/local.jpg")
	cleared := mustCreate(t, s, "/cleared.jpg")

	if err := c.MarkLocal(ctx, local); err != nil {
		t.Fatalf("MarkLocal() error: %v", err)
	}
	s.SetMeta(ctx, cleared, LocalMetaKey, "0")

	tests := []struct {
		name string
		id   int64
		ok   bool
		want bool
	}{
		{"unflagged", remote, true, false},
		{"flagged", local, true, true},
		{"falsy flag", cleared, true, false},
		{"absent id", local, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsLocal(ctx, tt.id, tt.ok); got != tt.want {
				t.Errorf("IsLocal(%d, %v) = %v, want %v", tt.id, tt.ok, got, tt.want)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	for v, want := range map[string]bool{"": false, "0": false, "false": false, "1": true, "true": true, "yes": true} {
		if got := truthy(v); got != want {
			t.Errorf("truthy(%q) = %v, want %v", v, got, want)
		}
	}
}

func TestResolver_EncodedPath(t *testing.T) {
	s := newTestStore(t)
	guid := "https://staging.example.com/wp-content/uploads/2019/01/caf%C3%A9%20photo.jpg"
	id := mustCreate(t, s, guid)

	mem := storage.NewMemoryStore()
	defer mem.Close()
	r := newTestResolver(t, s, mem)

	got, ok := r.ResolveID(context.Background(), guid)
	if !ok || got != id {
		t.Errorf("ResolveID(%q) = %d, %v; want %d, true", guid, got, ok, id)
	}
}

func TestRawPath(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"https://s.example.com/u/caf%C3%A9%20a.jpg", "/u/caf%C3%A9%20a.jpg", true},
		{"https://s.example.com/u/a b.jpg?x=1#f", "/u/a b.jpg", true},
		{"//s.example.com/u/a.jpg", "/u/a.jpg", true},
		{"/u/a.jpg#top", "/u/a.jpg", true},
		{"HTTPS://user@s.example.com:8080/u/a.jpg", "/u/a.jpg", true},
		{"https://s.example.com", "", false},
		{"https://s.example.com?x=/y", "", false},
		{"mailto:a@example.com", "", false},
		{"http://[::1", "", false},
	}
	for _, tt := range tests {
		got, ok := rawPath(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("rawPath(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
