package sessionstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func sample() *Snapshot {
	return &Snapshot{
		BaseURL: "http://localhost:8000/api",
		Cookies: []Cookie{{Name: "sessionid", Value: "abc"}, {Name: "csrftoken", Value: "tok"}},
		SavedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// exerciseBackend vérifie le contrat commun : absent -> ErrNoSession, save/load, delete idempotent.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	if _, err := b.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("empty Load err = %v, want ErrNoSession", err)
	}
	if err := b.Save(ctx, sample()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Cookies) != 2 || got.Cookies[0].Value != "abc" || !got.SavedAt.Equal(sample().SavedAt) {
		t.Fatalf("snapshot = %+v", got)
	}
	if err := b.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := b.Delete(ctx); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := b.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load after delete err = %v", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	exerciseBackend(t, NewFileStore(path))

	if err := NewFileStore(path).Save(context.Background(), sample()); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("perm = %o, want 600", perm)
	}
}

func TestFileStoreCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil || errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want decode error", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseBackend(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRedisStore(rdb, "session:test")
	exerciseBackend(t, store)

	if err := store.Save(context.Background(), sample()); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("session:test"); ttl != DefaultTTL {
		t.Fatalf("ttl = %v, want %v", ttl, DefaultTTL)
	}
	mr.FastForward(DefaultTTL + time.Second)
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expired Load err = %v", err)
	}
}

func TestPersisterRoundTrip(t *testing.T) {
	base, _ := url.Parse("http://localhost:8000/api")
	backend := NewMemoryStore()
	ctx := context.Background()

	jar1, _ := cookiejar.New(nil)
	jar1.SetCookies(base, []*http.Cookie{
		{Name: "sessionid", Value: "abc", Path: "/"},
		{Name: "csrftoken", Value: "tok", Path: "/"},
	})
	if err := NewPersister(jar1, base, backend).Persist(ctx); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	// Nouveau processus : jar vide puis restauration
	jar2, _ := cookiejar.New(nil)
	p2 := NewPersister(jar2, base, backend)
	if err := p2.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	values := map[string]string{}
	for _, c := range jar2.Cookies(base) {
		values[c.Name] = c.Value
	}
	if values["sessionid"] != "abc" || values["csrftoken"] != "tok" {
		t.Fatalf("restored cookies = %v", values)
	}

	if err := p2.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n := len(jar2.Cookies(base)); n != 0 {
		t.Fatalf("%d cookies left after Clear", n)
	}
	if _, err := backend.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("backend not cleared: %v", err)
	}
}

func TestRestoreIgnoresOtherBackend(t *testing.T) {
	base, _ := url.Parse("http://localhost:8000/api")
	backend := NewMemoryStore()
	snap := sample()
	snap.BaseURL = "https://prod.example.com/api"
	_ = backend.Save(context.Background(), snap)

	jar, _ := cookiejar.New(nil)
	if err := NewPersister(jar, base, backend).Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if n := len(jar.Cookies(base)); n != 0 {
		t.Fatalf("restored %d foreign cookies", n)
	}

	empty := NewMemoryStore()
	if err := NewPersister(jar, base, empty).Restore(context.Background()); err != nil {
		t.Fatalf("Restore without session: %v", err)
	}
}
