package storage

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"it-network/internal/domain/session"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Fatalf("expected missing key")
	}
	_ = m.Set(ctx, session.KeyAccessToken, "tok")
	if v, ok, _ := m.Get(ctx, session.KeyAccessToken); !ok || v != "tok" {
		t.Fatalf("unexpected value %q", v)
	}
	_ = m.Remove(ctx, session.KeyAccessToken)
	if _, ok, _ := m.Get(ctx, session.KeyAccessToken); ok {
		t.Fatalf("expected removed key")
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite(" "); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "club.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(ctx, session.KeyAccessToken, "first"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, session.KeyAccessToken, "second"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := s.Set(ctx, session.KeyUserInfo, `{"user_id":"club01"}`); err != nil {
		t.Fatalf("set user: %v", err)
	}
	if err := s.Remove(ctx, session.KeyUserInfo); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	v, ok, err := s.Get(ctx, session.KeyAccessToken)
	if err != nil || !ok || v != "second" {
		t.Fatalf("expected persisted token, got %q ok=%v err=%v", v, ok, err)
	}
	if _, ok, _ := s.Get(ctx, session.KeyUserInfo); ok {
		t.Fatalf("removed key should stay removed")
	}
}

func TestSQLiteNilStore(t *testing.T) {
	var s *SQLite
	if err := s.Close(); err != nil {
		t.Fatalf("nil close should be no-op: %v", err)
	}
	if _, _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected error from unconfigured store")
	}
}

func TestPersistentJarRestoresCookies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	u, _ := url.Parse("http://127.0.0.1:9999/auth/login")
	refreshURL, _ := url.Parse("http://127.0.0.1:9999/auth/refresh")
	boardsURL, _ := url.Parse("http://127.0.0.1:9999/api/boards")

	jar, err := NewPersistentJar(ctx, store)
	if err != nil {
		t.Fatalf("jar: %v", err)
	}
	jar.SetCookies(u, []*http.Cookie{
		{Name: "refreshToken", Value: "r1", Path: "/auth", MaxAge: 3600, HttpOnly: true},
		{Name: "transient", Value: "x", Path: "/"},
	})

	raw, ok, _ := store.Get(ctx, session.KeySessionCookies)
	if !ok || !strings.Contains(raw, "refreshToken") || strings.Contains(raw, "transient") {
		t.Fatalf("unexpected persisted cookies %q", raw)
	}

	restored, err := NewPersistentJar(ctx, store)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	got := restored.Cookies(refreshURL)
	if len(got) != 1 || got[0].Value != "r1" {
		t.Fatalf("expected refresh cookie restored, got %v", got)
	}
	if len(restored.Cookies(boardsURL)) != 0 {
		t.Fatalf("refresh cookie must stay scoped to /auth")
	}
}

func TestPersistentJarDropsExpiredCookies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	u, _ := url.Parse("http://127.0.0.1:9999/auth/login")

	jar, _ := NewPersistentJar(ctx, store)
	jar.SetCookies(u, []*http.Cookie{{Name: "refreshToken", Value: "r1", Path: "/auth", MaxAge: 60}})
	jar.SetCookies(u, []*http.Cookie{{Name: "refreshToken", Value: "", Path: "/auth", MaxAge: -1}})
	if _, ok, _ := store.Get(ctx, session.KeySessionCookies); ok {
		t.Fatalf("expired cookie should clear persisted jar")
	}

	stale := NewMemory()
	_ = stale.Set(ctx, session.KeySessionCookies,
		`[{"url":"http://127.0.0.1:9999/auth/login","name":"refreshToken","value":"old","path":"/auth","expires":"`+
			time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)+`"}]`)
	restored, _ := NewPersistentJar(ctx, stale)
	refreshURL, _ := url.Parse("http://127.0.0.1:9999/auth/refresh")
	if len(restored.Cookies(refreshURL)) != 0 {
		t.Fatalf("stale cookie should not be restored")
	}
}
