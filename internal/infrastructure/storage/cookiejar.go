package storage

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"it-network/internal/domain/session"
)

type storedCookie struct {
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"httpOnly,omitempty"`
}

func (c storedCookie) key() string {
	return c.URL + "|" + c.Domain + "|" + c.Path + "|" + c.Name
}

// PersistentJar 包裝 cookiejar，將有期限的 cookie 存到 session.KeySessionCookies。
// refresh cookie 因此能跨 CLI 執行保留。
type PersistentJar struct {
	inner *cookiejar.Jar
	store session.Storage
	now   func() time.Time

	mu      sync.Mutex
	cookies map[string]storedCookie
}

// NewPersistentJar 建立 jar 並還原先前保存的 cookie。
func NewPersistentJar(ctx context.Context, store session.Storage) (*PersistentJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	j := &PersistentJar{
		inner:   inner,
		store:   store,
		now:     time.Now,
		cookies: make(map[string]storedCookie),
	}
	j.restore(ctx)
	return j, nil
}

func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	origin := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
	for _, c := range cookies {
		rec := storedCookie{
			URL:      origin,
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		switch {
		case c.MaxAge < 0:
			delete(j.cookies, rec.key())
			continue
		case c.MaxAge > 0:
			rec.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			rec.Expires = c.Expires
		default:
			// session cookie，不落地
			delete(j.cookies, rec.key())
			continue
		}
		if !rec.Expires.After(now) {
			delete(j.cookies, rec.key())
			continue
		}
		j.cookies[rec.key()] = rec
	}
	j.saveLocked()
}

func (j *PersistentJar) restore(ctx context.Context) {
	raw, ok, err := j.store.Get(ctx, session.KeySessionCookies)
	if err != nil {
		log.Printf("[Storage] read cookies failed: %v", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	var recs []storedCookie
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		log.Printf("[Storage] discard malformed cookies: %v", err)
		return
	}

	now := j.now()
	for _, rec := range recs {
		if !rec.Expires.After(now) {
			continue
		}
		u, err := url.Parse(rec.URL)
		if err != nil {
			continue
		}
		j.inner.SetCookies(u, []*http.Cookie{{
			Name:     rec.Name,
			Value:    rec.Value,
			Path:     rec.Path,
			Domain:   rec.Domain,
			Expires:  rec.Expires,
			Secure:   rec.Secure,
			HttpOnly: rec.HttpOnly,
		}})
		j.cookies[rec.key()] = rec
	}
}

func (j *PersistentJar) saveLocked() {
	ctx := context.Background()
	if len(j.cookies) == 0 {
		if err := j.store.Remove(ctx, session.KeySessionCookies); err != nil {
			log.Printf("[Storage] remove cookies failed: %v", err)
		}
		return
	}
	recs := make([]storedCookie, 0, len(j.cookies))
	for _, rec := range j.cookies {
		recs = append(recs, rec)
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		log.Printf("[Storage] encode cookies failed: %v", err)
		return
	}
	if err := j.store.Set(ctx, session.KeySessionCookies, string(raw)); err != nil {
		log.Printf("[Storage] write cookies failed: %v", err)
	}
}
