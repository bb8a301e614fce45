package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domain "it-network/internal/domain/session"
)

type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapStore(kv ...string) *mapStore {
	s := &mapStore{data: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		s.data[kv[i]] = kv[i+1]
	}
	return s
}

func (s *mapStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *mapStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mapStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *mapStore) has(key string) bool {
	_, ok, _ := s.Get(context.Background(), key)
	return ok
}

type fakeAPI struct {
	loginGrant domain.Grant
	loginErr   error

	refreshGrants []domain.Grant
	refreshErr    error
	refreshHook   func(ctx context.Context)
	refreshCalls  atomic.Int32

	logoutErr   error
	logoutCalls atomic.Int32

	signupErr error
	signedUp  []domain.SignupInput
}

func (f *fakeAPI) Login(_ context.Context, _ domain.Credentials) (domain.Grant, error) {
	return f.loginGrant, f.loginErr
}

func (f *fakeAPI) Refresh(ctx context.Context) (domain.Grant, error) {
	n := f.refreshCalls.Add(1)
	if f.refreshHook != nil {
		f.refreshHook(ctx)
	}
	if f.refreshErr != nil {
		return domain.Grant{}, f.refreshErr
	}
	if len(f.refreshGrants) == 0 {
		return domain.Grant{}, nil
	}
	idx := int(n) - 1
	if idx >= len(f.refreshGrants) {
		idx = len(f.refreshGrants) - 1
	}
	return f.refreshGrants[idx], nil
}

func (f *fakeAPI) Logout(_ context.Context) error {
	f.logoutCalls.Add(1)
	return f.logoutErr
}

func (f *fakeAPI) Signup(_ context.Context, in domain.SignupInput) error {
	f.signedUp = append(f.signedUp, in)
	return f.signupErr
}

func quietOptions() Options {
	opts := DefaultOptions()
	opts.Logger = log.New(io.Discard, "", 0)
	return opts
}

func userJSON(t *testing.T, u domain.UserInfo) string {
	t.Helper()
	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	return string(raw)
}

func TestBootstrapAdoptsPersistedSessionWithoutNetwork(t *testing.T) {
	user := domain.UserInfo{ID: "club01", Name: "Kim", Email: "kim@example.com"}
	store := newMapStore(domain.KeyAccessToken, "stored-token", domain.KeyUserInfo, userJSON(t, user))
	api := &fakeAPI{refreshErr: errors.New("should not be called")}
	m := NewManager(api, nil, store, quietOptions())

	st := m.Bootstrap(context.Background())
	if !st.IsAuthenticated() || st.AccessToken != "stored-token" {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.User == nil || st.User.Name != "Kim" {
		t.Fatalf("expected persisted user, got %+v", st.User)
	}
	if api.refreshCalls.Load() != 0 {
		t.Fatalf("bootstrap should not refresh when a session is persisted")
	}
}

func TestBootstrapFallsBackToRefresh(t *testing.T) {
	t.Run("refresh succeeds", func(t *testing.T) {
		store := newMapStore()
		user := &domain.UserInfo{ID: "club01", Name: "Kim"}
		api := &fakeAPI{refreshGrants: []domain.Grant{{AccessToken: "fresh", User: user}}}
		m := NewManager(api, nil, store, quietOptions())

		st := m.Bootstrap(context.Background())
		if !st.IsAuthenticated() || st.AccessToken != "fresh" {
			t.Fatalf("unexpected state %+v", st)
		}
		if v, _, _ := store.Get(context.Background(), domain.KeyAccessToken); v != "fresh" {
			t.Fatalf("token not persisted, got %q", v)
		}
		if !store.has(domain.KeyUserInfo) {
			t.Fatalf("user not persisted")
		}
	})

	t.Run("refresh fails", func(t *testing.T) {
		store := newMapStore(domain.KeyAccessToken, "orphan")
		api := &fakeAPI{refreshErr: &domain.AuthError{Status: 401, Message: "no cookie"}}
		m := NewManager(api, nil, store, quietOptions())

		st := m.Bootstrap(context.Background())
		if st.Status != domain.StatusUnauthenticated {
			t.Fatalf("expected unauthenticated, got %+v", st)
		}
		if store.has(domain.KeyAccessToken) || store.has(domain.KeyUserInfo) {
			t.Fatalf("storage should be cleared")
		}
	})

	t.Run("malformed user info", func(t *testing.T) {
		store := newMapStore(domain.KeyAccessToken, "t", domain.KeyUserInfo, "{not json")
		api := &fakeAPI{refreshGrants: []domain.Grant{{AccessToken: "fresh"}}}
		m := NewManager(api, nil, store, quietOptions())

		st := m.Bootstrap(context.Background())
		if api.refreshCalls.Load() != 1 {
			t.Fatalf("expected one refresh, got %d", api.refreshCalls.Load())
		}
		if st.AccessToken != "fresh" {
			t.Fatalf("unexpected state %+v", st)
		}
	})
}

func TestBootstrapIsIdempotent(t *testing.T) {
	api := &fakeAPI{refreshErr: errors.New("down")}
	m := NewManager(api, nil, newMapStore(), quietOptions())
	m.Bootstrap(context.Background())
	m.Bootstrap(context.Background())
	if api.refreshCalls.Load() != 1 {
		t.Fatalf("expected a single refresh, got %d", api.refreshCalls.Load())
	}
}

func TestLogin(t *testing.T) {
	t.Run("success persists session", func(t *testing.T) {
		store := newMapStore()
		user := &domain.UserInfo{ID: "club01", Name: "Kim", Email: "kim@example.com"}
		var changes []domain.State
		opts := quietOptions()
		opts.OnChange = func(s domain.State) { changes = append(changes, s) }
		m := NewManager(&fakeAPI{loginGrant: domain.Grant{AccessToken: "acc", User: user}}, nil, store, opts)

		got, err := m.Login(context.Background(), "kim@example.com", "pw")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ID != "club01" {
			t.Fatalf("unexpected user %+v", got)
		}
		if !m.State().IsAuthenticated() {
			t.Fatalf("expected authenticated")
		}
		raw, _, _ := store.Get(context.Background(), domain.KeyUserInfo)
		if !strings.Contains(raw, `"user_nm":"Kim"`) {
			t.Fatalf("unexpected persisted user %q", raw)
		}
		if len(changes) != 1 || changes[0].AccessToken != "acc" {
			t.Fatalf("expected one change notification, got %+v", changes)
		}
	})

	t.Run("failure keeps state and message", func(t *testing.T) {
		store := newMapStore()
		api := &fakeAPI{loginErr: &domain.AuthError{Status: 401, Message: "비밀번호가 일치하지 않습니다."}}
		m := NewManager(api, nil, store, quietOptions())

		_, err := m.Login(context.Background(), "kim@example.com", "bad")
		if err == nil || err.Error() != "비밀번호가 일치하지 않습니다." {
			t.Fatalf("expected server message, got %v", err)
		}
		if !m.State().IsLoading() {
			t.Fatalf("state should be untouched, got %+v", m.State())
		}
		if store.has(domain.KeyAccessToken) {
			t.Fatalf("nothing should be persisted")
		}
	})

	t.Run("missing token", func(t *testing.T) {
		m := NewManager(&fakeAPI{loginGrant: domain.Grant{}}, nil, newMapStore(), quietOptions())
		if _, err := m.Login(context.Background(), "a@b.c", "pw"); !errors.Is(err, domain.ErrMissingToken) {
			t.Fatalf("expected ErrMissingToken, got %v", err)
		}
	})
}

func TestSignupLogsIn(t *testing.T) {
	api := &fakeAPI{loginGrant: domain.Grant{AccessToken: "acc", User: &domain.UserInfo{ID: "new01"}}}
	m := NewManager(api, nil, newMapStore(), quietOptions())
	user, err := m.Signup(context.Background(), domain.SignupInput{LoginID: "new01", Password: "pw", Email: "n@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "new01" || len(api.signedUp) != 1 || !m.State().IsAuthenticated() {
		t.Fatalf("signup should auto-login, state=%+v", m.State())
	}

	api = &fakeAPI{signupErr: &domain.AuthError{Status: 409, Message: "이미 사용중인 아이디입니다."}}
	m = NewManager(api, nil, newMapStore(), quietOptions())
	if _, err := m.Signup(context.Background(), domain.SignupInput{LoginID: "x", Password: "pw", Email: "x@y.z"}); err == nil {
		t.Fatalf("expected signup error")
	}
	if m.State().IsAuthenticated() {
		t.Fatalf("failed signup must not log in")
	}
}

func TestRefreshKeepsUserWhenOmitted(t *testing.T) {
	user := &domain.UserInfo{ID: "club01", Name: "Kim"}
	api := &fakeAPI{
		loginGrant:    domain.Grant{AccessToken: "acc", User: user},
		refreshGrants: []domain.Grant{{AccessToken: "acc2"}},
	}
	m := NewManager(api, nil, newMapStore(), quietOptions())
	if _, err := m.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok := m.Refresh(context.Background()); tok != "acc2" {
		t.Fatalf("expected acc2, got %q", tok)
	}
	st := m.State()
	if st.User == nil || st.User.ID != "club01" {
		t.Fatalf("expected previous user kept, got %+v", st.User)
	}
}

func TestRefreshFailureClearsSession(t *testing.T) {
	store := newMapStore()
	api := &fakeAPI{loginGrant: domain.Grant{AccessToken: "acc", User: &domain.UserInfo{ID: "u"}}}
	m := NewManager(api, nil, store, quietOptions())
	if _, err := m.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	api.refreshErr = domain.ErrNetwork
	if tok := m.Refresh(context.Background()); tok != "" {
		t.Fatalf("expected empty token, got %q", tok)
	}
	if m.State().Status != domain.StatusUnauthenticated || store.has(domain.KeyAccessToken) {
		t.Fatalf("expected cleared session, got %+v", m.State())
	}
}

func TestLogoutAlwaysClears(t *testing.T) {
	store := newMapStore()
	api := &fakeAPI{
		loginGrant: domain.Grant{AccessToken: "acc", User: &domain.UserInfo{ID: "u"}},
		logoutErr:  domain.ErrNetwork,
	}
	m := NewManager(api, nil, store, quietOptions())
	if _, err := m.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	m.Logout(context.Background())
	if api.logoutCalls.Load() != 1 {
		t.Fatalf("expected logout request")
	}
	if m.State().Status != domain.StatusUnauthenticated {
		t.Fatalf("expected unauthenticated")
	}
	if store.has(domain.KeyAccessToken) || store.has(domain.KeyUserInfo) {
		t.Fatalf("storage should be cleared")
	}
}

type resourceServer struct {
	*httptest.Server
	calls  atomic.Int32
	auths  []string
	ids    []string
	bodies []string
	mu     sync.Mutex
}

// newResourceServer answers with the status returned by decide for each call.
func newResourceServer(t *testing.T, decide func(call int, auth string) int) *resourceServer {
	t.Helper()
	rs := &resourceServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(rs.calls.Add(1))
		body, _ := io.ReadAll(r.Body)
		rs.mu.Lock()
		rs.auths = append(rs.auths, r.Header.Get("Authorization"))
		rs.ids = append(rs.ids, r.Header.Get(RequestIDHeader))
		rs.bodies = append(rs.bodies, string(body))
		rs.mu.Unlock()
		status := decide(n, r.Header.Get("Authorization"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(http.StatusText(status)))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *resourceServer) seen() (auths, ids, bodies []string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.auths...), append([]string(nil), rs.ids...), append([]string(nil), rs.bodies...)
}

func loggedIn(t *testing.T, api *fakeAPI, opts Options) *Manager {
	t.Helper()
	api.loginGrant = domain.Grant{AccessToken: "old", User: &domain.UserInfo{ID: "u"}}
	m := NewManager(api, http.DefaultClient, newMapStore(), opts)
	if _, err := m.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return m
}

func TestDoRetriesOnceAfterRefresh(t *testing.T) {
	rs := newResourceServer(t, func(_ int, auth string) int {
		if auth == "Bearer new" {
			return http.StatusCreated
		}
		return http.StatusUnauthorized
	})
	api := &fakeAPI{refreshGrants: []domain.Grant{{AccessToken: "new"}}}
	m := loggedIn(t, api, quietOptions())

	req, _ := http.NewRequest(http.MethodPost, rs.URL+"/api/comments", strings.NewReader(`{"postId":1,"content":"hi"}`))
	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 after retry, got %d", resp.StatusCode)
	}
	if rs.calls.Load() != 2 || api.refreshCalls.Load() != 1 {
		t.Fatalf("expected 2 calls and 1 refresh, got %d/%d", rs.calls.Load(), api.refreshCalls.Load())
	}
	auths, ids, bodies := rs.seen()
	if auths[0] != "Bearer old" || auths[1] != "Bearer new" {
		t.Fatalf("unexpected auth headers %v", auths)
	}
	if ids[0] == "" || ids[0] != ids[1] {
		t.Fatalf("retry should reuse the request id, got %v", ids)
	}
	if bodies[1] != bodies[0] {
		t.Fatalf("retry body not replayed: %v", bodies)
	}
}

func TestDoReturnsOriginalResponseWhenRefreshFails(t *testing.T) {
	rs := newResourceServer(t, func(int, string) int { return http.StatusUnauthorized })
	api := &fakeAPI{refreshErr: &domain.AuthError{Status: 401}}
	m := loggedIn(t, api, quietOptions())

	req, _ := http.NewRequest(http.MethodGet, rs.URL+"/api/boards", nil)
	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusUnauthorized || string(body) != "Unauthorized" {
		t.Fatalf("expected untouched 401, got %d %q", resp.StatusCode, body)
	}
	if rs.calls.Load() != 1 {
		t.Fatalf("no retry expected, got %d calls", rs.calls.Load())
	}
	if m.State().Status != domain.StatusUnauthenticated {
		t.Fatalf("expected unauthenticated after failed refresh")
	}
}

func TestDoNeverRetriesTwice(t *testing.T) {
	rs := newResourceServer(t, func(int, string) int { return http.StatusUnauthorized })
	api := &fakeAPI{refreshGrants: []domain.Grant{{AccessToken: "new"}, {AccessToken: "newer"}}}
	m := loggedIn(t, api, quietOptions())

	req, _ := http.NewRequest(http.MethodGet, rs.URL+"/api/boards", nil)
	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected second 401 returned, got %d", resp.StatusCode)
	}
	if rs.calls.Load() != 2 || api.refreshCalls.Load() != 1 {
		t.Fatalf("expected 2 calls / 1 refresh, got %d/%d", rs.calls.Load(), api.refreshCalls.Load())
	}
}

func TestDoForbiddenPolicy(t *testing.T) {
	tests := []struct {
		name          string
		refreshOn403  bool
		wantRefreshes int32
		wantCalls     int32
	}{
		{name: "refresh on 403", refreshOn403: true, wantRefreshes: 1, wantCalls: 2},
		{name: "403 passes through", refreshOn403: false, wantRefreshes: 0, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := newResourceServer(t, func(_ int, auth string) int {
				if auth == "Bearer new" {
					return http.StatusOK
				}
				return http.StatusForbidden
			})
			api := &fakeAPI{refreshGrants: []domain.Grant{{AccessToken: "new"}}}
			opts := quietOptions()
			opts.RefreshOnForbidden = tt.refreshOn403
			m := loggedIn(t, api, opts)

			req, _ := http.NewRequest(http.MethodGet, rs.URL+"/api/boards", nil)
			resp, err := m.Do(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			resp.Body.Close()
			if api.refreshCalls.Load() != tt.wantRefreshes || rs.calls.Load() != tt.wantCalls {
				t.Fatalf("refreshes=%d calls=%d", api.refreshCalls.Load(), rs.calls.Load())
			}
		})
	}
}

func TestDoWithoutTokenSendsNoBearer(t *testing.T) {
	rs := newResourceServer(t, func(int, string) int { return http.StatusOK })
	m := NewManager(&fakeAPI{}, http.DefaultClient, newMapStore(), quietOptions())
	req, _ := http.NewRequest(http.MethodGet, rs.URL+"/api/boards", nil)
	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if auths, _, _ := rs.seen(); auths[0] != "" {
		t.Fatalf("expected no Authorization header, got %q", auths[0])
	}
}

func TestDoAdoptsIssuedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(IssuedTokenHeader, "minted")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	m := loggedIn(t, &fakeAPI{}, quietOptions())

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	st := m.State()
	if st.AccessToken != "minted" || st.User == nil || st.User.ID != "u" {
		t.Fatalf("expected minted token with same user, got %+v", st)
	}
}

func TestDoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	m := NewManager(&fakeAPI{}, http.DefaultClient, newMapStore(), quietOptions())
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if _, err := m.Do(req); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestCloseDropsLateRefresh(t *testing.T) {
	started := make(chan struct{})
	api := &fakeAPI{
		refreshGrants: []domain.Grant{{AccessToken: "late"}},
		refreshHook: func(ctx context.Context) {
			close(started)
			<-ctx.Done()
		},
	}
	m := NewManager(api, nil, newMapStore(), quietOptions())

	result := make(chan string, 1)
	go func() { result <- m.Refresh(context.Background()) }()
	<-started
	m.Close()

	select {
	case tok := <-result:
		if tok != "" {
			t.Fatalf("expected dropped refresh, got %q", tok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not observe Close")
	}
	if !m.State().IsLoading() {
		t.Fatalf("state must not change after Close, got %+v", m.State())
	}
}

func TestCallerCancelKeepsSession(t *testing.T) {
	store := newMapStore()
	api := &fakeAPI{loginGrant: domain.Grant{AccessToken: "acc", User: &domain.UserInfo{ID: "u"}}}
	m := NewManager(api, nil, store, quietOptions())
	if _, err := m.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	api.refreshErr = context.Canceled
	api.refreshHook = func(context.Context) { cancel() }

	if tok := m.Refresh(ctx); tok != "" {
		t.Fatalf("expected empty token, got %q", tok)
	}
	st := m.State()
	if !st.IsAuthenticated() || st.AccessToken != "acc" {
		t.Fatalf("cancel must not log out, got %+v", st)
	}
	if !store.has(domain.KeyAccessToken) || !store.has(domain.KeyUserInfo) {
		t.Fatal("cancel must not clear persisted session")
	}
}

func TestCoalescedRefreshSurvivesOneCallerCancel(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	store := newMapStore()
	api := &fakeAPI{
		loginGrant:    domain.Grant{AccessToken: "acc", User: &domain.UserInfo{ID: "u"}},
		refreshGrants: []domain.Grant{{AccessToken: "shared"}},
		refreshHook: func(context.Context) {
			started <- struct{}{}
			<-release
		},
	}
	opts := quietOptions()
	opts.CoalesceRefresh = true
	m := NewManager(api, nil, store, opts)
	if _, err := m.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan string, 1)
	go func() { first <- m.Refresh(ctx) }()
	<-started

	second := make(chan string, 1)
	go func() { second <- m.Refresh(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if tok := <-first; tok != "" {
		t.Fatalf("canceled caller should get empty token, got %q", tok)
	}
	close(release)
	if tok := <-second; tok != "shared" {
		t.Fatalf("waiting caller should get shared token, got %q", tok)
	}
	if api.refreshCalls.Load() != 1 {
		t.Fatalf("expected one refresh call, got %d", api.refreshCalls.Load())
	}
	if st := m.State(); !st.IsAuthenticated() || st.AccessToken != "shared" {
		t.Fatalf("unexpected state %+v", st)
	}
	if v, _, _ := store.Get(context.Background(), domain.KeyAccessToken); v != "shared" {
		t.Fatalf("expected persisted shared token, got %q", v)
	}
}

func TestSequentialRefreshStaysAuthenticated(t *testing.T) {
	user := &domain.UserInfo{ID: "club01", Name: "Kim"}
	api := &fakeAPI{
		loginGrant:    domain.Grant{AccessToken: "acc", User: user},
		refreshGrants: []domain.Grant{{AccessToken: "acc2", User: user}, {AccessToken: "acc3", User: user}},
	}
	m := NewManager(api, nil, newMapStore(), quietOptions())
	if _, err := m.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	for _, want := range []string{"acc2", "acc3"} {
		if tok := m.Refresh(context.Background()); tok != want {
			t.Fatalf("expected %s, got %q", want, tok)
		}
		if st := m.State(); !st.IsAuthenticated() || st.AccessToken != want {
			t.Fatalf("expected authenticated with %s, got %+v", want, st)
		}
	}
}

func TestCoalescedRefresh(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	api := &fakeAPI{
		refreshGrants: []domain.Grant{{AccessToken: "shared"}},
		refreshHook: func(context.Context) {
			started <- struct{}{}
			<-release
		},
	}
	opts := quietOptions()
	opts.CoalesceRefresh = true
	m := NewManager(api, nil, newMapStore(), opts)

	var wg sync.WaitGroup
	tokens := make([]string, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		tokens[0] = m.Refresh(context.Background())
	}()
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		tokens[1] = m.Refresh(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if api.refreshCalls.Load() != 1 {
		t.Fatalf("expected one coalesced refresh, got %d", api.refreshCalls.Load())
	}
	if tokens[0] != "shared" || tokens[1] != "shared" {
		t.Fatalf("unexpected tokens %v", tokens)
	}
}
