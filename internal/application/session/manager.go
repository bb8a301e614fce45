package session

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	domain "it-network/internal/domain/session"
)

const (
	// RequestIDHeader 每次邏輯請求帶上的追蹤 ID，重試沿用同一個。
	RequestIDHeader = "X-Request-ID"
	// IssuedTokenHeader 後端在請求中途重新簽發 token 時使用的 header。
	IssuedTokenHeader = "New-Access-Token"
)

// AuthAPI 與後端 /auth 端點互動。
type AuthAPI interface {
	Login(ctx context.Context, cred domain.Credentials) (domain.Grant, error)
	Refresh(ctx context.Context) (domain.Grant, error)
	Logout(ctx context.Context) error
	Signup(ctx context.Context, in domain.SignupInput) error
}

// Doer 送出 HTTP 請求，通常是共用 cookie jar 的 *http.Client。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options 控制 Manager 行為。
type Options struct {
	// RefreshOnForbidden 讓 403 也觸發 refresh。
	RefreshOnForbidden bool
	// CoalesceRefresh 合併同時進行的 refresh。
	CoalesceRefresh bool
	Logger          *log.Logger
	// OnChange 在每次狀態變更後呼叫，不持有鎖。
	OnChange func(domain.State)
}

// DefaultOptions 預設 403 也 refresh，不合併 refresh。
func DefaultOptions() Options {
	return Options{RefreshOnForbidden: true}
}

// Manager 持有登入狀態、同步本機儲存，並提供自動 refresh 的 Do。
type Manager struct {
	api    AuthAPI
	client Doer
	store  domain.Storage
	opts   Options
	logger *log.Logger

	mu     sync.RWMutex
	state  domain.State
	closed bool

	base   context.Context
	cancel context.CancelFunc
	flight singleflight.Group
}

func NewManager(api AuthAPI, client Doer, store domain.Storage, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		api:    api,
		client: client,
		store:  store,
		opts:   opts,
		logger: logger,
		state:  domain.Loading(),
		base:   base,
		cancel: cancel,
	}
}

// State 回傳目前狀態的複本。
func (m *Manager) State() domain.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.state
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.AccessToken
}

// Close 取消所有進行中的驗證請求，之後完成的結果不再寫入狀態。
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
}

// Bootstrap 啟動時呼叫一次：本機有 token 與 user 就直接採用，否則嘗試一次 silent refresh。
func (m *Manager) Bootstrap(ctx context.Context) domain.State {
	if cur := m.State(); !cur.IsLoading() {
		return cur
	}
	token, user := m.loadPersisted(ctx)
	if token != "" && user != nil {
		m.commit(ctx, domain.Authenticated(token, user))
		return m.State()
	}
	m.Refresh(ctx)
	return m.State()
}

func (m *Manager) loadPersisted(ctx context.Context) (string, *domain.UserInfo) {
	token, ok, err := m.store.Get(ctx, domain.KeyAccessToken)
	if err != nil {
		m.logger.Printf("[Session] read %s failed: %v", domain.KeyAccessToken, err)
		return "", nil
	}
	if !ok || token == "" {
		return "", nil
	}
	raw, ok, err := m.store.Get(ctx, domain.KeyUserInfo)
	if err != nil || !ok || raw == "" {
		return token, nil
	}
	var user domain.UserInfo
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.logger.Printf("[Session] discard malformed %s: %v", domain.KeyUserInfo, err)
		return token, nil
	}
	return token, &user
}

// Login 以帳密登入，失敗時不改變狀態，錯誤訊息為伺服器原文。
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.UserInfo, error) {
	cred := domain.Credentials{Email: email, Password: password}
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	ctx, done := m.bind(ctx)
	defer done()

	grant, err := m.api.Login(ctx, cred)
	if err != nil {
		return nil, err
	}
	if grant.AccessToken == "" {
		return nil, domain.ErrMissingToken
	}
	if !m.commit(ctx, domain.Authenticated(grant.AccessToken, grant.User)) {
		return nil, domain.ErrClosed
	}
	m.logger.Printf("[Session] logged in as %s", email)
	return grant.User, nil
}

// Signup 註冊後自動登入。
func (m *Manager) Signup(ctx context.Context, in domain.SignupInput) (*domain.UserInfo, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	bound, done := m.bind(ctx)
	err := m.api.Signup(bound, in)
	done()
	if err != nil {
		return nil, err
	}
	return m.Login(ctx, in.Email, in.Password)
}

// Refresh 以 refresh cookie 換新 token，失敗一律回空字串並登出。
// 呼叫端自己取消 ctx 時只回空字串，不動狀態。
func (m *Manager) Refresh(ctx context.Context) string {
	if !m.opts.CoalesceRefresh {
		return m.refresh(ctx)
	}
	// 共用的 refresh 不跟任何單一呼叫端的 ctx 綁在一起
	ch := m.flight.DoChan("refresh", func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		token, _ := res.Val.(string)
		return token
	case <-ctx.Done():
		return ""
	}
}

func (m *Manager) refresh(ctx context.Context) string {
	ctx, done := m.bind(ctx)
	defer done()

	grant, err := m.api.Refresh(ctx)
	if err == nil && grant.AccessToken == "" {
		err = domain.ErrMissingToken
	}
	if err != nil {
		if ctx.Err() != nil {
			m.logger.Printf("[Session] refresh canceled: %v", err)
			return ""
		}
		m.logger.Printf("[Session] refresh failed: %v", err)
		m.commit(ctx, domain.Unauthenticated())
		return ""
	}

	user := grant.User
	if user == nil {
		user = m.State().User
	}
	if !m.commit(ctx, domain.Authenticated(grant.AccessToken, user)) {
		return ""
	}
	return grant.AccessToken
}

// Logout 盡力通知後端，本機狀態無論如何都會清除。
func (m *Manager) Logout(ctx context.Context) {
	bound, done := m.bind(ctx)
	if err := m.api.Logout(bound); err != nil {
		m.logger.Printf("[Session] logout request failed: %v", err)
	}
	done()
	m.commit(ctx, domain.Unauthenticated())
}

// Do 帶上 bearer token 送出請求。遇到 401（或啟用時的 403）會 refresh 一次，
// 取得新 token 才重送一次，否則回傳原本的回應。只有傳輸錯誤會回傳 error。
func (m *Manager) Do(req *http.Request) (*http.Response, error) {
	reqID := req.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}

	resp, err := m.attempt(req, req.Body, m.Token(), reqID)
	if err != nil {
		return nil, err
	}
	m.adoptIssuedToken(req.Context(), resp)
	if !m.shouldRefresh(resp.StatusCode) {
		return resp, nil
	}

	fresh := m.Refresh(req.Context())
	if fresh == "" {
		return resp, nil
	}
	body, ok := replayBody(req)
	if !ok {
		m.logger.Printf("[Session] %s %s not replayable, returning first response", req.Method, req.URL.Path)
		return resp, nil
	}
	discard(resp)

	retry, err := m.attempt(req, body, fresh, reqID)
	if err != nil {
		return nil, err
	}
	m.adoptIssuedToken(req.Context(), retry)
	return retry, nil
}

func (m *Manager) attempt(req *http.Request, body io.ReadCloser, token, reqID string) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Body = body
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	out.Header.Set(RequestIDHeader, reqID)
	return m.client.Do(out)
}

func (m *Manager) shouldRefresh(status int) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	return status == http.StatusForbidden && m.opts.RefreshOnForbidden
}

func (m *Manager) adoptIssuedToken(ctx context.Context, resp *http.Response) {
	issued := resp.Header.Get(IssuedTokenHeader)
	if issued == "" {
		return
	}
	cur := m.State()
	if issued == cur.AccessToken {
		return
	}
	m.commit(ctx, domain.Authenticated(issued, cur.User))
}

func replayBody(req *http.Request) (io.ReadCloser, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return req.Body, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	return body, true
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// bind 讓 ctx 也會被 Close 取消。
func (m *Manager) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// commit 套用新狀態並同步本機儲存；Close 之後的更新一律丟棄。
func (m *Manager) commit(ctx context.Context, next domain.State) bool {
	m.mu.Lock()
	if m.closed || !m.state.CanTransition(next.Status) {
		m.mu.Unlock()
		return false
	}
	m.state = next
	m.persist(context.WithoutCancel(ctx), next)
	onChange := m.opts.OnChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(next)
	}
	return true
}

func (m *Manager) persist(ctx context.Context, s domain.State) {
	if !s.IsAuthenticated() {
		m.remove(ctx, domain.KeyAccessToken)
		m.remove(ctx, domain.KeyUserInfo)
		return
	}
	if err := m.store.Set(ctx, domain.KeyAccessToken, s.AccessToken); err != nil {
		m.logger.Printf("[Session] write %s failed: %v", domain.KeyAccessToken, err)
	}
	if s.User == nil {
		m.remove(ctx, domain.KeyUserInfo)
		return
	}
	raw, err := json.Marshal(s.User)
	if err != nil {
		m.logger.Printf("[Session] encode %s failed: %v", domain.KeyUserInfo, err)
		return
	}
	if err := m.store.Set(ctx, domain.KeyUserInfo, string(raw)); err != nil {
		m.logger.Printf("[Session] write %s failed: %v", domain.KeyUserInfo, err)
	}
}

func (m *Manager) remove(ctx context.Context, key string) {
	if err := m.store.Remove(ctx, key); err != nil {
		m.logger.Printf("[Session] remove %s failed: %v", key, err)
	}
}
