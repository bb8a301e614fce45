package clubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"it-network/internal/domain/session"
)

// Client 呼叫社團後端 /auth 端點。httpClient 需帶 cookie jar，refresh cookie 才會送出。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type grantResponse struct {
	AccessToken string            `json:"accessToken"`
	UserInfo    *session.UserInfo `json:"userInfo"`
}

func (c *Client) Login(ctx context.Context, cred session.Credentials) (session.Grant, error) {
	body, err := c.call(ctx, http.MethodPost, "/auth/login", cred, "Login failed.")
	if err != nil {
		return session.Grant{}, err
	}
	return decodeGrant(body)
}

func (c *Client) Refresh(ctx context.Context) (session.Grant, error) {
	body, err := c.call(ctx, http.MethodPost, "/auth/refresh", nil, "Refresh failed.")
	if err != nil {
		return session.Grant{}, err
	}
	return decodeGrant(body)
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/auth/logout", nil, "Logout failed.")
	return err
}

func (c *Client) Signup(ctx context.Context, in session.SignupInput) error {
	_, err := c.call(ctx, http.MethodPost, "/auth/signup", in, "Signup failed.")
	return err
}

func decodeGrant(body []byte) (session.Grant, error) {
	var out grantResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return session.Grant{}, fmt.Errorf("decode grant: %w", err)
	}
	if out.AccessToken == "" {
		return session.Grant{}, session.ErrMissingToken
	}
	return session.Grant{AccessToken: out.AccessToken, User: out.UserInfo}, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload any, fallback string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", session.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", session.ErrNetwork, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &session.AuthError{Status: resp.StatusCode, Message: serverMessage(body, fallback)}
	}
	return body, nil
}

// serverMessage 取出 JSON 的 message/error 欄位，否則使用原始文字。
func serverMessage(body []byte, fallback string) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" || strings.HasPrefix(text, "{") || strings.HasPrefix(text, "<") {
		return fallback
	}
	return text
}
