package auth

import (
	"context"
	"time"
)

// Session 紀錄 refresh token 的雜湊與其生命週期，明文 token 只存在於 cookie。
type Session struct {
	TokenHash  string
	UserID     string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy string
	UserAgent  string
	IPAddress  string
	CreatedAt  time.Time
}

// Active 檢查 session 是否仍可使用。
func (s Session) Active(now time.Time) bool {
	if !s.ExpiresAt.After(now) {
		return false
	}
	if s.RevokedAt != nil && !s.RevokedAt.IsZero() {
		return false
	}
	return s.ReplacedBy == ""
}

// SessionStore 提供 refresh session 儲存/查詢/撤銷，皆以 token 雜湊為鍵。
type SessionStore interface {
	SaveSession(ctx context.Context, sess Session) error
	GetSession(ctx context.Context, tokenHash string) (Session, error)
	RevokeSession(ctx context.Context, tokenHash string, replacedBy string) error
}

// TokenMeta 可選的 token 生成附帶資訊。
type TokenMeta struct {
	UserAgent string
	IP        string
}
