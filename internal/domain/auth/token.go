package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TokenPair 封裝 access/refresh token 與其擁有者。
type TokenPair struct {
	UserID        string
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// HashRefreshToken 回傳 refresh token 的 SHA-256 hex，作為儲存鍵。
func HashRefreshToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
