package session

import "context"

// 本機儲存使用的固定 key。
const (
	KeyAccessToken    = "accessToken"
	KeyUserInfo       = "userInfo"
	KeySessionCookies = "sessionCookies"
)

// Storage 是持久化的字串 key/value 儲存，對應瀏覽器的 localStorage。
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
