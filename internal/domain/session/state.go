package session

import "errors"

// Status 描述目前的登入狀態。
type Status string

const (
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// UserInfo 與 access token 一起快取的使用者資料，JSON 欄位沿用後端格式。
type UserInfo struct {
	ID    string `json:"user_id"`
	Name  string `json:"user_nm"`
	Email string `json:"email"`
}

// State 是 Manager 對外暴露的快照。Authenticated 時必定持有非空 token。
type State struct {
	Status      Status
	AccessToken string
	User        *UserInfo
}

// Loading 為啟動時尚未判定的狀態。
func Loading() State {
	return State{Status: StatusLoading}
}

// Authenticated 建立已登入狀態；user 可為 nil。
func Authenticated(token string, user *UserInfo) State {
	return State{Status: StatusAuthenticated, AccessToken: token, User: user}
}

// Unauthenticated 清空 token 與使用者。
func Unauthenticated() State {
	return State{Status: StatusUnauthenticated}
}

func (s State) IsAuthenticated() bool { return s.Status == StatusAuthenticated }

func (s State) IsLoading() bool { return s.Status == StatusLoading }

// Validate 檢查 token 與狀態是否一致。
func (s State) Validate() error {
	switch s.Status {
	case StatusAuthenticated:
		if s.AccessToken == "" {
			return errors.New("authenticated state requires a token")
		}
	case StatusLoading, StatusUnauthenticated:
		if s.AccessToken != "" || s.User != nil {
			return errors.New("token held outside authenticated state")
		}
	default:
		return errors.New("unknown status")
	}
	return nil
}

// CanTransition reports whether moving from s to next is a legal edge.
// Nothing ever goes back to Loading.
func (s State) CanTransition(next Status) bool {
	if next == StatusLoading {
		return false
	}
	return next == StatusAuthenticated || next == StatusUnauthenticated
}
