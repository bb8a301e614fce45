package session

import (
	"errors"
	"strings"
)

// Credentials 登入輸入。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return errors.New("email and password required")
	}
	return nil
}

// Grant 是登入或 refresh 成功後伺服器回傳的結果。User 在 refresh 時可能缺省。
type Grant struct {
	AccessToken string
	User        *UserInfo
}

// SignupInput 註冊欄位。
type SignupInput struct {
	LoginID  string `json:"user_id"`
	Password string `json:"user_pw"`
	Name     string `json:"user_nm"`
	Email    string `json:"email"`
}

func (in SignupInput) Validate() error {
	if strings.TrimSpace(in.LoginID) == "" {
		return errors.New("user_id is required")
	}
	if in.Password == "" {
		return errors.New("password is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return errors.New("email is required")
	}
	return nil
}
