package auth

import (
	"errors"
	"strings"
	"time"
)

// Role 定義社團網站角色。
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Status 定義帳號狀態。
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusLocked   Status = "locked"
)

// User 基本帳號資料。ID 為系統 uid，LoginID 為使用者自訂的 user_id。
type User struct {
	ID        string
	LoginID   string
	Name      string
	Email     string
	Role      Role
	Status    Status
	Password  string // 雜湊後密碼
	CreatedAt time.Time
}

// Validate 基本欄位檢查。
func (u User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.LoginID == "" {
		return errors.New("user_id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Status == "" {
		return errors.New("status is required")
	}
	return nil
}

// IsActive 檢查是否可登入。
func (u User) IsActive() bool {
	return u.Status == StatusActive
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
