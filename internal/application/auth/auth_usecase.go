package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"it-network/internal/domain/auth"
)

// UserRepository 存取使用者。
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (auth.User, error)
	FindByID(ctx context.Context, id string) (auth.User, error)
	FindByLoginID(ctx context.Context, loginID string) (auth.User, error)
	CreateUser(ctx context.Context, user auth.User) error
}

// PasswordHasher 雜湊與驗證密碼。
type PasswordHasher interface {
	Compare(hashed, plain string) bool
	Hash(plain string) (string, error)
}

// TokenIssuer 簽發/輪替/作廢 token。
type TokenIssuer interface {
	Issue(ctx context.Context, user auth.User, meta auth.TokenMeta) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	RevokeRefresh(ctx context.Context, refreshToken string) error
}

// ErrInvalidInput 輸入欄位缺漏或格式錯誤。
var ErrInvalidInput = errors.New("invalid input")

// Permission 表示功能權限。
type Permission string

const (
	PermBoardWrite   Permission = "board:write"
	PermCommentWrite Permission = "comment:write"
	PermUserManage   Permission = "user:manage"
	PermSystemHealth Permission = "system:health"
)

// RolePermissions 社團網站權限表。
var RolePermissions = map[auth.Role][]Permission{
	auth.RoleAdmin: {
		PermBoardWrite,
		PermCommentWrite,
		PermUserManage,
		PermSystemHealth,
	},
	auth.RoleMember: {
		PermBoardWrite,
		PermCommentWrite,
	},
}

// AuthorizeInput 定義授權需求。
type AuthorizeInput struct {
	UserID   string
	Required []Permission
}

// AuthorizeResult 回傳授權結果。
type AuthorizeResult struct {
	Allowed bool
	Reason  string
}

// LoginUseCase 驗證帳密並簽發 token。
type LoginUseCase struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewLoginUseCase(users UserRepository, hasher PasswordHasher, tokens TokenIssuer) *LoginUseCase {
	return &LoginUseCase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

type LoginInput struct {
	Email    string
	Password string
	Meta     auth.TokenMeta
}

type LoginResult struct {
	User  auth.User
	Token auth.TokenPair
}

func (uc *LoginUseCase) Execute(ctx context.Context, input LoginInput) (LoginResult, error) {
	var out LoginResult
	email := auth.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return out, fmt.Errorf("%w: email and password required", ErrInvalidInput)
	}

	user, err := uc.users.FindByEmail(ctx, email)
	if errors.Is(err, auth.ErrUserNotFound) {
		return out, auth.ErrInvalidCredentials
	}
	if err != nil {
		return out, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return out, auth.ErrUserInactive
	}
	if !uc.hasher.Compare(user.Password, input.Password) {
		return out, auth.ErrInvalidCredentials
	}

	token, err := uc.tokens.Issue(ctx, user, input.Meta)
	if err != nil {
		return out, fmt.Errorf("issue token: %w", err)
	}

	out.User = user
	out.Token = token
	return out, nil
}

// SignupUseCase 建立一般會員帳號。
type SignupUseCase struct {
	users  UserRepository
	hasher PasswordHasher
	now    func() time.Time
	newID  func() string
}

func NewSignupUseCase(users UserRepository, hasher PasswordHasher) *SignupUseCase {
	return &SignupUseCase{
		users:  users,
		hasher: hasher,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

type SignupInput struct {
	LoginID  string
	Password string
	Name     string
	Email    string
}

func (uc *SignupUseCase) Execute(ctx context.Context, input SignupInput) (auth.User, error) {
	loginID := strings.TrimSpace(input.LoginID)
	email := auth.NormalizeEmail(input.Email)
	if loginID == "" || email == "" || input.Password == "" {
		return auth.User{}, fmt.Errorf("%w: user_id, email and password required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return auth.User{}, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	if _, err := uc.users.FindByEmail(ctx, email); err == nil {
		return auth.User{}, auth.ErrEmailTaken
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return auth.User{}, fmt.Errorf("find user: %w", err)
	}
	if _, err := uc.users.FindByLoginID(ctx, loginID); err == nil {
		return auth.User{}, auth.ErrLoginIDTaken
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return auth.User{}, fmt.Errorf("find user: %w", err)
	}

	hashed, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return auth.User{}, fmt.Errorf("hash password: %w", err)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = loginID
	}
	user := auth.User{
		ID:        uc.newID(),
		LoginID:   loginID,
		Name:      name,
		Email:     email,
		Role:      auth.RoleMember,
		Status:    auth.StatusActive,
		Password:  hashed,
		CreatedAt: uc.now(),
	}
	if err := user.Validate(); err != nil {
		return auth.User{}, err
	}
	if err := uc.users.CreateUser(ctx, user); err != nil {
		return auth.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// RefreshUseCase 以 refresh token 換發新 token，並回傳使用者資料。
type RefreshUseCase struct {
	users  UserRepository
	tokens TokenIssuer
}

func NewRefreshUseCase(users UserRepository, tokens TokenIssuer) *RefreshUseCase {
	return &RefreshUseCase{users: users, tokens: tokens}
}

func (uc *RefreshUseCase) Execute(ctx context.Context, refreshToken string) (LoginResult, error) {
	var out LoginResult
	if strings.TrimSpace(refreshToken) == "" {
		return out, auth.ErrSessionNotFound
	}
	pair, err := uc.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return out, err
	}
	user, err := uc.users.FindByID(ctx, pair.UserID)
	if err != nil {
		return out, fmt.Errorf("find user: %w", err)
	}
	out.User = user
	out.Token = pair
	return out, nil
}

// LogoutUseCase 處理 refresh token 作廢。
type LogoutUseCase struct {
	tokens TokenIssuer
}

func NewLogoutUseCase(tokens TokenIssuer) *LogoutUseCase {
	return &LogoutUseCase{tokens: tokens}
}

func (uc *LogoutUseCase) Execute(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return uc.tokens.RevokeRefresh(ctx, refreshToken)
}

// Authorizer 檢查角色/權限。
type Authorizer struct {
	users UserRepository
}

func NewAuthorizer(users UserRepository) *Authorizer {
	return &Authorizer{users: users}
}

func (a *Authorizer) HasPermission(role auth.Role, perm Permission) bool {
	perms := RolePermissions[role]
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

// Authorize 檢查使用者是否具備所需權限。
func (a *Authorizer) Authorize(ctx context.Context, input AuthorizeInput) (AuthorizeResult, error) {
	user, err := a.users.FindByID(ctx, input.UserID)
	if err != nil {
		return AuthorizeResult{Allowed: false, Reason: "user not found"}, err
	}
	if !user.IsActive() {
		return AuthorizeResult{Allowed: false, Reason: "user disabled"}, nil
	}

	for _, perm := range input.Required {
		if !a.HasPermission(user.Role, perm) {
			return AuthorizeResult{Allowed: false, Reason: fmt.Sprintf("missing permission %s", perm)}, nil
		}
	}
	return AuthorizeResult{Allowed: true}, nil
}
