package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"it-network/internal/application/auth"
	authDomain "it-network/internal/domain/auth"
	"it-network/internal/infra/memory"
)

const seedPassword = "password123"

// seedAuth 建立預設管理員與會員帳號；已存在的帳號略過。
func seedAuth(ctx context.Context, repo auth.UserRepository, hasher auth.PasswordHasher) error {
	// 記憶體 store 自帶 seed
	if sr, ok := repo.(interface {
		SeedUsers(h memory.Hasher) error
	}); ok {
		return sr.SeedUsers(hasher)
	}

	seeds := []authDomain.User{
		{ID: "seed-admin", LoginID: "admin", Name: "Admin", Email: "admin@example.com", Role: authDomain.RoleAdmin},
		{ID: "seed-member", LoginID: "member", Name: "Member", Email: "member@example.com", Role: authDomain.RoleMember},
	}
	for _, u := range seeds {
		if _, err := repo.FindByEmail(ctx, u.Email); err == nil {
			continue
		}
		hashed, err := hasher.Hash(seedPassword)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		u.Password = hashed
		u.Status = authDomain.StatusActive
		u.CreatedAt = time.Now()
		err = repo.CreateUser(ctx, u)
		if err != nil && !errors.Is(err, authDomain.ErrEmailTaken) && !errors.Is(err, authDomain.ErrLoginIDTaken) {
			return fmt.Errorf("seed %s: %w", u.Email, err)
		}
	}
	return nil
}
