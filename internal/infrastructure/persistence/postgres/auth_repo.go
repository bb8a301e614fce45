package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	authDomain "it-network/internal/domain/auth"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// AuthRepo 提供使用者與 refresh session 的存取。
type AuthRepo struct {
	db *sql.DB
}

// NewAuthRepo 建立 AuthRepo。
func NewAuthRepo(db *sql.DB) *AuthRepo {
	return &AuthRepo{db: db}
}

const userColumns = `id, login_id, email, display_name, password_hash, role, status, created_at`

func scanUser(row *sql.Row) (authDomain.User, error) {
	var u authDomain.User
	var role, status string
	err := row.Scan(&u.ID, &u.LoginID, &u.Email, &u.Name, &u.Password, &role, &status, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return authDomain.User{}, authDomain.ErrUserNotFound
	}
	if err != nil {
		return authDomain.User{}, err
	}
	u.Role = authDomain.Role(role)
	u.Status = authDomain.Status(status)
	return u, nil
}

// FindByEmail 依 email 查詢使用者。
func (r *AuthRepo) FindByEmail(ctx context.Context, email string) (authDomain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1;`
	return scanUser(r.db.QueryRowContext(ctx, q, email))
}

// FindByID 依 ID 查詢使用者。
func (r *AuthRepo) FindByID(ctx context.Context, id string) (authDomain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1;`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

// FindByLoginID 依登入帳號查詢使用者。
func (r *AuthRepo) FindByLoginID(ctx context.Context, loginID string) (authDomain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE login_id = $1 LIMIT 1;`
	return scanUser(r.db.QueryRowContext(ctx, q, loginID))
}

// CreateUser 新增使用者，唯一鍵衝突轉成 domain 錯誤。
func (r *AuthRepo) CreateUser(ctx context.Context, u authDomain.User) error {
	const q = `
INSERT INTO users (id, login_id, email, display_name, password_hash, role, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.LoginID, u.Email, u.Name, u.Password, string(u.Role), string(u.Status), u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "login_id") {
			return authDomain.ErrLoginIDTaken
		}
		return authDomain.ErrEmailTaken
	}
	return err
}

// SaveSession 寫入 refresh session。
func (r *AuthRepo) SaveSession(ctx context.Context, sess authDomain.Session) error {
	const q = `
INSERT INTO auth_sessions (token_hash, user_id, expires_at, user_agent, ip_address, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.db.ExecContext(ctx, q, sess.TokenHash, sess.UserID, sess.ExpiresAt, sess.UserAgent, sess.IPAddress, sess.CreatedAt)
	return err
}

// GetSession 依 token 雜湊查詢 session。
func (r *AuthRepo) GetSession(ctx context.Context, tokenHash string) (authDomain.Session, error) {
	const q = `
SELECT token_hash, user_id, expires_at, revoked_at, COALESCE(replaced_by, ''), user_agent, ip_address, created_at
FROM auth_sessions
WHERE token_hash = $1;
`
	var sess authDomain.Session
	var revoked sql.NullTime
	err := r.db.QueryRowContext(ctx, q, tokenHash).Scan(
		&sess.TokenHash, &sess.UserID, &sess.ExpiresAt, &revoked, &sess.ReplacedBy, &sess.UserAgent, &sess.IPAddress, &sess.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return authDomain.Session{}, authDomain.ErrSessionNotFound
	}
	if err != nil {
		return authDomain.Session{}, err
	}
	if revoked.Valid {
		t := revoked.Time
		sess.RevokedAt = &t
	}
	return sess, nil
}

// RevokeSession 作廢 session，replacedBy 非空代表被輪替。
func (r *AuthRepo) RevokeSession(ctx context.Context, tokenHash string, replacedBy string) error {
	const q = `
UPDATE auth_sessions
SET revoked_at = COALESCE(revoked_at, NOW()), replaced_by = NULLIF($2, '')
WHERE token_hash = $1;
`
	res, err := r.db.ExecContext(ctx, q, tokenHash, replacedBy)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return authDomain.ErrSessionNotFound
	}
	return nil
}
