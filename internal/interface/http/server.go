package httpapi

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"it-network/internal/application/auth"
	"it-network/internal/application/board"
	authDomain "it-network/internal/domain/auth"
	"it-network/internal/infra/memory"
	authinfra "it-network/internal/infrastructure/auth"
	"it-network/internal/infrastructure/config"
	"it-network/internal/infrastructure/notify"
	"it-network/internal/infrastructure/persistence/postgres"

	"github.com/gin-gonic/gin"
)

const (
	seedTimeout       = 5 * time.Second
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/auth"
	defaultSecret     = "dev-secret-change-me"
)

const (
	errCodeBadRequest         = "BAD_REQUEST"
	errCodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	errCodeUnauthorized       = "AUTH_UNAUTHORIZED"
	errCodeForbidden          = "AUTH_FORBIDDEN"
	errCodeConflict           = "CONFLICT"
	errCodeNotFound           = "NOT_FOUND"
	errCodeInternal           = "INTERNAL_ERROR"
)

// Server 封裝 HTTP 路由與依賴。
type Server struct {
	engine   *gin.Engine
	store    *memory.Store
	db       *sql.DB
	authRepo auth.UserRepository
	tokenSvc *authinfra.JWTIssuer
	authz    *auth.Authorizer
	loginUC  *auth.LoginUseCase
	signupUC *auth.SignupUseCase
	refresh  *auth.RefreshUseCase
	logoutUC *auth.LogoutUseCase
	boards   *board.BoardService
	comments *board.CommentService
	origins  []string
	started  time.Time
}

// NewServer 建立 API 伺服器；db 為 nil 時使用記憶體存儲並建立預設帳號。
func NewServer(cfg config.Config, db *sql.DB) *Server {
	store := memory.NewStore()

	var (
		authRepo     auth.UserRepository
		sessionStore authDomain.SessionStore
		boardRepo    board.BoardRepository
		commentRepo  board.CommentRepository
	)
	if db != nil {
		ar := postgres.NewAuthRepo(db)
		repo := postgres.NewRepo(db)
		authRepo, sessionStore = ar, ar
		boardRepo, commentRepo = repo, repo
	} else {
		authRepo, sessionStore = store, store
		boardRepo, commentRepo = store, store
	}

	ttl := cfg.Auth.TokenTTL
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	refreshTTL := cfg.Auth.RefreshTTL
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	secret := cfg.Auth.Secret
	if secret == "" {
		secret = defaultSecret
	}

	hasher := authinfra.BcryptHasher{}
	tokenSvc := authinfra.NewJWTIssuer(secret, ttl, refreshTTL, sessionStore, authRepo)

	var announcer board.Announcer
	tg := cfg.Notifier.Telegram
	if tg.Enabled && tg.Token != "" && tg.ChatID != 0 {
		announcer = notify.NewTelegramClient(tg.Token, tg.ChatID, "[IT Network]", tg.SiteURL)
	}

	s := &Server{
		store:    store,
		db:       db,
		authRepo: authRepo,
		tokenSvc: tokenSvc,
		authz:    auth.NewAuthorizer(authRepo),
		loginUC:  auth.NewLoginUseCase(authRepo, hasher, tokenSvc),
		signupUC: auth.NewSignupUseCase(authRepo, hasher),
		refresh:  auth.NewRefreshUseCase(authRepo, tokenSvc),
		logoutUC: auth.NewLogoutUseCase(tokenSvc),
		boards:   board.NewBoardService(boardRepo, announcer),
		comments: board.NewCommentService(boardRepo, commentRepo),
		origins:  cfg.HTTP.AllowedOrigins,
		started:  time.Now(),
	}

	if db == nil || cfg.Auth.SeedUsers {
		ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
		defer cancel()
		if err := seedAuth(ctx, authRepo, hasher); err != nil {
			log.Printf("[Auth] warning: seed users failed: %v", err)
		}
	}

	s.engine = s.newEngine()
	return s
}

// Handler 回傳路由處理器，供 HTTP server 掛載。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store 主要用於測試注入初始資料。
func (s *Server) Store() *memory.Store {
	return s.store
}
