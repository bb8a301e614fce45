package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"it-network/internal/application/board"
	authDomain "it-network/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

// userInfo 為前端沿用的使用者欄位名稱。
type userInfo struct {
	ID    string `json:"user_id"`
	Name  string `json:"user_nm"`
	Email string `json:"email"`
}

func toUserInfo(u authDomain.User) userInfo {
	return userInfo{ID: u.LoginID, Name: u.Name, Email: u.Email}
}

func isLocalHost(r *http.Request) bool {
	host := r.Host
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return host == "localhost" || host == "127.0.0.1"
}

func (s *Server) setRefreshCookie(c *gin.Context, token string, expiry time.Time) {
	maxAge := int(time.Until(expiry).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		refreshCookieName,
		token,
		maxAge,
		refreshCookiePath,
		"",
		!isLocalHost(c.Request), // Secure: only if not local
		true,                    // HttpOnly
	)
}

func (s *Server) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", !isLocalHost(c.Request), true)
}

func parseBearer(h string) string {
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func currentUserID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// currentWriter 讀取 requireAuth 放入的使用者並組成作者資訊。
func (s *Server) currentWriter(c *gin.Context) (board.Writer, bool) {
	uid := currentUserID(c)
	if uid == "" {
		return board.Writer{}, false
	}
	u, err := s.authRepo.FindByID(c.Request.Context(), uid)
	if err != nil {
		return board.Writer{}, false
	}
	return board.Writer{UID: u.ID, LoginID: u.LoginID, Name: u.Name}, true
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
