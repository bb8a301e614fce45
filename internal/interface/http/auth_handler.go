package httpapi

import (
	"errors"
	"log"
	"net/http"

	"it-network/internal/application/auth"
	authDomain "it-network/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	LoginID  string `json:"user_id"`
	Password string `json:"user_pw"`
	Name     string `json:"user_nm"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string   `json:"accessToken"`
	UserInfo    userInfo `json:"userInfo"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var body signupRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	user, err := s.signupUC.Execute(c.Request.Context(), auth.SignupInput{
		LoginID:  body.LoginID,
		Password: body.Password,
		Name:     body.Name,
		Email:    body.Email,
	})
	switch {
	case err == nil:
	case errors.Is(err, authDomain.ErrEmailTaken), errors.Is(err, authDomain.ErrLoginIDTaken):
		writeError(c, http.StatusConflict, errCodeConflict, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	default:
		log.Printf("[Auth] signup failure for %s: %v", body.Email, err)
		writeError(c, http.StatusInternalServerError, errCodeInternal, "signup failed")
		return
	}

	log.Printf("[Auth] signup %s (%s)", user.LoginID, user.Email)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "signup success"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	res, err := s.loginUC.Execute(c.Request.Context(), auth.LoginInput{
		Email:    body.Email,
		Password: body.Password,
		Meta: authDomain.TokenMeta{
			UserAgent: c.GetHeader("User-Agent"),
			IP:        c.ClientIP(),
		},
	})
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	case errors.Is(err, authDomain.ErrInvalidCredentials), errors.Is(err, authDomain.ErrUserInactive):
		log.Printf("[Auth] login failure for %s: %v", body.Email, err)
		writeError(c, http.StatusUnauthorized, errCodeInvalidCredentials, "invalid email or password")
		return
	default:
		log.Printf("[Auth] login error for %s: %v", body.Email, err)
		writeError(c, http.StatusInternalServerError, errCodeInternal, "login failed")
		return
	}

	s.setRefreshCookie(c, res.Token.RefreshToken, res.Token.RefreshExpiry)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: res.Token.AccessToken,
		UserInfo:    toUserInfo(res.User),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		writeError(c, http.StatusUnauthorized, errCodeUnauthorized, "refresh token missing")
		return
	}

	res, err := s.refresh.Execute(c.Request.Context(), refreshToken)
	if err != nil {
		log.Printf("[Auth] refresh rejected: %v", err)
		s.clearRefreshCookie(c)
		writeError(c, http.StatusUnauthorized, errCodeUnauthorized, "invalid refresh token")
		return
	}

	s.setRefreshCookie(c, res.Token.RefreshToken, res.Token.RefreshExpiry)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: res.Token.AccessToken,
		UserInfo:    toUserInfo(res.User),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshCookieName)
	if err := s.logoutUC.Execute(c.Request.Context(), refreshToken); err != nil {
		log.Printf("[Auth] logout revoke failed: %v", err)
	}
	s.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}

func (s *Server) handleMe(c *gin.Context) {
	u, err := s.authRepo.FindByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, http.StatusUnauthorized, errCodeUnauthorized, "unauthorized")
		return
	}
	c.JSON(http.StatusOK, toUserInfo(u))
}
