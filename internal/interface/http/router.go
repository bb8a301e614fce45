package httpapi

import (
	"it-network/internal/application/auth"
	"it-network/internal/interface/http/handler"

	"github.com/gin-gonic/gin"
)

func (s *Server) newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.ginLogger(), corsMiddleware(s.origins))

	r.GET("/ping", gin.WrapH(handler.Ping(serviceName)))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", s.handleSignup)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/refresh", s.handleRefresh)
		authGroup.POST("/logout", s.handleLogout)
	}

	api := r.Group("/api")
	{
		api.GET("/ping", s.handlePing)
		api.GET("/health", s.handleHealth)

		api.GET("/boards", s.handleListBoards)
		api.GET("/boards/:id", s.handleGetBoard)
		api.POST("/boards", s.requireAuth(auth.PermBoardWrite), s.handleCreateBoard)

		api.GET("/comments", s.handleListComments)
		api.POST("/comments", s.requireAuth(auth.PermCommentWrite), s.handleCreateComment)
		api.PATCH("/comments/:id", s.requireAuth(auth.PermCommentWrite), s.handleUpdateComment)
		api.DELETE("/comments/:id", s.requireAuth(auth.PermCommentWrite), s.handleDeleteComment)

		api.GET("/me", s.requireAuth(""), s.handleMe)
		api.GET("/admin/health", s.requireAuth(auth.PermSystemHealth), s.handleHealth)
	}
	return r
}
