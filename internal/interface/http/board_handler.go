package httpapi

import (
	"errors"
	"log"
	"net/http"

	"it-network/internal/application/board"
	boardDomain "it-network/internal/domain/board"

	"github.com/gin-gonic/gin"
)

type createCommentRequest struct {
	PostID  int64  `json:"postId"`
	Content string `json:"content"`
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleListBoards(c *gin.Context) {
	page := parseIntDefault(c.Query("page"), 0)
	size := parseIntDefault(c.Query("size"), boardDomain.DefaultPageSize)
	out, err := s.boards.List(c.Request.Context(), page, size)
	if err != nil {
		s.boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetBoard(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "invalid board id")
		return
	}
	b, err := s.boards.Get(c.Request.Context(), id)
	if err != nil {
		s.boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) handleCreateBoard(c *gin.Context) {
	writer, ok := s.currentWriter(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, errCodeUnauthorized, "unauthorized")
		return
	}
	var draft boardDomain.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}
	b, err := s.boards.Create(c.Request.Context(), writer, draft)
	if err != nil {
		s.boardError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (s *Server) handleListComments(c *gin.Context) {
	postID, ok := parseID(c.Query("postId"))
	if !ok {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "postId required")
		return
	}
	items, err := s.comments.List(c.Request.Context(), postID)
	if err != nil {
		s.boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handleCreateComment(c *gin.Context) {
	writer, ok := s.currentWriter(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, errCodeUnauthorized, "unauthorized")
		return
	}
	var body createCommentRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.PostID <= 0 {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}
	out, err := s.comments.Create(c.Request.Context(), writer, body.PostID, body.Content)
	if err != nil {
		s.boardError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) handleUpdateComment(c *gin.Context) {
	writer, ok := s.currentWriter(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, errCodeUnauthorized, "unauthorized")
		return
	}
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "invalid comment id")
		return
	}
	var body updateCommentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}
	out, err := s.comments.Update(c.Request.Context(), writer, id, body.Content)
	if err != nil {
		s.boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleDeleteComment(c *gin.Context) {
	writer, ok := s.currentWriter(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, errCodeUnauthorized, "unauthorized")
		return
	}
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "invalid comment id")
		return
	}
	if err := s.comments.Delete(c.Request.Context(), writer, id); err != nil {
		s.boardError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// boardError 將 board 領域錯誤對應到 HTTP 狀態碼。
func (s *Server) boardError(c *gin.Context, err error) {
	switch {
	case board.IsNotFound(err):
		writeError(c, http.StatusNotFound, errCodeNotFound, err.Error())
	case errors.Is(err, boardDomain.ErrNotCommentAuthor):
		writeError(c, http.StatusForbidden, errCodeForbidden, err.Error())
	case errors.Is(err, boardDomain.ErrTitleRequired),
		errors.Is(err, boardDomain.ErrTitleTooLong),
		errors.Is(err, boardDomain.ErrContentRequired),
		errors.Is(err, boardDomain.ErrCommentEmpty):
		writeError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
	default:
		log.Printf("[Board] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		writeError(c, http.StatusInternalServerError, errCodeInternal, "internal error")
	}
}
