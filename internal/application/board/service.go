package board

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"it-network/internal"
	"it-network/internal/domain/board"
)

// BoardRepository 貼文儲存。
type BoardRepository interface {
	ListBoards(ctx context.Context, offset, limit int) ([]board.Board, int, error)
	GetBoard(ctx context.Context, id int64) (board.Board, error)
	CreateBoard(ctx context.Context, b board.Board) (board.Board, error)
}

// CommentRepository 留言儲存。
type CommentRepository interface {
	ListComments(ctx context.Context, postID int64) ([]board.Comment, error)
	GetComment(ctx context.Context, id int64) (board.Comment, error)
	CreateComment(ctx context.Context, c board.Comment) (board.Comment, error)
	UpdateComment(ctx context.Context, c board.Comment) error
	DeleteComment(ctx context.Context, id int64) error
}

// Announcer 新貼文通知（例如 Telegram）。
type Announcer interface {
	AnnouncePost(ctx context.Context, b board.Board) error
}

// Writer 目前登入的作者。
type Writer struct {
	UID     string
	LoginID string
	Name    string
}

// BoardService 貼文查詢與建立。
type BoardService struct {
	boards    BoardRepository
	announcer Announcer
	now       func() time.Time
}

func NewBoardService(boards BoardRepository, announcer Announcer) *BoardService {
	return &BoardService{boards: boards, announcer: announcer, now: time.Now}
}

// List 依建立時間新到舊分頁。
func (s *BoardService) List(ctx context.Context, page, size int) (board.Page, error) {
	page, size = board.NormalizePaging(page, size)
	items, total, err := s.boards.ListBoards(ctx, page*size, size)
	if err != nil {
		return board.Page{}, fmt.Errorf("list boards: %w", err)
	}
	if items == nil {
		items = []board.Board{}
	}
	return board.Page{Items: items, Total: total, Page: page, Size: size}, nil
}

func (s *BoardService) Get(ctx context.Context, id int64) (board.Board, error) {
	return s.boards.GetBoard(ctx, id)
}

func (s *BoardService) Create(ctx context.Context, author Writer, draft board.Draft) (board.Board, error) {
	if err := draft.Validate(); err != nil {
		return board.Board{}, err
	}
	created, err := s.boards.CreateBoard(ctx, board.Board{
		Title:     draft.Title,
		Content:   draft.Content,
		AuthorID:  author.UID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return board.Board{}, fmt.Errorf("create board: %w", err)
	}
	if !internal.IsNil(s.announcer) {
		if err := s.announcer.AnnouncePost(ctx, created); err != nil {
			log.Printf("[Board] announce post %d failed: %v", created.ID, err)
		}
	}
	return created, nil
}

// CommentService 留言 CRUD，修改與刪除限作者本人。
type CommentService struct {
	boards   BoardRepository
	comments CommentRepository
	now      func() time.Time
}

func NewCommentService(boards BoardRepository, comments CommentRepository) *CommentService {
	return &CommentService{boards: boards, comments: comments, now: time.Now}
}

func (s *CommentService) List(ctx context.Context, postID int64) ([]board.Comment, error) {
	if _, err := s.boards.GetBoard(ctx, postID); err != nil {
		return nil, err
	}
	items, err := s.comments.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if items == nil {
		items = []board.Comment{}
	}
	return items, nil
}

func (s *CommentService) Create(ctx context.Context, writer Writer, postID int64, content string) (board.Comment, error) {
	if err := board.ValidateCommentContent(content); err != nil {
		return board.Comment{}, err
	}
	if _, err := s.boards.GetBoard(ctx, postID); err != nil {
		return board.Comment{}, err
	}
	now := s.now()
	return s.comments.CreateComment(ctx, board.Comment{
		PostID:     postID,
		Content:    content,
		RegDate:    now,
		UpdDate:    now,
		WriterUID:  writer.UID,
		WriterID:   writer.LoginID,
		WriterName: writer.Name,
	})
}

func (s *CommentService) Update(ctx context.Context, writer Writer, id int64, content string) (board.Comment, error) {
	if err := board.ValidateCommentContent(content); err != nil {
		return board.Comment{}, err
	}
	c, err := s.owned(ctx, writer, id)
	if err != nil {
		return board.Comment{}, err
	}
	c.Content = content
	c.UpdDate = s.now()
	if err := s.comments.UpdateComment(ctx, c); err != nil {
		return board.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return c, nil
}

func (s *CommentService) Delete(ctx context.Context, writer Writer, id int64) error {
	if _, err := s.owned(ctx, writer, id); err != nil {
		return err
	}
	return s.comments.DeleteComment(ctx, id)
}

func (s *CommentService) owned(ctx context.Context, writer Writer, id int64) (board.Comment, error) {
	c, err := s.comments.GetComment(ctx, id)
	if err != nil {
		return board.Comment{}, err
	}
	if writer.UID == "" || c.WriterUID != writer.UID {
		return board.Comment{}, board.ErrNotCommentAuthor
	}
	return c, nil
}

// IsNotFound 判斷是否為貼文或留言不存在。
func IsNotFound(err error) bool {
	return errors.Is(err, board.ErrBoardNotFound) || errors.Is(err, board.ErrCommentNotFound)
}
