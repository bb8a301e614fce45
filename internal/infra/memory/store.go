package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	authDomain "it-network/internal/domain/auth"
	boardDomain "it-network/internal/domain/board"
)

// Store 為本機開發用的記憶體資料庫，實作 user/session/board/comment repository。
type Store struct {
	mu         sync.RWMutex
	users      map[string]authDomain.User
	sessions   map[string]authDomain.Session // token hash -> session
	boards     map[int64]boardDomain.Board
	comments   map[int64]boardDomain.Comment
	boardSeq   int64
	commentSeq int64
}

// NewStore 建立新的記憶體 Store 實例。
func NewStore() *Store {
	return &Store{
		users:    make(map[string]authDomain.User),
		sessions: make(map[string]authDomain.Session),
		boards:   make(map[int64]boardDomain.Board),
		comments: make(map[int64]boardDomain.Comment),
	}
}

// Hasher 產生密碼雜湊，SeedUsers 使用。
type Hasher interface {
	Hash(plain string) (string, error)
}

// SeedUsers 建立預設帳號供登入測試。
func (s *Store) SeedUsers(h Hasher) error {
	seeds := []authDomain.User{
		{ID: "seed-admin", LoginID: "admin", Name: "Admin", Email: "admin@example.com", Role: authDomain.RoleAdmin},
		{ID: "seed-member", LoginID: "member", Name: "Member", Email: "member@example.com", Role: authDomain.RoleMember},
	}
	for _, u := range seeds {
		hashed, err := h.Hash("password123")
		if err != nil {
			return err
		}
		u.Password = hashed
		u.Status = authDomain.StatusActive
		u.CreatedAt = time.Now()
		err = s.CreateUser(context.Background(), u)
		if err != nil && !errors.Is(err, authDomain.ErrEmailTaken) && !errors.Is(err, authDomain.ErrLoginIDTaken) {
			return err
		}
	}
	return nil
}

// UserRepository impl

func (s *Store) CreateUser(_ context.Context, user authDomain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return authDomain.ErrEmailTaken
		}
		if u.LoginID == user.LoginID {
			return authDomain.ErrLoginIDTaken
		}
	}
	s.users[user.ID] = user
	return nil
}

// FindByEmail 依 email 查詢使用者。
func (s *Store) FindByEmail(_ context.Context, email string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return authDomain.User{}, authDomain.ErrUserNotFound
}

func (s *Store) FindByLoginID(_ context.Context, loginID string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.LoginID == loginID {
			return u, nil
		}
	}
	return authDomain.User{}, authDomain.ErrUserNotFound
}

// FindByID 依 ID 查詢使用者。
func (s *Store) FindByID(_ context.Context, id string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return authDomain.User{}, authDomain.ErrUserNotFound
	}
	return u, nil
}

// SessionStore impl

func (s *Store) SaveSession(_ context.Context, sess authDomain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.TokenHash] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, tokenHash string) (authDomain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return authDomain.Session{}, authDomain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *Store) RevokeSession(_ context.Context, tokenHash string, replacedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return authDomain.ErrSessionNotFound
	}
	now := time.Now()
	sess.RevokedAt = &now
	sess.ReplacedBy = replacedBy
	s.sessions[tokenHash] = sess
	return nil
}

// BoardRepository impl

func (s *Store) ListBoards(_ context.Context, offset, limit int) ([]boardDomain.Board, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]boardDomain.Board, 0, len(s.boards))
	for _, b := range s.boards {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	if offset >= total {
		return []boardDomain.Board{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *Store) GetBoard(_ context.Context, id int64) (boardDomain.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[id]
	if !ok {
		return boardDomain.Board{}, boardDomain.ErrBoardNotFound
	}
	return b, nil
}

func (s *Store) CreateBoard(_ context.Context, b boardDomain.Board) (boardDomain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boardSeq++
	b.ID = s.boardSeq
	s.boards[b.ID] = b
	return b, nil
}

// CommentRepository impl

func (s *Store) ListComments(_ context.Context, postID int64) ([]boardDomain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []boardDomain.Comment{}
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetComment(_ context.Context, id int64) (boardDomain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return boardDomain.Comment{}, boardDomain.ErrCommentNotFound
	}
	return c, nil
}

func (s *Store) CreateComment(_ context.Context, c boardDomain.Comment) (boardDomain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commentSeq++
	c.ID = s.commentSeq
	s.comments[c.ID] = c
	return c, nil
}

func (s *Store) UpdateComment(_ context.Context, c boardDomain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[c.ID]; !ok {
		return boardDomain.ErrCommentNotFound
	}
	s.comments[c.ID] = c
	return nil
}

func (s *Store) DeleteComment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return boardDomain.ErrCommentNotFound
	}
	delete(s.comments, id)
	return nil
}
