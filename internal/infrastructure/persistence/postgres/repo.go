package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	boardDomain "it-network/internal/domain/board"
)

// Repo 提供貼文與留言的 Postgres 存取。
type Repo struct {
	db *sql.DB
}

// NewRepo 建立 Postgres 資料存取實例。
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// ListBoards 依建立時間新到舊分頁，並回傳總數。
func (r *Repo) ListBoards(ctx context.Context, offset, limit int) ([]boardDomain.Board, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM boards;`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count boards: %w", err)
	}

	const q = `
SELECT id, title, content, author_id, created_at
FROM boards
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;
`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []boardDomain.Board{}
	for rows.Next() {
		var b boardDomain.Board
		if err := rows.Scan(&b.ID, &b.Title, &b.Content, &b.AuthorID, &b.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// GetBoard 依 ID 取得貼文。
func (r *Repo) GetBoard(ctx context.Context, id int64) (boardDomain.Board, error) {
	const q = `SELECT id, title, content, author_id, created_at FROM boards WHERE id = $1;`
	var b boardDomain.Board
	err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Title, &b.Content, &b.AuthorID, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return boardDomain.Board{}, boardDomain.ErrBoardNotFound
	}
	return b, err
}

// CreateBoard 新增貼文並回填 ID。
func (r *Repo) CreateBoard(ctx context.Context, b boardDomain.Board) (boardDomain.Board, error) {
	const q = `
INSERT INTO boards (title, content, author_id, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id;
`
	if err := r.db.QueryRowContext(ctx, q, b.Title, b.Content, b.AuthorID, b.CreatedAt).Scan(&b.ID); err != nil {
		return boardDomain.Board{}, err
	}
	return b, nil
}

const commentSelect = `
SELECT c.id, c.post_id, c.content, c.reg_date, c.upd_date, c.writer_id, u.login_id, u.display_name
FROM comments c
JOIN users u ON u.id = c.writer_id
`

func scanComment(scan func(dest ...any) error) (boardDomain.Comment, error) {
	var c boardDomain.Comment
	err := scan(&c.ID, &c.PostID, &c.Content, &c.RegDate, &c.UpdDate, &c.WriterUID, &c.WriterID, &c.WriterName)
	return c, err
}

// ListComments 依留言時間排序。
func (r *Repo) ListComments(ctx context.Context, postID int64) ([]boardDomain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, commentSelect+`WHERE c.post_id = $1 ORDER BY c.reg_date ASC, c.id ASC;`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []boardDomain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) GetComment(ctx context.Context, id int64) (boardDomain.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, commentSelect+`WHERE c.id = $1;`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return boardDomain.Comment{}, boardDomain.ErrCommentNotFound
	}
	return c, err
}

func (r *Repo) CreateComment(ctx context.Context, c boardDomain.Comment) (boardDomain.Comment, error) {
	const q = `
INSERT INTO comments (post_id, content, writer_id, reg_date, upd_date)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;
`
	if err := r.db.QueryRowContext(ctx, q, c.PostID, c.Content, c.WriterUID, c.RegDate, c.UpdDate).Scan(&c.ID); err != nil {
		return boardDomain.Comment{}, err
	}
	return c, nil
}

func (r *Repo) UpdateComment(ctx context.Context, c boardDomain.Comment) error {
	res, err := r.db.ExecContext(ctx, `UPDATE comments SET content = $2, upd_date = $3 WHERE id = $1;`, c.ID, c.Content, c.UpdDate)
	return affectedOrNotFound(res, err)
}

func (r *Repo) DeleteComment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1;`, id)
	return affectedOrNotFound(res, err)
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return boardDomain.ErrCommentNotFound
	}
	return nil
}
