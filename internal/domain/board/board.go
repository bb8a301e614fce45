package board

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength 標題字數上限。
const MaxTitleLength = 120

// Board 社團公告/貼文。
type Board struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorUid,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Draft 建立貼文的輸入。
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Validate 檢查標題與內容。
func (d Draft) Validate() error {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if strings.TrimSpace(d.Content) == "" {
		return ErrContentRequired
	}
	return nil
}

// Page 分頁結果，Page 從 0 起算。
type Page struct {
	Items []Board `json:"items"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Size  int     `json:"size"`
}

// TotalPages 依 Size 計算總頁數。
func (p Page) TotalPages() int {
	if p.Size <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.Size - 1) / p.Size
}

// NormalizePaging clamps page/size to sane values.
func NormalizePaging(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var (
	ErrTitleRequired   = errors.New("title is required")
	ErrTitleTooLong    = errors.New("title is too long")
	ErrContentRequired = errors.New("content is required")
	ErrBoardNotFound   = errors.New("board not found")
)
