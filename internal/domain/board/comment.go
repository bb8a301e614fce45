package board

import (
	"errors"
	"strings"
	"time"
)

// Comment 貼文留言。WriterUID 是作者的系統 uid，WriterID 是登入帳號。
type Comment struct {
	ID         int64     `json:"id"`
	PostID     int64     `json:"postId,omitempty"`
	Content    string    `json:"content"`
	RegDate    time.Time `json:"regDate"`
	UpdDate    time.Time `json:"updDate"`
	WriterUID  string    `json:"writerUid"`
	WriterID   string    `json:"writerId"`
	WriterName string    `json:"writerName"`
}

// DisplayName 優先顯示名稱，其次帳號。
func (c Comment) DisplayName() string {
	if c.WriterName != "" {
		return c.WriterName
	}
	if c.WriterID != "" {
		return c.WriterID
	}
	return "anonymous"
}

// Edited reports whether the comment was changed after it was posted.
func (c Comment) Edited() bool {
	return c.UpdDate.After(c.RegDate)
}

// ValidateCommentContent 檢查留言內容。
func ValidateCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrCommentEmpty
	}
	return nil
}

var (
	ErrCommentEmpty     = errors.New("comment content is required")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrNotCommentAuthor = errors.New("only the author can modify this comment")
)
