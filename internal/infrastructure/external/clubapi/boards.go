package clubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"it-network/internal/domain/board"
)

// Doer 送出請求；正式環境傳入 *session.Manager，自動帶 token 與 refresh。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError 資源端點回傳非 2xx。
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("club api error (status %d): %s", e.Status, e.Message)
}

// BoardClient 存取貼文與留言。
type BoardClient struct {
	baseURL string
	doer    Doer
}

// NewBoardClient baseURL 指向 /api 前綴，例如 http://localhost:9999/api。
func NewBoardClient(baseURL string, doer Doer) *BoardClient {
	return &BoardClient{baseURL: strings.TrimRight(baseURL, "/"), doer: doer}
}

func (c *BoardClient) ListBoards(ctx context.Context, page, size int) (board.Page, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	var out board.Page
	err := c.call(ctx, http.MethodGet, "/boards?"+params.Encode(), nil, &out)
	return out, err
}

func (c *BoardClient) GetBoard(ctx context.Context, id int64) (board.Board, error) {
	var out board.Board
	err := c.call(ctx, http.MethodGet, "/boards/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

func (c *BoardClient) CreateBoard(ctx context.Context, draft board.Draft) (board.Board, error) {
	var out board.Board
	if err := draft.Validate(); err != nil {
		return out, err
	}
	err := c.call(ctx, http.MethodPost, "/boards", draft, &out)
	return out, err
}

func (c *BoardClient) ListComments(ctx context.Context, postID int64) ([]board.Comment, error) {
	var out []board.Comment
	err := c.call(ctx, http.MethodGet, "/comments?postId="+strconv.FormatInt(postID, 10), nil, &out)
	return out, err
}

func (c *BoardClient) CreateComment(ctx context.Context, postID int64, content string) (board.Comment, error) {
	var out board.Comment
	if err := board.ValidateCommentContent(content); err != nil {
		return out, err
	}
	payload := map[string]any{"postId": postID, "content": content}
	err := c.call(ctx, http.MethodPost, "/comments", payload, &out)
	return out, err
}

func (c *BoardClient) UpdateComment(ctx context.Context, id int64, content string) (board.Comment, error) {
	var out board.Comment
	if err := board.ValidateCommentContent(content); err != nil {
		return out, err
	}
	payload := map[string]string{"content": content}
	err := c.call(ctx, http.MethodPatch, "/comments/"+strconv.FormatInt(id, 10), payload, &out)
	return out, err
}

func (c *BoardClient) DeleteComment(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, "/comments/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *BoardClient) call(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: serverMessage(data, http.StatusText(resp.StatusCode))}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
