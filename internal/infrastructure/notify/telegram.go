package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"it-network/internal/domain/board"
)

// TelegramClient 提供簡單的 sendMessage API 封裝，並負責新貼文公告。
type TelegramClient struct {
	token      string
	chatID     int64
	prefix     string
	siteURL    string
	baseURL    string
	httpClient *http.Client
}

func NewTelegramClient(token string, chatID int64, prefix, siteURL string) *TelegramClient {
	return &TelegramClient{
		token:   token,
		chatID:  chatID,
		prefix:  prefix,
		siteURL: strings.TrimRight(siteURL, "/"),
		baseURL: "https://api.telegram.org",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendMessage 將文字訊息推送到指定 chat。
func (c *TelegramClient) SendMessage(ctx context.Context, text string) error {
	if c == nil {
		return fmt.Errorf("telegram client is nil")
	}
	if c.token == "" || c.chatID == 0 {
		return fmt.Errorf("telegram token or chat_id missing")
	}

	fullText := text
	if c.prefix != "" {
		fullText = fmt.Sprintf("[%s] %s", c.prefix, text)
	}

	payload := map[string]interface{}{
		"chat_id": c.chatID,
		"text":    fullText,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram send failed status=%d body=%s", resp.StatusCode, string(raw))
	}
	return nil
}

// AnnouncePost 公告新貼文標題與連結。
func (c *TelegramClient) AnnouncePost(ctx context.Context, b board.Board) error {
	return c.SendMessage(ctx, FormatPost(b, c.siteURL))
}

// FormatPost 產生公告文字，siteURL 為空時不附連結。
func FormatPost(b board.Board, siteURL string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "새 글: %s", b.Title)
	if siteURL != "" {
		fmt.Fprintf(&sb, "\n%s/boards/%d", siteURL, b.ID)
	}
	return sb.String()
}
