package httpapi

import (
	"github.com/gin-gonic/gin"
)

// errorResponse 是所有錯誤回應的格式；message 會原樣顯示給使用者。
type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, errorResponse{
		Success:   false,
		Error:     msg,
		ErrorCode: code,
		RequestID: c.GetString("requestID"),
	})
}

// abortError 給中介層用，寫完錯誤後不再往下走。
func abortError(c *gin.Context, status int, code, msg string) {
	writeError(c, status, code, msg)
	c.Abort()
}
