package httpapi

import (
	"net/http"
	"time"

	"it-network/internal/infrastructure/db"

	"github.com/gin-gonic/gin"
)

const serviceName = "club-api"

// handlePing 是經過 gin 中介層的存活檢查，會帶回 request ID。
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "pong",
		"service":    serviceName,
		"request_id": c.GetString("requestID"),
	})
}

// handleHealth 回報看板與帳號資料的存放位置；postgres 連不上時回 503。
func (s *Server) handleHealth(c *gin.Context) {
	storage, dbStatus := "memory", "skipped"
	status := http.StatusOK
	if s.db != nil {
		storage, dbStatus = "postgres", "ok"
		start := time.Now()
		if err := db.Ready(c.Request.Context(), s.db); err != nil {
			dbStatus = "error: " + err.Error()
			status = http.StatusServiceUnavailable
		}
		c.Header("X-DB-Latency", time.Since(start).String())
	}

	c.JSON(status, gin.H{
		"success":        status == http.StatusOK,
		"service":        serviceName,
		"storage":        storage,
		"db":             dbStatus,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}
