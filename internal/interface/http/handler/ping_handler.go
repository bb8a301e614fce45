package handler

import (
	"encoding/json"
	"net/http"
)

// Ping 是掛在 /ping 的 club API 存活檢查，不經過 gin 中介層也不需登入。
// 回應內容在建立時就固定，HEAD 只回標頭。
func Ping(service string) http.Handler {
	body, _ := json.Marshal(map[string]string{"message": "pong", "service": service})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
		default:
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	})
}
