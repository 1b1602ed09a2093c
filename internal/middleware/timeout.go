package middleware

import (
	"fmt"
	"net/http"
	"time"
)

// Timeout bounds request handling. Uses http.TimeoutHandler so the late
// handler's writes are discarded instead of racing the timeout response.
func Timeout(timeout time.Duration) func(next http.Handler) http.Handler {
	body := fmt.Sprintf(`{"error":%q,"message":"Request timeout"}`, ErrorCodeRequestTimeout)
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, body)
	}
}
