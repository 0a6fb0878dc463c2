package debug

import (
	"log"
	"net/http"
	"time"
)

// statusRecorder captures the status code and body size written by the
// wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// LoggingMiddleware logs every request and response and feeds the debug
// metrics while debug mode is enabled. With debug off it forwards
// straight to next.
//
// Sample output for a traceability query:
//
//	[DEBUG] Request: method=GET path=/api/query remote=127.0.0.1:54321
//	[DEBUG] Response: method=GET path=/api/query status=200 size=1234 duration=45.2ms
func LoggingMiddleware(debugConfig *DebugConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !debugConfig.IsEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		log.Printf("[DEBUG] Request: method=%s path=%s remote=%s", r.Method, r.URL.Path, r.RemoteAddr)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		log.Printf("[DEBUG] Response: method=%s path=%s status=%d size=%d duration=%v",
			r.Method, r.URL.Path, rec.status, rec.bytes, duration)

		debugConfig.RecordRequest(r.URL.Path, duration)
	})
}
