// Package idempotency implements request idempotency on top of Redis.
// Responses to requests carrying an Idempotency-Key header are cached,
// so retried requests return the original response instead of being
// processed twice.
package idempotency

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Anshbajaj69/Expense-Sharing/internal/log"
)

const (
	// Header is the standard HTTP header carrying the idempotency key.
	Header = "Idempotency-Key"

	// cacheTTL defines how long responses are cached in Redis.
	cacheTTL = 24 * time.Hour

	// lockTimeout prevents indefinite locks if a request crashes mid-flight.
	lockTimeout = 10 * time.Second

	cacheKeyPrefix = "idempotency:"
	lockKeyPrefix  = "idempotency_lock:"
)

// responseRecorder captures the status code and body so a successful
// response can be stored in Redis.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Middleware returns idempotency middleware backed by the given Redis client.
// Requests without an Idempotency-Key header pass through untouched. A
// cached response is replayed with the X-Idempotency-Hit header set; a
// concurrent request with the same key gets 409 Conflict. Only 2xx
// responses are cached.
func Middleware(rdb *redis.Client) func(http.Handler) http.Handler {
	logger := slog.Default().With(log.FieldComponent, log.ComponentCache)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(Header)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cacheKey := cacheKeyPrefix + key
			lockKey := lockKeyPrefix + key

			cached, err := rdb.Get(ctx, cacheKey).Result()
			if err == nil {
				logger.InfoContext(ctx, "Idempotency cache hit", "key", key)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Hit", "true")
				w.Write([]byte(cached))
				return
			}
			if err != redis.Nil {
				logger.ErrorContext(ctx, "Idempotency cache lookup failed", log.FieldError, err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			acquired, err := rdb.SetNX(ctx, lockKey, "processing", lockTimeout).Result()
			if err != nil {
				logger.ErrorContext(ctx, "Idempotency lock acquisition failed", log.FieldError, err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !acquired {
				logger.WarnContext(ctx, "Concurrent request with same idempotency key", "key", key)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]string{
					"message": "a request with this idempotency key is currently being processed",
				})
				return
			}

			defer func() {
				if err := rdb.Del(ctx, lockKey).Err(); err != nil {
					logger.WarnContext(ctx, "Failed to release idempotency lock", log.FieldError, err)
				}
			}()

			recorder := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(recorder, r)

			if recorder.statusCode >= 200 && recorder.statusCode < 300 {
				if err := rdb.Set(ctx, cacheKey, recorder.body.String(), cacheTTL).Err(); err != nil {
					logger.WarnContext(ctx, "Failed to cache idempotent response", log.FieldError, err)
				}
			}
		})
	}
}
