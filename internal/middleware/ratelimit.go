package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"vabboost/internal/pkg/logger"
	"vabboost/internal/pkg/response"
)

// Sliding window over a sorted set of request timestamps.
// KEYS[1]=key, ARGV: now_ms, window_start_ms, window_ms, member, limit.
// Returns the request count including this one, or -1 when over the limit.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
redis.call('ZREMRANGEBYSCORE', key, '0', ARGV[2])
local count = redis.call('ZCARD', key)
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, ARGV[1], ARGV[4])
  redis.call('PEXPIRE', key, ARGV[3])
  return count + 1
end
return -1
`)

// RateLimit limits requests per client IP under scope. A nil client or a
// Redis failure lets the request through.
func RateLimit(rdb redis.Scripter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		now := time.Now()
		key := fmt.Sprintf("ratelimit:%s:ip:%s", scope, c.ClientIP())
		nowMs := now.UnixMilli()
		res, err := slidingWindow.Run(c.Request.Context(), rdb, []string{key},
			nowMs, nowMs-window.Milliseconds(), window.Milliseconds(),
			strconv.FormatInt(now.UnixNano(), 10), limit).Int()
		if err != nil {
			logger.Logger.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if res < 0 {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Abort(c, http.StatusTooManyRequests, response.CodeRateLimited, "Too many requests, try again later")
			return
		}
		c.Next()
	}
}
