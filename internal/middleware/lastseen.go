package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/seniorchoi/gigagig/internal/logging"
)

const lastSeenInterval = time.Minute

// Toucher records user activity
type Toucher interface {
	TouchLastSeen(ctx context.Context, userID uuid.UUID) error
}

// Throttle admits a key at most once per ttl
type Throttle interface {
	SetOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// LastSeen updates the caller's last_seen at most once a minute. It must run
// after JWTAuth. With a nil throttle every request writes.
func LastSeen(toucher Toucher, throttle Throttle) gin.HandlerFunc {
	logger := logging.NewLogger("lastseen")
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		due := true
		if throttle != nil {
			first, err := throttle.SetOnce(ctx, "lastseen:"+userID.String(), lastSeenInterval)
			if err != nil {
				logger.Warn().Err(err).Msg("Last-seen throttle unavailable")
			} else {
				due = first
			}
		}
		if due {
			if err := toucher.TouchLastSeen(ctx, userID); err != nil {
				logger.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to update last seen")
			}
		}

		c.Next()
	}
}
