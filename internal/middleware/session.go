// Package middleware provides the session gate in front of moderation and
// admin operations. Session issuance belongs to the identity collaborator;
// this code only answers "is there a valid session".
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

const (
	headerAuth   = "Authorization"
	bearerPrefix = "Bearer "

	sessionSetKey = "sessions:active"
)

// TokenChecker validates a session token.
type TokenChecker interface {
	Valid(ctx context.Context, token string) (bool, error)
}

// RedisTokenChecker accepts tokens present in the identity collaborator's
// active-session set.
type RedisTokenChecker struct {
	rdb *redis.Client
}

// NewRedisTokenChecker creates a token checker over the shared redis
// instance.
func NewRedisTokenChecker(rdb *redis.Client) *RedisTokenChecker {
	return &RedisTokenChecker{rdb: rdb}
}

// Valid reports whether the token is in the active-session set.
func (c *RedisTokenChecker) Valid(ctx context.Context, token string) (bool, error) {
	return c.rdb.SIsMember(ctx, sessionSetKey, token).Result()
}

// StaticTokenChecker accepts a fixed token list from configuration, for
// deployments without the identity collaborator (and for tests).
type StaticTokenChecker struct {
	tokens []string
}

// NewStaticTokenChecker creates a checker over the given tokens. An empty
// list rejects everything.
func NewStaticTokenChecker(tokens []string) *StaticTokenChecker {
	valid := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			valid = append(valid, t)
		}
	}
	return &StaticTokenChecker{tokens: valid}
}

// Valid reports whether the token matches any configured token, in constant
// time per comparison.
func (c *StaticTokenChecker) Valid(_ context.Context, token string) (bool, error) {
	for _, t := range c.tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

// SessionAuth returns gin middleware that rejects requests without a valid
// bearer session token.
func SessionAuth(checker TokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.GetHeader(headerAuth))
		if token == "" {
			unauthorized(c)
			return
		}

		ok, err := checker.Valid(c.Request.Context(), token)
		if err != nil {
			logger.Log.Error("Session check failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session check unavailable"})
			return
		}
		if !ok {
			logger.Log.Warn("Unauthorized request - invalid or missing session token",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			unauthorized(c)
			return
		}

		c.Next()
	}
}

func extractToken(header string) string {
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	return ""
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}
