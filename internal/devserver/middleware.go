package devserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/common"
	"github.com/dmitrijs2005/udinflow/internal/logging"
	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if uid := c.GetString(ctxUserID); uid != "" {
			args = append(args, "user_id", uid)
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}
		log.Info(c.Request.Context(), "request", args...)
	}
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeader)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			fail(c, http.StatusUnauthorized, "authentication required")
			return
		}
		claims, err := ParseToken(strings.TrimPrefix(header, common.BearerPrefix), []byte(s.cfg.JWTSecret), s.now())
		if err != nil {
			fail(c, http.StatusUnauthorized, err.Error())
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != roleAdmin {
			fail(c, http.StatusForbidden, "admin access required")
			return
		}
		c.Next()
	}
}

// canAccess reports whether the caller may act on records owned by userID.
func canAccess(c *gin.Context, userID string) bool {
	return c.GetString(ctxRole) == roleAdmin || c.GetString(ctxUserID) == userID
}
