package middleware

import (
  "net/http"
  "strings"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/pramod/validator-backend/internal/logger"
)

const viewerIDKey = "viewer_id"

// IdentityMiddleware trusts the upstream auth proxy's X-User-ID header.
// Authentication itself happens before traffic reaches this service;
// here we only refuse requests that arrive without a resolved identity.
type IdentityMiddleware struct {
  log *logger.Logger
}

func NewIdentityMiddleware(log *logger.Logger) *IdentityMiddleware {
  middlewareLogger := log.With("Middleware", "IdentityMiddleware")
  return &IdentityMiddleware{log: middlewareLogger}
}

func (im *IdentityMiddleware) RequireViewer() gin.HandlerFunc {
  return func(c *gin.Context) {
    raw := strings.TrimSpace(c.GetHeader("X-User-ID"))
    if raw == "" {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing viewer identity"})
      return
    }
    viewerID, err := uuid.Parse(raw)
    if err != nil || viewerID == uuid.Nil {
      im.log.Debug("Rejected malformed viewer id", "error", err)
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid viewer identity"})
      return
    }
    c.Set(viewerIDKey, viewerID)
    c.Next()
  }
}

// ViewerID pulls the identity the middleware resolved for this request.
func ViewerID(c *gin.Context) uuid.UUID {
  val, ok := c.Get(viewerIDKey)
  if !ok {
    return uuid.Nil
  }
  id, ok := val.(uuid.UUID)
  if !ok {
    return uuid.Nil
  }
  return id
}
