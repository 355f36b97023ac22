package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"camgate/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	token, expiresAt, err := s.auth.Authenticate(req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrAuthDisabled):
		c.JSON(http.StatusOK, gin.H{"auth_enabled": false})
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.log.Warn("failed login attempt", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid credentials"})
	case err != nil:
		s.fail(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{
			"auth_enabled": true,
			"token":        token,
			"expires_at":   expiresAt,
		})
	}
}

// handleLogout exists for dashboard symmetry. Tokens are stateless, so
// the client simply discards its copy.
func (s *Server) handleLogout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
