package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seniorchoi/gigagig/internal/auth"
	"github.com/seniorchoi/gigagig/internal/logging"
)

// handleRegister handles user registration
func (s *APIServer) handleRegister(c *gin.Context) {
	var req auth.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.auth.Register(c.Request.Context(), &req)
	if err != nil {
		handleError(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// handleLogin handles user login
func (s *APIServer) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.auth.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logging.LogSecurityEvent("login_failed", "", c.ClientIP(), logging.SanitizeForLog(req.Login, 64))
		}
		handleError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleRefresh exchanges a refresh token for a new token pair
func (s *APIServer) handleRefresh(c *gin.Context) {
	var req auth.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	tokens, err := s.auth.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handleError(c, "refresh", err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

func (s *APIServer) handleGetMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := s.auth.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, "get_me", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *APIServer) handleUpdateMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req auth.ProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := s.auth.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, "update_me", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// handleGetProfile returns the public view of any user
func (s *APIServer) handleGetProfile(c *gin.Context) {
	profile, err := s.auth.GetPublicProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		handleError(c, "get_profile", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
