package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seniorchoi/gigagig/internal/message"
)

func (s *APIServer) handleSendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req message.SendRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := s.messages.Send(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, "send_message", err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (s *APIServer) handleInbox(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	resp, err := s.messages.Inbox(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleError(c, "inbox", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *APIServer) handleSent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	resp, err := s.messages.Sent(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleError(c, "sent_messages", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
