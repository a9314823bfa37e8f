package message

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/seniorchoi/gigagig/internal/logging"
	"github.com/seniorchoi/gigagig/internal/models"
	"github.com/seniorchoi/gigagig/internal/monitoring"
	"github.com/seniorchoi/gigagig/internal/notify"
)

// Service errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmptyBody    = errors.New("message body is required")
	ErrBodyTooLong  = errors.New("message body must be at most 500 characters")
	ErrSelfMessage  = errors.New("cannot send a message to yourself")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service sends and lists private messages
type Service struct {
	store    Store
	notifier notify.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new messaging service
func NewService(store Store, notifier notify.Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   logging.NewLogger("message"),
		now:      time.Now,
	}
}

// SendRequest represents a message to another user
type SendRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	Body      string `json:"body" binding:"required"`
}

// ListResponse represents a page of messages
type ListResponse struct {
	Messages   []models.Message `json:"messages"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// Send stores a message from senderID to the named recipient and emails them
func (s *Service) Send(ctx context.Context, senderID uuid.UUID, req *SendRequest) (*models.Message, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > models.MaxMessageLength {
		return nil, ErrBodyTooLong
	}

	sender, err := s.store.FindUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.store.FindUserByUsername(ctx, strings.TrimSpace(req.Recipient))
	if err != nil {
		return nil, err
	}
	if recipient.ID == sender.ID {
		return nil, ErrSelfMessage
	}

	m := &models.Message{
		ID:            uuid.New(),
		SenderID:      sender.ID,
		RecipientID:   recipient.ID,
		SenderName:    sender.Username,
		RecipientName: recipient.Username,
		Body:          body,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.Insert(ctx, m); err != nil {
		return nil, err
	}
	monitoring.RecordMessageSent()

	if s.notifier != nil {
		event, err := notify.MessageReceived(sender.Username, recipient.Username, recipient.Email, body)
		if err != nil {
			s.logger.Error().Err(err).Str("message_id", m.ID.String()).Msg("Failed to build notification")
		} else {
			s.notifier.Notify(ctx, event)
		}
	}
	return m, nil
}

// Inbox lists messages received by userID, newest first
func (s *Service) Inbox(ctx context.Context, userID uuid.UUID, page, pageSize int) (*ListResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	items, total, err := s.store.ListReceived(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return newListResponse(items, total, page, pageSize), nil
}

// Sent lists messages sent by userID, newest first
func (s *Service) Sent(ctx context.Context, userID uuid.UUID, page, pageSize int) (*ListResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	items, total, err := s.store.ListSent(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return newListResponse(items, total, page, pageSize), nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func newListResponse(items []models.Message, total int64, page, pageSize int) *ListResponse {
	if items == nil {
		items = []models.Message{}
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &ListResponse{
		Messages:   items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
