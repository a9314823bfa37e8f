package message_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/seniorchoi/gigagig/internal/message"
	"github.com/seniorchoi/gigagig/internal/models"
	"github.com/seniorchoi/gigagig/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]message.Party
	messages []models.Message
}

func (m *memStore) add(username string) uuid.UUID {
	id := uuid.New()
	m.users[id] = message.Party{ID: id, Username: username, Email: username + "@example.com"}
	return id
}

func (m *memStore) FindUser(_ context.Context, id uuid.UUID) (*message.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[id]
	if !ok {
		return nil, message.ErrUserNotFound
	}
	return &p, nil
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*message.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.users {
		if strings.EqualFold(p.Username, username) {
			p := p
			return &p, nil
		}
	}
	return nil, message.ErrUserNotFound
}

func (m *memStore) Insert(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memStore) list(match func(models.Message) bool, limit, offset int) ([]models.Message, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if match(msg) {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (m *memStore) ListReceived(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Message, int64, error) {
	return m.list(func(msg models.Message) bool { return msg.RecipientID == userID }, limit, offset)
}

func (m *memStore) ListSent(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Message, int64, error) {
	return m.list(func(msg models.Message) bool { return msg.SenderID == userID }, limit, offset)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestSendNotifiesRecipient(t *testing.T) {
	store := &memStore{users: map[uuid.UUID]message.Party{}}
	alice := store.add("alice")
	store.add("bob")
	n := &recordingNotifier{}
	svc := message.NewService(store, n)

	m, err := svc.Send(context.Background(), alice, &message.SendRequest{Recipient: "Bob", Body: "  Are you free Saturday?  "})
	require.NoError(t, err)
	assert.Equal(t, "Are you free Saturday?", m.Body)
	assert.Equal(t, "alice", m.SenderName)
	assert.Equal(t, "bob", m.RecipientName)

	require.Len(t, n.events, 1)
	e := n.events[0]
	assert.Equal(t, notify.EventMessageReceived, e.Type)
	assert.Equal(t, "bob@example.com", e.To)
	assert.Equal(t, "New message from alice", e.Subject)
	assert.Contains(t, e.HTML, "Are you free Saturday?")
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	store := &memStore{users: map[uuid.UUID]message.Party{}}
	alice := store.add("alice")
	store.add("bob")
	n := &recordingNotifier{}
	svc := message.NewService(store, n)

	_, err := svc.Send(ctx, alice, &message.SendRequest{Recipient: "bob", Body: "   "})
	assert.ErrorIs(t, err, message.ErrEmptyBody)

	_, err = svc.Send(ctx, alice, &message.SendRequest{Recipient: "bob", Body: strings.Repeat("é", 501)})
	assert.ErrorIs(t, err, message.ErrBodyTooLong)

	_, err = svc.Send(ctx, alice, &message.SendRequest{Recipient: "bob", Body: strings.Repeat("é", 500)})
	assert.NoError(t, err, "the limit counts characters, not bytes")

	_, err = svc.Send(ctx, alice, &message.SendRequest{Recipient: "carol", Body: "hi"})
	assert.ErrorIs(t, err, message.ErrUserNotFound)

	_, err = svc.Send(ctx, alice, &message.SendRequest{Recipient: "alice", Body: "note to self"})
	assert.ErrorIs(t, err, message.ErrSelfMessage)

	assert.Len(t, n.events, 1)
	assert.Len(t, store.messages, 1)
}

func TestInboxAndSent(t *testing.T) {
	ctx := context.Background()
	store := &memStore{users: map[uuid.UUID]message.Party{}}
	alice := store.add("alice")
	bob := store.add("bob")
	svc := message.NewService(store, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Send(ctx, alice, &message.SendRequest{Recipient: "bob", Body: "ping"})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	last, err := svc.Send(ctx, bob, &message.SendRequest{Recipient: "alice", Body: "pong"})
	require.NoError(t, err)

	inbox, err := svc.Inbox(ctx, bob, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), inbox.Total)
	assert.Equal(t, 2, inbox.TotalPages)
	assert.Len(t, inbox.Messages, 2)
	assert.True(t, !inbox.Messages[0].CreatedAt.Before(inbox.Messages[1].CreatedAt), "newest first")

	sent, err := svc.Sent(ctx, bob, 0, 0)
	require.NoError(t, err)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, last.ID, sent.Messages[0].ID)
	assert.Equal(t, 20, sent.PageSize)

	empty, err := svc.Inbox(ctx, uuid.New(), 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty.Messages)
	assert.Empty(t, empty.Messages)
}
