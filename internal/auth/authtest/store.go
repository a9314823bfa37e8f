// Package authtest provides an in-memory auth.Store for tests.
package authtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/seniorchoi/gigagig/internal/auth"
	"github.com/seniorchoi/gigagig/internal/models"
)

// Store keeps users in a map
type Store struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{users: map[uuid.UUID]models.User{}}
}

// LastSeen returns the recorded activity time for id
func (s *Store) LastSeen(id uuid.UUID) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id].LastSeen
}

func (s *Store) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return auth.ErrUsernameTaken
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return auth.ErrEmailAlreadyExists
		}
	}
	now := time.Now().UTC()
	u.ID = uuid.New()
	u.LastSeen, u.CreatedAt, u.UpdatedAt = now, now, now
	s.users[u.ID] = *u
	return nil
}

func (s *Store) find(match func(models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.ID == id })
}

func (s *Store) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.Username == username })
}

func (s *Store) GetByLogin(_ context.Context, login string) (*models.User, error) {
	return s.find(func(u models.User) bool {
		return u.Username == login || strings.EqualFold(u.Email, login)
	})
}

func (s *Store) UpdateProfile(_ context.Context, id uuid.UUID, aboutMe, profileImage string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	u.AboutMe, u.ProfileImage, u.UpdatedAt = aboutMe, profileImage, time.Now().UTC()
	s.users[id] = u
	return &u, nil
}

func (s *Store) TouchLastSeen(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.LastSeen = at
	s.users[id] = u
	return nil
}
