package database

import (
	"context"
	"sync"
	"time"

	"github.com/princinho/sahoauth/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryUserStore keeps users in process memory. Used for local runs and
// tests.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
	now   func() time.Time
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]models.User),
		now:   time.Now,
	}
}

func (s *MemoryUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicate
		}
	}

	if user.ID == "" {
		user.ID = bson.NewObjectID().Hex()
	}
	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryUserStore) UpdateFields(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Email != nil {
		for otherID, other := range s.users {
			if otherID != id && other.Email == *upd.Email {
				return nil, ErrDuplicate
			}
		}
	}

	upd.Apply(&u)
	u.UpdatedAt = s.now().UTC()
	s.users[id] = u
	return &u, nil
}

func (s *MemoryUserStore) SetRefreshToken(ctx context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.RefreshToken = token
	s.users[id] = u
	return nil
}

func (s *MemoryUserStore) SwapRefreshToken(ctx context.Context, id, expected, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	if expected == "" || u.RefreshToken != expected {
		return ErrStaleToken
	}
	u.RefreshToken = next
	s.users[id] = u
	return nil
}

func (s *MemoryUserStore) Close(context.Context) error { return nil }
