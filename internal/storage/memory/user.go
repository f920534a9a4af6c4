package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/travvy-ai/travvy-backend/internal/storage/postgres"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

// UserStore is an in-memory user store with unique emails.
type UserStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*types.User
	byEmail map[string]uuid.UUID
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[uuid.UUID]*types.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Create stores a user, enforcing email uniqueness.
func (s *UserStore) Create(ctx context.Context, user *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return postgres.ErrEmailTaken
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	s.users[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return nil
}

// GetByEmail returns a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	out := *s.users[id]
	return &out, nil
}

// GetByID returns a user by id.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	out := *user
	return &out, nil
}
