package storage

import (
	"context"
	"sync"
	"time"

	"github.com/LepisevKalisey/tgproxy/internal/models"
)

type MemoryStorage struct {
	mu            sync.RWMutex
	users         map[int64]*models.User
	threads       map[int64]*models.Thread
	threadsByUser map[int64]int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:         make(map[int64]*models.User),
		threads:       make(map[int64]*models.Thread),
		threadsByUser: make(map[int64]int64),
	}
}

func (s *MemoryStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStorage) UpsertUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.users[user.ID]
	if !exists {
		stored = &models.User{ID: user.ID}
		s.users[user.ID] = stored
	}
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.Username = user.Username
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStorage) GetThreadByUser(ctx context.Context, userID int64) (*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threadID, exists := s.threadsByUser[userID]
	if !exists {
		return nil, nil
	}
	copied := *s.threads[threadID]
	return &copied, nil
}

func (s *MemoryStorage) GetThreadByID(ctx context.Context, threadID int64) (*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, exists := s.threads[threadID]
	if !exists {
		return nil, nil
	}
	copied := *thread
	return &copied, nil
}

func (s *MemoryStorage) SaveThread(ctx context.Context, thread *models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored, exists := s.threads[thread.ThreadID]
	if !exists {
		stored = &models.Thread{
			ThreadID:  thread.ThreadID,
			CreatedAt: now,
		}
		if !thread.CreatedAt.IsZero() {
			stored.CreatedAt = thread.CreatedAt
		}
		s.threads[thread.ThreadID] = stored
	}
	stored.GroupID = thread.GroupID
	stored.UserID = thread.UserID
	stored.Title = thread.Title
	stored.IsArchived = thread.IsArchived
	stored.UpdatedAt = now
	s.threadsByUser[thread.UserID] = thread.ThreadID
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
