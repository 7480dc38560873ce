package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/LepisevKalisey/tgproxy/internal/models"
	"github.com/LepisevKalisey/tgproxy/internal/storage"
)

// TopicCreator opens a forum topic in the support group and returns the
// platform-assigned thread id.
type TopicCreator interface {
	CreateTopic(chatID int64, name string) (int64, error)
}

// Resolver maps a user to their thread, creating the thread on first
// contact. Check-then-create runs under a per-user mutex so concurrent
// first messages from the same user produce exactly one topic.
type Resolver struct {
	store      storage.Storage
	creator    TopicCreator
	logger     *zap.Logger
	groupID    int64
	titleLimit int

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(store storage.Storage, creator TopicCreator, groupID int64, titleLimit int, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:      store,
		creator:    creator,
		logger:     logger,
		groupID:    groupID,
		titleLimit: titleLimit,
		locks:      make(map[int64]*sync.Mutex),
	}
}

func (r *Resolver) userLock(userID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, exists := r.locks[userID]
	if !exists {
		lock = &sync.Mutex{}
		r.locks[userID] = lock
	}
	return lock
}

// ResolveOrCreate returns the user's thread, creating it on first contact.
// A returning user whose thread was closed gets the same thread reopened.
// On creation failure no record is persisted.
func (r *Resolver) ResolveOrCreate(ctx context.Context, user *models.User) (*models.Thread, error) {
	lock := r.userLock(user.ID)
	lock.Lock()
	defer lock.Unlock()

	thread, err := r.store.GetThreadByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up thread for user %d: %w", user.ID, err)
	}
	if thread != nil {
		if thread.IsArchived {
			thread.IsArchived = false
			if err := r.store.SaveThread(ctx, thread); err != nil {
				return nil, fmt.Errorf("failed to reopen thread %d: %w", thread.ThreadID, err)
			}
			r.logger.Info("Reopened archived thread",
				zap.Int64("thread_id", thread.ThreadID),
				zap.Int64("user_id", user.ID))
		}
		return thread, nil
	}

	title := r.topicTitle(user)
	threadID, err := r.creator.CreateTopic(r.groupID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic for user %d: %w", user.ID, err)
	}

	thread = &models.Thread{
		ThreadID: threadID,
		GroupID:  r.groupID,
		UserID:   user.ID,
		Title:    title,
	}
	if err := r.store.SaveThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to save thread %d: %w", threadID, err)
	}

	r.logger.Info("Created thread",
		zap.Int64("thread_id", threadID),
		zap.Int64("user_id", user.ID),
		zap.String("title", title))
	return thread, nil
}

func (r *Resolver) topicTitle(user *models.User) string {
	title := strings.TrimSpace(fmt.Sprintf("%s (%d)", user.DisplayName(), user.ID))
	return models.TruncateTitle(title, r.titleLimit)
}
