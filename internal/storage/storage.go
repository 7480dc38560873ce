package storage

import (
	"context"

	"github.com/LepisevKalisey/tgproxy/internal/models"
)

// Storage is the record store for users and threads. Lookups return
// (nil, nil) when no record exists; any other failure must propagate to the
// caller, since a silently lost thread mapping misroutes every later
// message.
type Storage interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	// UpsertUser inserts the user or merges the identity fields into the
	// existing record, refreshing UpdatedAt.
	UpsertUser(ctx context.Context, user *models.User) error

	GetThreadByUser(ctx context.Context, userID int64) (*models.Thread, error)
	GetThreadByID(ctx context.Context, threadID int64) (*models.Thread, error)
	// SaveThread inserts the thread or merges it into the existing record,
	// refreshing UpdatedAt and preserving CreatedAt on update.
	SaveThread(ctx context.Context, thread *models.Thread) error

	Close() error
}
