package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/LepisevKalisey/tgproxy/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT user_id, first_name, last_name, username, updated_at
		FROM users
		WHERE user_id = $1`

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %w", err)
	}

	return user, nil
}

func (s *PostgresStorage) UpsertUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (user_id, first_name, last_name, username, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name  = EXCLUDED.last_name,
			username   = EXCLUDED.username,
			updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, user.ID, user.FirstName, user.LastName, user.Username); err != nil {
		return fmt.Errorf("error upserting user: %w", err)
	}

	return nil
}

func (s *PostgresStorage) GetThreadByUser(ctx context.Context, userID int64) (*models.Thread, error) {
	return s.getThread(ctx, "user_id", userID)
}

func (s *PostgresStorage) GetThreadByID(ctx context.Context, threadID int64) (*models.Thread, error) {
	return s.getThread(ctx, "thread_id", threadID)
}

func (s *PostgresStorage) getThread(ctx context.Context, keyColumn string, key int64) (*models.Thread, error) {
	query := fmt.Sprintf(`
		SELECT thread_id, group_id, user_id, title, is_archived, created_at, updated_at
		FROM threads
		WHERE %s = $1`, keyColumn)

	thread := &models.Thread{}
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&thread.ThreadID,
		&thread.GroupID,
		&thread.UserID,
		&thread.Title,
		&thread.IsArchived,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying thread: %w", err)
	}

	return thread, nil
}

func (s *PostgresStorage) SaveThread(ctx context.Context, thread *models.Thread) error {
	query := `
		INSERT INTO threads (thread_id, group_id, user_id, title, is_archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (thread_id) DO UPDATE SET
			group_id    = EXCLUDED.group_id,
			user_id     = EXCLUDED.user_id,
			title       = EXCLUDED.title,
			is_archived = EXCLUDED.is_archived,
			updated_at  = NOW()`

	if _, err := s.db.ExecContext(ctx, query, thread.ThreadID, thread.GroupID, thread.UserID, thread.Title, thread.IsArchived); err != nil {
		return fmt.Errorf("error saving thread: %w", err)
	}

	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
