// Package postgres implements the task store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskflow/internal/models"
	"taskflow/internal/storage"
)

// Store is a storage.Store backed by a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn, verifies the connection and creates the tasks table.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres store ready")
	return s, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks one pooled connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
            id BIGSERIAL PRIMARY KEY,
            title TEXT NOT NULL,
            due_date DATE NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'COMPLETED'))
        )`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// ListTasks returns every task in the requested order.
func (s *Store) ListTasks(ctx context.Context, order storage.Order) ([]models.Task, error) {
	query := `SELECT id, title, due_date, created_at, status FROM tasks ORDER BY created_at DESC, id DESC`
	if order == storage.OrderDueAsc {
		query = `SELECT id, title, due_date, created_at, status FROM tasks ORDER BY due_date ASC, id ASC`
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		var (
			t   models.Task
			due time.Time
			st  string
		)
		if err := rows.Scan(&t.ID, &t.Title, &due, &t.CreatedAt, &st); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.DueDate = models.NewDate(due.Year(), due.Month(), due.Day())
		t.Status = models.Status(st)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTask inserts a new pending task.
func (s *Store) CreateTask(ctx context.Context, title string, due models.Date) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tasks(title, due_date, status) VALUES($1, $2::date, $3) RETURNING id`,
		title, due.String(), string(models.StatusPending)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return id, nil
}

// CompleteTask flips the task status to COMPLETED.
func (s *Store) CompleteTask(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tasks SET status = $1 WHERE id = $2`, string(models.StatusCompleted), id)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return expectRow(tag)
}

// UpdateTask overwrites the title and due date of a task.
func (s *Store) UpdateTask(ctx context.Context, id int64, title string, due models.Date) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tasks SET title = $1, due_date = $2::date WHERE id = $3`, title, due.String(), id)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return expectRow(tag)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectRow(tag)
}

func expectRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
