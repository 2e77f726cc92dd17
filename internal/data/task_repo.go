package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/campuskit/courserestore/internal/data/pgxutil"
	"github.com/campuskit/courserestore/internal/domain/model"
)

// ErrTaskNotFound is returned when a task is not found.
var ErrTaskNotFound = errors.New("task not found")

// TaskRepoConfig holds configuration options for the task repository.
type TaskRepoConfig struct {
	RetryDelay   time.Duration
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// TaskRepo provides database operations for the deferred task queue.
type TaskRepo struct {
	DB           *sql.DB
	cfg          TaskRepoConfig
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewTaskRepo creates a new TaskRepo instance with the given database connection and configuration.
func NewTaskRepo(db *sql.DB, cfg TaskRepoConfig) *TaskRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &TaskRepo{
		DB:           db,
		cfg:          cfg,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const taskColumns = `
  id,
  type,
  status,
  payload,
  scheduled_at,
  started_at,
  completed_at,
  retry_count,
  max_retries,
  last_error,
  lease_expires_at,
  created_at,
  updated_at
`

const defaultRetryDelay = 30 * time.Second

func (r *TaskRepo) retryDelay() time.Duration {
	if r.cfg.RetryDelay > 0 {
		return r.cfg.RetryDelay
	}
	return defaultRetryDelay
}

// SQL used by ReserveNext to atomically reserve the next task.
const reserveNextTaskSQL = `
  WITH cte AS (
    SELECT id FROM restore_tasks
    WHERE type = $1 AND status = 'pending' AND scheduled_at <= $2
    ORDER BY scheduled_at ASC, created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE restore_tasks t
  SET
    status = 'running',
    started_at = COALESCE(t.started_at, $3),
    lease_expires_at = $4,
    updated_at = $5
  FROM cte
  WHERE t.id = cte.id
  RETURNING t.id, t.type, t.status, t.payload, t.scheduled_at, t.started_at, t.completed_at, t.retry_count, t.max_retries, t.last_error, t.lease_expires_at, t.created_at, t.updated_at`

type taskRowScanner interface {
	Scan(dest ...any) error
}

func scanTask(scanner taskRowScanner) (*model.Task, error) {
	var (
		task           model.Task
		payload        []byte
		startedAt      sql.NullTime
		completedAt    sql.NullTime
		leaseExpiresAt sql.NullTime
		lastError      sql.NullString
	)
	if err := scanner.Scan(
		&task.ID,
		&task.Type,
		&task.Status,
		&payload,
		&task.ScheduledAt,
		&startedAt,
		&completedAt,
		&task.RetryCount,
		&task.MaxRetries,
		&lastError,
		&leaseExpiresAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	task.Payload = append(task.Payload, payload...)
	task.StartedAt = nullableTime(startedAt)
	task.CompletedAt = nullableTime(completedAt)
	task.LeaseExpiresAt = nullableTime(leaseExpiresAt)
	task.LastError = nullableString(lastError)
	return &task, nil
}

func collectTaskFromRows(rows pgx.Rows) (*model.Task, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	task, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return task, nil
}

// Create enqueues a new task and notifies waiting workers.
func (r *TaskRepo) Create(ctx context.Context, req model.CreateTaskRequest) (*model.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var scheduledAt time.Time
	if req.ScheduledAt != nil {
		scheduledAt = req.ScheduledAt.UTC()
	} else {
		scheduledAt = r.timeProvider.Now().UTC()
	}

	var task *model.Task
	txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, `
				INSERT INTO restore_tasks (type, status, payload, scheduled_at, max_retries)
				VALUES ($1, 'pending', $2, $3, $4)
				RETURNING `+taskColumns,
				req.Type, []byte(req.Payload), scheduledAt, req.MaxRetries,
			)
			if err != nil {
				return fmt.Errorf("insert task: %w", err)
			}
			task, err = collectTaskFromRows(rows)
			rows.Close()
			if err != nil {
				return fmt.Errorf("collect task: %w", err)
			}

			channel := "task_added_" + string(req.Type)
			if _, execErr := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, channel, task.ID); execErr != nil {
				return fmt.Errorf("send task notification: %w", execErr)
			}
			return nil
		},
	})
	if txErr != nil {
		return nil, txErr
	}
	return task, nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepo) GetByID(ctx context.Context, id string) (*model.Task, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM restore_tasks
		WHERE id = $1
	`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Advisory lock namespace for requeueExpired to avoid cross-task-type contention.
const advisoryLockRequeueMajor int64 = 2001

func advisoryLockRequeueMinor(taskType model.TaskType) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(taskType))
	hashValue := h.Sum32()
	maxInt32 := uint32(math.MaxInt32)
	if hashValue > maxInt32 {
		hashValue &= maxInt32
	}
	return int64(hashValue)
}

// RequeueExpired returns expired leases of the given type back to pending.
func (r *TaskRepo) RequeueExpired(ctx context.Context, taskType model.TaskType) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			minorKey := advisoryLockRequeueMinor(taskType)
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)", advisoryLockRequeueMajor, minorKey).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			res, err := tx.ExecContext(ctx, `
				UPDATE restore_tasks
				SET status = 'pending', lease_expires_at = NULL
				WHERE type = $1 AND status = 'running'
				  AND lease_expires_at IS NOT NULL
				  AND lease_expires_at < $2
			`, taskType, currentTime.UTC())
			if err != nil {
				return fmt.Errorf("requeue expired: %w", err)
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// ReserveNext atomically claims the next runnable task of the given type.
func (r *TaskRepo) ReserveNext(ctx context.Context, taskType model.TaskType, leaseDuration time.Duration) (*model.Task, error) {
	if !taskType.Valid() {
		return nil, fmt.Errorf("invalid task type: %s", taskType)
	}

	if _, err := r.RequeueExpired(ctx, taskType); err != nil {
		return nil, fmt.Errorf("requeue expired tasks: %w", err)
	}

	var task *model.Task
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			currentTime := r.timeProvider.Now()
			leaseExpiresAt := currentTime.Add(leaseDuration)

			rows, qerr := tx.Query(
				ctx,
				reserveNextTaskSQL,
				taskType,
				currentTime.UTC(),
				currentTime.UTC(),
				leaseExpiresAt.UTC(),
				currentTime.UTC(),
			)
			if qerr != nil {
				return fmt.Errorf("reserve task: %w", qerr)
			}
			defer rows.Close()

			t, cerr := collectTaskFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoTasksAvailable
			}
			if cerr != nil {
				return fmt.Errorf("reserve task: %w", cerr)
			}
			task = t
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoTasksAvailable) {
			return nil, model.ErrNoTasksAvailable
		}
		return nil, err
	}
	return task, nil
}

// WaitForTask blocks until a task notification arrives for the given type or
// the timeout elapses. A timeout is not an error; it lets callers re-poll.
func (r *TaskRepo) WaitForTask(ctx context.Context, taskType model.TaskType, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := r.waitForNotification(waitCtx, taskType)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil
	}
	return err
}

func (r *TaskRepo) waitForNotification(ctx context.Context, taskType model.TaskType) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	channel := "task_added_" + string(taskType)
	quoted := pgx.Identifier{channel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", channel, execErr)
	}
	defer func() {
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// Complete marks a reserved task as completed.
func (r *TaskRepo) Complete(ctx context.Context, id string) error {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE restore_tasks
		SET status = 'completed',
		    completed_at = $2,
		    updated_at = $3,
		    lease_expires_at = NULL,
		    last_error = NULL
		WHERE id = $1 AND status = 'running'
	`, id, currentTime, currentTime)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Fail records a task failure. The task returns to pending while retries
// remain and is marked failed otherwise.
func (r *TaskRepo) Fail(ctx context.Context, id, taskErr string) error {
	currentTime := r.timeProvider.Now()
	retryScheduledAt := currentTime.Add(r.retryDelay())

	res, err := r.DB.ExecContext(ctx, `
		UPDATE restore_tasks
		SET
		  last_error = $2,
		  retry_count = retry_count + 1,
		  status = CASE WHEN retry_count + 1 >= max_retries THEN 'failed' ELSE 'pending' END,
		  completed_at = CASE WHEN retry_count + 1 >= max_retries THEN $3::timestamptz ELSE NULL END,
		  lease_expires_at = NULL,
		  scheduled_at = CASE WHEN retry_count + 1 >= max_retries THEN scheduled_at
		                      ELSE $4::timestamptz END,
		  updated_at = $5
		WHERE id = $1 AND status = 'running'
	`, id, taskErr, currentTime.UTC(), retryScheduledAt.UTC(), currentTime.UTC())
	if err != nil {
		return fmt.Errorf("fail task: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
