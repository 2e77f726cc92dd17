package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/campuskit/courserestore/internal/domain/model"
)

// completionChannel is the NOTIFY channel carrying restore completion events.
const completionChannel = "course_restored"

// CompletionBus broadcasts restore completion events over PostgreSQL
// NOTIFY/LISTEN. The bus holds one long-lived LISTEN session across Next
// calls: Postgres only delivers to sessions listening at emit time, and
// pgx buffers notifications that arrive between WaitForNotification
// calls, so events published while a handler runs are not lost. The
// session is dropped and re-established after any wait error.
type CompletionBus struct {
	DB     *sql.DB
	logger *slog.Logger

	mu   sync.Mutex
	conn *sql.Conn
}

// NewCompletionBus creates a CompletionBus on the given database pool.
func NewCompletionBus(db *sql.DB, logger *slog.Logger) *CompletionBus {
	return &CompletionBus{DB: db, logger: logger}
}

// Publish broadcasts a completion event to all listeners.
func (b *CompletionBus) Publish(ctx context.Context, event model.CompletionEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal completion event: %w", err)
	}

	if _, err := b.DB.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, completionChannel, string(payload)); err != nil {
		return fmt.Errorf("publish completion event: %w", err)
	}

	if b.logger != nil {
		b.logger.DebugContext(ctx, "published completion event",
			"course_id", event.CourseID,
			"outcome", event.Outcome,
		)
	}
	return nil
}

// Next blocks until a completion event arrives or ctx is done. Malformed
// notifications are logged and skipped. The first call establishes the
// LISTEN session; later calls reuse it, so events published between calls
// are buffered rather than dropped.
func (b *CompletionBus) Next(ctx context.Context) (model.CompletionEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureListener(ctx); err != nil {
		return model.CompletionEvent{}, err
	}

	event, err := b.waitForEvent(ctx)
	if err != nil {
		b.dropListener()
		return model.CompletionEvent{}, err
	}
	return event, nil
}

// ensureListener checks out a pool connection and starts listening on it.
// Callers hold b.mu.
func (b *CompletionBus) ensureListener(ctx context.Context) error {
	if b.conn != nil {
		return nil
	}

	conn, err := b.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}

	quoted := pgx.Identifier{completionChannel}.Sanitize()
	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		_ = conn.Close()
		return fmt.Errorf("listen %s: %w", completionChannel, execErr)
	}

	b.conn = conn
	return nil
}

// dropListener closes the LISTEN session so the next call re-establishes
// it. Callers hold b.mu.
func (b *CompletionBus) dropListener() {
	if b.conn == nil {
		return
	}
	_ = b.conn.Close()
	b.conn = nil
}

func (b *CompletionBus) waitForEvent(ctx context.Context) (model.CompletionEvent, error) {
	var event model.CompletionEvent
	rawErr := b.conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		for {
			notification, notifyErr := sc.Conn().WaitForNotification(ctx)
			if notifyErr != nil {
				return notifyErr
			}
			if unmarshalErr := json.Unmarshal([]byte(notification.Payload), &event); unmarshalErr != nil {
				if b.logger != nil {
					b.logger.WarnContext(ctx, "skipping malformed completion event",
						"payload", notification.Payload,
						"error", unmarshalErr,
					)
				}
				continue
			}
			if validateErr := event.Validate(); validateErr != nil {
				if b.logger != nil {
					b.logger.WarnContext(ctx, "skipping invalid completion event",
						"payload", notification.Payload,
						"error", validateErr,
					)
				}
				continue
			}
			return nil
		}
	})
	if rawErr != nil {
		return model.CompletionEvent{}, rawErr
	}
	return event, nil
}
