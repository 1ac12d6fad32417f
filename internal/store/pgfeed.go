package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ticketshield/citation-intake/internal/repository"
)

const caseChangeChannel = "case_changes"

// PostgresFeed surfaces case document changes via LISTEN/NOTIFY. A trigger
// on the cases table emits {type, case_id} payloads on every row change.
type PostgresFeed struct {
	pool   *pgxpool.Pool
	cases  repository.CaseRepository
	logger *zap.Logger
}

// NewPostgresFeed builds the feed.
func NewPostgresFeed(pool *pgxpool.Pool, cases repository.CaseRepository, logger *zap.Logger) *PostgresFeed {
	return &PostgresFeed{pool: pool, cases: cases, logger: logger}
}

type caseChangePayload struct {
	Type   ChangeType `json:"type"`
	CaseID string     `json:"case_id"`
}

// Subscribe acquires a dedicated connection, listens on the change channel
// and delivers one change batch per notification. The returned function
// cancels the subscription.
func (f *PostgresFeed) Subscribe(ctx context.Context, onChange ChangeHandler, onError ErrorHandler) (func(), error) {
	if f.pool == nil {
		return nil, errors.New("postgres pool not configured")
	}

	poolConn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := poolConn.Exec(ctx, "LISTEN "+caseChangeChannel); err != nil {
		poolConn.Release()
		return nil, fmt.Errorf("listen %s: %w", caseChangeChannel, err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	go f.consume(listenCtx, poolConn, onChange, onError)

	return cancel, nil
}

func (f *PostgresFeed) consume(ctx context.Context, poolConn *pgxpool.Conn, onChange ChangeHandler, onError ErrorHandler) {
	defer poolConn.Release()

	conn := poolConn.Conn()
	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if onError != nil {
				onError(err)
			}
			return
		}

		var payload caseChangePayload
		if err := json.Unmarshal([]byte(notification.Payload), &payload); err != nil {
			f.logger.Warn("malformed change payload",
				zap.String("payload", notification.Payload),
				zap.Error(err))
			continue
		}

		change := Change{Type: payload.Type, CaseID: payload.CaseID}
		if payload.Type != ChangeRemoved {
			kase, err := f.cases.GetByID(ctx, payload.CaseID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					f.logger.Warn("change references missing case", zap.String("case_id", payload.CaseID))
					continue
				}
				if onError != nil {
					onError(err)
				}
				return
			}
			change.Case = kase
		}

		onChange(ctx, []Change{change})
	}
}
