package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ticketshield/citation-intake/internal/config"
	"github.com/ticketshield/citation-intake/internal/domain"
	"github.com/ticketshield/citation-intake/internal/ratelimit"
	"github.com/ticketshield/citation-intake/internal/repository"
	"github.com/ticketshield/citation-intake/internal/store"
	apperrors "github.com/ticketshield/citation-intake/pkg/util"
)

// StatusChangeDetector subscribes to the case change feed and turns status
// transitions into client notifications. Guards run in a fixed order per
// change: idempotency, rate limit, validation, audit, then delivery.
type StatusChangeDetector struct {
	feed     store.ChangeFeed
	notifier *Notifier
	alerts   *AlertService
	audit    repository.AuditLogRepository
	limiter  ratelimit.Window
	logger   *zap.Logger
	cfg      config.DetectorConfig

	mu       sync.Mutex
	inflight map[string]struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStatusChangeDetector builds the detector.
func NewStatusChangeDetector(
	feed store.ChangeFeed,
	notifier *Notifier,
	alerts *AlertService,
	audit repository.AuditLogRepository,
	limiter ratelimit.Window,
	cfg config.DetectorConfig,
	logger *zap.Logger,
) *StatusChangeDetector {
	return &StatusChangeDetector{
		feed:     feed,
		notifier: notifier,
		alerts:   alerts,
		audit:    audit,
		limiter:  limiter,
		logger:   logger,
		cfg:      cfg,
		inflight: make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins listening and returns immediately. The subscription is
// re-established after transport errors until the context is canceled.
func (d *StatusChangeDetector) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	go d.run(ctx)
	go d.cleanupLoop(ctx)
}

// Stop cancels the subscription and waits for in-flight notifications.
func (d *StatusChangeDetector) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	<-d.done
	d.wg.Wait()
}

func (d *StatusChangeDetector) run(ctx context.Context) {
	defer close(d.done)

	for {
		errCh := make(chan error, 1)
		unsubscribe, err := d.feed.Subscribe(ctx, d.handleChanges, func(err error) {
			select {
			case errCh <- err:
			default:
			}
		})
		if err != nil {
			d.logger.Error("change feed subscription failed", zap.Error(err))
		} else {
			d.logger.Info("status change listener started")
			select {
			case <-ctx.Done():
				unsubscribe()
				return
			case err := <-errCh:
				unsubscribe()
				d.logger.Error("change feed error; restarting listener", zap.Error(err))
			}
		}

		// Fixed delay between restart attempts. The loop is unbounded and
		// the delay does not grow; a persistently failing feed means a
		// restart every RestartDelay until the process is stopped.
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.cfg.RestartDelay()):
		}
	}
}

func (d *StatusChangeDetector) handleChanges(ctx context.Context, changes []store.Change) {
	for _, change := range changes {
		if change.Type != store.ChangeModified || change.Case == nil {
			continue
		}
		d.dispatch(ctx, change.Case)
	}
}

// dispatch claims the case synchronously so that a second feed event for a
// case still being processed is dropped, then hands processing to a
// goroutine. At most one pipeline runs per case at a time.
func (d *StatusChangeDetector) dispatch(ctx context.Context, kase *domain.Case) {
	key := kase.CaseID

	d.mu.Lock()
	if _, busy := d.inflight[key]; busy {
		d.mu.Unlock()
		d.logger.Debug("duplicate change skipped",
			zap.String("case_id", kase.CaseID),
			zap.String("status", string(kase.CaseStatus)))
		return
	}
	d.inflight[key] = struct{}{}
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			delete(d.inflight, key)
			d.mu.Unlock()
		}()
		d.process(ctx, kase)
	}()
}

func (d *StatusChangeDetector) process(ctx context.Context, kase *domain.Case) {
	status := kase.CaseStatus

	allowed, err := d.limiter.Allow(ctx, kase.CaseID)
	if err != nil {
		// Fail open: a broken limiter backend must not silence
		// legitimate notifications.
		d.logger.Warn("rate limiter unavailable; allowing",
			zap.String("case_id", kase.CaseID), zap.Error(err))
		allowed = true
	}
	if !allowed {
		d.logger.Warn("notification rate limit exceeded; dropping",
			zap.String("case_id", kase.CaseID),
			zap.String("status", string(status)))
		return
	}

	if !status.Notifiable() {
		d.logger.Info("ignoring non-notifiable status",
			zap.String("case_id", kase.CaseID),
			zap.String("status", string(status)))
		return
	}
	if !domain.ValidEmail(kase.Email) {
		d.logger.Info("ignoring change without a deliverable email",
			zap.String("case_id", kase.CaseID),
			zap.String("status", string(status)))
		return
	}

	d.recordAudit(ctx, kase, status)

	if err := d.notifier.Notify(ctx, status, kase); err != nil {
		if apperrors.IsCode(err, apperrors.CodeValidationFailed) {
			d.logger.Warn("notification dropped",
				zap.String("case_id", kase.CaseID),
				zap.String("status", string(status)),
				zap.Error(err))
			return
		}
		if _, alertErr := d.alerts.NotificationFailure(ctx, kase, status, err); alertErr != nil {
			d.logger.Error("failed to create notification failure alert",
				zap.String("case_id", kase.CaseID), zap.Error(alertErr))
		}
	}
}

// recordAudit is best effort: an audit write failure never blocks delivery.
func (d *StatusChangeDetector) recordAudit(ctx context.Context, kase *domain.Case, status domain.CaseStatus) {
	entry := &domain.AuditLogEntry{
		Type:      "status_change",
		CaseID:    kase.CaseID,
		OldStatus: kase.LastStatusBefore(),
		NewStatus: status,
		Source:    "change_feed",
	}
	if err := d.audit.Create(ctx, entry); err != nil {
		d.logger.Warn("audit log write failed",
			zap.String("case_id", kase.CaseID), zap.Error(err))
	}
}

func (d *StatusChangeDetector) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.CleanupInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.limiter.Purge(ctx, time.Hour); err != nil {
				d.logger.Warn("rate limit cleanup failed", zap.Error(err))
			}
		}
	}
}
