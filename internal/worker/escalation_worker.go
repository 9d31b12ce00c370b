package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// EscalationWorker runs two independent periodic sweeps against the
// ticket store: force-closing tickets that stayed resolved past the
// threshold, and purging stale audit history. Each sweep is idempotent
// and isolated; a failing iteration is logged and the schedule
// continues on its next tick. A tick that fires while the previous run
// is still in flight is skipped.
type EscalationWorker struct {
	tickets repository.TicketRepository
	audit   repository.AuditRepository
	machine service.StateMachine
	cfg     config.EscalationConfig
	logger  *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	autoCloseBusy atomic.Bool
	auditBusy     atomic.Bool

	now func() time.Time
}

// NewEscalationWorker creates the worker.
func NewEscalationWorker(tickets repository.TicketRepository, audit repository.AuditRepository, cfg config.EscalationConfig, logger *zap.Logger) *EscalationWorker {
	return &EscalationWorker{
		tickets:  tickets,
		audit:    audit,
		cfg:      cfg,
		logger:   logger,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start launches both sweep loops.
func (w *EscalationWorker) Start(ctx context.Context) {
	w.logger.Info("starting escalation worker",
		zap.Duration("auto_close_interval", w.cfg.AutoCloseInterval()),
		zap.Duration("audit_interval", w.cfg.AuditInterval()),
	)

	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.runLoop(ctx, w.cfg.AutoCloseInterval(), w.autoCloseTick)
	}()
	go func() {
		defer w.wg.Done()
		w.runLoop(ctx, w.cfg.AuditInterval(), w.auditTick)
	}()
}

// Stop shuts the worker down and waits for in-flight sweeps.
func (w *EscalationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.wg.Wait()
		w.logger.Info("escalation worker stopped")
	})
}

func (w *EscalationWorker) runLoop(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	// run once at startup to clear any backlog
	tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

func (w *EscalationWorker) autoCloseTick(ctx context.Context) {
	if !w.autoCloseBusy.CompareAndSwap(false, true) {
		w.logger.Warn("auto-close sweep still running, skipping tick")
		return
	}
	defer w.autoCloseBusy.Store(false)

	closed, err := w.autoCloseSweep(ctx)
	if err != nil {
		w.logger.Error("auto-close sweep failed", zap.Error(err))
		return
	}
	if closed > 0 {
		w.logger.Info("auto-closed resolved tickets", zap.Int("count", closed))
	}
}

// autoCloseSweep force-closes every ticket that has been resolved for
// longer than the configured threshold. Each ticket goes through the
// state machine under the system actor, so closure timestamps and the
// auto_closed flag follow the same rules as actor-driven transitions.
func (w *EscalationWorker) autoCloseSweep(ctx context.Context) (int, error) {
	now := w.now()
	cutoff := now.Add(-w.cfg.AutoCloseAfter())

	stale, err := w.tickets.ListResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range stale {
		ticket := &stale[i]
		previous := ticket.State
		if err := w.machine.Apply(ticket, domain.TicketStateClosed, domain.SystemActor, now); err != nil {
			w.logger.Warn("skipping ticket during auto-close", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if err := w.tickets.UpdateState(ctx, ticket, previous); err != nil {
			// a concurrent transition may have moved the ticket; that is fine
			w.logger.Warn("ticket state changed mid-sweep", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		closed++
	}
	return closed, nil
}

func (w *EscalationWorker) auditTick(ctx context.Context) {
	if !w.auditBusy.CompareAndSwap(false, true) {
		w.logger.Warn("audit retention sweep still running, skipping tick")
		return
	}
	defer w.auditBusy.Store(false)

	purged, err := w.auditSweep(ctx)
	if err != nil {
		w.logger.Error("audit retention sweep failed", zap.Error(err))
		return
	}
	if purged > 0 {
		w.logger.Info("purged audit entries", zap.Int64("count", purged))
	}
}

// auditSweep deletes audit entries past the retention horizon and trims
// the log to the configured most-recent cap.
func (w *EscalationWorker) auditSweep(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.cfg.AuditRetention())

	deleted, err := w.audit.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	trimmed, err := w.audit.TrimToMostRecent(ctx, w.cfg.AuditKeepMostRecent)
	if err != nil {
		return deleted, err
	}
	return deleted + trimmed, nil
}
