package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/bookshare/internal/ledger"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

// RowSource supplies the raw ledger rows.
type RowSource interface {
	Rows(ctx context.Context) ([]ledger.Row, error)
}

// Auditor periodically checks the ledger for anomalies. It never writes.
type Auditor struct {
	source        RowSource
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
	now           func() time.Time

	mu   sync.RWMutex
	last *ledger.AuditReport
}

// DefaultAuditInterval replaces a non-positive interval.
const DefaultAuditInterval = time.Hour

// NewAuditor creates an auditor. Sends on manualTrigger run an audit immediately.
func NewAuditor(source RowSource, log logger.Logger, interval time.Duration, manualTrigger chan struct{}) *Auditor {
	if interval <= 0 {
		log.Warn("invalid audit interval, using default",
			logger.Duration("interval", interval),
			logger.Duration("default", DefaultAuditInterval))
		interval = DefaultAuditInterval
	}
	return &Auditor{
		source:        source,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		now:           time.Now,
	}
}

// Start runs a first audit, then one per interval and one per manual trigger.
func (a *Auditor) Start(ctx context.Context) {
	if _, err := a.Run(ctx); err != nil {
		a.logger.Warn("initial ledger audit failed", logger.Error(err))
	}

	ticker := time.NewTicker(a.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.runLogged(ctx)
			case <-a.manualTrigger:
				a.logger.Info("manual audit triggered")
				a.runLogged(ctx)
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the periodic audit.
func (a *Auditor) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

func (a *Auditor) runLogged(ctx context.Context) {
	if _, err := a.Run(ctx); err != nil {
		a.logger.Error("ledger audit failed", logger.Error(err))
	}
}

// Run audits the ledger once and records the report.
func (a *Auditor) Run(ctx context.Context) (ledger.AuditReport, error) {
	start := a.now()

	rows, err := a.source.Rows(ctx)
	if err != nil {
		return ledger.AuditReport{}, err
	}

	report := ledger.Audit(rows)
	report.ID = newRunID()
	report.At = start.UTC()

	a.mu.Lock()
	a.last = &report
	a.mu.Unlock()

	fields := []logger.Field{
		logger.String("audit_id", report.ID),
		logger.Int("rows", report.Rows),
		logger.Int("in_stock", report.InStock),
		logger.Int("depleted", report.Depleted),
		logger.Int("units", report.Units),
		logger.Duration("took", a.now().Sub(start)),
	}
	if report.Healthy() {
		a.logger.Info("ledger audit completed", fields...)
		return report, nil
	}

	dup := make([]string, 0, len(report.Duplicates))
	for isbn := range report.Duplicates {
		dup = append(dup, isbn)
	}
	a.logger.Warn("ledger audit found anomalies", append(fields,
		logger.Ints("blank_isbn_rows", report.BlankISBN),
		logger.Ints("malformed_stock_rows", report.Malformed),
		logger.Strings("duplicate_isbns", dup))...)

	return report, nil
}

// Last returns the most recent report, if any audit completed.
func (a *Auditor) Last() (ledger.AuditReport, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return ledger.AuditReport{}, false
	}
	return *a.last, true
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
