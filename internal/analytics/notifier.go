package analytics

import (
	"context"
	"time"

	"github.com/astrovani/backend/pkg/mylogger"
	"go.uber.org/zap"
)

// Purchase is one paid transaction as the collectors see it. Value is
// in major currency units (the gateway reports the smallest unit).
type Purchase struct {
	TransactionID string
	EventID       string
	Value         float64
	Currency      string
	ClientID      string
	Email         string
	ClientIP      string
	UserAgent     string
}

type collector interface {
	ReportPurchase(ctx context.Context, p Purchase) error
}

// Notifier fans a purchase out to both collectors without blocking the
// caller. The webhook response must not wait on either collector, so
// both reports run on their own goroutines with a detached context.
type Notifier struct {
	ga4     collector
	meta    collector
	logger  *zap.Logger
	timeout time.Duration
}

func NewNotifier(ga4 *GA4Client, meta *MetaClient, logger *zap.Logger) *Notifier {
	return &Notifier{
		ga4:     ga4,
		meta:    meta,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// PurchaseCaptured fires both collector reports and returns
// immediately. Individual outcomes are logged only.
func (n *Notifier) PurchaseCaptured(ctx context.Context, p Purchase) {
	// Keep trace correlation but survive the request returning.
	detached := context.WithoutCancel(ctx)

	go n.report(detached, "ga4", n.ga4, p)
	go n.report(detached, "meta_capi", n.meta, p)
}

func (n *Notifier) report(ctx context.Context, name string, c collector, p Purchase) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := c.ReportPurchase(ctx, p); err != nil {
		mylogger.Warn(ctx, n.logger, "Purchase report settled with error",
			zap.String("collector", name),
			zap.String("transaction_id", p.TransactionID),
			zap.Error(err),
		)
		return
	}

	mylogger.Debug(ctx, n.logger, "Purchase report settled",
		zap.String("collector", name),
		zap.String("transaction_id", p.TransactionID),
	)
}
