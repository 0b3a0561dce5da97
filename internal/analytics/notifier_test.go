package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCollector struct {
	mu    sync.Mutex
	calls []Purchase
	err   error
	block chan struct{}
}

func (s *stubCollector) ReportPurchase(ctx context.Context, p Purchase) error {
	if s.block != nil {
		<-s.block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, p)
	return s.err
}

func (s *stubCollector) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestNotifierFansOutToBothCollectors(t *testing.T) {
	ga4 := &stubCollector{}
	meta := &stubCollector{}

	n := &Notifier{ga4: ga4, meta: meta, logger: zap.NewNop(), timeout: time.Second}

	n.PurchaseCaptured(context.Background(), Purchase{TransactionID: "order_abc"})

	require.Eventually(t, func() bool {
		return ga4.callCount() == 1 && meta.callCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNotifierDoesNotBlockCaller(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	ga4 := &stubCollector{block: block}
	meta := &stubCollector{block: block}

	n := &Notifier{ga4: ga4, meta: meta, logger: zap.NewNop(), timeout: time.Second}

	done := make(chan struct{})
	go func() {
		n.PurchaseCaptured(context.Background(), Purchase{TransactionID: "order_abc"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("PurchaseCaptured blocked on a slow collector")
	}
}

func TestNotifierSwallowsCollectorErrors(t *testing.T) {
	ga4 := &stubCollector{err: errors.New("collector down")}
	meta := &stubCollector{}

	n := &Notifier{ga4: ga4, meta: meta, logger: zap.NewNop(), timeout: time.Second}

	n.PurchaseCaptured(context.Background(), Purchase{TransactionID: "order_abc"})

	require.Eventually(t, func() bool {
		return ga4.callCount() == 1 && meta.callCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNotifierSurvivesCancelledRequestContext(t *testing.T) {
	ga4 := &stubCollector{}
	meta := &stubCollector{}

	n := &Notifier{ga4: ga4, meta: meta, logger: zap.NewNop(), timeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	n.PurchaseCaptured(ctx, Purchase{TransactionID: "order_abc"})
	cancel()

	require.Eventually(t, func() bool {
		return ga4.callCount() == 1 && meta.callCount() == 1
	}, time.Second, 10*time.Millisecond)
}
