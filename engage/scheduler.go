/*
scheduler.go - Per-tenant scheduled broadcast

PURPOSE:
  Once per minute, scan every tenant configuration and deliver the
  configured message for each fully configured tenant whose scheduled
  hour:minute equals "now" in the reference timezone.

DESIGN:
  - One background goroutine with a fixed 60s ticker
  - Ticks are serialized: a tick runs to completion, including all
    delivery calls, before the next one starts; an overrunning tick delays
    the next rather than overlapping it
  - No state is retained between ticks. Firing is a pure wall-clock match,
    not "has this tenant fired today": a tick delayed past the matching
    minute silently skips that day's broadcast, and a second tick inside
    the same minute would deliver twice. The source system behaves the
    same way, so no last-fired de-duplication field is kept.
  - Delivery failures are logged and dropped; nothing is rolled back and
    nothing is retried

SEE ALSO:
  - store.go: ConfigStore.ListConfigs is the scan input
  - api/handlers.go: the manual broadcast-test path shares the Deliverer
*/
package engage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deliverer sends a broadcast message to a channel. It is the external
// chat-platform collaborator; the scheduler treats it as fire-and-forget.
type Deliverer interface {
	Deliver(ctx context.Context, channel string, text string) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, channel string, text string) error

func (f DelivererFunc) Deliver(ctx context.Context, channel string, text string) error {
	return f(ctx, channel, text)
}

// BroadcastScheduler runs the per-minute scan-and-fire loop.
type BroadcastScheduler struct {
	Configs    ConfigStore
	Deliverer  Deliverer
	Clock      Clock
	Logger     *zap.Logger
	TickPeriod time.Duration // defaults to one minute

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewBroadcastScheduler(configs ConfigStore, deliverer Deliverer, clock Clock, logger *zap.Logger) *BroadcastScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BroadcastScheduler{
		Configs:    configs,
		Deliverer:  deliverer,
		Clock:      clock,
		Logger:     logger,
		TickPeriod: time.Minute,
	}
}

// Start begins the scheduler loop. Called once at process startup.
func (bs *BroadcastScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		return
	}
	if bs.TickPeriod <= 0 {
		bs.TickPeriod = time.Minute
	}

	bs.ticker = time.NewTicker(bs.TickPeriod)
	bs.stop = make(chan struct{})
	bs.wg.Add(1)
	go bs.run(bs.ticker, bs.stop)

	bs.Logger.Info("broadcast scheduler started",
		zap.Duration("tick_period", bs.TickPeriod),
	)
}

// Stop halts the loop and waits for an in-flight tick to finish.
func (bs *BroadcastScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker == nil {
		return
	}
	bs.ticker.Stop()
	close(bs.stop)
	bs.wg.Wait()
	bs.ticker = nil

	bs.Logger.Info("broadcast scheduler stopped")
}

func (bs *BroadcastScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer bs.wg.Done()

	for {
		select {
		case <-ticker.C:
			bs.Tick(context.Background())
		case <-stop:
			return
		}
	}
}

// Tick executes one scan-and-fire pass. Exported for the manual trigger
// path and for tests; the loop calls it synchronously, so ticks never
// overlap.
func (bs *BroadcastScheduler) Tick(ctx context.Context) {
	now := bs.Clock.Now()

	configs, err := bs.Configs.ListConfigs(ctx)
	if err != nil {
		bs.Logger.Error("tenant config scan failed", zap.Error(err))
		return
	}

	fired := 0
	for _, cfg := range configs {
		if !cfg.FullyConfigured() {
			continue
		}
		if !cfg.MatchesMinute(now) {
			continue
		}

		deliveryID := uuid.NewString()
		if err := bs.Deliverer.Deliver(ctx, *cfg.Channel, *cfg.Message); err != nil {
			bs.Logger.Error("broadcast delivery failed",
				zap.String("delivery_id", deliveryID),
				zap.String("tenant", string(cfg.Tenant)),
				zap.String("channel", *cfg.Channel),
				zap.Error(err),
			)
			continue
		}
		fired++

		bs.Logger.Info("broadcast delivered",
			zap.String("delivery_id", deliveryID),
			zap.String("tenant", string(cfg.Tenant)),
			zap.String("channel", *cfg.Channel),
		)
	}

	if fired > 0 {
		bs.Logger.Info("tick completed",
			zap.Time("at", now),
			zap.Int("scanned", len(configs)),
			zap.Int("fired", fired),
		)
	}
}
