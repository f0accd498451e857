package worker

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/utils/logging"
)

// DefaultCacheSize is how many headlines one refresh keeps
const DefaultCacheSize = 20

// HeadlineRefreshWorker polls a headline source in the background and serves
// the last successful result. It implements interfaces.HeadlineSource so the
// context assembler reads the cache instead of calling the news API per turn.
//
// Architecture assumptions:
// - Single server instance (each replica keeps its own cache)
// - A failed refresh keeps the previous headlines
type HeadlineRefreshWorker struct {
	source    interfaces.HeadlineSource
	interval  time.Duration
	cacheSize int

	mu        sync.RWMutex
	headlines []string
	loaded    bool
	fetchedAt time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ interfaces.HeadlineSource = &HeadlineRefreshWorker{}

// NewHeadlineRefreshWorker creates a worker refreshing headlines every interval
func NewHeadlineRefreshWorker(source interfaces.HeadlineSource, interval time.Duration) *HeadlineRefreshWorker {
	return &HeadlineRefreshWorker{
		source:    source,
		interval:  interval,
		cacheSize: DefaultCacheSize,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background refresh loop. The initial fetch runs in the
// background goroutine and does not block server startup.
func (w *HeadlineRefreshWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("refresh interval must be positive", goerr.V("interval", w.interval))
	}

	logging.Default().Info("Headline refresh worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *HeadlineRefreshWorker) Stop() {
	logging.Default().Info("Headline refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Headline refresh worker stopped")
}

// Headlines returns cached headlines. Before the first successful refresh it
// falls through to the underlying source.
func (w *HeadlineRefreshWorker) Headlines(ctx context.Context, limit int) ([]string, error) {
	w.mu.RLock()
	if !w.loaded {
		w.mu.RUnlock()
		return w.source.Headlines(ctx, limit)
	}
	defer w.mu.RUnlock()

	n := len(w.headlines)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]string, n)
	copy(out, w.headlines[:n])
	return out, nil
}

// FetchedAt returns the time of the last successful refresh
func (w *HeadlineRefreshWorker) FetchedAt() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fetchedAt
}

func (w *HeadlineRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.refresh(ctx); err != nil {
		logging.Default().Error("Initial headline refresh failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.refresh(ctx); err != nil {
				logging.Default().Error("Headline refresh failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Headline refresh worker context cancelled")
			return
		}
	}
}

func (w *HeadlineRefreshWorker) refresh(ctx context.Context) error {
	startTime := time.Now()

	headlines, err := w.source.Headlines(ctx, w.cacheSize)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch headlines")
	}

	w.mu.Lock()
	w.headlines = headlines
	w.loaded = true
	w.fetchedAt = startTime
	w.mu.Unlock()

	logging.Default().Debug("Headline refresh completed",
		"count", len(headlines),
		"duration", time.Since(startTime).String())

	return nil
}
