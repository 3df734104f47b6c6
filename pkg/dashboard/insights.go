package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/greg-hellings/stockdash/pkg/inventory"
)

// DefaultInsightsInterval is how often the insights panel is reloaded.
const DefaultInsightsInterval = 5 * time.Minute

// InsightsErrorMessage replaces the insights when a fetch fails.
const InsightsErrorMessage = "Unable to load business insights. Please try again later."

// InsightsSource provides the sales insights payload.
type InsightsSource interface {
	GetSalesInsights(ctx context.Context) (*inventory.SalesInsights, error)
}

// InsightsView is what the insights panel renders.
type InsightsView struct {
	Loading  bool
	Error    string
	Insights []inventory.SalesInsight
	// Summary keeps the last value received; a failed fetch does not clear it.
	Summary   *inventory.InsightsSummary
	UpdatedAt time.Time
}

// InsightsPoller periodically reloads sales insights in the background.
type InsightsPoller struct {
	source   InsightsSource
	interval time.Duration

	mu       sync.RWMutex
	view     InsightsView
	onUpdate func(InsightsView)

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewInsightsPoller creates a poller. A non-positive interval selects
// DefaultInsightsInterval.
func NewInsightsPoller(source InsightsSource, interval time.Duration) *InsightsPoller {
	if interval <= 0 {
		interval = DefaultInsightsInterval
	}
	return &InsightsPoller{
		source:   source,
		interval: interval,
		view:     InsightsView{Loading: true},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// OnUpdate registers fn to be called after every completed fetch.
func (p *InsightsPoller) OnUpdate(fn func(InsightsView)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = fn
}

// View returns a copy of the current panel state.
func (p *InsightsPoller) View() InsightsView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v := p.view
	v.Insights = append([]inventory.SalesInsight(nil), p.view.Insights...)
	return v
}

// Fetch loads insights once and returns the resulting panel state.
func (p *InsightsPoller) Fetch(ctx context.Context) InsightsView {
	p.mu.Lock()
	p.view.Loading = true
	p.mu.Unlock()

	resp, err := p.source.GetSalesInsights(ctx)

	p.mu.Lock()
	p.view.Loading = false
	p.view.UpdatedAt = time.Now()
	if err != nil {
		slog.Warn("Fetching sales insights failed", "error", err)
		p.view.Error = InsightsErrorMessage
		p.view.Insights = nil
	} else {
		p.view.Error = ""
		p.view.Insights = resp.Insights
		p.view.Summary = resp.Summary
	}
	fn := p.onUpdate
	p.mu.Unlock()

	v := p.View()
	if fn != nil {
		fn(v)
	}
	return v
}

// Start fetches immediately and then every interval until Stop is called or
// ctx is done. Calling Start more than once has no effect.
func (p *InsightsPoller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go p.run(ctx)
	})
}

func (p *InsightsPoller) run(ctx context.Context) {
	defer close(p.done)

	p.Fetch(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			slog.Debug("Refreshing sales insights")
			p.Fetch(ctx)
		case <-p.stop:
			slog.Info("Insights polling stopped")
			return
		case <-ctx.Done():
			slog.Info("Insights polling stopped", "reason", ctx.Err())
			return
		}
	}
}

// Stop ends polling and waits for the background goroutine to exit. It is
// safe to call more than once, and before Start.
func (p *InsightsPoller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	started := true
	p.startOnce.Do(func() {
		started = false
		close(p.done)
	})
	if started {
		<-p.done
	}
}
