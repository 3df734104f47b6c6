// Package store holds the client-side projection of the server's inventory:
// the last successfully fetched records and chart aggregates. The projection
// is only ever replaced wholesale by Refresh; nothing patches it locally.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/greg-hellings/stockdash/pkg/inventory"
)

// Source is the subset of the gateway the store reads from.
type Source interface {
	ListInventory(ctx context.Context) ([]inventory.Record, error)
	ListChartAggregates(ctx context.Context) ([]inventory.ChartAggregate, error)
}

// Snapshot is a consistent copy of both halves of the store.
type Snapshot struct {
	Records          []inventory.Record
	Charts           []inventory.ChartAggregate
	RecordsUpdatedAt time.Time // zero until the first successful inventory fetch
	ChartsUpdatedAt  time.Time // zero until the first successful chart fetch
}

// RefreshError reports which halves of a refresh failed. A nil field means
// that half was fetched and swapped in.
type RefreshError struct {
	Inventory error
	Charts    error
}

func (e *RefreshError) Error() string {
	switch {
	case e.Inventory != nil && e.Charts != nil:
		return fmt.Sprintf("refresh failed: inventory: %v; charts: %v", e.Inventory, e.Charts)
	case e.Inventory != nil:
		return fmt.Sprintf("refresh failed: inventory: %v", e.Inventory)
	default:
		return fmt.Sprintf("refresh failed: charts: %v", e.Charts)
	}
}

func (e *RefreshError) Unwrap() []error {
	return []error{e.Inventory, e.Charts}
}

// Listener is notified with the new records after each inventory swap.
type Listener func(records []inventory.Record)

// Store is safe for concurrent use.
//
// Overlapping Refresh calls are not deduplicated. Each half is swapped in when
// its response arrives, so whichever response completes last wins even if it
// was requested first.
type Store struct {
	source Source

	mu        sync.RWMutex
	snap      Snapshot
	listeners []Listener
}

// New creates an empty store reading from source.
func New(source Source) *Store {
	return &Store{source: source}
}

// Refresh fetches inventory and chart data concurrently. Each half replaces
// the held copy only if its own fetch succeeded; a failure on one side never
// blocks the other.
func (s *Store) Refresh(ctx context.Context) error {
	var (
		g         errgroup.Group
		invErr    error
		chartsErr error
	)

	g.Go(func() error {
		records, err := s.source.ListInventory(ctx)
		if err != nil {
			invErr = err
			return err
		}
		s.swapRecords(records)
		return nil
	})
	g.Go(func() error {
		charts, err := s.source.ListChartAggregates(ctx)
		if err != nil {
			chartsErr = err
			return err
		}
		s.swapCharts(charts)
		return nil
	})
	_ = g.Wait()

	if invErr != nil || chartsErr != nil {
		slog.Warn("Store refresh incomplete",
			"inventoryError", invErr,
			"chartsError", chartsErr)
		return &RefreshError{Inventory: invErr, Charts: chartsErr}
	}
	return nil
}

func (s *Store) swapRecords(records []inventory.Record) {
	records = dedupe(records)

	s.mu.Lock()
	s.snap.Records = records
	s.snap.RecordsUpdatedAt = time.Now()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	slog.Debug("Inventory snapshot replaced", "records", len(records))

	for _, fn := range listeners {
		fn(cloneRecords(records))
	}
}

func (s *Store) swapCharts(charts []inventory.ChartAggregate) {
	cp := make([]inventory.ChartAggregate, len(charts))
	copy(cp, charts)

	s.mu.Lock()
	s.snap.Charts = cp
	s.snap.ChartsUpdatedAt = time.Now()
	s.mu.Unlock()

	slog.Debug("Chart snapshot replaced", "rows", len(cp))
}

// dedupe keeps the first record for each item name so a snapshot never holds
// two records with the same key.
func dedupe(records []inventory.Record) []inventory.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]inventory.Record, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.ItemName]; dup {
			slog.Warn("Dropping duplicate inventory record", "item", r.ItemName)
			continue
		}
		seen[r.ItemName] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Subscribe registers fn to run after every inventory swap. Listeners run on
// the refreshing goroutine, outside the store lock.
func (s *Store) Subscribe(fn Listener) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Records returns a copy of the current records in server order.
func (s *Store) Records() []inventory.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.snap.Records)
}

// Charts returns a copy of the current chart aggregates.
func (s *Store) Charts() []inventory.ChartAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]inventory.ChartAggregate, len(s.snap.Charts))
	copy(cp, s.snap.Charts)
	return cp
}

// Snapshot returns both halves read under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	charts := make([]inventory.ChartAggregate, len(s.snap.Charts))
	copy(charts, s.snap.Charts)
	return Snapshot{
		Records:          cloneRecords(s.snap.Records),
		Charts:           charts,
		RecordsUpdatedAt: s.snap.RecordsUpdatedAt,
		ChartsUpdatedAt:  s.snap.ChartsUpdatedAt,
	}
}

// Lookup returns the record keyed by itemName.
func (s *Store) Lookup(itemName string) (inventory.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.snap.Records {
		if r.ItemName == itemName {
			return r, true
		}
	}
	return inventory.Record{}, false
}

// ErrNotFound reports a key absent from the current snapshot.
var ErrNotFound = errors.New("item not found in current snapshot")

func cloneRecords(records []inventory.Record) []inventory.Record {
	cp := make([]inventory.Record, len(records))
	copy(cp, records)
	return cp
}
