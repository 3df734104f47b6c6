package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/greg-hellings/stockdash/pkg/inventory"
)

// Updater sends a committed edit to the server.
type Updater interface {
	UpdateRecord(ctx context.Context, itemName, quantity, price string) error
}

// Refresher reloads the store after a successful commit.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ErrRefreshAfterCommit wraps a refresh failure that followed an accepted update.
var ErrRefreshAfterCommit = errors.New("update accepted but refresh failed")

// Controller owns one edit session and runs the effects Apply asks for.
//
// Starting an edit on another record while one is open replaces the session
// without complaint; the controller models a single operator, not concurrent
// writers.
type Controller struct {
	updater   Updater
	refresher Refresher

	mu    sync.Mutex
	state State
}

// NewController returns an idle controller.
func NewController(updater Updater, refresher Refresher) *Controller {
	return &Controller{updater: updater, refresher: refresher}
}

// State returns a copy of the current session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) apply(ev Event) Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, eff := Apply(c.state, ev)
	if next != c.state {
		slog.Debug("Edit session transition",
			"event", fmt.Sprintf("%T", ev),
			"editing", next.Editing,
			"target", next.Target)
	}
	c.state = next
	return eff
}

// StartEdit opens a session on record seeded with its current values.
func (c *Controller) StartEdit(record inventory.Record) {
	c.apply(StartEdit{Record: record})
}

// UpdateDraft stages a value. It fails with ErrNotEditing while idle.
func (c *Controller) UpdateDraft(field Field, value string) error {
	if eff := c.apply(UpdateDraft{Field: field, Value: value}); eff.Kind == EffectReject {
		return eff.Err
	}
	return nil
}

// Cancel closes the session without any network call.
func (c *Controller) Cancel() {
	c.apply(Cancel{})
}

// Reconcile drops a session whose target is missing from records. It reports
// whether a session was cleared.
func (c *Controller) Reconcile(records []inventory.Record) bool {
	before := c.State()
	c.apply(SnapshotReplaced{Records: records})
	cleared := before.Editing && !c.State().Editing
	if cleared {
		slog.Info("Edit session cleared; item no longer exists", "item", before.Target)
	}
	return cleared
}

// Commit sends the drafts. Blank drafts are rejected before any network
// call. On failure the session stays open with drafts intact. On success the
// session closes and the store is refreshed; a refresh failure is returned
// wrapped in ErrRefreshAfterCommit.
func (c *Controller) Commit(ctx context.Context) error {
	eff := c.apply(Commit{})
	switch eff.Kind {
	case EffectReject:
		return eff.Err
	case EffectUpdate:
	default:
		return nil
	}

	if err := c.updater.UpdateRecord(ctx, eff.ItemName, eff.Quantity, eff.Price); err != nil {
		c.apply(CommitFailed{ItemName: eff.ItemName, Err: err})
		return err
	}

	next := c.apply(CommitSucceeded{ItemName: eff.ItemName})
	if next.Kind == EffectRefresh && c.refresher != nil {
		if err := c.refresher.Refresh(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrRefreshAfterCommit, err)
		}
	}
	return nil
}
