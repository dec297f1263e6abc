// Package sync drives reconciliation between the local cart store and the
// remote order-form backend. A single coordinator goroutine watches the
// store for modified items and the connectivity monitor for reachability
// edges, and runs at most one sync cycle at a time.
//
// Cycle protocol:
//
//  1. Snapshot the current store state as the rollback target.
//  2. Partition modified items: items the backend already confirmed go to
//     the update operation, never-confirmed items go to the add operation.
//  3. Issue update strictly before add, never concurrently.
//  4. Commit the authoritative order form from the add response when one
//     exists, otherwise from the update response.
//  5. On failure of either call, rewind the store to the snapshot and fire
//     the failure notification. No automatic retry: the next trigger (a new
//     local mutation or a connectivity edge) re-attempts.
//
// Mutations made while a cycle is in flight are untouched by the commit and
// become the next cycle's modified set.
package sync

import (
	"context"
	"log/slog"
	"sync"

	"minicart-sync/internal/cart"
	"minicart-sync/internal/checkout"
	"minicart-sync/internal/connectivity"
	"minicart-sync/internal/diff"
	"minicart-sync/internal/notify"
	"minicart-sync/internal/store"
)

// Coordinator owns the sync loop.
type Coordinator struct {
	store    *store.Store
	remote   checkout.Service
	monitor  *connectivity.Monitor
	notifier notify.Notifier
	logger   *slog.Logger

	mu         sync.Mutex
	generation uint64
	closed     bool

	// Only touched from the loop goroutine; cycle serialization is the guard.
	failed          bool
	failedAtVersion uint64
}

// NewCoordinator wires the sync loop to its collaborators. Call Run to start.
func NewCoordinator(st *store.Store, remote checkout.Service, monitor *connectivity.Monitor, notifier notify.Notifier, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:    st,
		remote:   remote,
		monitor:  monitor,
		notifier: notifier,
		logger:   logger,
	}
}

// Run blocks on the coordinator loop until ctx is cancelled. Sync cycles run
// serially: a wake-up arriving mid-cycle is coalesced into the next pass
// because the store is re-read after every cycle.
func (c *Coordinator) Run(ctx context.Context) {
	storeTicks := c.store.Watch()
	edges := c.monitor.Subscribe()

	// Cold-start pass picks up modified items restored from persistence.
	c.maybeSync(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-storeTicks:
			if !ok {
				return
			}
			c.maybeSync(ctx)
		case _, ok := <-edges:
			if !ok {
				return
			}
			// A reachability edge is a genuine trigger even after a
			// failed cycle.
			c.failed = false
			c.maybeSync(ctx)
		}
	}
}

// Close tears the coordinator down. In-flight remote calls are allowed to
// finish but their results are discarded: no store mutation happens after
// Close returns from the caller's perspective of the current generation.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.generation++
}

// maybeSync runs one cycle when the gate is open: online and at least one
// modified item. A transition to offline mid-cycle does not interrupt the
// in-flight calls; it only gates the next attempt.
func (c *Coordinator) maybeSync(ctx context.Context) {
	if c.monitor.Offline() {
		return
	}
	snapshot := c.store.State()
	if c.failed && snapshot.Version == c.failedAtVersion {
		// Still looking at the echo of our own rollback. A failed cycle is
		// not retried until a new mutation or a reachability edge arrives.
		return
	}
	modified := cart.ModifiedItems(snapshot.Items)
	if len(modified) == 0 {
		return
	}
	c.syncCycle(ctx, snapshot, modified)
}

func (c *Coordinator) syncCycle(ctx context.Context, snapshot store.State, modified []cart.Item) {
	gen := c.currentGeneration()

	toAdd, toUpdate := diff.Partition(modified)

	var orderFormID string
	if snapshot.OrderForm != nil {
		orderFormID = snapshot.OrderForm.OrderFormID
	}

	c.store.SetSyncing(true)

	c.logger.Debug("sync cycle starting",
		slog.String("orderFormId", orderFormID),
		slog.Int("toUpdate", len(toUpdate)),
		slog.Int("toAdd", len(toAdd)))

	// Without a known order form (offline cold start) fetch one first; the
	// backend creates it lazily.
	var err error
	if orderFormID == "" {
		var fresh *cart.OrderForm
		fresh, err = c.remote.GetOrderForm(ctx)
		if err == nil && fresh != nil {
			orderFormID = fresh.OrderFormID
		}
	}

	// Update strictly before add. The add response supersedes the update
	// response as the authoritative form because it is the later mutation.
	var updated, added *cart.OrderForm
	if err == nil && len(toUpdate) > 0 {
		updated, err = c.remote.UpdateItems(ctx, orderFormID, cart.SyncInputs(toUpdate))
	}
	if err == nil && len(toAdd) > 0 {
		added, err = c.remote.AddItems(ctx, orderFormID, cart.SyncInputs(toAdd))
	}

	if c.stale(gen) {
		c.logger.Debug("discarding sync result after teardown",
			slog.String("orderFormId", orderFormID))
		// The store may outlive this coordinator; do not leave the flag
		// latched.
		c.store.SetSyncing(false)
		return
	}

	if err != nil {
		c.logger.Warn("sync cycle failed, rolling back",
			slog.String("orderFormId", orderFormID),
			slog.String("error", err.Error()))
		// Record the rewind's own version so a mutation racing the rollback
		// still reopens the gate.
		c.failedAtVersion = c.store.Restore(snapshot.Items, snapshot.OrderForm)
		c.store.SetSyncing(false)
		c.failed = true
		c.notifier.NotifyFailure(notify.FailureKeySync)
		return
	}

	form := added
	if form == nil {
		form = updated
	}
	if form != nil {
		c.store.ApplyOrderForm(form)
	}
	c.store.SetSyncing(false)
	c.failed = false

	c.logger.Debug("sync cycle committed",
		slog.String("orderFormId", orderFormID))
}

func (c *Coordinator) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// stale reports whether results from a cycle started at gen must be
// discarded because the coordinator was torn down in the meantime.
func (c *Coordinator) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || c.generation != gen
}
