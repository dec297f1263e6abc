package sync

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minicart-sync/internal/analytics"
	"minicart-sync/internal/cart"
	"minicart-sync/internal/connectivity"
	"minicart-sync/internal/notify"
	"minicart-sync/internal/persist"
	"minicart-sync/internal/store"
)

// fakeRemote records the call sequence and serves canned responses.
type fakeRemote struct {
	mu    sync.Mutex
	calls []remoteCall

	updateForm *cart.OrderForm
	updateErr  error
	addForm    *cart.OrderForm
	addErr     error

	// beforeReturn runs inside each call while it is "in flight", letting
	// tests tear the coordinator down mid-cycle.
	beforeReturn func()
}

type remoteCall struct {
	op    string
	items []cart.SyncInput
}

func (f *fakeRemote) record(op string, items []cart.SyncInput) {
	f.mu.Lock()
	f.calls = append(f.calls, remoteCall{op: op, items: items})
	f.mu.Unlock()
	if f.beforeReturn != nil {
		f.beforeReturn()
	}
}

func (f *fakeRemote) UpdateItems(_ context.Context, _ string, items []cart.SyncInput) (*cart.OrderForm, error) {
	f.record("updateItems", items)
	return f.updateForm, f.updateErr
}

func (f *fakeRemote) AddItems(_ context.Context, _ string, items []cart.SyncInput) (*cart.OrderForm, error) {
	f.record("addItems", items)
	return f.addForm, f.addErr
}

func (f *fakeRemote) GetOrderForm(_ context.Context) (*cart.OrderForm, error) {
	return nil, nil
}

func (f *fakeRemote) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.op)
	}
	return out
}

type fakeNotifier struct {
	mu   sync.Mutex
	keys []string
}

func (n *fakeNotifier) NotifyFailure(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.keys = append(n.keys, key)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, analytics.Event) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(n int) *int { return &n }

type fixture struct {
	store    *store.Store
	remote   *fakeRemote
	monitor  *connectivity.Monitor
	notifier *fakeNotifier
	coord    *Coordinator
}

func newFixture(t *testing.T, offline bool) *fixture {
	t.Helper()
	st := store.New(persist.NewMemory(), nopEmitter{}, discardLogger())
	st.Hydrate(nil)
	remote := &fakeRemote{}
	monitor := connectivity.NewMonitor(offline)
	notifier := &fakeNotifier{}
	coord := NewCoordinator(st, remote, monitor, notifier, discardLogger())
	t.Cleanup(func() {
		coord.Close()
		monitor.Close()
		st.Close()
	})
	return &fixture{store: st, remote: remote, monitor: monitor, notifier: notifier, coord: coord}
}

func TestAddOnlyCycle(t *testing.T) {
	f := newFixture(t, false)
	f.remote.addForm = &cart.OrderForm{
		OrderFormID: "of-1",
		Items:       []cart.Item{{ID: "sku1", Seller: "1", Quantity: 2, CartIndex: intPtr(0)}},
	}

	require.NoError(t, f.store.AddItem(cart.Item{ID: "sku1", Seller: "1", Quantity: 2}))
	f.coord.maybeSync(context.Background())

	// A never-confirmed item goes to the add operation only.
	require.Equal(t, []string{"addItems"}, f.remote.ops())
	require.Len(t, f.remote.calls[0].items, 1)
	assert.Equal(t, "sku1", f.remote.calls[0].items[0].ID)
	assert.Nil(t, f.remote.calls[0].items[0].Index)

	state := f.store.State()
	require.NotNil(t, state.OrderForm)
	assert.Equal(t, "of-1", state.OrderForm.OrderFormID)
	require.Len(t, state.Items, 1)
	assert.Equal(t, cart.StatusUnmodified, state.Items[0].LocalStatus)
	assert.False(t, state.IsSyncing)
}

func TestUpdateBeforeAdd(t *testing.T) {
	f := newFixture(t, false)
	f.store.ApplyOrderForm(&cart.OrderForm{
		OrderFormID: "of-1",
		Items:       []cart.Item{{ID: "sku1", Seller: "1", Quantity: 1, CartIndex: intPtr(0)}},
	})
	f.remote.updateForm = &cart.OrderForm{
		OrderFormID: "of-1",
		Items:       []cart.Item{{ID: "sku1", Seller: "1", Quantity: 3, CartIndex: intPtr(0)}},
	}
	f.remote.addForm = &cart.OrderForm{
		OrderFormID: "of-1",
		Items: []cart.Item{
			{ID: "sku1", Seller: "1", Quantity: 3, CartIndex: intPtr(0)},
			{ID: "sku2", Seller: "1", Quantity: 1, CartIndex: intPtr(1)},
		},
	}

	require.NoError(t, f.store.SetQuantity("sku1", 3))
	require.NoError(t, f.store.AddItem(cart.Item{ID: "sku2", Seller: "1", Quantity: 1}))
	f.coord.maybeSync(context.Background())

	require.Equal(t, []string{"updateItems", "addItems"}, f.remote.ops())

	// Confirmed item carries its index on the update call.
	require.Len(t, f.remote.calls[0].items, 1)
	assert.Equal(t, "sku1", f.remote.calls[0].items[0].ID)
	require.NotNil(t, f.remote.calls[0].items[0].Index)

	// The add response wins as the committed form.
	state := f.store.State()
	require.Len(t, state.Items, 2)
	assert.Equal(t, cart.StatusUnmodified, state.Items[0].LocalStatus)
	assert.Equal(t, cart.StatusUnmodified, state.Items[1].LocalStatus)
}

func TestUpdateResponseCommitsWhenNothingToAdd(t *testing.T) {
	f := newFixture(t, false)
	f.store.ApplyOrderForm(&cart.OrderForm{
		OrderFormID: "of-1",
		Items:       []cart.Item{{ID: "sku1", Seller: "1", Quantity: 1, CartIndex: intPtr(0)}},
	})
	f.remote.updateForm = &cart.OrderForm{
		OrderFormID: "of-1",
		Items:       []cart.Item{{ID: "sku1", Seller: "1", Quantity: 4, CartIndex: intPtr(0)}},
	}

	require.NoError(t, f.store.SetQuantity("sku1", 4))
	f.coord.maybeSync(context.Background())

	require.Equal(t, []string{"updateItems"}, f.remote.ops())
	state := f.store.State()
	require.Len(t, state.Items, 1)
	assert.Equal(t, 4, state.Items[0].Quantity)
	assert.Equal(t, cart.StatusUnmodified, state.Items[0].LocalStatus)
}

func TestRollbackOnUpdateFailure(t *testing.T) {
	f := newFixture(t, false)
	f.store.ApplyOrderForm(&cart.OrderForm{
		OrderFormID: "of-1",
		Value:       1000,
		Items:       []cart.Item{{ID: "sku2", Seller: "1", Quantity: 1, CartIndex: intPtr(3)}},
	})
	preForm := f.store.OrderForm()

	f.remote.updateErr = cart.NewRemoteError("updateItems", 400, "ORD011", "quantity not available")

	require.NoError(t, f.store.SetQuantity("sku2", 5))
	f.coord.maybeSync(context.Background())

	// The order form reverts to its pre-cycle value and the item list
	// reverts with it, including the attempted quantity change.
	state := f.store.State()
	require.NotNil(t, state.OrderForm)
	assert.Equal(t, preForm, state.OrderForm)
	assert.False(t, state.IsSyncing)

	require.Equal(t, []string{notify.FailureKeySync}, f.notifier.keys)
}

func TestFailureDoesNotRetryUntilNewTrigger(t *testing.T) {
	f := newFixture(t, false)
	f.remote.addErr = cart.NewRemoteError("addItems", 500, "", "backend down")

	require.NoError(t, f.store.AddItem(cart.Item{ID: "sku1", Seller: "1", Quantity: 1}))
	f.coord.maybeSync(context.Background())
	require.Equal(t, []string{"addItems"}, f.remote.ops())

	// The rollback's own store tick is not a trigger.
	f.coord.maybeSync(context.Background())
	assert.Equal(t, []string{"addItems"}, f.remote.ops())

	// A fresh mutation is.
	require.NoError(t, f.store.AddItem(cart.Item{ID: "sku2", Seller: "1", Quantity: 1}))
	f.coord.maybeSync(context.Background())
	assert.Equal(t, []string{"addItems", "addItems"}, f.remote.ops())
}

func TestOfflineGatesSync(t *testing.T) {
	f := newFixture(t, true)

	require.NoError(t, f.store.AddItem(cart.Item{ID: "sku1", Seller: "1", Quantity: 1}))
	f.coord.maybeSync(context.Background())
	assert.Empty(t, f.remote.ops(), "no remote call while offline")

	f.remote.addForm = &cart.OrderForm{
		OrderFormID: "of-1",
		Items:       []cart.Item{{ID: "sku1", Seller: "1", Quantity: 1, CartIndex: intPtr(0)}},
	}
	f.monitor.Set(false)
	f.coord.maybeSync(context.Background())
	assert.Equal(t, []string{"addItems"}, f.remote.ops())
}

func TestStaleResultDiscardedAfterClose(t *testing.T) {
	f := newFixture(t, false)
	f.remote.addForm = &cart.OrderForm{
		OrderFormID: "of-1",
		Items:       []cart.Item{{ID: "sku1", Seller: "1", Quantity: 1, CartIndex: intPtr(0)}},
	}
	// Teardown lands while the remote call is in flight.
	f.remote.beforeReturn = func() { f.coord.Close() }

	require.NoError(t, f.store.AddItem(cart.Item{ID: "sku1", Seller: "1", Quantity: 1}))
	before := f.store.State()
	f.coord.maybeSync(context.Background())

	after := f.store.State()
	assert.Nil(t, after.OrderForm, "stale commit must not be applied")
	assert.Equal(t, before.Items, after.Items)
	assert.False(t, after.IsSyncing, "the flag must not stay latched on a store outliving the coordinator")
	assert.Empty(t, f.notifier.keys)
}

func TestConfirmedRemovalSettlesAfterCommit(t *testing.T) {
	f := newFixture(t, false)
	f.store.ApplyOrderForm(&cart.OrderForm{
		OrderFormID: "of-1",
		Items:       []cart.Item{{ID: "sku1", Seller: "1", Quantity: 2, CartIndex: intPtr(0)}},
	})
	f.remote.updateForm = &cart.OrderForm{OrderFormID: "of-1", Items: []cart.Item{}}

	require.NoError(t, f.store.RemoveItem("sku1"))
	f.coord.maybeSync(context.Background())

	// The removal rides the update call; once the backend's form omits the
	// item, nothing stays pending.
	require.Equal(t, []string{"updateItems"}, f.remote.ops())
	assert.Empty(t, f.store.ModifiedItems())
	assert.Empty(t, f.store.Items())

	// A settled cycle must not re-issue the same update.
	f.coord.maybeSync(context.Background())
	assert.Equal(t, []string{"updateItems"}, f.remote.ops())
}

func TestMidCycleMutationJoinsNextSet(t *testing.T) {
	f := newFixture(t, false)
	f.remote.addForm = &cart.OrderForm{
		OrderFormID: "of-1",
		Items:       []cart.Item{{ID: "sku1", Seller: "1", Quantity: 1, CartIndex: intPtr(0)}},
	}
	// The user bumps sku1 while the add call is in flight.
	f.remote.beforeReturn = func() {
		f.remote.beforeReturn = nil
		require.NoError(t, f.store.SetQuantity("sku1", 4))
	}

	require.NoError(t, f.store.AddItem(cart.Item{ID: "sku1", Seller: "1", Quantity: 1}))
	f.coord.maybeSync(context.Background())

	// The commit keeps the fresher local quantity pending for the next
	// cycle, now carrying the confirmed index.
	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
	assert.Equal(t, cart.StatusModified, items[0].LocalStatus)
	require.NotNil(t, items[0].CartIndex)

	f.coord.maybeSync(context.Background())
	assert.Equal(t, []string{"addItems", "updateItems"}, f.remote.ops())
}

func TestRunLoopSyncsOnStoreTick(t *testing.T) {
	f := newFixture(t, false)
	f.remote.addForm = &cart.OrderForm{
		OrderFormID: "of-1",
		Items:       []cart.Item{{ID: "sku1", Seller: "1", Quantity: 1, CartIndex: intPtr(0)}},
	}

	synced := make(chan struct{})
	f.remote.beforeReturn = func() {
		f.remote.beforeReturn = nil
		close(synced)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		f.coord.Run(ctx)
		close(done)
	}()

	require.NoError(t, f.store.AddItem(cart.Item{ID: "sku1", Seller: "1", Quantity: 1}))
	<-synced

	cancel()
	<-done
}
