// Package store owns the local minicart state: the item list, the last
// server-confirmed order form and the visibility flag. It is the single
// mutable resource of the engine; the sync coordinator and the mutation entry
// points are its only writers.
//
// Every successful state transition is persisted to the blob store and
// followed by diff-based analytics emission: one removeFromCart event for
// items that disappeared, then one addToCart event for items that appeared.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"minicart-sync/internal/analytics"
	"minicart-sync/internal/cart"
	"minicart-sync/internal/diff"
	"minicart-sync/internal/persist"
)

// State is the read-only snapshot exposed to the presentation layer.
// Version counts settled transitions; the coordinator uses it to tell a
// fresh mutation from the echo of its own rollback.
type State struct {
	Items     []cart.Item     `json:"items"`
	OrderForm *cart.OrderForm `json:"orderForm,omitempty"`
	IsOpen    bool            `json:"isOpen"`
	IsSyncing bool            `json:"isSyncing"`
	Version   uint64          `json:"-"`
}

// itemsSnapshot is the persisted shape of the item-list blob.
type itemsSnapshot struct {
	Items  []cart.Item `json:"items"`
	IsOpen bool        `json:"isOpen"`
}

// Store holds the local cart state.
type Store struct {
	mu        sync.Mutex
	items     []cart.Item
	orderForm *cart.OrderForm
	isOpen    bool
	syncing   bool
	closed    bool
	version   uint64

	blobs    persist.Blobs
	emitter  analytics.Emitter
	logger   *slog.Logger
	watchers []chan struct{}
}

// New creates an empty store backed by the given blob storage and emitter.
// Call Hydrate before use to restore persisted state.
func New(blobs persist.Blobs, emitter analytics.Emitter, logger *slog.Logger) *Store {
	return &Store{
		blobs:   blobs,
		emitter: emitter,
		logger:  logger,
	}
}

// Hydrate seeds the store on cold start.
//
// The item list always restores from the persisted snapshot when one exists,
// so items added while offline are never dropped. The order form prefers the
// backend-supplied value when present (the fresher remote form wins) and
// falls back to the persisted snapshot otherwise. A corrupt or missing blob
// degrades to the empty state; hydration never fails hard.
func (s *Store) Hydrate(remoteForm *cart.OrderForm) {
	s.mu.Lock()

	snapshot := s.readItemsSnapshot()
	localForm := s.readOrderFormSnapshot()

	if snapshot != nil {
		s.items = snapshot.Items
		s.isOpen = snapshot.IsOpen
	}

	switch {
	case remoteForm != nil:
		s.orderForm = remoteForm.Clone()
		if snapshot == nil {
			s.items = cart.CloneItems(remoteForm.Items)
			markUnmodified(s.items)
		}
	case localForm != nil:
		s.orderForm = localForm
		if snapshot == nil {
			s.items = cart.CloneItems(localForm.Items)
		}
	}

	s.settleLocked(nil)
}

// readItemsSnapshot loads the persisted item list, treating corruption as
// absence.
func (s *Store) readItemsSnapshot() *itemsSnapshot {
	data, err := s.blobs.Read(persist.KeyItems)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			s.logger.Warn("reading items snapshot", slog.String("error", err.Error()))
		}
		return nil
	}

	var snapshot itemsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.Warn("corrupt items snapshot, starting empty",
			slog.String("error", err.Error()))
		return nil
	}
	return &snapshot
}

// readOrderFormSnapshot loads the persisted order form, treating corruption
// as absence.
func (s *Store) readOrderFormSnapshot() *cart.OrderForm {
	data, err := s.blobs.Read(persist.KeyOrderForm)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			s.logger.Warn("reading order form snapshot", slog.String("error", err.Error()))
		}
		return nil
	}

	var form cart.OrderForm
	if err := json.Unmarshal(data, &form); err != nil {
		s.logger.Warn("corrupt order form snapshot, discarding",
			slog.String("error", err.Error()))
		return nil
	}
	return &form
}

// Items returns a copy of the current item list.
func (s *Store) Items() []cart.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.CloneItems(s.items)
}

// ModifiedItems returns the items carrying unsynced local changes.
func (s *Store) ModifiedItems() []cart.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.CloneItems(cart.ModifiedItems(s.items))
}

// OrderForm returns a copy of the last confirmed order form, or nil.
func (s *Store) OrderForm() *cart.OrderForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderForm.Clone()
}

// State returns the presentation snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Items:     cart.CloneItems(s.items),
		OrderForm: s.orderForm.Clone(),
		IsOpen:    s.isOpen,
		IsSyncing: s.syncing,
		Version:   s.version,
	}
}

// SetOpen toggles the minicart visibility flag.
func (s *Store) SetOpen(open bool) {
	s.mu.Lock()
	if s.isOpen == open {
		s.mu.Unlock()
		return
	}
	s.isOpen = open
	s.settleLocked(nil)
}

// AddItem adds a product to the cart, or bumps quantity when the ID already
// exists. The item is marked modified and picked up by the next sync cycle.
func (s *Store) AddItem(item cart.Item) error {
	if item.ID == "" {
		return cart.NewValidationError("id", "required")
	}
	if item.Quantity <= 0 {
		return cart.NewValidationError("quantity", "must be positive")
	}
	if item.Seller == "" {
		return cart.NewValidationError("seller", "required")
	}

	s.mu.Lock()
	prev := cart.CloneItems(s.items)

	merged := false
	for n := range s.items {
		if s.items[n].ID == item.ID {
			s.items[n].Quantity += item.Quantity
			s.items[n].LocalStatus = cart.StatusModified
			merged = true
			break
		}
	}
	if !merged {
		item.CartIndex = nil // never confirmed until the backend says so
		item.LocalStatus = cart.StatusModified
		s.items = append(s.items, item)
	}

	s.settleLocked(prev)
	return nil
}

// SetQuantity changes an item's quantity and marks it modified. Quantity
// zero removes the item: server-confirmed items stay at zero until a sync
// confirms the removal, local-only items are dropped immediately.
func (s *Store) SetQuantity(id string, quantity int) error {
	if quantity < 0 {
		return cart.NewValidationError("quantity", "must be non-negative")
	}

	s.mu.Lock()

	idx := -1
	for n := range s.items {
		if s.items[n].ID == id {
			idx = n
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return cart.ErrNotFound
	}

	prev := cart.CloneItems(s.items)

	if quantity == 0 && !s.items[idx].Confirmed() {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	} else {
		s.items[idx].Quantity = quantity
		s.items[idx].LocalStatus = cart.StatusModified
	}

	s.settleLocked(prev)
	return nil
}

// RemoveItem removes an item from the cart. Equivalent to SetQuantity 0.
func (s *Store) RemoveItem(id string) error {
	return s.SetQuantity(id, 0)
}

// ApplyOrderForm replaces the stored order form with a new authoritative
// snapshot and reconciles the item list against it.
//
// Items present in the form take the server-confirmed fields (cart index,
// prices, names) and drop their modified mark when the form matches their
// local quantity. Items mutated again while a sync was in flight keep their
// local quantity and stay modified, joining the next cycle. Modified items
// the form does not mention survive untouched, except items at quantity zero:
// their absence from the committed form confirms the removal and they are
// dropped.
func (s *Store) ApplyOrderForm(form *cart.OrderForm) {
	s.mu.Lock()
	prev := cart.CloneItems(s.items)

	if form == nil {
		s.orderForm = nil
		s.settleLocked(prev)
		return
	}

	localByID := make(map[string]cart.Item, len(s.items))
	for _, it := range s.items {
		localByID[it.ID] = it
	}

	next := make([]cart.Item, 0, len(form.Items))
	inForm := make(map[string]bool, len(form.Items))

	for _, formItem := range cart.CloneItems(form.Items) {
		inForm[formItem.ID] = true
		formItem.LocalStatus = cart.StatusUnmodified

		if local, ok := localByID[formItem.ID]; ok &&
			local.LocalStatus == cart.StatusModified &&
			local.Quantity != formItem.Quantity {
			// Mutated after the sync snapshot: keep the local change pending.
			formItem.Quantity = local.Quantity
			formItem.Options = local.Options
			formItem.LocalStatus = cart.StatusModified
		}

		next = append(next, formItem)
	}

	for _, it := range s.items {
		if inForm[it.ID] || it.LocalStatus != cart.StatusModified {
			continue
		}
		if it.Quantity == 0 {
			// A zero-quantity item the committed form no longer lists is a
			// confirmed removal.
			continue
		}
		next = append(next, it)
	}

	s.items = next
	s.orderForm = form.Clone()
	s.settleLocked(prev)
}

// Restore rewinds the store to a pre-sync snapshot: both the item list and
// the order form revert to the values captured when a failed cycle began.
// The rewind is one transition, so diff events for the revert are emitted
// the same way as for any other change. The returned version identifies the
// rewind transition itself; a later mutation always carries a higher one.
func (s *Store) Restore(items []cart.Item, form *cart.OrderForm) uint64 {
	s.mu.Lock()
	prev := cart.CloneItems(s.items)
	s.items = cart.CloneItems(items)
	s.orderForm = form.Clone()
	return s.settleLocked(prev)
}

// SetSyncing records whether a sync cycle is in flight. Owned by the
// coordinator; presentation reads it through State.
func (s *Store) SetSyncing(syncing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncing = syncing
}

// Syncing reports whether a sync cycle is in flight.
func (s *Store) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// Watch returns a channel that receives a tick after every settled state
// transition. The channel is buffered; a missed tick is harmless because
// watchers re-read the store when they wake.
func (s *Store) Watch() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{}, 1)
	s.watchers = append(s.watchers, ch)
	return ch
}

// Close stops watcher notifications.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, w := range s.watchers {
		close(w)
	}
	s.watchers = nil
}

// settleLocked finishes a state transition: persist, release the lock, emit
// diff events against the pre-transition snapshot and wake watchers. Returns
// the version of the settled transition.
// Callers must hold mu; the lock is released here so emission (which may hit
// a broker) never blocks other readers.
func (s *Store) settleLocked(prev []cart.Item) uint64 {
	s.version++
	s.persistLocked()

	version := s.version
	current := cart.CloneItems(s.items)
	watchers := make([]chan struct{}, len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()

	if prev != nil {
		s.emitChanges(prev, current)
	}

	for _, w := range watchers {
		select {
		case w <- struct{}{}:
		default:
		}
	}
	return version
}

// persistLocked writes both snapshots. Failures are logged, never fatal:
// in-memory state stays authoritative and the next transition retries.
func (s *Store) persistLocked() {
	snapshot, err := json.Marshal(itemsSnapshot{Items: s.items, IsOpen: s.isOpen})
	if err == nil {
		err = s.blobs.Write(persist.KeyItems, snapshot)
	}
	if err != nil {
		s.logger.Warn("persisting items snapshot", slog.String("error", err.Error()))
	}

	if s.orderForm == nil {
		return
	}
	formData, err := json.Marshal(s.orderForm)
	if err == nil {
		err = s.blobs.Write(persist.KeyOrderForm, formData)
	}
	if err != nil {
		s.logger.Warn("persisting order form snapshot", slog.String("error", err.Error()))
	}
}

// emitChanges emits diff events: removals before additions, two calls.
func (s *Store) emitChanges(prev, current []cart.Item) {
	changes := diff.Items(prev, current)
	if changes.IsEmpty() {
		return
	}

	ctx := context.Background()
	if len(changes.Removed) > 0 {
		if err := s.emitter.Emit(ctx, analytics.NewRemoveFromCart(changes.Removed)); err != nil {
			s.logger.Warn("emitting removeFromCart", slog.String("error", err.Error()))
		}
	}
	if len(changes.Added) > 0 {
		if err := s.emitter.Emit(ctx, analytics.NewAddToCart(changes.Added)); err != nil {
			s.logger.Warn("emitting addToCart", slog.String("error", err.Error()))
		}
	}
}

func markUnmodified(items []cart.Item) {
	for n := range items {
		items[n].LocalStatus = cart.StatusUnmodified
	}
}
