// Package store holds the per-entity record stores: in-memory mirrors of a
// remote table that track loading and error state for the dashboard and the
// API handlers.
//
// A Store is constructed explicitly, started with Init and torn down with
// Dispose. All methods are safe for concurrent use.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDisposed    = errors.New("store disposed")
	ErrNoRetention = errors.New("store has no retention window")
	ErrNoPurge     = errors.New("table does not support retention sweeps")
)

// Record is implemented by entity value types. Clone must deep-copy any
// slices so a snapshot taken before an optimistic update stays intact.
type Record[T any] interface {
	RecordID() uuid.UUID
	CreatedTime() time.Time
	Clone() T
}

// Patch is a partial update that knows how to apply itself to a local copy.
type Patch[T any] interface {
	Apply(*T)
}

// Table is the remote side of a store: one relational table (or a table plus
// its child rows) reachable through Postgres or the REST table API.
type Table[T any, P any] interface {
	// List returns every row, or only rows created at or after since when
	// since is non-zero.
	List(ctx context.Context, since time.Time) ([]T, error)
	// Insert persists item and fills in server-assigned fields.
	Insert(ctx context.Context, item *T) error
	Update(ctx context.Context, id uuid.UUID, patch P) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Purger is implemented by tables that support retention sweeps.
type Purger interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type Op string

const (
	OpFetch  Op = "fetch"
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRevert Op = "revert"
	OpRemove Op = "remove"
	OpSweep  Op = "sweep"
)

// Change describes a committed mutation of store state.
type Change struct {
	Store string    `json:"store"`
	Op    Op        `json:"op"`
	ID    uuid.UUID `json:"id,omitempty"`
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

// State is an immutable snapshot of a store.
type State[T any] struct {
	Items     []T        `json:"items"`
	Loading   bool       `json:"loading"`
	Error     string     `json:"error,omitempty"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

// Status is State without the items, for dashboards.
type Status struct {
	Name      string     `json:"name"`
	Loading   bool       `json:"loading"`
	Error     string     `json:"error,omitempty"`
	Count     int        `json:"count"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

type options struct {
	retention time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

type Option func(*options)

// WithRetention limits fetches to records created within d and enables Sweep.
func WithRetention(d time.Duration) Option {
	return func(o *options) { o.retention = d }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

type Store[T Record[T], P Patch[T]] struct {
	name  string
	table Table[T, P]
	opts  options
	log   zerolog.Logger

	mu        sync.RWMutex
	items     []T
	loading   bool
	errMsg    string
	fetchedAt time.Time
	fetchSeq  uint64
	disposed  bool
	listeners []func(Change)

	lockMu sync.Mutex
	locks  map[uuid.UUID]*recordLock
}

func New[T Record[T], P Patch[T]](name string, table Table[T, P], opts ...Option) *Store[T, P] {
	o := options{now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T, P]{
		name:  name,
		table: table,
		opts:  o,
		log:   o.logger.With().Str("store", name).Logger(),
	}
}

func (s *Store[T, P]) Name() string { return s.name }

// Retention returns the configured retention window, zero when unset.
func (s *Store[T, P]) Retention() time.Duration { return s.opts.retention }

// Init performs the first fetch. A disposed store may be re-initialized.
func (s *Store[T, P]) Init(ctx context.Context) error {
	s.mu.Lock()
	s.disposed = false
	s.mu.Unlock()
	return s.Fetch(ctx)
}

// Dispose drops cached state and listeners. Further calls fail with
// ErrDisposed until Init is called again.
func (s *Store[T, P]) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.items = nil
	s.listeners = nil
	s.loading = false
	s.errMsg = ""
	s.fetchedAt = time.Time{}
}

// OnChange registers fn to be called after every committed mutation.
func (s *Store[T, P]) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Fetch replaces the cached collection with the table's current rows. Only
// the most recently started fetch commits; results of superseded fetches are
// dropped.
func (s *Store[T, P]) Fetch(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	s.fetchSeq++
	seq := s.fetchSeq
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	var since time.Time
	if s.opts.retention > 0 {
		since = s.opts.now().Add(-s.opts.retention)
	}

	items, err := s.table.List(ctx, since)

	s.mu.Lock()
	if seq != s.fetchSeq || s.disposed {
		s.mu.Unlock()
		s.log.Debug().Uint64("seq", seq).Msg("dropping superseded fetch")
		return err
	}
	s.loading = false
	if err != nil {
		s.errMsg = err.Error()
		s.mu.Unlock()
		s.log.Error().Err(err).Msg("fetch failed")
		return err
	}
	if !since.IsZero() {
		items = keepSince(items, since)
	}
	s.items = items
	s.fetchedAt = s.opts.now()
	count := len(items)
	s.mu.Unlock()

	s.notify(Change{Op: OpFetch, Count: count})
	return nil
}

// Add persists item and prepends the stored version to local state.
func (s *Store[T, P]) Add(ctx context.Context, item T) (T, error) {
	if err := s.begin(); err != nil {
		return item, err
	}

	if err := s.table.Insert(ctx, &item); err != nil {
		s.fail("add", err)
		return item, err
	}

	s.mu.Lock()
	s.items = append([]T{item}, s.items...)
	s.mu.Unlock()

	s.notify(Change{Op: OpAdd, ID: item.RecordID(), Count: 1})
	return item, nil
}

// Update applies patch locally, then remotely. When the remote write fails
// the record is restored to the snapshot taken before the patch and the
// store's error is set to the remote error message.
//
// Updates to the same record run one at a time, so a restored snapshot
// never overwrites a later update that succeeded.
func (s *Store[T, P]) Update(ctx context.Context, id uuid.UUID, patch P) (T, error) {
	return s.Modify(ctx, id, func(T) (P, error) { return patch, nil })
}

// Modify is Update with a patch derived from the current record. fn runs
// while the record is locked against other updates, so checks it makes on
// current still hold when the patch is applied. An error from fn aborts the
// update without touching state. fn must not call back into the store.
func (s *Store[T, P]) Modify(ctx context.Context, id uuid.UUID, fn func(current T) (P, error)) (T, error) {
	var zero T

	unlock := s.lockRecord(id)
	defer unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return zero, ErrDisposed
	}
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return zero, ErrNotFound
	}
	snapshot := s.items[idx].Clone()
	patch, err := fn(snapshot.Clone())
	if err != nil {
		s.mu.Unlock()
		return zero, err
	}
	s.errMsg = ""
	next := s.items[idx].Clone()
	patch.Apply(&next)
	s.items[idx] = next
	s.mu.Unlock()

	if err := s.table.Update(ctx, id, patch); err != nil {
		s.mu.Lock()
		if i := s.indexOf(id); i >= 0 {
			s.items[i] = snapshot
		}
		s.errMsg = err.Error()
		s.mu.Unlock()
		s.log.Error().Err(err).Str("id", id.String()).Msg("update failed, restored snapshot")
		s.notify(Change{Op: OpRevert, ID: id, Count: 1})
		return snapshot.Clone(), err
	}

	s.notify(Change{Op: OpUpdate, ID: id, Count: 1})
	return next.Clone(), nil
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

// lockRecord serializes writers of one record. The returned func releases
// the lock and drops it once no writer is waiting.
func (s *Store[T, P]) lockRecord(id uuid.UUID) func() {
	s.lockMu.Lock()
	if s.locks == nil {
		s.locks = make(map[uuid.UUID]*recordLock)
	}
	l := s.locks[id]
	if l == nil {
		l = &recordLock{}
		s.locks[id] = l
	}
	l.refs++
	s.lockMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.lockMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.lockMu.Unlock()
	}
}

// Remove deletes the record remotely, then locally.
func (s *Store[T, P]) Remove(ctx context.Context, id uuid.UUID) error {
	if err := s.begin(); err != nil {
		return err
	}

	if err := s.table.Delete(ctx, id); err != nil {
		s.fail("remove", err)
		return err
	}

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.items = append(s.items[:i:i], s.items[i+1:]...)
	}
	s.mu.Unlock()

	s.notify(Change{Op: OpRemove, ID: id, Count: 1})
	return nil
}

// Sweep deletes remote rows created before the retention window and drops
// them from local state. It returns the number of rows the table removed.
func (s *Store[T, P]) Sweep(ctx context.Context) (int, error) {
	if s.opts.retention <= 0 {
		return 0, ErrNoRetention
	}
	purger, ok := any(s.table).(Purger)
	if !ok {
		return 0, ErrNoPurge
	}
	if err := s.begin(); err != nil {
		return 0, err
	}

	cutoff := s.opts.now().Add(-s.opts.retention)
	n, err := purger.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		s.fail("sweep", err)
		return 0, err
	}

	s.mu.Lock()
	s.items = keepSince(s.items, cutoff)
	s.mu.Unlock()

	s.log.Info().Int("removed", n).Time("cutoff", cutoff).Msg("retention sweep")
	s.notify(Change{Op: OpSweep, Count: n})
	return n, nil
}

// Get returns a copy of the cached record with the given id.
func (s *Store[T, P]) Get(id uuid.UUID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	var zero T
	return zero, false
}

// Items returns a copy of the cached collection.
func (s *Store[T, P]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyItems()
}

func (s *Store[T, P]) State() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State[T]{
		Items:     s.copyItems(),
		Loading:   s.loading,
		Error:     s.errMsg,
		FetchedAt: s.fetchedAtPtr(),
	}
}

func (s *Store[T, P]) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Name:      s.name,
		Loading:   s.loading,
		Error:     s.errMsg,
		Count:     len(s.items),
		FetchedAt: s.fetchedAtPtr(),
	}
}

func (s *Store[T, P]) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	s.errMsg = ""
	return nil
}

func (s *Store[T, P]) fail(op string, err error) {
	s.mu.Lock()
	s.errMsg = err.Error()
	s.mu.Unlock()
	s.log.Error().Err(err).Str("op", op).Msg("remote call failed")
}

func (s *Store[T, P]) notify(c Change) {
	c.Store = s.name
	c.At = s.opts.now()

	s.mu.RLock()
	listeners := make([]func(Change), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(c)
	}
}

// indexOf must be called with s.mu held.
func (s *Store[T, P]) indexOf(id uuid.UUID) int {
	for i := range s.items {
		if s.items[i].RecordID() == id {
			return i
		}
	}
	return -1
}

func (s *Store[T, P]) copyItems() []T {
	out := make([]T, len(s.items))
	for i := range s.items {
		out[i] = s.items[i].Clone()
	}
	return out
}

func (s *Store[T, P]) fetchedAtPtr() *time.Time {
	if s.fetchedAt.IsZero() {
		return nil
	}
	t := s.fetchedAt
	return &t
}

func keepSince[T Record[T]](items []T, since time.Time) []T {
	kept := make([]T, 0, len(items))
	for _, it := range items {
		if !it.CreatedTime().Before(since) {
			kept = append(kept, it)
		}
	}
	return kept
}
