package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/infrastructure/store"
	"github.com/example/ec-cart-pricing/internal/logger"
	"github.com/example/ec-cart-pricing/internal/metrics"
)

var (
	ErrPersist       = errors.New("failed to persist cart")
	ErrRefreshFailed = errors.New("cart refresh failed")
)

// maxCommitAttempts bounds how often a mutation is retried after a
// version conflict.
const maxCommitAttempts = 3

const (
	opAdd            = "add"
	opUpdateQuantity = "update_quantity"
	opRemove         = "remove"
	opRemoveMultiple = "remove_multiple"
	opEmpty          = "empty"
	opRefresh        = "refresh"
)

// Store holds the state of one shopper's cart. Every mutation computes the
// next state, saves it through the Persister and only then makes it
// visible, so a failed save leaves the cart as it was.
type Store struct {
	mu    sync.RWMutex
	id    string
	state State

	persister Persister
	validate  ValidationPolicy
	publisher store.Publisher
	metrics   *metrics.CartMetrics
	now       func() time.Time
	log       *zap.Logger
}

type Option func(*Store)

// WithValidation makes Add and UpdateQuantity reject quantities the policy refuses.
func WithValidation(policy ValidationPolicy) Option {
	return func(s *Store) { s.validate = policy }
}

func WithPublisher(p store.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithMetrics(m *metrics.CartMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore loads the persisted state of cart id.
func NewStore(ctx context.Context, id string, persister Persister, opts ...Option) (*Store, error) {
	s := &Store{
		id:        id,
		persister: persister,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("cart")
	}
	s.log = s.log.With(zap.String("cart_id", id))

	state, err := loadState(ctx, persister)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart %s: %w", id, err)
	}
	s.state = state

	return s, nil
}

func (s *Store) ID() string {
	return s.id
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) Items() []LineItem {
	return s.State().Items
}

func (s *Store) Item(key Key) (LineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.state.indexOf(key); i >= 0 {
		return s.state.Items[i], true
	}
	return LineItem{}, false
}

func (s *Store) Country() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Country
}

// Add appends item, or merges its quantity into the line with the same key.
// A nil item is ignored. Add does not check the item itself; quantities
// are only refused through the validation policy.
func (s *Store) Add(ctx context.Context, item *LineItem) error {
	if item == nil {
		return nil
	}

	return s.apply(ctx, opAdd, func(cur State) (*change, error) {
		next := cur.clone()
		if i := next.indexOf(item.Key); i >= 0 {
			merged := next.Items[i].Quantity + item.Quantity
			if !s.allowed(next.Items[i], merged) {
				return nil, ErrQuantityRejected
			}
			next.Items[i].Quantity = merged
		} else {
			if !s.allowed(*item, item.Quantity) {
				return nil, ErrQuantityRejected
			}
			next.Items = append(next.Items, *item)
		}

		return &change{next: next, eventType: EventItemAdded, data: ItemAddedToCart{
			CartID:   s.id,
			Key:      item.Key,
			Added:    item.Quantity,
			Quantity: next.Items[next.indexOf(item.Key)].Quantity,
			AddedAt:  s.now(),
		}}, nil
	})
}

// UpdateQuantity sets the quantity of the line with key. A quantity of
// zero or less removes the line. Unknown keys are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, key Key, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, key)
	}

	return s.apply(ctx, opUpdateQuantity, func(cur State) (*change, error) {
		i := cur.indexOf(key)
		if i < 0 {
			return nil, nil
		}
		if !s.allowed(cur.Items[i], quantity) {
			return nil, ErrQuantityRejected
		}

		next := cur.clone()
		next.Items[i].Quantity = quantity
		return &change{next: next, eventType: EventQuantityUpdated, data: CartItemQuantityUpdated{
			CartID:    s.id,
			Key:       key,
			Quantity:  quantity,
			UpdatedAt: s.now(),
		}}, nil
	})
}

// Remove deletes the line with key. Unknown keys are ignored.
func (s *Store) Remove(ctx context.Context, key Key) error {
	return s.apply(ctx, opRemove, func(cur State) (*change, error) {
		i := cur.indexOf(key)
		if i < 0 {
			return nil, nil
		}

		next := cur.clone()
		next.Items = append(next.Items[:i], next.Items[i+1:]...)
		return &change{next: next, eventType: EventItemRemoved, data: ItemRemovedFromCart{
			CartID:    s.id,
			Key:       key,
			RemovedAt: s.now(),
		}}, nil
	})
}

// RemoveMultiple deletes every line whose key is listed, in one commit.
// Keys not in the cart are ignored.
func (s *Store) RemoveMultiple(ctx context.Context, keys []Key) error {
	drop := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}

	return s.apply(ctx, opRemoveMultiple, func(cur State) (*change, error) {
		next := cur.clone()
		kept := next.Items[:0]
		var removed []Key
		for _, item := range next.Items {
			if _, ok := drop[item.Key]; ok {
				removed = append(removed, item.Key)
				continue
			}
			kept = append(kept, item)
		}
		if len(removed) == 0 {
			return nil, nil
		}
		next.Items = kept

		return &change{next: next, eventType: EventItemsRemoved, data: ItemsRemovedFromCart{
			CartID:    s.id,
			Keys:      removed,
			RemovedAt: s.now(),
		}}, nil
	})
}

// Empty removes every line. Emptying an empty cart does nothing.
func (s *Store) Empty(ctx context.Context) error {
	return s.apply(ctx, opEmpty, func(cur State) (*change, error) {
		if len(cur.Items) == 0 {
			return nil, nil
		}

		next := cur.clone()
		next.Items = []LineItem{}
		return &change{next: next, eventType: EventCartEmptied, data: CartEmptied{
			CartID:    s.id,
			EmptiedAt: s.now(),
		}}, nil
	})
}

// Refresh reconciles every line with the catalog for country. Found lines
// take the catalog's current data and have their quantity clamped to a
// positive stock; lines the catalog no longer returns are kept with zero
// stock. A catalog error leaves the cart unchanged. An empty country keeps
// the cart's current one.
func (s *Store) Refresh(ctx context.Context, catalog Catalog, country string) error {
	country = strings.ToUpper(strings.TrimSpace(country))

	return s.apply(ctx, opRefresh, func(cur State) (*change, error) {
		target := country
		if target == "" {
			target = cur.Country
		}

		next := cur.clone()
		next.Country = target
		event := CartRefreshed{CartID: s.id, Country: target}

		if len(next.Items) == 0 {
			if target == cur.Country {
				return nil, nil
			}
			event.RefreshedAt = s.now()
			return &change{next: next, eventType: EventCartRefreshed, data: event}, nil
		}

		keys := make([]Key, len(next.Items))
		for i, item := range next.Items {
			keys[i] = item.Key
		}

		entries, err := catalog.Lookup(ctx, target, keys)
		if err != nil {
			s.metrics.RecordRefreshFailure()
			s.log.Warn("catalog refresh failed", zap.String("country", target), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}

		found := make(map[Key]Entry, len(entries))
		for _, e := range entries {
			found[e.Key] = e
		}

		for i := range next.Items {
			item := &next.Items[i]
			e, ok := found[item.Key]
			if !ok {
				item.Stock = 0
				event.Missing = append(event.Missing, item.Key)
				continue
			}
			e.applyTo(item)
			if item.Stock > 0 && item.Quantity > item.Stock {
				item.Quantity = item.Stock
				event.Clamped = append(event.Clamped, item.Key)
			}
		}

		event.RefreshedAt = s.now()
		return &change{next: next, eventType: EventCartRefreshed, data: event}, nil
	})
}

// change is the outcome of a mutation: the next state and the event that
// announces it.
type change struct {
	next      State
	eventType string
	data      any
}

// mutation derives a change from the current state. A nil change means
// there is nothing to commit.
type mutation func(cur State) (*change, error)

// apply runs m against the current state and commits the result. When the
// snapshot was written elsewhere since it was loaded, the state is
// reloaded and m runs again on it, up to maxCommitAttempts times.
func (s *Store) apply(ctx context.Context, op string, m mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; ; attempt++ {
		ch, err := m(s.state)
		if err != nil || ch == nil {
			return err
		}

		err = s.commit(ctx, ch)
		if err == nil {
			s.metrics.RecordCartOperation(op, nil)
			s.publish(ctx, ch.eventType, ch.data)
			return nil
		}

		if !errors.Is(err, store.ErrVersionConflict) || attempt == maxCommitAttempts {
			s.metrics.RecordCartOperation(op, err)
			s.log.Error("failed to save cart",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %w", ErrPersist, err)
		}

		s.log.Debug("cart changed elsewhere, reloading",
			zap.String("operation", op),
			zap.Int("stale_version", s.state.Version),
		)
		if err := s.reload(ctx); err != nil {
			s.metrics.RecordCartOperation(op, err)
			return fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}
}

func (s *Store) allowed(item LineItem, quantity int) bool {
	return s.validate == nil || s.validate(item, quantity)
}

// commit saves ch.next as the version after the current one and makes it
// visible. It must be called with s.mu held.
func (s *Store) commit(ctx context.Context, ch *change) error {
	next := ch.next
	next.recompute()
	next.Version = s.state.Version + 1
	next.UpdatedAt = s.now()

	if err := s.persister.Save(ctx, next); err != nil {
		return err
	}
	s.state = next
	return nil
}

// reload replaces the in-memory state with the persisted one.
func (s *Store) reload(ctx context.Context) error {
	state, err := loadState(ctx, s.persister)
	if err != nil {
		return fmt.Errorf("failed to reload cart %s: %w", s.id, err)
	}
	s.state = state
	return nil
}

func loadState(ctx context.Context, persister Persister) (State, error) {
	state, err := persister.Load(ctx)
	if err != nil {
		return State{}, err
	}
	if state.Items == nil {
		state.Items = []LineItem{}
	}
	state.recompute()
	return state, nil
}

func (s *Store) publish(ctx context.Context, eventType string, data any) {
	if s.publisher == nil {
		return
	}

	event, err := store.NewEvent(s.id, AggregateType, eventType, s.state.Version, data)
	if err != nil {
		s.log.Error("failed to build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, s.id, event); err != nil {
		s.log.Warn("failed to publish event", zap.String("event_type", eventType), zap.Error(err))
	}
}
