package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/logger"
	"github.com/ramukaka/market/internal/notify"
	"github.com/ramukaka/market/internal/storage"
)

var (
	ErrInvalidItem     = errors.New("cart item must have an id")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Store owns the live cart of one session. Every mutation writes the full snapshot
// through to the backing store before the in-memory view changes.
type Store struct {
	mu       sync.Mutex
	kv       storage.Store
	key      string
	items    []domain.CartItem
	notifier notify.Notifier
	log      *slog.Logger
}

func NewStore(kv storage.Store, key string, notifier notify.Notifier, log *slog.Logger) *Store {
	return &Store{
		kv:       kv,
		key:      key,
		items:    []domain.CartItem{},
		notifier: notifier,
		log:      logger.OrDefault(log),
	}
}

// Load reads the persisted snapshot. Missing or unreadable data yields an empty cart.
func (s *Store) Load(ctx context.Context) []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []domain.CartItem{}

	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.WarnContext(ctx, "cart load failed, starting empty", "key", s.key, "error", err)
		}
		return domain.CloneItems(s.items)
	}

	var items []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.WarnContext(ctx, "cart snapshot corrupt, starting empty", "key", s.key, "error", err)
		return domain.CloneItems(s.items)
	}

	for _, item := range items {
		if item.ID != "" && item.Quantity >= 1 {
			s.items = append(s.items, item)
		}
	}
	return domain.CloneItems(s.items)
}

func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.items)
}

func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CartTotal(s.items)
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// Add appends a product or, when it is already in the cart, adds to its quantity.
func (s *Store) Add(ctx context.Context, item domain.CartItem) error {
	if item.ID == "" {
		return ErrInvalidItem
	}
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := domain.CloneItems(s.items)
	merged := false
	for i := range next {
		if next[i].ID == item.ID {
			next[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		next = append(next, domain.CloneItems([]domain.CartItem{item})...)
	}
	return s.commit(ctx, next)
}

// SetQuantity replaces a line's quantity; below 1 it removes the line. Unknown ids are ignored.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return s.Remove(ctx, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(productID)
	if idx < 0 {
		return nil
	}
	next := domain.CloneItems(s.items)
	next[idx].Quantity = quantity
	return s.commit(ctx, next)
}

func (s *Store) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	idx := s.indexOf(productID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	removed := s.items[idx]
	next := make([]domain.CartItem, 0, len(s.items)-1)
	next = append(next, domain.CloneItems(s.items[:idx])...)
	next = append(next, domain.CloneItems(s.items[idx+1:])...)
	err := s.commit(ctx, next)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Notify(notify.Info("Removed from cart", fmt.Sprintf("%s was removed from your cart", removed.Name)))
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, []domain.CartItem{})
}

// Deduct takes ordered quantities out of the cart. Lines that drop below 1 are removed;
// anything added after the order was frozen stays.
func (s *Store) Deduct(ctx context.Context, ordered []domain.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	left := make(map[string]int, len(ordered))
	for _, item := range ordered {
		left[item.ID] += item.Quantity
	}
	next := make([]domain.CartItem, 0, len(s.items))
	for _, item := range domain.CloneItems(s.items) {
		item.Quantity -= left[item.ID]
		if item.Quantity >= 1 {
			next = append(next, item)
		}
	}
	return s.commit(ctx, next)
}

func (s *Store) indexOf(productID string) int {
	for i, item := range s.items {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

// commit persists next and only then swaps it in, so a failed write leaves both views equal.
func (s *Store) commit(ctx context.Context, next []domain.CartItem) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(raw)); err != nil {
		s.log.ErrorContext(ctx, "cart persist failed", "key", s.key, "error", err)
		return fmt.Errorf("persist cart: %w", err)
	}
	s.items = next
	return nil
}
