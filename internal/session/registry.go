package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ramukaka/market/internal/cart"
	"github.com/ramukaka/market/internal/checkout"
	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/logger"
	"github.com/ramukaka/market/internal/notify"
	"github.com/ramukaka/market/internal/profile"
	"github.com/ramukaka/market/internal/storage"
)

const (
	DefaultTTL             = 30 * time.Minute
	DefaultCleanupInterval = 30 * time.Second
)

var ErrForeignSession = errors.New("session belongs to another user")

type Config struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

type Deps struct {
	KV       storage.Store
	Profiles *profile.Resolver
	Orders   checkout.Submitter
	Payments checkout.PaymentBranch
	Log      *slog.Logger
}

// Session is one browser's cart, notifications and current checkout.
type Session struct {
	ID     string
	Cart   *cart.Store
	Notes  *notify.Recorder
	Ledger *checkout.PaymentLedger

	mu       sync.Mutex
	userID   string
	checkout *checkout.Orchestrator
	lastSeen time.Time
	deps     Deps
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// CustomerID is the id orders are filed under. Guests are keyed by their session.
func (s *Session) CustomerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customerIDLocked()
}

func (s *Session) customerIDLocked() string {
	if s.userID != "" {
		return s.userID
	}
	return "guest:" + s.ID
}

// Checkout returns the current checkout, creating one if none exists yet.
func (s *Session) Checkout() *checkout.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout == nil {
		s.checkout = s.newCheckoutLocked()
	}
	return s.checkout
}

// BeginCheckout is Checkout, except a closed checkout is replaced by a fresh one.
func (s *Session) BeginCheckout() *checkout.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout == nil || s.checkout.State().IsTerminal() {
		s.checkout = s.newCheckoutLocked()
	}
	return s.checkout
}

func (s *Session) newCheckoutLocked() *checkout.Orchestrator {
	var profiles checkout.ProfileSource
	if s.deps.Profiles != nil {
		profiles = s.deps.Profiles.For(s.ID, s.userID)
	}
	return checkout.New(s.customerIDLocked(), checkout.Deps{
		Cart:     s.Cart,
		Profiles: profiles,
		Orders:   s.deps.Orders,
		Payments: s.deps.Payments,
		Notifier: s.Notes,
		Ledger:   s.Ledger,
		Log:      s.deps.Log.With("session_id", s.ID),
	})
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// CartLocked reports whether the current checkout has committed the cart lines to a
// payment or an order write.
func (s *Session) CartLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout != nil && s.checkout.HoldsCart()
}

// busy sessions are awaiting a payment callback or an order write and are never expired.
func (s *Session) busy() bool {
	return s.CartLocked()
}

// Registry keeps live sessions in memory and expires idle ones in the background.
// Carts outlive their session in the key-value store.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     Deps
	cfg      Config
	now      func() time.Time
	log      *slog.Logger

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewRegistry(deps Deps, cfg Config) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	deps.Log = logger.OrDefault(deps.Log)

	r := &Registry{
		sessions:    make(map[string]*Session),
		deps:        deps,
		cfg:         cfg,
		now:         time.Now,
		log:         deps.Log,
		stopCleanup: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop()

	return r
}

// Get returns the session for id, creating it when id is empty or unknown. An anonymous
// session is adopted by the first user that signs in with it.
func (r *Registry) Get(ctx context.Context, id, userID string) (*Session, error) {
	if id != "" {
		r.mu.RLock()
		s, ok := r.sessions[id]
		r.mu.RUnlock()
		if ok {
			return s, r.touch(ctx, s, userID)
		}
	} else {
		id = uuid.NewString()
	}

	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		s = r.newSession(id)
		r.sessions[id] = s
	}
	r.mu.Unlock()

	if !ok {
		s.Cart.Load(ctx)
		r.log.DebugContext(ctx, "session created", "session_id", id)
	}
	return s, r.touch(ctx, s, userID)
}

func (r *Registry) newSession(id string) *Session {
	notes := notify.NewRecorder()
	return &Session{
		ID:       id,
		Cart:     cart.NewStore(r.deps.KV, storage.CartKey(id), notes, r.log.With("session_id", id)),
		Notes:    notes,
		Ledger:   checkout.NewPaymentLedger(),
		lastSeen: r.now(),
		deps:     r.deps,
	}
}

func (r *Registry) touch(ctx context.Context, s *Session, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID != "" && s.userID != userID {
		if s.userID != "" {
			return ErrForeignSession
		}
		s.userID = userID
		if s.checkout != nil && s.checkout.State() == domain.CheckoutStateIdle {
			s.checkout = nil
		}
		r.log.InfoContext(ctx, "session adopted by user", "session_id", s.ID, "user_id", userID)
	}
	s.lastSeen = r.now()
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.expireIdle()
		case <-r.stopCleanup:
			return
		}
	}
}

// expireIdle drops sessions unused for longer than the TTL. Busy sessions are kept until
// the payment or the order write settles.
func (r *Registry) expireIdle() {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.idleSince(now) > r.cfg.TTL && !s.busy() {
			delete(r.sessions, id)
			r.log.Debug("session expired", "session_id", id)
		}
	}
}

// Close stops the background cleanup and waits for it to finish
func (r *Registry) Close() error {
	close(r.stopCleanup)
	r.wg.Wait()
	return nil
}
