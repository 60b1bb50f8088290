package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ramukaka/market/internal/circuitbreaker"
	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/logger"
	"github.com/ramukaka/market/internal/repository"
	"github.com/ramukaka/market/internal/storage"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

// ProfileFetchError wraps a failed remote lookup. It is logged, never surfaced to the customer.
type ProfileFetchError struct {
	UserID string
	Err    error
}

func (e *ProfileFetchError) Error() string {
	return fmt.Sprintf("fetch profile for user %s: %v", e.UserID, e.Err)
}

func (e *ProfileFetchError) Unwrap() error { return e.Err }

// Resolver layers the remote profile over the session's locally stored one.
type Resolver struct {
	kv      storage.Store
	remote  repository.UserRepository
	breaker *gobreaker.CircuitBreaker[*domain.Profile]
	sfg     singleflight.Group // collapses concurrent fetches for one user
	timeout time.Duration
	log     *slog.Logger
}

func NewResolver(kv storage.Store, remote repository.UserRepository, timeout time.Duration, log *slog.Logger) *Resolver {
	log = logger.OrDefault(log)
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		kv:     kv,
		remote: remote,
		breaker: circuitbreaker.New[*domain.Profile]("profile-fetch", circuitbreaker.Config{
			Ignore: []error{repository.ErrUserNotFound},
		}, log),
		timeout: timeout,
		log:     log,
	}
}

// Resolve never fails. Anonymous users and remote errors both yield the local profile alone.
func (r *Resolver) Resolve(ctx context.Context, sessionID, userID string) domain.Profile {
	local := r.loadLocal(ctx, sessionID)
	if userID == "" || r.remote == nil {
		return local
	}

	remote, err := r.fetchRemote(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			r.log.WarnContext(ctx, "profile fetch failed, using local profile", "error", err)
		}
		return local
	}
	return domain.MergeProfiles(local, *remote)
}

// SaveLocal remembers the delivery details for the session's next checkout.
func (r *Resolver) SaveLocal(ctx context.Context, sessionID string, p domain.Profile) error {
	p.Roles = nil
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile failed: %w", err)
	}
	if err := r.kv.Set(ctx, storage.ProfileKey(sessionID), string(raw)); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	return nil
}

func (r *Resolver) loadLocal(ctx context.Context, sessionID string) domain.Profile {
	raw, err := r.kv.Get(ctx, storage.ProfileKey(sessionID))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.log.WarnContext(ctx, "local profile read failed", "session_id", sessionID, "error", err)
		}
		return domain.Profile{}
	}

	var p domain.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		r.log.WarnContext(ctx, "local profile corrupt, ignoring", "session_id", sessionID, "error", err)
		return domain.Profile{}
	}
	// roles only ever come from the remote record
	p.Roles = nil
	return p
}

func (r *Resolver) fetchRemote(ctx context.Context, userID string) (*domain.Profile, error) {
	v, err, _ := r.sfg.Do(userID, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.breaker.Execute(func() (*domain.Profile, error) {
			return r.remote.GetProfile(fetchCtx, userID)
		})
	})
	if err != nil {
		return nil, &ProfileFetchError{UserID: userID, Err: err}
	}
	return v.(*domain.Profile), nil
}

// For binds the resolver to one session and user.
func (r *Resolver) For(sessionID, userID string) *Bound {
	return &Bound{resolver: r, sessionID: sessionID, userID: userID}
}

type Bound struct {
	resolver  *Resolver
	sessionID string
	userID    string
}

func (b *Bound) Resolve(ctx context.Context) domain.Profile {
	return b.resolver.Resolve(ctx, b.sessionID, b.userID)
}

func (b *Bound) SaveLocal(ctx context.Context, p domain.Profile) error {
	return b.resolver.SaveLocal(ctx, b.sessionID, p)
}
