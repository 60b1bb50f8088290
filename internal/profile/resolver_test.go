package profile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/repository"
	"github.com/ramukaka/market/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUsers struct {
	profile *domain.Profile
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (m *mockUsers) GetProfile(ctx context.Context, _ string) (*domain.Profile, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	p := *m.profile
	return &p, nil
}

func seedLocal(t *testing.T, kv storage.Store, sessionID, raw string) {
	t.Helper()
	require.NoError(t, kv.Set(context.Background(), storage.ProfileKey(sessionID), raw))
}

func TestResolve_AnonymousUsesLocalOnly(t *testing.T) {
	kv := storage.NewMemoryStore()
	seedLocal(t, kv, "s1", `{"name":"Local","pincode":"411001"}`)
	users := &mockUsers{profile: &domain.Profile{Name: "Remote"}}
	r := NewResolver(kv, users, time.Second, nil)

	p := r.Resolve(context.Background(), "s1", "")

	assert.Equal(t, "Local", p.Name)
	assert.Equal(t, "411001", p.Pincode)
	assert.Equal(t, int32(0), users.calls.Load())
}

func TestResolve_RemoteTakesPrecedence(t *testing.T) {
	kv := storage.NewMemoryStore()
	seedLocal(t, kv, "s1", `{"name":"Local","mobile":"111","village":"Wadi"}`)
	users := &mockUsers{profile: &domain.Profile{
		Name:  "Remote",
		Email: "r@example.com",
		Roles: domain.Roles{domain.AdminRole{}},
	}}
	r := NewResolver(kv, users, time.Second, nil)

	p := r.Resolve(context.Background(), "s1", "u1")

	assert.Equal(t, "Remote", p.Name)
	assert.Equal(t, "111", p.Mobile)
	assert.Equal(t, "Wadi", p.Village)
	assert.Equal(t, "r@example.com", p.Email)
	assert.True(t, p.Roles.Has(domain.RoleAdmin))
}

func TestResolve_RemoteErrorFallsBackSilently(t *testing.T) {
	kv := storage.NewMemoryStore()
	seedLocal(t, kv, "s1", `{"name":"Local"}`)
	r := NewResolver(kv, &mockUsers{err: errors.New("connection refused")}, time.Second, nil)

	p := r.Resolve(context.Background(), "s1", "u1")

	assert.Equal(t, "Local", p.Name)
}

func TestResolve_RemoteMissingRecord(t *testing.T) {
	kv := storage.NewMemoryStore()
	r := NewResolver(kv, &mockUsers{err: repository.ErrUserNotFound}, time.Second, nil)

	assert.Equal(t, domain.Profile{}, r.Resolve(context.Background(), "s1", "u1"))
}

func TestResolve_RemoteTimeout(t *testing.T) {
	kv := storage.NewMemoryStore()
	seedLocal(t, kv, "s1", `{"name":"Local"}`)
	r := NewResolver(kv, &mockUsers{profile: &domain.Profile{Name: "Slow"}, delay: time.Second}, 20*time.Millisecond, nil)

	p := r.Resolve(context.Background(), "s1", "u1")

	assert.Equal(t, "Local", p.Name)
}

func TestResolve_CorruptLocalIgnored(t *testing.T) {
	kv := storage.NewMemoryStore()
	seedLocal(t, kv, "s1", `{"name":`)
	r := NewResolver(kv, nil, time.Second, nil)

	assert.Equal(t, domain.Profile{}, r.Resolve(context.Background(), "s1", "u1"))
}

func TestResolve_LocalRolesNeverTrusted(t *testing.T) {
	kv := storage.NewMemoryStore()
	seedLocal(t, kv, "s1", `{"name":"Local","roles":[{"tag":"admin"}]}`)
	r := NewResolver(kv, nil, time.Second, nil)

	p := r.Resolve(context.Background(), "s1", "")

	assert.False(t, p.Roles.Has(domain.RoleAdmin))
}

func TestResolve_ConcurrentFetchesCollapse(t *testing.T) {
	users := &mockUsers{profile: &domain.Profile{Name: "Remote"}, delay: 50 * time.Millisecond}
	r := NewResolver(storage.NewMemoryStore(), users, time.Second, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := r.Resolve(context.Background(), "s1", "u1")
			assert.Equal(t, "Remote", p.Name)
		}()
	}
	wg.Wait()

	assert.Less(t, users.calls.Load(), int32(10))
}

func TestSaveLocal_RoundTrip(t *testing.T) {
	kv := storage.NewMemoryStore()
	r := NewResolver(kv, nil, time.Second, nil)
	bound := r.For("s1", "")

	require.NoError(t, bound.SaveLocal(context.Background(), domain.Profile{Name: "Sita", Address: "Main road"}))

	p := bound.Resolve(context.Background())
	assert.Equal(t, "Sita", p.Name)
	assert.Equal(t, "Main road", p.Address)
}
