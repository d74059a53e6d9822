// Package chef owns the client-side ChefProfile aggregate: every
// mutation from the UI, the session flow, or the location watcher goes
// through the ChefStore, which applies it optimistically, reconciles
// the backend's answer, and keeps a durable snapshot.
package chef

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/urbanrasoi/chef-client/internal/gateway"
	"github.com/urbanrasoi/chef-client/internal/models"
	"github.com/urbanrasoi/chef-client/internal/store"
)

var (
	// ErrSessionReset is returned when a mutation submitted before a
	// login or logout tries to apply after the aggregate was replaced.
	ErrSessionReset = errors.New("chef: session was reset")
	// ErrNoGateway is returned when a remote mutation is attempted
	// before a gateway has been attached.
	ErrNoGateway = errors.New("chef: no gateway attached")
	// ErrItemNotFound is returned for menu operations on unknown ids.
	ErrItemNotFound = errors.New("chef: menu item not found")
)

const entityProfile = "profile"

// LastFixFunc reports the most recent device fix known to the location
// watcher, used to backfill a profile that has no coordinates yet.
type LastFixFunc func() (lat, lng float64, address string, ok bool)

// ChefStore is the single writer for the ChefProfile aggregate.
type ChefStore struct {
	mu           sync.RWMutex
	profile      models.ChefProfile
	token        string
	isLoggedIn   bool
	isNewAccount bool
	isLoading    bool
	gen          uint64

	gw      gateway.RemoteGateway
	persist store.PersistentStore
	baseURL string
	lastFix LastFixFunc

	// Per-entity serialization: one in-flight mutation per menu item or
	// per the profile-scalar set. Menu-wide operations take menuMu
	// exclusively; per-item operations share it.
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
	menuMu sync.RWMutex
}

// Options configures a ChefStore.
type Options struct {
	Gateway gateway.RemoteGateway
	Store   store.PersistentStore
	BaseURL string
	LastFix LastFixFunc
}

// NewStore creates an empty, loading ChefStore. Hydrate clears the
// loading flag.
func NewStore(opts Options) *ChefStore {
	return &ChefStore{
		profile:   models.EmptyProfile(),
		isLoading: true,
		gw:        opts.Gateway,
		persist:   opts.Store,
		baseURL:   opts.BaseURL,
		lastFix:   opts.LastFix,
		locks:     make(map[string]*sync.Mutex),
	}
}

// SetGateway attaches the remote gateway. The gateway's token source
// usually closes over this store, so construction is two-phase.
func (s *ChefStore) SetGateway(gw gateway.RemoteGateway) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gw = gw
}

// SetLastFix attaches the location watcher's last-fix provider.
func (s *ChefStore) SetLastFix(fn LastFixFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFix = fn
}

// Profile returns a deep copy of the current aggregate.
func (s *ChefStore) Profile() models.ChefProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone()
}

// Token returns the session token, or "" when logged out. Satisfies
// gateway.TokenSource.
func (s *ChefStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *ChefStore) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLoggedIn
}

func (s *ChefStore) IsNewAccount() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isNewAccount
}

func (s *ChefStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLoading
}

// Hydrate restores a prior session from the persistent store. Storage
// errors and corrupt snapshots degrade to "not logged in"; Hydrate
// never fails outward. Always ends by clearing the loading flag.
func (s *ChefStore) Hydrate(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.isLoading = false
		s.mu.Unlock()
	}()

	token, err := s.persist.Get(ctx, store.KeyToken)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[ChefStore] Failed to read token: %v", err)
		}
		return
	}
	snapshot, err := s.persist.Get(ctx, store.KeySnapshot)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[ChefStore] Failed to read snapshot: %v", err)
		}
		return
	}

	var dto models.ChefDTO
	if err := json.Unmarshal([]byte(snapshot), &dto); err != nil {
		// A corrupt snapshot degrades to an empty profile, never a
		// startup failure.
		log.Printf("[ChefStore] Unparseable snapshot, starting empty: %v", err)
		dto = models.ChefDTO{}
	}

	isNew := false
	if flag, err := s.persist.Get(ctx, store.KeyIsNew); err == nil {
		isNew = flag == "true"
	}

	profile := s.Normalize(dto)

	s.mu.Lock()
	s.profile = profile
	s.token = token
	s.isLoggedIn = true
	s.isNewAccount = isNew
	s.gen++
	s.mu.Unlock()
}

// Login replaces the aggregate with the server's chef record and marks
// the session live. Persistence is best-effort: a storage failure is
// returned, but the in-memory state still reflects the login.
func (s *ChefStore) Login(ctx context.Context, chef models.ChefDTO, token string, isNewAccount bool) error {
	profile := s.Normalize(chef)

	s.mu.Lock()
	s.profile = profile
	s.token = token
	s.isLoggedIn = true
	s.isNewAccount = isNewAccount
	s.gen++
	snapshot := s.profile.DTO()
	s.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to serialize profile: %w", err)
	}
	if err := s.persist.Set(ctx, store.KeyToken, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	if err := s.persist.Set(ctx, store.KeySnapshot, string(data)); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	flag := "false"
	if isNewAccount {
		flag = "true"
	}
	if err := s.persist.Set(ctx, store.KeyIsNew, flag); err != nil {
		return fmt.Errorf("failed to persist account flag: %w", err)
	}
	return nil
}

// Logout clears the aggregate and the persisted session. Safe to call
// with no session.
func (s *ChefStore) Logout(ctx context.Context) {
	s.mu.Lock()
	s.profile = models.EmptyProfile()
	s.token = ""
	s.isLoggedIn = false
	s.isNewAccount = false
	s.gen++
	s.mu.Unlock()

	for _, key := range []string{store.KeyToken, store.KeySnapshot, store.KeyIsNew} {
		if err := s.persist.Remove(ctx, key); err != nil {
			log.Printf("[ChefStore] Failed to clear %s: %v", key, err)
		}
	}
}

// lockEntity serializes mutations per logical entity. The returned
// function releases the lock.
func (s *ChefStore) lockEntity(key string) func() {
	s.lockMu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.lockMu.Unlock()
	m.Lock()
	return m.Unlock
}

// generation returns the current session generation; mutations abort
// their rollback or commit when it changed underneath them.
func (s *ChefStore) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// persistSnapshot writes the current aggregate to durable storage.
// Failures are logged, not propagated: the in-memory state is already
// authoritative for this session.
func (s *ChefStore) persistSnapshot(ctx context.Context) {
	s.mu.RLock()
	snapshot := s.profile.DTO()
	s.mu.RUnlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("[ChefStore] Failed to serialize snapshot: %v", err)
		return
	}
	if err := s.persist.Set(ctx, store.KeySnapshot, string(data)); err != nil {
		log.Printf("[ChefStore] Failed to persist snapshot: %v", err)
	}
}

func (s *ChefStore) gatewayOrErr() (gateway.RemoteGateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gw == nil {
		return nil, ErrNoGateway
	}
	return s.gw, nil
}

// absoluteImageURL resolves a backend-relative photo path against the
// API host.
func (s *ChefStore) absoluteImageURL(photoURL string) string {
	if photoURL == "" {
		return ""
	}
	if strings.HasPrefix(photoURL, "http://") || strings.HasPrefix(photoURL, "https://") {
		return photoURL
	}
	return s.baseURL + photoURL
}
