package session

import (
	"context"
	"encoding/json"
	"sync"

	"portal-service/pkg/client"

	"go.uber.org/zap"
)

// Storage keys, matching the localStorage layout of the original web client.
const (
	userKey       = "user"
	isLoggedInKey = "isLoggedIn"
)

// ItemsFetcher fetches the current item list for a company. *client.Client
// satisfies it.
type ItemsFetcher interface {
	GetItems(ctx context.Context, companyName string) ([]client.Item, error)
}

// Store holds the logged-in user's profile and cached item list, persisted to
// durable storage so a session survives restarts. Sessions have no expiry;
// only Logout (or clearing the storage) ends one.
type Store struct {
	mu      sync.Mutex
	storage Storage
	fetcher ItemsFetcher
	log     *zap.Logger

	user     *client.Profile
	loggedIn bool
	items    []client.Item
}

// Open creates a store and hydrates it from storage. A hydrated logged-in
// user with a company triggers a best-effort item refresh, the same rule that
// fires after a fresh login.
func Open(ctx context.Context, storage Storage, fetcher ItemsFetcher, log *zap.Logger) *Store {
	s := &Store{storage: storage, fetcher: fetcher, log: log}
	s.hydrate()

	if s.IsLoggedIn() && s.companyName() != "" {
		if err := s.RefreshItems(ctx); err != nil {
			log.Warn("Item refresh after hydration failed", zap.Error(err))
		}
	}
	return s
}

func (s *Store) hydrate() {
	flag, _ := s.storage.Get(isLoggedInKey)
	raw, ok := s.storage.Get(userKey)
	if !ok || flag != "true" {
		return
	}

	var u client.Profile
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Warn("Discarding unreadable persisted session", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.user = &u
	s.loggedIn = true
	s.items = u.Items
	s.mu.Unlock()

	s.log.Info("Session restored from storage",
		zap.String("email", u.Email),
		zap.String("company_name", u.CompanyName),
		zap.Int("item_count", len(u.Items)))
}

// Login establishes a session for the given profile: it seeds the item list
// from the profile, persists both storage keys, then refreshes items when the
// user belongs to a company. Refresh failures leave the seeded list in place.
func (s *Store) Login(ctx context.Context, profile client.Profile) error {
	s.mu.Lock()
	u := profile
	s.user = &u
	s.loggedIn = true
	s.items = profile.Items
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if profile.CompanyName != "" {
		if err := s.RefreshItems(ctx); err != nil {
			s.log.Warn("Item refresh after login failed", zap.Error(err))
		}
	}
	return nil
}

// Logout tears the session down completely: in-memory state and both
// persisted keys.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.loggedIn = false
	s.items = nil

	if err := s.storage.Remove(userKey); err != nil {
		return err
	}
	return s.storage.Remove(isLoggedInKey)
}

// RefreshItems re-queries the tenant's items and overwrites the cached list
// and the persisted user record. It is a no-op without a logged-in user or a
// company. The fetch runs without the lock; the result is applied in place
// only if the same tenant is still logged in, so a logout or account switch
// during the fetch discards the stale result instead of resurrecting it.
func (s *Store) RefreshItems(ctx context.Context) error {
	s.mu.Lock()
	if s.user == nil || s.user.CompanyName == "" {
		s.mu.Unlock()
		return nil
	}
	company := s.user.CompanyName
	s.mu.Unlock()

	items, err := s.fetcher.GetItems(ctx, company)
	if err != nil {
		s.log.Error("Failed to refresh items",
			zap.String("company_name", company),
			zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.CompanyName != company {
		s.log.Warn("Discarding refreshed items for ended session",
			zap.String("company_name", company))
		return nil
	}

	s.items = items
	s.user.Items = items
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := json.Marshal(s.user)
	if err != nil {
		return err
	}
	if err := s.storage.Set(userKey, string(data)); err != nil {
		return err
	}
	return s.storage.Set(isLoggedInKey, "true")
}

// User returns a copy of the current profile and whether one is set.
func (s *Store) User() (client.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return client.Profile{}, false
	}
	return *s.user, true
}

// IsLoggedIn reports whether a session is established.
func (s *Store) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// Items returns a copy of the cached item list.
func (s *Store) Items() []client.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]client.Item, len(s.items))
	copy(items, s.items)
	return items
}

func (s *Store) companyName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.CompanyName
}
