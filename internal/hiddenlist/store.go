// Package hiddenlist persists the NFTs each user chose to hide and broadcasts changes.
package hiddenlist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/dimensiondev/mask-wallet-core/internal/assets"
	"github.com/dimensiondev/mask-wallet-core/internal/constants"
	"github.com/dimensiondev/mask-wallet-core/internal/securefile"
)

type fileFormat struct {
	Schema int                 `json:"schema"`
	Users  map[string][]string `json:"users"`
}

// Store implements assets.HiddenSource.
type Store struct {
	path string
	feed event.Feed

	mu    sync.RWMutex
	users map[string]map[string]struct{}
}

var _ assets.HiddenSource = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{path: path, users: map[string]map[string]struct{}{}}
}

// NewDefaultStore resolves hidden_list.json using securefile.ResolvePath.
func NewDefaultStore() (*Store, error) {
	path, err := securefile.ResolvePath(constants.AppName, constants.HiddenListFile)
	if err != nil {
		return nil, fmt.Errorf("resolve hidden list path: %w", err)
	}
	return NewStore(path), nil
}

func (s *Store) Path() string { return s.path }

// Load reads the file. A missing file means nothing is hidden.
func (s *Store) Load(ctx context.Context) error {
	_ = ctx

	f, _, err := securefile.ReadJSON[fileFormat](s.path)
	if err != nil {
		return fmt.Errorf("read hidden list: %w", err)
	}

	users := map[string]map[string]struct{}{}
	for user, keys := range f.Users {
		u := normalizeUser(user)
		if u == "" {
			continue
		}
		set := users[u]
		if set == nil {
			set = map[string]struct{}{}
			users[u] = set
		}
		for _, k := range keys {
			if k = normalizeKey(k); k != "" {
				set[k] = struct{}{}
			}
		}
	}

	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	return nil
}

// Keys returns the sorted hidden keys of user.
func (s *Store) Keys(user string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.users[normalizeUser(user)])
}

// IsHidden reports whether the asset key is hidden for user.
func (s *Store) IsHidden(user, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[normalizeUser(user)][normalizeKey(key)]
	return ok
}

// Hide adds keys for user. Keys are "address_tokenId", see assets.HiddenKey.
func (s *Store) Hide(ctx context.Context, user string, keys ...string) error {
	return s.update(ctx, user, func(set map[string]struct{}) bool {
		changed := false
		for _, k := range keys {
			k = normalizeKey(k)
			if k == "" {
				continue
			}
			if _, ok := set[k]; !ok {
				set[k] = struct{}{}
				changed = true
			}
		}
		return changed
	})
}

func (s *Store) Unhide(ctx context.Context, user string, keys ...string) error {
	return s.update(ctx, user, func(set map[string]struct{}) bool {
		changed := false
		for _, k := range keys {
			k = normalizeKey(k)
			if _, ok := set[k]; ok {
				delete(set, k)
				changed = true
			}
		}
		return changed
	})
}

func (s *Store) update(ctx context.Context, user string, mutate func(map[string]struct{}) bool) error {
	_ = ctx

	u := normalizeUser(user)
	if u == "" {
		return fmt.Errorf("user is required")
	}

	s.mu.Lock()
	prev := s.users[u]
	next := make(map[string]struct{}, len(prev))
	for k := range prev {
		next[k] = struct{}{}
	}
	if !mutate(next) {
		s.mu.Unlock()
		return nil
	}

	s.users[u] = next
	if err := s.persistLocked(); err != nil {
		s.users[u] = prev
		s.mu.Unlock()
		return err
	}
	keys := sortedKeys(next)
	s.mu.Unlock()

	n := s.feed.Send(assets.HiddenUpdate{User: u, Keys: keys})
	log.Info("hidden list updated", "user", u, "keys", len(keys), "subscribers", n)
	return nil
}

// SubscribeUpdates delivers the full key set of a user after every change.
func (s *Store) SubscribeUpdates(ch chan<- assets.HiddenUpdate) event.Subscription {
	return s.feed.Subscribe(ch)
}

func (s *Store) persistLocked() error {
	f := fileFormat{Schema: constants.SchemaV1, Users: make(map[string][]string, len(s.users))}
	for u, set := range s.users {
		if len(set) == 0 {
			continue
		}
		f.Users[u] = sortedKeys(set)
	}
	if err := securefile.WriteJSON(s.path, f); err != nil {
		return fmt.Errorf("persist hidden list: %w", err)
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeUser(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
