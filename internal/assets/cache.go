package assets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

type view struct {
	stateVersion  uint64
	hiddenVersion uint64
	state         State
}

// Cache holds paging state for one owner. Reads never block on a fetch.
type Cache struct {
	owner    common.Address
	source   Source
	verified VerifiedBySource

	mu            sync.Mutex
	states        map[string]State
	versions      map[string]uint64
	verifiedBy    map[string][]string
	verifyPending map[string]bool
	hidden        map[string]struct{}
	hiddenVersion uint64
	views         map[string]view
	recomputes    int
}

func NewCache(owner common.Address, source Source, verified VerifiedBySource) *Cache {
	return &Cache{
		owner:         owner,
		source:        source,
		verified:      verified,
		states:        map[string]State{},
		versions:      map[string]uint64{},
		verifiedBy:    map[string][]string{},
		verifyPending: map[string]bool{},
		hidden:        map[string]struct{}{},
		views:         map[string]view{},
	}
}

func (c *Cache) Owner() common.Address { return c.owner }

// LoadAssets fetches the next page of a collection. Calls for an empty id, a
// collection with a fetch in flight, or a finished collection do nothing.
// Failures are recorded on the state and never returned.
func (c *Cache) LoadAssets(ctx context.Context, col Collection) {
	id := strings.TrimSpace(col.ID)
	if id == "" || c.source == nil {
		return
	}

	c.mu.Lock()
	st := c.states[id]
	if st.Loading || st.Finished {
		c.mu.Unlock()
		return
	}
	size := PageSize
	if len(st.Assets) == 0 {
		size = FirstPageSize
	}
	cursor := st.Cursor
	c.dispatchLocked(id, stateEvent{kind: fetchStarted})
	c.mu.Unlock()

	page, err := c.fetchPage(ctx, id, PageOptions{Cursor: cursor, Size: size, ChainID: col.ChainID})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		log.Warn("asset page fetch failed", "collection", id, "cursor", cursor, "error", err)
		c.dispatchLocked(id, stateEvent{kind: fetchFailed, err: err})
		return
	}
	c.dispatchLocked(id, stateEvent{kind: fetchSucceeded, page: page})
}

func (c *Cache) fetchPage(ctx context.Context, id string, opts PageOptions) (page Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("data source panicked: %v", r)
		}
	}()

	page, err = c.source.AssetsByCollectionAndOwner(ctx, id, c.owner, opts)
	if err != nil {
		return Page{}, err
	}
	if page.NextCursor != "" && page.NextCursor == opts.Cursor {
		return Page{}, ErrCursorNotAdvanced
	}
	return page, nil
}

func (c *Cache) dispatchLocked(id string, ev stateEvent) {
	c.states[id] = reduce(c.states[id], ev)
	c.versions[id]++
}

// LoadVerifiedBy fetches the marketplaces that verified a collection, at most
// once per id. An empty result still counts as fetched.
func (c *Cache) LoadVerifiedBy(ctx context.Context, id string) {
	id = strings.TrimSpace(id)
	if id == "" || c.verified == nil {
		return
	}

	c.mu.Lock()
	if _, ok := c.verifiedBy[id]; ok || c.verifyPending[id] {
		c.mu.Unlock()
		return
	}
	c.verifyPending[id] = true
	c.mu.Unlock()

	names, err := c.verified.VerifiedBy(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.verifyPending, id)
	if err != nil {
		log.Warn("verified-by fetch failed", "collection", id, "error", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.verifiedBy[id] = names
}

// GetVerifiedBy reports the memoized marketplace names and whether they were fetched.
func (c *Cache) GetVerifiedBy(id string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names, ok := c.verifiedBy[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), names...), true
}

// GetAssets returns the collection state with hidden assets filtered out. The
// filtered slice is reused until the collection or the hidden list changes.
// Callers must not modify the returned slice.
func (c *Cache) GetAssets(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[id]
	if !ok {
		return State{Assets: []Asset{}}
	}

	ver := c.versions[id]
	if v, ok := c.views[id]; ok && v.stateVersion == ver && v.hiddenVersion == c.hiddenVersion {
		return v.state
	}

	c.recomputes++
	out := st
	out.Assets = filterHidden(st.Assets, c.hidden)
	c.views[id] = view{stateVersion: ver, hiddenVersion: c.hiddenVersion, state: out}
	return out
}

func filterHidden(all []Asset, hidden map[string]struct{}) []Asset {
	out := make([]Asset, 0, len(all))
	for _, a := range all {
		if _, skip := hidden[a.Key()]; skip {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Collections lists the ids that have state, sorted.
func (c *Cache) Collections() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.states))
	for id := range c.states {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SetHidden replaces the hidden key set. An identical set keeps memoized views.
func (c *Cache) SetHidden(keys []string) {
	next := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		next[k] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if sameKeys(c.hidden, next) {
		return
	}
	c.hidden = next
	c.hiddenVersion++
}

func sameKeys(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// WatchHidden applies the current hidden keys of user and then every update
// until ctx is done or the subscription fails.
func (c *Cache) WatchHidden(ctx context.Context, user string, src HiddenSource) error {
	ch := make(chan HiddenUpdate, 8)
	sub := src.SubscribeUpdates(ch)
	defer sub.Unsubscribe()

	c.SetHidden(src.Keys(user))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if err != nil {
				return fmt.Errorf("hidden list subscription: %w", err)
			}
			return nil
		case u := <-ch:
			if !strings.EqualFold(u.User, user) {
				continue
			}
			c.SetHidden(u.Keys)
		}
	}
}
