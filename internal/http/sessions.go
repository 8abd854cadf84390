package http

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/dimensiondev/mask-wallet-core/internal/assets"
)

var errNoAssetSource = errors.New("asset source not initialized")

// session is the asset cache of one owner. ctx ends when the session is
// evicted or the server stops.
type session struct {
	cache  *assets.Cache
	ctx    context.Context
	cancel context.CancelFunc
}

// fetchContext bounds one data source call. It is detached from the request
// that triggered it, so a page that arrives after the client went away still
// lands in the cache.
func (s *session) fetchContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, AssetsFetchTimeout)
}

// assetSessions keeps the asset caches of the most recently used owners.
// Each cache follows the owner's hidden list until it is evicted.
type assetSessions struct {
	ctx      context.Context
	source   assets.Source
	verified assets.VerifiedBySource
	hidden   assets.HiddenSource

	mu       sync.Mutex
	sessions *lru.Cache[common.Address, *session]
}

func newAssetSessions(ctx context.Context, size int, source assets.Source, verified assets.VerifiedBySource, hidden assets.HiddenSource) *assetSessions {
	if size <= 0 {
		size = AssetSessionsMax
	}
	// NewWithEvict only fails for a non-positive size
	sessions, _ := lru.NewWithEvict(size, func(owner common.Address, s *session) {
		s.cancel()
		log.Info("asset session evicted", "owner", owner.Hex())
	})

	return &assetSessions{
		ctx:      ctx,
		source:   source,
		verified: verified,
		hidden:   hidden,
		sessions: sessions,
	}
}

func (a *assetSessions) get(owner common.Address) (*session, error) {
	if a.source == nil {
		return nil, errNoAssetSource
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sessions.Get(owner); ok {
		return s, nil
	}

	ctx, cancel := context.WithCancel(a.ctx)
	s := &session{
		cache:  assets.NewCache(owner, a.source, a.verified),
		ctx:    ctx,
		cancel: cancel,
	}

	if a.hidden != nil {
		user := hiddenUser(owner)
		s.cache.SetHidden(a.hidden.Keys(user))
		go func() {
			if err := s.cache.WatchHidden(ctx, user, a.hidden); err != nil {
				log.Warn("hidden list watcher stopped", "owner", owner.Hex(), "error", err)
			}
		}()
	}

	a.sessions.Add(owner, s)
	return s, nil
}

func (a *assetSessions) peek(owner common.Address) (*assets.Cache, bool) {
	s, ok := a.sessions.Get(owner)
	if !ok {
		return nil, false
	}
	return s.cache, true
}

// hiddenUser is the hidden list key of a wallet account.
func hiddenUser(owner common.Address) string {
	return strings.ToLower(owner.Hex())
}
