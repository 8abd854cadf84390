package chains

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/retry"
)

// CachedClient serves the latest header from memory and refreshes it in the background.
type CachedClient struct {
	latestHeader             atomic.Pointer[types.Header]
	timeReceivedLatestHeader atomic.Pointer[time.Time]
	Client
}

// NewCachedClient fetches the first header synchronously and keeps it fresh
// until ctx is done.
func NewCachedClient(ctx context.Context, client Client, refresh time.Duration) (*CachedClient, error) {
	if client == nil {
		return nil, errors.New("nil client")
	}

	cc := &CachedClient{Client: client}
	if err := cc.getLatestHeaderFromChain(ctx); err != nil {
		return nil, err
	}

	if refresh > 0 {
		go maintainLatestHeaderFromChain(ctx, cc, refresh)
	}
	return cc, nil
}

func maintainLatestHeaderFromChain(ctx context.Context, cc *CachedClient, refresh time.Duration) {
	cfg := retry.DefaultConfig()
	cfg.MaxDelayBeforeRetrying = refresh
	cfg.InitialDelayBeforeRetrying = refresh / 10

	timer := time.NewTimer(refresh)
	defer timer.Stop()
	numCallsToChain := 0
	for {
		timer.Reset(refresh)
		select {
		case <-ctx.Done():
			log.Info("header refresher exiting", "numCallsToChain", numCallsToChain)
			return
		case <-timer.C:
			_, _ = retry.Retry(ctx, cfg,
				func(ctx context.Context) ([]interface{}, error) {
					numCallsToChain++
					return nil, cc.getLatestHeaderFromChain(ctx)
				},
				nil, // always retry
				"get latest header from chain")
		}
	}
}

func (b *CachedClient) getLatestHeaderFromChain(ctx context.Context) error {
	header, err := b.Client.HeaderByNumber(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to get latest header from chain")
	}
	if header == nil {
		return errors.New("chain returned no latest header")
	}
	now := time.Now().UTC()
	b.latestHeader.Store(header)
	b.timeReceivedLatestHeader.Store(&now)
	return nil
}

// HeaderByNumber answers nil (latest) from the cache.
func (b *CachedClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if number == nil {
		return b.latestHeader.Load(), nil
	}
	return b.Client.HeaderByNumber(ctx, number)
}

// LatestHeaderAge is how long ago the cached header was fetched.
func (b *CachedClient) LatestHeaderAge() time.Duration {
	t := b.timeReceivedLatestHeader.Load()
	if t == nil {
		return 0
	}
	return time.Since(*t)
}
