// Package gasoracle suggests slow/normal/fast fees per chain from the chain's own RPC.
package gasoracle

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"golang.org/x/sync/singleflight"

	"github.com/dimensiondev/mask-wallet-core/internal/chains"
	"github.com/dimensiondev/mask-wallet-core/internal/constants"
	"github.com/dimensiondev/mask-wallet-core/internal/gasfee"
)

const (
	DefaultCacheTTL      = 6 * time.Second
	DefaultCacheSize     = 64
	DefaultHistoryBlocks = 20
	DefaultFetchTimeout  = 15 * time.Second

	// legacy gas price multipliers per tier, in basis points
	SlowPriceBps   = 9_000
	NormalPriceBps = 10_000
	FastPriceBps   = 12_500
)

var DefaultPercentiles = [3]float64{10, 50, 90}

var ErrNoFeeData = errors.New("chain returned no fee data")

// ClientProvider hands out chain clients, see chains.Service.
type ClientProvider interface {
	Client(ctx context.Context, chainID uint64) (chains.Client, error)
}

type Config struct {
	CacheTTL      time.Duration
	CacheSize     int
	HistoryBlocks uint64
	Percentiles   [3]float64
	FetchTimeout  time.Duration
}

// Oracle implements gasfee.OracleProvider. Snapshots are cached per chain for
// CacheTTL and concurrent misses for one chain share a single RPC round trip.
type Oracle struct {
	clients ClientProvider
	caps    gasfee.CapabilityResolver
	cfg     Config
	cache   *expirable.LRU[uint64, gasfee.Snapshot]
	group   singleflight.Group
}

func New(clients ClientProvider, caps gasfee.CapabilityResolver, cfg Config) *Oracle {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.HistoryBlocks == 0 {
		cfg.HistoryBlocks = DefaultHistoryBlocks
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Percentiles == ([3]float64{}) {
		cfg.Percentiles = DefaultPercentiles
	}

	return &Oracle{
		clients: clients,
		caps:    caps,
		cfg:     cfg,
		cache:   expirable.NewLRU[uint64, gasfee.Snapshot](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

func (o *Oracle) GetGasOptions(ctx context.Context, chainID uint64) (gasfee.Snapshot, error) {
	if s, ok := o.cache.Get(chainID); ok {
		return cloneSnapshot(s), nil
	}

	// the shared fetch outlives any single caller; each caller stops waiting on its own ctx
	ch := o.group.DoChan(strconv.FormatUint(chainID, 10), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.FetchTimeout)
		defer cancel()

		s, err := o.fetch(fetchCtx, chainID)
		if err != nil {
			return nil, err
		}
		o.cache.Add(chainID, s)
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneSnapshot(res.Val.(gasfee.Snapshot)), nil
	}
}

// Invalidate drops the cached snapshot of chainID.
func (o *Oracle) Invalidate(chainID uint64) {
	o.cache.Remove(chainID)
}

func (o *Oracle) fetch(ctx context.Context, chainID uint64) (gasfee.Snapshot, error) {
	client, err := o.clients.Client(ctx, chainID)
	if err != nil {
		return nil, errors.Wrapf(err, "gas oracle client for chain %d", chainID)
	}

	if o.caps != nil && o.caps.IsSupport(chainID, constants.FeatureEIP1559) {
		s, err := o.fromFeeHistory(ctx, client)
		if err == nil {
			return s, nil
		}
		log.Warn("fee history unavailable, falling back to tip cap", "chainId", chainID, "error", err)
		return o.fromTipCap(ctx, client)
	}
	return o.fromGasPrice(ctx, client)
}

func (o *Oracle) fromFeeHistory(ctx context.Context, client chains.Client) (gasfee.Snapshot, error) {
	percentiles := o.cfg.Percentiles[:]
	hist, err := client.FeeHistory(ctx, o.cfg.HistoryBlocks, nil, percentiles)
	if err != nil {
		return nil, errors.Wrap(err, "eth_feeHistory")
	}
	if hist == nil || len(hist.BaseFee) == 0 {
		return nil, ErrNoFeeData
	}

	// the last entry is the base fee of the next block
	nextBase := hist.BaseFee[len(hist.BaseFee)-1]
	if nextBase == nil {
		return nil, ErrNoFeeData
	}

	tips := make([]*big.Int, len(percentiles))
	for i := range percentiles {
		tips[i] = averageReward(hist.Reward, i)
		if tips[i] == nil {
			return nil, errors.Wrapf(ErrNoFeeData, "no rewards for percentile %v", percentiles[i])
		}
	}

	out := gasfee.Snapshot{}
	for i, tier := range []gasfee.Tier{gasfee.TierSlow, gasfee.TierNormal, gasfee.TierFast} {
		out[tier] = gasfee.GasOption{
			SuggestedMaxFeePerGas:         maxFeeFor(nextBase, tips[i]),
			SuggestedMaxPriorityFeePerGas: tips[i],
		}
	}
	return out, nil
}

func (o *Oracle) fromTipCap(ctx context.Context, client chains.Client) (gasfee.Snapshot, error) {
	tip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "eth_maxPriorityFeePerGas")
	}
	hdr, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "latest header")
	}
	baseFee := big.NewInt(0)
	if hdr != nil && hdr.BaseFee != nil {
		baseFee = hdr.BaseFee
	}

	out := gasfee.Snapshot{}
	for tier, bps := range tierBps() {
		t := applyBps(tip, bps)
		out[tier] = gasfee.GasOption{
			SuggestedMaxFeePerGas:         maxFeeFor(baseFee, t),
			SuggestedMaxPriorityFeePerGas: t,
		}
	}
	return out, nil
}

func (o *Oracle) fromGasPrice(ctx context.Context, client chains.Client) (gasfee.Snapshot, error) {
	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "eth_gasPrice")
	}
	if price == nil {
		return nil, ErrNoFeeData
	}

	out := gasfee.Snapshot{}
	for tier, bps := range tierBps() {
		out[tier] = gasfee.GasOption{SuggestedMaxFeePerGas: applyBps(price, bps)}
	}
	return out, nil
}

func tierBps() map[gasfee.Tier]int64 {
	return map[gasfee.Tier]int64{
		gasfee.TierSlow:   SlowPriceBps,
		gasfee.TierNormal: NormalPriceBps,
		gasfee.TierFast:   FastPriceBps,
	}
}

// maxFeeFor uses maxFee = 2*baseFee + tip.
func maxFeeFor(baseFee, tip *big.Int) *big.Int {
	out := new(big.Int).Mul(baseFee, big.NewInt(2))
	return out.Add(out, tip)
}

func applyBps(v *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(bps))
	return out.Quo(out, big.NewInt(10_000))
}

// averageReward averages column i over the blocks that reported it.
func averageReward(rewards [][]*big.Int, i int) *big.Int {
	sum := new(big.Int)
	n := int64(0)
	for _, row := range rewards {
		if i >= len(row) || row[i] == nil {
			continue
		}
		sum.Add(sum, row[i])
		n++
	}
	if n == 0 {
		return nil
	}
	return sum.Quo(sum, big.NewInt(n))
}

func cloneSnapshot(s gasfee.Snapshot) gasfee.Snapshot {
	out := make(gasfee.Snapshot, len(s))
	for tier, opt := range s {
		out[tier] = gasfee.GasOption{
			SuggestedMaxFeePerGas:         cloneBig(opt.SuggestedMaxFeePerGas),
			SuggestedMaxPriorityFeePerGas: cloneBig(opt.SuggestedMaxPriorityFeePerGas),
		}
	}
	return out
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
