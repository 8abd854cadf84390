package gasoracle

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimensiondev/mask-wallet-core/internal/chains"
	"github.com/dimensiondev/mask-wallet-core/internal/chains/chainstest"
	"github.com/dimensiondev/mask-wallet-core/internal/constants"
	"github.com/dimensiondev/mask-wallet-core/internal/gasfee"
)

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

type fakeProvider map[uint64]*chainstest.Client

func (f fakeProvider) Client(_ context.Context, chainID uint64) (chains.Client, error) {
	c, ok := f[chainID]
	if !ok {
		return nil, chains.ErrUnknownChain
	}
	return c, nil
}

type fakeCaps map[uint64]bool

func (f fakeCaps) IsSupport(chainID uint64, feature string) bool {
	return feature == constants.FeatureEIP1559 && f[chainID]
}

func TestLegacyTiers(t *testing.T) {
	c := chainstest.New(56)
	c.GasPrice = gwei(10)

	o := New(fakeProvider{56: c}, fakeCaps{}, Config{})
	s, err := o.GetGasOptions(context.Background(), 56)
	require.NoError(t, err)

	assert.Equal(t, gwei(9), s[gasfee.TierSlow].SuggestedMaxFeePerGas)
	assert.Equal(t, gwei(10), s[gasfee.TierNormal].SuggestedMaxFeePerGas)
	assert.Equal(t, big.NewInt(12_500_000_000), s[gasfee.TierFast].SuggestedMaxFeePerGas)
	assert.Nil(t, s[gasfee.TierNormal].SuggestedMaxPriorityFeePerGas)
}

func TestFeeHistoryTiers(t *testing.T) {
	c := chainstest.New(1)
	c.History = &ethereum.FeeHistory{
		OldestBlock: big.NewInt(100),
		Reward: [][]*big.Int{
			{gwei(1), gwei(2), gwei(4)},
			{gwei(1), gwei(4), gwei(8)},
		},
		BaseFee:      []*big.Int{gwei(20), gwei(21), gwei(30)},
		GasUsedRatio: []float64{0.5, 0.6},
	}

	o := New(fakeProvider{1: c}, fakeCaps{1: true}, Config{})
	s, err := o.GetGasOptions(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, gwei(1), s[gasfee.TierSlow].SuggestedMaxPriorityFeePerGas)
	assert.Equal(t, gwei(3), s[gasfee.TierNormal].SuggestedMaxPriorityFeePerGas)
	assert.Equal(t, gwei(6), s[gasfee.TierFast].SuggestedMaxPriorityFeePerGas)
	assert.Equal(t, gwei(63), s[gasfee.TierNormal].SuggestedMaxFeePerGas)
}

func TestFeeHistoryFallbackToTipCap(t *testing.T) {
	c := chainstest.New(1)
	c.HistoryErr = errors.New("method not found")
	c.TipCap = gwei(2)
	c.SetHead(&types.Header{Number: big.NewInt(5), BaseFee: gwei(10)})

	o := New(fakeProvider{1: c}, fakeCaps{1: true}, Config{})
	s, err := o.GetGasOptions(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, gwei(2), s[gasfee.TierNormal].SuggestedMaxPriorityFeePerGas)
	assert.Equal(t, gwei(22), s[gasfee.TierNormal].SuggestedMaxFeePerGas)
	assert.Equal(t, big.NewInt(1_800_000_000), s[gasfee.TierSlow].SuggestedMaxPriorityFeePerGas)
}

func TestSnapshotIsCached(t *testing.T) {
	c := chainstest.New(56)
	c.GasPrice = gwei(10)

	o := New(fakeProvider{56: c}, fakeCaps{}, Config{CacheTTL: time.Minute})
	first, err := o.GetGasOptions(context.Background(), 56)
	require.NoError(t, err)

	// callers may mutate what they get back
	first[gasfee.TierNormal].SuggestedMaxFeePerGas.SetInt64(1)

	second, err := o.GetGasOptions(context.Background(), 56)
	require.NoError(t, err)
	assert.Equal(t, gwei(10), second[gasfee.TierNormal].SuggestedMaxFeePerGas)
	assert.Equal(t, 1, c.PriceCalls)

	o.Invalidate(56)
	_, err = o.GetGasOptions(context.Background(), 56)
	require.NoError(t, err)
	assert.Equal(t, 2, c.PriceCalls)
}

func TestErrorsAreNotCached(t *testing.T) {
	c := chainstest.New(56)

	o := New(fakeProvider{56: c}, fakeCaps{}, Config{})
	_, err := o.GetGasOptions(context.Background(), 56)
	require.Error(t, err)

	c.GasPrice = gwei(3)
	s, err := o.GetGasOptions(context.Background(), 56)
	require.NoError(t, err)
	assert.Equal(t, gwei(3), s[gasfee.TierNormal].SuggestedMaxFeePerGas)
}

func TestUnknownChain(t *testing.T) {
	o := New(fakeProvider{}, fakeCaps{}, Config{})
	_, err := o.GetGasOptions(context.Background(), 999)
	assert.ErrorIs(t, err, chains.ErrUnknownChain)
}

func TestOracleFeedsEncoder(t *testing.T) {
	c := chainstest.New(56)
	c.GasPrice = gwei(50)
	caps := fakeCaps{}

	enc := gasfee.NewEncoder(New(fakeProvider{56: c}, caps, Config{}), caps)
	out := enc.Encode(context.Background(), gasfee.Request{Config: gasfee.FeeConfig{ChainID: 56, GasPrice: gwei(1)}})

	assert.Equal(t, gwei(50), out.GasPrice)
	assert.Nil(t, out.MaxFeePerGas)
}

// gatedClient holds SuggestGasPrice until release is closed.
type gatedClient struct {
	*chainstest.Client
	started chan struct{}
	release chan struct{}
}

func (g *gatedClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	close(g.started)
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Client.SuggestGasPrice(ctx)
}

type singleProvider struct{ client chains.Client }

func (p singleProvider) Client(context.Context, uint64) (chains.Client, error) {
	return p.client, nil
}

func TestSharedFetchOutlivesCanceledCaller(t *testing.T) {
	c := chainstest.New(56)
	c.GasPrice = gwei(10)
	gated := &gatedClient{Client: c, started: make(chan struct{}), release: make(chan struct{})}
	o := New(singleProvider{client: gated}, fakeCaps{}, Config{})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := o.GetGasOptions(firstCtx, 56)
		firstErr <- err
	}()

	select {
	case <-gated.started:
	case <-time.After(time.Second):
		t.Fatal("fetch never started")
	}

	type result struct {
		s   gasfee.Snapshot
		err error
	}
	second := make(chan result, 1)
	go func() {
		s, err := o.GetGasOptions(context.Background(), 56)
		second <- result{s: s, err: err}
	}()

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting")
	}

	close(gated.release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, gwei(10), res.s[gasfee.TierNormal].SuggestedMaxFeePerGas)
	case <-time.After(time.Second):
		t.Fatal("no result for the second caller")
	}
	assert.Equal(t, 1, c.PriceCalls)
}
