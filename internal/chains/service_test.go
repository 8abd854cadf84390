package chains

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimensiondev/mask-wallet-core/internal/chains/chainstest"
	"github.com/dimensiondev/mask-wallet-core/internal/networks"
)

type staticResolver map[uint64]networks.Network

func (r staticResolver) FindByChainID(chainID uint64) (networks.Network, bool) {
	n, ok := r[chainID]
	return n, ok
}

var testNetworks = staticResolver{
	1: {Name: "mainnet", ChainID: 1, RPCs: []networks.RPC{
		{Name: "first", URL: "http://first"},
		{Name: "second", URL: "http://second"},
	}},
	56: {Name: "bsc", ChainID: 56},
}

func TestResolvePrefersNamedRPC(t *testing.T) {
	s := NewService(context.Background(), Config{PreferredRPCName: "SECOND"}, testNetworks, nil)
	defer s.Close()

	r, err := s.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, "http://second", r.URL)

	s2 := NewService(context.Background(), Config{}, testNetworks, nil)
	defer s2.Close()
	r, err = s2.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, "http://first", r.URL)
}

func TestResolveErrors(t *testing.T) {
	s := NewService(context.Background(), Config{}, testNetworks, nil)
	defer s.Close()

	_, err := s.Resolve(0)
	assert.Error(t, err)

	_, err = s.Resolve(99)
	assert.ErrorIs(t, err, ErrUnknownChain)

	_, err = s.Resolve(56)
	assert.ErrorIs(t, err, ErrNoRPC)
}

func TestClientIsCached(t *testing.T) {
	fake := chainstest.New(1)
	var dials atomic.Int32
	dial := func(ctx context.Context, url string) (Client, error) {
		dials.Add(1)
		assert.Equal(t, "http://first", url)
		return fake, nil
	}

	s := NewService(context.Background(), Config{HeaderRefresh: time.Hour}, testNetworks, dial)

	c1, err := s.Client(context.Background(), 1)
	require.NoError(t, err)
	c2, err := s.Client(context.Background(), 1)
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.EqualValues(t, 1, dials.Load())

	ages := s.HeaderAges()
	require.Contains(t, ages, uint64(1))
	assert.Less(t, ages[1], time.Second)

	require.NoError(t, s.Close())
	assert.True(t, fake.Closed)

	_, err = s.Client(context.Background(), 1)
	assert.ErrorIs(t, err, ErrServiceClosed)
}

func TestClientRejectsWrongChain(t *testing.T) {
	fake := chainstest.New(5)
	s := NewService(context.Background(), Config{}, testNetworks, func(context.Context, string) (Client, error) {
		return fake, nil
	})
	defer s.Close()

	_, err := s.Client(context.Background(), 1)
	assert.ErrorIs(t, err, ErrChainIDMismatch)
	assert.True(t, fake.Closed)
}

func TestClientDialFailure(t *testing.T) {
	s := NewService(context.Background(), Config{}, testNetworks, func(context.Context, string) (Client, error) {
		return nil, errors.New("connection refused")
	})
	defer s.Close()

	_, err := s.Client(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCachedClientServesLatestHeader(t *testing.T) {
	fake := chainstest.New(1)
	fake.SetHead(&types.Header{Number: big.NewInt(100), BaseFee: big.NewInt(7)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cc, err := NewCachedClient(ctx, fake, 10*time.Millisecond)
	require.NoError(t, err)

	h, err := cc.HeaderByNumber(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(100), h.Number.Int64())

	fake.SetHead(&types.Header{Number: big.NewInt(101), BaseFee: big.NewInt(8)})
	require.Eventually(t, func() bool {
		h, _ := cc.HeaderByNumber(ctx, nil)
		return h.Number.Int64() == 101
	}, time.Second, 5*time.Millisecond)

	old, err := cc.HeaderByNumber(ctx, big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), old.Number.Int64())
	assert.Less(t, cc.LatestHeaderAge(), time.Second)
}

func TestCachedClientInitialFailure(t *testing.T) {
	fake := chainstest.New(1)
	fake.HeaderErr = errors.New("boom")

	_, err := NewCachedClient(context.Background(), fake, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
