package hiddenlist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimensiondev/mask-wallet-core/internal/assets"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "hidden_list.json"))
}

func TestHideUnhidePersists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Hide(ctx, "Alice", "0xABC_1", "0xabc_2", " "))
	assert.Equal(t, []string{"0xabc_1", "0xabc_2"}, s.Keys("alice"))
	assert.True(t, s.IsHidden("ALICE", "0xAbc_1"))
	assert.Empty(t, s.Keys("bob"))

	require.NoError(t, s.Unhide(ctx, "alice", "0xabc_1"))

	reloaded := NewStore(s.Path())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, []string{"0xabc_2"}, reloaded.Keys("alice"))
}

func TestHideRequiresUser(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Hide(context.Background(), " ", "0xabc_1"))
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Load(context.Background()))
	assert.Empty(t, s.Keys("alice"))
}

func TestUpdatesArePublished(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ch := make(chan assets.HiddenUpdate, 4)
	sub := s.SubscribeUpdates(ch)
	defer sub.Unsubscribe()

	require.NoError(t, s.Hide(ctx, "alice", "0xabc_1"))
	// no change, no event
	require.NoError(t, s.Hide(ctx, "alice", "0xABC_1"))
	require.NoError(t, s.Unhide(ctx, "alice", "0xabc_1"))

	select {
	case u := <-ch:
		assert.Equal(t, "alice", u.User)
		assert.Equal(t, []string{"0xabc_1"}, u.Keys)
	case <-time.After(time.Second):
		t.Fatal("no update")
	}
	select {
	case u := <-ch:
		assert.Empty(t, u.Keys)
	case <-time.After(time.Second):
		t.Fatal("no update")
	}
	assert.Len(t, ch, 0)
}

func TestDrivesAssetCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestStore(t)
	cache := assets.NewCache(common.HexToAddress("0x01"), pageSource{}, nil)
	cache.LoadAssets(ctx, assets.Collection{ID: "c1"})
	require.Len(t, cache.GetAssets("c1").Assets, 2)

	go func() { _ = cache.WatchHidden(ctx, "alice", s) }()

	key := assets.HiddenKey("0xAbC", "7")
	require.Eventually(t, func() bool {
		_ = s.Hide(ctx, "alice", key)
		return len(cache.GetAssets("c1").Assets) == 1
	}, time.Second, 10*time.Millisecond)
}

type pageSource struct{}

func (pageSource) AssetsByCollectionAndOwner(context.Context, string, common.Address, assets.PageOptions) (assets.Page, error) {
	return assets.Page{Data: []assets.Asset{
		{Address: "0xAbC", TokenID: "7"},
		{Address: "0xAbC", TokenID: "8"},
	}}, nil
}
