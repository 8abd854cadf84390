package networks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimensiondev/mask-wallet-core/internal/constants"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(filepath.Join(t.TempDir(), constants.NetworksFile))
}

func TestEnsureFromConfigCreatesFile(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.EnsureFromConfig(ctx, DefaultNetworks()))

	_, err := os.Stat(m.Path())
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, len(builtinNetworks))
	assert.Equal(t, constants.ChainIDMainnet, list[0].ChainID)
	assert.Equal(t, "0x1", list[0].ChainIDHex)

	reloaded := NewManager(m.Path())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, list, reloaded.List())
}

func TestEnsureFromConfigKeepsUserValues(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.AddNetwork(ctx, Network{
		Name:    "My Mainnet",
		ChainID: constants.ChainIDMainnet,
		RPCs:    []RPC{{Name: "local", URL: "http://127.0.0.1:8545"}},
	})
	require.NoError(t, err)

	require.NoError(t, m.EnsureFromConfig(ctx, DefaultNetworks()))

	n, ok := m.FindByChainID(constants.ChainIDMainnet)
	require.True(t, ok)
	assert.Equal(t, "my mainnet", n.Name)
	assert.Equal(t, "http://127.0.0.1:8545", n.RPCs[0].URL)
	assert.Equal(t, "https://etherscan.io", n.Explorer)
	assert.True(t, n.HasFeature(constants.FeatureEIP1559))
}

func TestAddNetworkValidation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.AddNetwork(ctx, Network{ChainID: 5})
	assert.Error(t, err)

	_, err = m.AddNetwork(ctx, Network{Name: "x"})
	assert.Error(t, err)

	n, err := m.AddNetwork(ctx, Network{Name: " Gnosis ", ChainIDHex: "64", Features: []string{"eip1559", "EIP1559"}})
	require.NoError(t, err)
	assert.Equal(t, "gnosis", n.Name)
	assert.Equal(t, uint64(100), n.ChainID)
	assert.Equal(t, []string{constants.FeatureEIP1559}, n.Features)

	_, err = m.AddNetwork(ctx, Network{Name: "other", ChainID: 100})
	assert.ErrorIs(t, err, ErrNetworkExists)

	_, err = m.AddNetwork(ctx, Network{Name: "gnosis", ChainID: 101})
	assert.ErrorIs(t, err, ErrNetworkExists)
}

func TestUpdateAndRemove(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.AddNetwork(ctx, Network{Name: "bsc", ChainID: constants.ChainIDBSC})
	require.NoError(t, err)

	explorer := " https://bscscan.com "
	features := []string{"eip1559"}
	n, err := m.UpdateNetwork(ctx, constants.ChainIDBSC, UpdatePatch{Explorer: &explorer, Features: &features})
	require.NoError(t, err)
	assert.Equal(t, "https://bscscan.com", n.Explorer)
	assert.True(t, m.IsSupport(constants.ChainIDBSC, constants.FeatureEIP1559))

	_, err = m.UpdateNetwork(ctx, 999, UpdatePatch{})
	assert.ErrorIs(t, err, ErrNetworkNotFound)

	require.NoError(t, m.RemoveNetwork(ctx, constants.ChainIDBSC))
	require.NoError(t, m.RemoveNetwork(ctx, constants.ChainIDBSC))

	// falls back to the built-in entry, which is legacy
	assert.False(t, m.IsSupport(constants.ChainIDBSC, constants.FeatureEIP1559))
}

func TestIsSupportBuiltins(t *testing.T) {
	m := newTestManager(t)

	assert.True(t, m.IsSupport(constants.ChainIDMainnet, constants.FeatureEIP1559))
	assert.True(t, m.IsSupport(constants.ChainIDPolygon, "eip1559"))
	assert.False(t, m.IsSupport(constants.ChainIDBSC, constants.FeatureEIP1559))
	assert.False(t, m.IsSupport(424242, constants.FeatureEIP1559))
}

func TestLoadSkipsBrokenEntries(t *testing.T) {
	m := newTestManager(t)
	raw := `{"schema":1,"networks":{"Polygon":{"chainIdHex":"0x89"},"broken":{"name":"broken"}}}`
	require.NoError(t, os.WriteFile(m.Path(), []byte(raw), 0o600))

	require.NoError(t, m.Load(context.Background()))

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, "polygon", list[0].Name)
	assert.Equal(t, uint64(137), list[0].ChainID)
}

func TestLoadMissingFile(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Load(context.Background()))
	assert.Empty(t, m.List())
}
