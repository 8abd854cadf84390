package networks

import (
	"github.com/dimensiondev/mask-wallet-core/internal/constants"
)

// builtinNetworks seed networks.json on first run and answer capability
// questions for chains the user never configured.
var builtinNetworks = []Network{
	{
		Name:         "mainnet",
		ChainID:      constants.ChainIDMainnet,
		Explorer:     "https://etherscan.io",
		NativeSymbol: "ETH",
		RPCs:         []RPC{{Name: "publicnode", URL: "https://ethereum-rpc.publicnode.com"}},
		Features:     []string{constants.FeatureEIP1559},
	},
	{
		Name:         "optimism",
		ChainID:      constants.ChainIDOptimism,
		Explorer:     "https://optimistic.etherscan.io",
		NativeSymbol: "ETH",
		RPCs:         []RPC{{Name: "optimism", URL: "https://mainnet.optimism.io"}},
		Features:     []string{constants.FeatureEIP1559},
	},
	{
		Name:         "bsc",
		ChainID:      constants.ChainIDBSC,
		Explorer:     "https://bscscan.com",
		NativeSymbol: "BNB",
		RPCs:         []RPC{{Name: "binance", URL: "https://bsc-dataseed.binance.org"}},
	},
	{
		Name:         "polygon",
		ChainID:      constants.ChainIDPolygon,
		Explorer:     "https://polygonscan.com",
		NativeSymbol: "MATIC",
		RPCs:         []RPC{{Name: "polygon", URL: "https://polygon-rpc.com"}},
		Features:     []string{constants.FeatureEIP1559},
	},
	{
		Name:         "base",
		ChainID:      constants.ChainIDBase,
		Explorer:     "https://basescan.org",
		NativeSymbol: "ETH",
		RPCs:         []RPC{{Name: "base", URL: "https://mainnet.base.org"}},
		Features:     []string{constants.FeatureEIP1559},
	},
	{
		Name:         "arbitrum",
		ChainID:      constants.ChainIDArbitrum,
		Explorer:     "https://arbiscan.io",
		NativeSymbol: "ETH",
		RPCs:         []RPC{{Name: "arbitrum", URL: "https://arb1.arbitrum.io/rpc"}},
		Features:     []string{constants.FeatureEIP1559},
	},
}

// DefaultNetworks returns a copy of the built-in networks.
func DefaultNetworks() []Network {
	out := make([]Network, 0, len(builtinNetworks))
	for _, n := range builtinNetworks {
		out = append(out, normalizeNetwork(n))
	}
	return out
}

func builtinByChainID(chainID uint64) (Network, bool) {
	for _, n := range builtinNetworks {
		if n.ChainID == chainID {
			return normalizeNetwork(n), true
		}
	}
	return Network{}, false
}
