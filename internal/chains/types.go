package chains

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/dimensiondev/mask-wallet-core/internal/networks"
)

// Client is the subset of ethclient.Client the wallet core needs.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// NetworkResolver finds the registry entry for a chain.
type NetworkResolver interface {
	FindByChainID(chainID uint64) (networks.Network, bool)
}

// Dialer opens a client for an RPC url.
type Dialer func(ctx context.Context, url string) (Client, error)

type Config struct {
	PreferredRPCName string
	HeaderRefresh    time.Duration
}

type ResolvedChain struct {
	NetworkName string
	ChainID     uint64
	RPCName     string
	URL         string
}
