// Package receipt maps transaction receipts to watcher statuses.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/dimensiondev/mask-wallet-core/internal/chains"
)

type Status string

const (
	// StatusNotDepend means no receipt yet; another checker may decide.
	StatusNotDepend Status = "NOT_DEPEND"
	StatusSucceed   Status = "SUCCEED"
	StatusFailed    Status = "FAILED"
)

// MaxConcurrentLookups bounds receipt RPCs issued by CheckMany.
const MaxConcurrentLookups = 8

type ClientProvider interface {
	Client(ctx context.Context, chainID uint64) (chains.Client, error)
}

type Result struct {
	TxHash      common.Hash `json:"txHash"`
	Status      Status      `json:"status"`
	Found       bool        `json:"found"`
	BlockNumber uint64      `json:"blockNumber,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// StatusOf maps a receipt, possibly nil, to a Status.
func StatusOf(r *types.Receipt) Status {
	if r == nil {
		return StatusNotDepend
	}
	if r.Status == types.ReceiptStatusSuccessful {
		return StatusSucceed
	}
	return StatusFailed
}

type Checker struct {
	clients ClientProvider
}

func NewChecker(clients ClientProvider) *Checker {
	return &Checker{clients: clients}
}

// GetStatus looks up one receipt. A missing receipt is StatusNotDepend, not an error.
func (c *Checker) GetStatus(ctx context.Context, chainID uint64, txHash common.Hash) (Result, error) {
	client, err := c.clients.Client(ctx, chainID)
	if err != nil {
		return Result{}, fmt.Errorf("receipt client for chain %d: %w", chainID, err)
	}
	return lookup(ctx, client, txHash)
}

func lookup(ctx context.Context, client chains.Client, txHash common.Hash) (Result, error) {
	res := Result{TxHash: txHash, Status: StatusNotDepend}

	r, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return res, nil
		}
		return res, fmt.Errorf("transaction receipt %s: %w", txHash.Hex(), err)
	}

	res.Status = StatusOf(r)
	res.Found = r != nil
	if r != nil && r.BlockNumber != nil && r.BlockNumber.IsUint64() {
		res.BlockNumber = r.BlockNumber.Uint64()
	}
	return res, nil
}

// CheckMany looks up receipts concurrently. Per-hash failures are reported in
// Result.Error; only a missing client fails the whole call.
func (c *Checker) CheckMany(ctx context.Context, chainID uint64, hashes []common.Hash) (map[common.Hash]Result, error) {
	client, err := c.clients.Client(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("receipt client for chain %d: %w", chainID, err)
	}

	var (
		mu  sync.Mutex
		out = make(map[common.Hash]Result, len(hashes))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentLookups)
	for _, h := range hashes {
		g.Go(func() error {
			res, err := lookup(gctx, client, h)
			if err != nil {
				res.Error = err.Error()
			}
			mu.Lock()
			out[h] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
