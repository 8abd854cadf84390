// Package chainstest provides an in-memory chains.Client for tests.
package chainstest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Client is a scripted chain. Zero values answer with errors or empty data.
type Client struct {
	mu sync.Mutex

	ID         *big.Int
	Head       *types.Header
	GasPrice   *big.Int
	TipCap     *big.Int
	History    *ethereum.FeeHistory
	Receipts   map[common.Hash]*types.Receipt
	Err        error
	HeaderErr  error
	HistoryErr error

	HeaderCalls  int
	HistoryCalls int
	PriceCalls   int
	Closed       bool
}

func New(chainID uint64) *Client {
	return &Client{
		ID:       new(big.Int).SetUint64(chainID),
		Head:     &types.Header{Number: big.NewInt(1)},
		Receipts: map[common.Hash]*types.Receipt{},
	}
}

func (c *Client) ChainID(context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return new(big.Int).Set(c.ID), nil
}

func (c *Client) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.HeaderCalls++
	if c.HeaderErr != nil {
		return nil, c.HeaderErr
	}
	if number != nil {
		h := types.CopyHeader(c.Head)
		h.Number = new(big.Int).Set(number)
		return h, nil
	}
	return types.CopyHeader(c.Head), nil
}

func (c *Client) SetHead(h *types.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Head = h
}

func (c *Client) SuggestGasPrice(context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PriceCalls++
	if c.Err != nil {
		return nil, c.Err
	}
	if c.GasPrice == nil {
		return nil, ethereum.NotFound
	}
	return new(big.Int).Set(c.GasPrice), nil
}

func (c *Client) SuggestGasTipCap(context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if c.TipCap == nil {
		return nil, ethereum.NotFound
	}
	return new(big.Int).Set(c.TipCap), nil
}

func (c *Client) FeeHistory(context.Context, uint64, *big.Int, []float64) (*ethereum.FeeHistory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.HistoryCalls++
	if c.HistoryErr != nil {
		return nil, c.HistoryErr
	}
	if c.History == nil {
		return nil, ethereum.NotFound
	}
	return c.History, nil
}

func (c *Client) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	r, ok := c.Receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
}
