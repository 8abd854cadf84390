// Package assets pages non-fungible assets per collection and keeps the
// accumulated result in memory for the lifetime of a wallet session.
package assets

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

const (
	// FirstPageSize is requested while a collection has no assets yet (preview).
	FirstPageSize = 4
	// PageSize is requested for every later page.
	PageSize = 20
)

type Collection struct {
	ID      string `json:"id"`
	ChainID uint64 `json:"chainId"`
}

type Asset struct {
	Address      string `json:"address"`
	TokenID      string `json:"tokenId"`
	ChainID      uint64 `json:"chainId"`
	Name         string `json:"name,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	CollectionID string `json:"collectionId,omitempty"`
}

// Key is the composite key used by the hidden list.
func (a Asset) Key() string { return HiddenKey(a.Address, a.TokenID) }

// HiddenKey builds the case-insensitive "address_tokenId" key.
func HiddenKey(address, tokenID string) string {
	return strings.ToLower(strings.TrimSpace(address) + "_" + strings.TrimSpace(tokenID))
}

// State is one collection's paging state. Loading and Finished are never both set.
type State struct {
	Assets   []Asset `json:"assets"`
	Loading  bool    `json:"loading"`
	Finished bool    `json:"finished"`
	Cursor   string  `json:"cursor,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type PageOptions struct {
	Cursor  string
	Size    int
	ChainID uint64
}

// Page is one data source response. An empty NextCursor means no more pages.
type Page struct {
	Data       []Asset
	NextCursor string
}

type Source interface {
	AssetsByCollectionAndOwner(ctx context.Context, collectionID string, owner common.Address, opts PageOptions) (Page, error)
}

type VerifiedBySource interface {
	VerifiedBy(ctx context.Context, collectionID string) ([]string, error)
}

// HiddenUpdate carries the full hidden key set of a user after a change.
type HiddenUpdate struct {
	User string
	Keys []string
}

// HiddenSource provides hidden keys per user and pushes updates.
type HiddenSource interface {
	Keys(user string) []string
	SubscribeUpdates(ch chan<- HiddenUpdate) event.Subscription
}
