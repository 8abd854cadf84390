// Package nftscan reads owned NFTs and collection verification from the NFTScan REST API.
package nftscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/retry"

	"github.com/dimensiondev/mask-wallet-core/internal/assets"
	"github.com/dimensiondev/mask-wallet-core/internal/constants"
)

const (
	DefaultTimeout = 15 * time.Second
	apiKeyHeader   = "X-API-KEY"
	okCode         = 200
)

var (
	ErrUnsupportedChain = errors.New("nftscan: unsupported chain")
	ErrAPI              = errors.New("nftscan: api error")
)

// DefaultBaseURLs maps chain ids to NFTScan API hosts.
var DefaultBaseURLs = map[uint64]string{
	constants.ChainIDMainnet:  "https://restapi.nftscan.com",
	constants.ChainIDBSC:      "https://bnbapi.nftscan.com",
	constants.ChainIDPolygon:  "https://polygonapi.nftscan.com",
	constants.ChainIDArbitrum: "https://arbitrumapi.nftscan.com",
	constants.ChainIDOptimism: "https://optimismapi.nftscan.com",
	constants.ChainIDBase:     "https://baseapi.nftscan.com",
}

type Config struct {
	APIKey string
	// BaseURLs overrides DefaultBaseURLs per chain.
	BaseURLs map[uint64]string
	// VerifiedChainID is the chain used for verification lookups.
	VerifiedChainID uint64
	Timeout         time.Duration
	MaxRetryDelay   time.Duration
}

// Client implements assets.Source and assets.VerifiedBySource.
type Client struct {
	cfg  Config
	http *http.Client
}

var (
	_ assets.Source           = (*Client)(nil)
	_ assets.VerifiedBySource = (*Client)(nil)
)

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = 2 * time.Second
	}
	if cfg.VerifiedChainID == 0 {
		cfg.VerifiedChainID = constants.ChainIDMainnet
	}
	urls := make(map[uint64]string, len(DefaultBaseURLs)+len(cfg.BaseURLs))
	for k, v := range DefaultBaseURLs {
		urls[k] = v
	}
	for k, v := range cfg.BaseURLs {
		urls[k] = strings.TrimRight(strings.TrimSpace(v), "/")
	}
	cfg.BaseURLs = urls

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// AssetsByCollectionAndOwner lists owner's tokens of one contract, one page at a time.
func (c *Client) AssetsByCollectionAndOwner(ctx context.Context, collectionID string, owner common.Address, opts assets.PageOptions) (assets.Page, error) {
	if !common.IsHexAddress(collectionID) {
		return assets.Page{}, fmt.Errorf("nftscan: collection %q is not a contract address", collectionID)
	}

	q := url.Values{}
	q.Set("erc_type", "erc721")
	q.Set("contract_address", strings.ToLower(collectionID))
	q.Set("show_attribute", "false")
	if opts.Size > 0 {
		q.Set("limit", strconv.Itoa(opts.Size))
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}

	var data ownedAssets
	if err := c.get(ctx, opts.ChainID, "/api/v2/account/own/"+owner.Hex(), q, &data); err != nil {
		return assets.Page{}, err
	}

	page := assets.Page{
		Data:       make([]assets.Asset, 0, len(data.Content)),
		NextCursor: data.Next,
	}
	for _, a := range data.Content {
		page.Data = append(page.Data, a.toAsset(opts.ChainID, collectionID))
	}
	return page, nil
}

// VerifiedBy returns the marketplaces that verified a collection.
func (c *Client) VerifiedBy(ctx context.Context, collectionID string) ([]string, error) {
	if !common.IsHexAddress(collectionID) {
		return nil, fmt.Errorf("nftscan: collection %q is not a contract address", collectionID)
	}

	var data collection
	if err := c.get(ctx, c.cfg.VerifiedChainID, "/api/v2/collections/"+strings.ToLower(collectionID), nil, &data); err != nil {
		return nil, err
	}
	return data.verifiedBy(), nil
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// get retries transport errors and 5xx/429 responses. Other failures stop at once.
func (c *Client) get(ctx context.Context, chainID uint64, path string, q url.Values, out any) error {
	base, ok := c.cfg.BaseURLs[chainID]
	if !ok || base == "" {
		return errors.Wrapf(ErrUnsupportedChain, "chainId %d", chainID)
	}
	u := base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	cfg := retry.DefaultConfig()
	cfg.MaxDelayBeforeRetrying = c.cfg.MaxRetryDelay
	cfg.InitialDelayBeforeRetrying = c.cfg.MaxRetryDelay / 10

	ctx, cancel := context.WithTimeout(ctx, 2*c.cfg.Timeout)
	defer cancel()

	var (
		body      []byte
		permanent error
	)
	_, err := retry.Retry(ctx, cfg,
		func(ctx context.Context) ([]interface{}, error) {
			b, err := c.do(ctx, u)
			var p permanentError
			if errors.As(err, &p) {
				// stop retrying, report after the loop
				permanent = p.err
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			body = b
			return nil, nil
		},
		nil,
		"nftscan GET "+path)
	if permanent != nil {
		return permanent
	}
	if err != nil {
		return errors.Wrapf(err, "nftscan GET %s", path)
	}
	if body == nil {
		return errors.Newf("nftscan GET %s: no response", path)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.Wrap(err, "nftscan: decode response")
	}
	if env.Code != okCode {
		return errors.Wrapf(ErrAPI, "code %d: %s", env.Code, env.Msg)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, "nftscan: decode data")
	}
	return nil
}

func (c *Client) do(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, permanentError{err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, permanentError{err: err}
		}
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		log.Warn("nftscan transient failure", "status", resp.StatusCode, "url", u)
		return nil, fmt.Errorf("nftscan: http %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, permanentError{err: errors.Wrapf(ErrAPI, "http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))}
	}
	return b, nil
}
