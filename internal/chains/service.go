// Package chains dials and caches one RPC client per chain.
package chains

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

const DefaultHeaderRefresh = 12 * time.Second

var (
	ErrUnknownChain    = errors.New("unknown chain")
	ErrNoRPC           = errors.New("no rpc configured")
	ErrChainIDMismatch = errors.New("rpc reports a different chain id")
	ErrServiceClosed   = errors.New("chain service closed")
)

type Service struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      Config
	resolver NetworkResolver
	dial     Dialer

	mu      sync.Mutex
	clients map[uint64]*CachedClient
	closed  bool
}

// NewService ties background header refreshers to ctx. A nil dialer uses ethclient.
func NewService(ctx context.Context, cfg Config, resolver NetworkResolver, dial Dialer) *Service {
	if cfg.HeaderRefresh <= 0 {
		cfg.HeaderRefresh = DefaultHeaderRefresh
	}
	if dial == nil {
		dial = dialEthClient
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		resolver: resolver,
		dial:     dial,
		clients:  map[uint64]*CachedClient{},
	}
}

func dialEthClient(ctx context.Context, url string) (Client, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Client returns (and caches) the client for chainID.
func (s *Service) Client(ctx context.Context, chainID uint64) (Client, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrServiceClosed
	}
	if existing := s.clients[chainID]; existing != nil {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	resolved, err := s.Resolve(chainID)
	if err != nil {
		return nil, err
	}

	// dial outside the lock
	dialed, err := s.dialChain(ctx, resolved)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing := s.clients[chainID]; existing != nil || s.closed {
		s.mu.Unlock()
		dialed.Close()
		if existing == nil {
			return nil, ErrServiceClosed
		}
		return existing, nil
	}
	s.clients[chainID] = dialed
	s.mu.Unlock()

	log.Info("chain client ready", "chainId", chainID, "network", resolved.NetworkName, "rpc", resolved.RPCName)
	return dialed, nil
}

func (s *Service) dialChain(ctx context.Context, chain ResolvedChain) (*CachedClient, error) {
	raw, err := s.dial(ctx, chain.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s at %s", chain.NetworkName, chain.URL)
	}

	id, err := raw.ChainID(ctx)
	if err != nil {
		raw.Close()
		return nil, errors.Wrapf(err, "failed to read chain id from %s", chain.URL)
	}
	if id.Sign() <= 0 || !id.IsUint64() || id.Uint64() != chain.ChainID {
		raw.Close()
		return nil, errors.Wrapf(ErrChainIDMismatch, "%s: want %d, got %s", chain.URL, chain.ChainID, id)
	}

	cc, err := NewCachedClient(s.ctx, raw, s.cfg.HeaderRefresh)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return cc, nil
}

// Resolve picks the RPC for chainID: the preferred name if present, else the first.
func (s *Service) Resolve(chainID uint64) (ResolvedChain, error) {
	if s.resolver == nil {
		return ResolvedChain{}, errors.New("no network resolver")
	}
	if chainID == 0 {
		return ResolvedChain{}, errors.New("chainID is 0")
	}

	network, ok := s.resolver.FindByChainID(chainID)
	if !ok {
		return ResolvedChain{}, errors.Wrapf(ErrUnknownChain, "chainId %d", chainID)
	}
	if len(network.RPCs) == 0 {
		return ResolvedChain{}, errors.Wrapf(ErrNoRPC, "network %q", network.Name)
	}

	selected := network.RPCs[0]
	if preferred := strings.TrimSpace(s.cfg.PreferredRPCName); preferred != "" {
		for _, r := range network.RPCs {
			if strings.EqualFold(strings.TrimSpace(r.Name), preferred) {
				selected = r
				break
			}
		}
	}
	if strings.TrimSpace(selected.URL) == "" {
		return ResolvedChain{}, errors.Wrapf(ErrNoRPC, "network %q rpc %q url is empty", network.Name, selected.Name)
	}

	return ResolvedChain{
		NetworkName: network.Name,
		ChainID:     chainID,
		RPCName:     selected.Name,
		URL:         selected.URL,
	}, nil
}

// Forget drops a cached client, e.g. after its network's RPCs were edited.
func (s *Service) Forget(chainID uint64) {
	s.mu.Lock()
	c := s.clients[chainID]
	delete(s.clients, chainID)
	s.mu.Unlock()

	if c != nil {
		c.Close()
	}
}

// HeaderAges reports how stale the cached latest header of each dialed chain is.
func (s *Service) HeaderAges() map[uint64]time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uint64]time.Duration, len(s.clients))
	for id, c := range s.clients {
		if c != nil {
			out[id] = c.LatestHeaderAge()
		}
	}
	return out
}

// Close stops refreshers and closes all cached clients.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	for id, c := range s.clients {
		if c != nil {
			c.Close()
		}
		delete(s.clients, id)
	}
	s.closed = true
	return nil
}
