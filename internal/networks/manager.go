// Package networks keeps the user's chain registry in networks.json and
// answers chain capability questions.
package networks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/dimensiondev/mask-wallet-core/internal/constants"
	"github.com/dimensiondev/mask-wallet-core/internal/securefile"
)

var (
	ErrNetworkNotFound = errors.New("network not found")
	ErrNetworkExists   = errors.New("network already exists")
)

type Manager struct {
	path string

	mu    sync.RWMutex
	store Store
}

// NewManager uses networks.json at path.
func NewManager(path string) *Manager {
	return &Manager{
		path:  path,
		store: NewEmptyStore(),
	}
}

// NewDefaultManager resolves networks.json using securefile.ResolvePath.
func NewDefaultManager() (*Manager, error) {
	if strings.TrimSpace(constants.AppName) == "" {
		return nil, fmt.Errorf("appName must not be empty")
	}

	path, err := securefile.ResolvePath(constants.AppName, constants.NetworksFile)
	if err != nil {
		return nil, fmt.Errorf("resolve networks path: %w", err)
	}
	return NewManager(path), nil
}

func (m *Manager) Path() string { return m.path }

// Load reads networks.json. A missing file leaves an empty store.
func (m *Manager) Load(ctx context.Context) error {
	_ = ctx

	s, found, err := securefile.ReadJSON[Store](m.path)
	if err != nil {
		return fmt.Errorf("read networks file: %w", err)
	}

	norm := NewEmptyStore()
	if found {
		if s.Schema != 0 {
			norm.Schema = s.Schema
		}
		for k, n := range s.Networks {
			if strings.TrimSpace(n.Name) == "" {
				n.Name = k
			}
			n = normalizeNetwork(n)
			if n.Name == "" || n.ChainID == 0 {
				continue
			}
			norm.Networks[n.Name] = n
		}
	}

	m.mu.Lock()
	m.store = norm
	m.mu.Unlock()
	return nil
}

// EnsureFromConfig merges defaults into networks.json:
// - unknown chains are added
// - known chains only get their empty fields filled, user values win
// - the file is created on first run
func (m *Manager) EnsureFromConfig(ctx context.Context, defaults []Network) error {
	if err := m.Load(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	changed := !securefile.Exists(m.path)

	for _, dn := range defaults {
		dn = normalizeNetwork(dn)
		if dn.Name == "" || dn.ChainID == 0 {
			continue
		}

		key, ok := m.findKeyLocked(dn.ChainID)
		if !ok {
			if _, taken := m.store.Networks[dn.Name]; taken {
				continue
			}
			m.store.Networks[dn.Name] = dn
			changed = true
			continue
		}

		existing := m.store.Networks[key]
		if existing.Explorer == "" && dn.Explorer != "" {
			existing.Explorer = dn.Explorer
			changed = true
		}
		if existing.NativeSymbol == "" && dn.NativeSymbol != "" {
			existing.NativeSymbol = dn.NativeSymbol
			changed = true
		}
		if len(existing.RPCs) == 0 && len(dn.RPCs) > 0 {
			existing.RPCs = dn.RPCs
			changed = true
		}
		if len(existing.Features) == 0 && len(dn.Features) > 0 {
			existing.Features = dn.Features
			changed = true
		}
		m.store.Networks[key] = existing
	}

	if !changed {
		return nil
	}
	return m.persistLocked()
}

func (m *Manager) AddNetwork(ctx context.Context, n Network) (Network, error) {
	_ = ctx

	n = normalizeNetwork(n)
	if n.Name == "" {
		return Network{}, fmt.Errorf("network.name is required")
	}
	if n.ChainID == 0 {
		return Network{}, fmt.Errorf("network.chainId is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if key, ok := m.findKeyLocked(n.ChainID); ok {
		return Network{}, fmt.Errorf("%w for chainId %d (name: %s)", ErrNetworkExists, n.ChainID, key)
	}
	if _, ok := m.store.Networks[n.Name]; ok {
		return Network{}, fmt.Errorf("%w: name %s", ErrNetworkExists, n.Name)
	}

	m.store.Networks[n.Name] = n
	if err := m.persistLocked(); err != nil {
		delete(m.store.Networks, n.Name)
		return Network{}, err
	}
	return n, nil
}

// RemoveNetwork is idempotent.
func (m *Manager) RemoveNetwork(ctx context.Context, chainID uint64) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.findKeyLocked(chainID)
	if !ok {
		return nil
	}
	delete(m.store.Networks, key)
	return m.persistLocked()
}

func (m *Manager) UpdateNetwork(ctx context.Context, chainID uint64, patch UpdatePatch) (Network, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.findKeyLocked(chainID)
	if !ok {
		return Network{}, fmt.Errorf("%w: chainId %d", ErrNetworkNotFound, chainID)
	}

	n := m.store.Networks[key]
	if patch.Explorer != nil {
		n.Explorer = *patch.Explorer
	}
	if patch.RPCs != nil {
		n.RPCs = *patch.RPCs
	}
	if patch.Features != nil {
		n.Features = *patch.Features
	}
	n = normalizeNetwork(n)

	prev := m.store.Networks[key]
	m.store.Networks[key] = n
	if err := m.persistLocked(); err != nil {
		m.store.Networks[key] = prev
		return Network{}, err
	}
	return n, nil
}

// List returns the stored networks sorted by chain id.
func (m *Manager) List() []Network {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Network, 0, len(m.store.Networks))
	for _, n := range m.store.Networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ChainID < out[j].ChainID
	})
	return out
}

// FindByChainID looks in networks.json first, then in the built-in networks.
func (m *Manager) FindByChainID(chainID uint64) (Network, bool) {
	m.mu.RLock()
	key, ok := m.findKeyLocked(chainID)
	var n Network
	if ok {
		n = m.store.Networks[key]
	}
	m.mu.RUnlock()

	if ok {
		return n, true
	}
	return builtinByChainID(chainID)
}

// IsSupport reports whether chainID declares feature, e.g. constants.FeatureEIP1559.
func (m *Manager) IsSupport(chainID uint64, feature string) bool {
	n, ok := m.FindByChainID(chainID)
	if !ok {
		return false
	}
	return n.HasFeature(feature)
}

func (m *Manager) findKeyLocked(chainID uint64) (string, bool) {
	if chainID == 0 {
		return "", false
	}
	for k, n := range m.store.Networks {
		if n.ChainID == chainID {
			return k, true
		}
	}
	return "", false
}

func (m *Manager) persistLocked() error {
	if m.store.Schema == 0 {
		m.store.Schema = constants.SchemaV1
	}
	if err := securefile.WriteJSON(m.path, m.store); err != nil {
		return fmt.Errorf("persist networks: %w", err)
	}
	return nil
}

func normalizeNetwork(n Network) Network {
	n.Name = strings.ToLower(strings.TrimSpace(n.Name))
	n.Explorer = strings.TrimSpace(n.Explorer)
	n.NativeSymbol = strings.ToUpper(strings.TrimSpace(n.NativeSymbol))

	if n.ChainID == 0 && n.ChainIDHex != "" {
		if id, err := hexutil.DecodeUint64(normalizeChainIDHex(n.ChainIDHex)); err == nil {
			n.ChainID = id
		}
	}
	n.ChainIDHex = ""
	if n.ChainID != 0 {
		n.ChainIDHex = hexutil.EncodeUint64(n.ChainID)
	}

	n.RPCs = normalizeRPCs(n.RPCs)
	n.Features = normalizeFeatures(n.Features)
	return n
}

func normalizeChainIDHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return s
}

func normalizeRPCs(in []RPC) []RPC {
	if len(in) == 0 {
		return nil
	}
	out := make([]RPC, 0, len(in))
	seen := map[string]bool{} // by url
	for _, r := range in {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			continue
		}
		key := strings.ToLower(url)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, RPC{Name: strings.TrimSpace(r.Name), URL: url})
	}
	return out
}

func normalizeFeatures(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, f := range in {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
