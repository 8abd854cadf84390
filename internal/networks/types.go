package networks

import "github.com/dimensiondev/mask-wallet-core/internal/constants"

type Network struct {
	Name         string   `json:"name"`
	ChainID      uint64   `json:"chainId"`
	ChainIDHex   string   `json:"chainIdHex"`
	Explorer     string   `json:"explorer,omitempty"`
	NativeSymbol string   `json:"nativeSymbol,omitempty"`
	RPCs         []RPC    `json:"rpcs,omitempty"`
	Features     []string `json:"features,omitempty"`
}

type RPC struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// UpdatePatch changes only the fields that are set.
type UpdatePatch struct {
	Explorer *string   `json:"explorer,omitempty"`
	RPCs     *[]RPC    `json:"rpcs,omitempty"`
	Features *[]string `json:"features,omitempty"`
}

type Store struct {
	Schema   int                `json:"schema"`
	Networks map[string]Network `json:"networks"` // key = normalized name
}

func NewEmptyStore() Store {
	return Store{
		Schema:   constants.SchemaV1,
		Networks: map[string]Network{},
	}
}

// HasFeature reports whether the network declares feature (case-insensitive).
func (n Network) HasFeature(feature string) bool {
	for _, f := range n.Features {
		if equalFold(f, feature) {
			return true
		}
	}
	return false
}
