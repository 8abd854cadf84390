package gasfee

import (
	"context"
	"math/big"
)

// Tier is a gas oracle fee tier.
type Tier int

const (
	TierSlow Tier = iota
	TierNormal
	TierFast
)

func (t Tier) String() string {
	switch t {
	case TierSlow:
		return "slow"
	case TierNormal:
		return "normal"
	case TierFast:
		return "fast"
	default:
		return "unknown"
	}
}

// ParseTier is the inverse of Tier.String.
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "slow":
		return TierSlow, true
	case "normal":
		return TierNormal, true
	case "fast":
		return TierFast, true
	default:
		return 0, false
	}
}

// GasOption is one oracle suggestion, in wei.
// Legacy chains only fill SuggestedMaxFeePerGas (the gas price).
type GasOption struct {
	SuggestedMaxFeePerGas         *big.Int
	SuggestedMaxPriorityFeePerGas *big.Int
}

// Snapshot maps tiers to suggestions. It is fetched per encode call and never reused.
type Snapshot map[Tier]GasOption

// FeeConfig is the fee part of a pending transaction. All amounts are wei.
// Exactly one fee shape is populated after normalization: GasPrice for legacy
// chains, MaxFeePerGas/MaxPriorityFeePerGas for EIP-1559 chains.
type FeeConfig struct {
	ChainID              uint64
	Gas                  *uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Clone deep-copies the config so callers never share big.Int pointers.
func (c FeeConfig) Clone() FeeConfig {
	out := FeeConfig{
		ChainID:              c.ChainID,
		GasPrice:             cloneBig(c.GasPrice),
		MaxFeePerGas:         cloneBig(c.MaxFeePerGas),
		MaxPriorityFeePerGas: cloneBig(c.MaxPriorityFeePerGas),
	}
	if c.Gas != nil {
		g := *c.Gas
		out.Gas = &g
	}
	return out
}

// IsEIP1559 reports whether the dynamic fee shape is populated.
func (c FeeConfig) IsEIP1559() bool {
	return c.MaxFeePerGas != nil || c.MaxPriorityFeePerGas != nil
}

// Overrides are caller supplied fee values that replace computed ones.
type Overrides struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Request is the input of a normalization pass.
type Request struct {
	Config FeeConfig
	// Owner marks relayed transactions whose gas limit is already final.
	Owner bool
	// Readonly payloads pass through untouched.
	Readonly  bool
	Overrides *Overrides
}

// OracleProvider returns current tiered gas suggestions for a chain.
type OracleProvider interface {
	GetGasOptions(ctx context.Context, chainID uint64) (Snapshot, error)
}

// CapabilityResolver answers chain feature questions such as EIP-1559 support.
type CapabilityResolver interface {
	IsSupport(chainID uint64, feature string) bool
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
