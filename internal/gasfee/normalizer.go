// Package gasfee corrects the fee fields of a pending EVM transaction before it is signed.
package gasfee

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/dimensiondev/mask-wallet-core/internal/constants"
)

const (
	// GasMarginBps scales estimated gas limits by +30%.
	GasMarginBps = 13_000

	DefaultMinGasLimit  uint64 = 21_000
	OptimismMinGasLimit uint64 = 25_000
)

var (
	ErrSnapshotMissing   = errors.New("gas oracle snapshot has no slow or normal tier")
	ErrSnapshotMalformed = errors.New("gas oracle snapshot is malformed")
)

// MinGasLimit is the lowest gas limit a transaction may carry on chainID.
func MinGasLimit(chainID uint64) uint64 {
	if chainID == constants.ChainIDOptimism {
		return OptimismMinGasLimit
	}
	return DefaultMinGasLimit
}

// AddGasMargin applies GasMarginBps, saturating at MaxUint64.
func AddGasMargin(gas uint64) uint64 {
	if gas > math.MaxUint64/GasMarginBps {
		return math.MaxUint64
	}
	return (gas * GasMarginBps) / 10_000
}

// Normalize returns a corrected copy of req.Config. It never fails: a missing or
// malformed snapshot only skips the underpriced correction.
func Normalize(req Request, snapshot Snapshot, supportsEIP1559 bool) FeeConfig {
	cfg := req.Config.Clone()
	if req.Readonly {
		return cfg
	}

	if cfg.Gas != nil && !req.Owner {
		g := floorGasLimit(*cfg.Gas, cfg.ChainID)
		cfg.Gas = &g
	}

	if supportsEIP1559 {
		cfg.GasPrice = nil
	} else {
		cfg.MaxFeePerGas = nil
		cfg.MaxPriorityFeePerGas = nil
	}

	if err := correctUnderpriced(&cfg, snapshot, supportsEIP1559); err != nil {
		log.Warn("gas fee correction skipped", "chainId", cfg.ChainID, "error", err)
	}

	applyOverrides(&cfg, req.Overrides)
	return cfg
}

// floorGasLimit keeps inputs under the chain minimum at exactly the minimum and
// otherwise adds the margin, never dropping below the minimum.
func floorGasLimit(gas uint64, chainID uint64) uint64 {
	minimum := MinGasLimit(chainID)
	if gas < minimum {
		return minimum
	}
	if g := AddGasMargin(gas); g > minimum {
		return g
	}
	return minimum
}

func correctUnderpriced(cfg *FeeConfig, snapshot Snapshot, supportsEIP1559 bool) error {
	if snapshot == nil {
		return ErrSnapshotMissing
	}
	slow, okSlow := snapshot[TierSlow]
	normal, okNormal := snapshot[TierNormal]
	if !okSlow || !okNormal {
		return ErrSnapshotMissing
	}

	if supportsEIP1559 {
		if slow.SuggestedMaxPriorityFeePerGas == nil || normal.SuggestedMaxFeePerGas == nil || normal.SuggestedMaxPriorityFeePerGas == nil {
			return fmt.Errorf("%w: missing dynamic fee suggestion", ErrSnapshotMalformed)
		}
		if normal.SuggestedMaxFeePerGas.Sign() < 0 || normal.SuggestedMaxPriorityFeePerGas.Sign() < 0 {
			return fmt.Errorf("%w: negative suggestion", ErrSnapshotMalformed)
		}

		if lessThan(cfg.MaxPriorityFeePerGas, slow.SuggestedMaxPriorityFeePerGas) {
			cfg.MaxFeePerGas = new(big.Int).Set(normal.SuggestedMaxFeePerGas)
			cfg.MaxPriorityFeePerGas = new(big.Int).Set(normal.SuggestedMaxPriorityFeePerGas)
		}
		return nil
	}

	if slow.SuggestedMaxFeePerGas == nil || normal.SuggestedMaxFeePerGas == nil {
		return fmt.Errorf("%w: missing gas price suggestion", ErrSnapshotMalformed)
	}
	if normal.SuggestedMaxFeePerGas.Sign() < 0 {
		return fmt.Errorf("%w: negative suggestion", ErrSnapshotMalformed)
	}

	if lessThan(cfg.GasPrice, slow.SuggestedMaxFeePerGas) {
		cfg.GasPrice = new(big.Int).Set(normal.SuggestedMaxFeePerGas)
	}
	return nil
}

// lessThan treats an absent value as zero.
func lessThan(v, threshold *big.Int) bool {
	if v == nil {
		return threshold.Sign() > 0
	}
	return v.Cmp(threshold) < 0
}

func applyOverrides(cfg *FeeConfig, o *Overrides) {
	if o == nil {
		return
	}
	if o.MaxFeePerGas != nil {
		cfg.MaxFeePerGas = new(big.Int).Set(o.MaxFeePerGas)
	}
	if o.MaxPriorityFeePerGas != nil {
		cfg.MaxPriorityFeePerGas = new(big.Int).Set(o.MaxPriorityFeePerGas)
	}
	if o.GasPrice != nil {
		cfg.GasPrice = new(big.Int).Set(o.GasPrice)
	}
}

// Encoder fetches a fresh oracle snapshot and chain capability, then normalizes.
type Encoder struct {
	oracle OracleProvider
	caps   CapabilityResolver
}

func NewEncoder(oracle OracleProvider, caps CapabilityResolver) *Encoder {
	return &Encoder{oracle: oracle, caps: caps}
}

// Encode is best effort: oracle failures are logged and the caller's values kept.
func (e *Encoder) Encode(ctx context.Context, req Request) FeeConfig {
	if req.Readonly {
		return req.Config.Clone()
	}

	chainID := req.Config.ChainID
	supports := e.caps != nil && e.caps.IsSupport(chainID, constants.FeatureEIP1559)

	var snapshot Snapshot
	if e.oracle != nil {
		s, err := e.oracle.GetGasOptions(ctx, chainID)
		if err != nil {
			log.Warn("gas oracle unavailable", "chainId", chainID, "error", err)
		} else {
			snapshot = s
		}
	}

	return Normalize(req, snapshot, supports)
}
