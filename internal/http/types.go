package http

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/dimensiondev/mask-wallet-core/internal/assets"
	"github.com/dimensiondev/mask-wallet-core/internal/format"
	"github.com/dimensiondev/mask-wallet-core/internal/gasfee"
	"github.com/dimensiondev/mask-wallet-core/internal/networks"
	"github.com/dimensiondev/mask-wallet-core/internal/receipt"
)

type corsPolicy struct {
	allowedOrigins map[string]struct{}
	allowMethods   string

	allowHeaders string
	maxAge       int
}

type extensionResponse struct {
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// feeConfigDTO uses the hex quantity encoding of eth_sendTransaction payloads.
type feeConfigDTO struct {
	ChainID              hexutil.Uint64  `json:"chainId"`
	Gas                  *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
}

func (d feeConfigDTO) toFeeConfig() gasfee.FeeConfig {
	cfg := gasfee.FeeConfig{
		ChainID:              uint64(d.ChainID),
		GasPrice:             bigFromHex(d.GasPrice),
		MaxFeePerGas:         bigFromHex(d.MaxFeePerGas),
		MaxPriorityFeePerGas: bigFromHex(d.MaxPriorityFeePerGas),
	}
	if d.Gas != nil {
		g := uint64(*d.Gas)
		cfg.Gas = &g
	}
	return cfg
}

func feeConfigFrom(c gasfee.FeeConfig) feeConfigDTO {
	out := feeConfigDTO{
		ChainID:              hexutil.Uint64(c.ChainID),
		GasPrice:             hexFromBig(c.GasPrice),
		MaxFeePerGas:         hexFromBig(c.MaxFeePerGas),
		MaxPriorityFeePerGas: hexFromBig(c.MaxPriorityFeePerGas),
	}
	if c.Gas != nil {
		g := hexutil.Uint64(*c.Gas)
		out.Gas = &g
	}
	return out
}

type overridesDTO struct {
	GasPrice             *hexutil.Big `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big `json:"maxPriorityFeePerGas,omitempty"`
}

type gasNormalizeReq struct {
	Config    feeConfigDTO  `json:"config"`
	Owner     bool          `json:"owner,omitempty"`
	Readonly  bool          `json:"readonly,omitempty"`
	Overrides *overridesDTO `json:"overrides,omitempty"`
}

func (r gasNormalizeReq) toRequest() gasfee.Request {
	req := gasfee.Request{
		Config:   r.Config.toFeeConfig(),
		Owner:    r.Owner,
		Readonly: r.Readonly,
	}
	if r.Overrides != nil {
		req.Overrides = &gasfee.Overrides{
			GasPrice:             bigFromHex(r.Overrides.GasPrice),
			MaxFeePerGas:         bigFromHex(r.Overrides.MaxFeePerGas),
			MaxPriorityFeePerGas: bigFromHex(r.Overrides.MaxPriorityFeePerGas),
		}
	}
	return req
}

type healthResp struct {
	Status    string            `json:"status"`
	HeaderAge map[string]string `json:"headerAge,omitempty"`
}

// gasNormalizeResp flags which fee shape survived normalization.
type gasNormalizeResp struct {
	feeConfigDTO
	EIP1559 bool `json:"eip1559"`
}

type gasOptionResp struct {
	SuggestedMaxFeePerGas         *hexutil.Big `json:"suggestedMaxFeePerGas,omitempty"`
	SuggestedMaxPriorityFeePerGas *hexutil.Big `json:"suggestedMaxPriorityFeePerGas,omitempty"`
	MaxFeeGwei                    string       `json:"maxFeeGwei,omitempty"`
	PriorityFeeGwei               string       `json:"priorityFeeGwei,omitempty"`
}

func gasOptionsFrom(s gasfee.Snapshot) map[string]gasOptionResp {
	out := make(map[string]gasOptionResp, len(s))
	for tier, opt := range s {
		r := gasOptionResp{
			SuggestedMaxFeePerGas:         hexFromBig(opt.SuggestedMaxFeePerGas),
			SuggestedMaxPriorityFeePerGas: hexFromBig(opt.SuggestedMaxPriorityFeePerGas),
		}
		if opt.SuggestedMaxFeePerGas != nil {
			r.MaxFeeGwei = format.FormatWeiToGwei(opt.SuggestedMaxFeePerGas)
		}
		if opt.SuggestedMaxPriorityFeePerGas != nil {
			r.PriorityFeeGwei = format.FormatWeiToGwei(opt.SuggestedMaxPriorityFeePerGas)
		}
		out[tier.String()] = r
	}
	return out
}

type assetsLoadReq struct {
	Owner       string              `json:"owner"`
	Collections []assets.Collection `json:"collections"`
}

type verifiedByLoadReq struct {
	Owner string `json:"owner"`
	ID    string `json:"id"`
}

type verifiedByResp struct {
	ID         string   `json:"id"`
	Fetched    bool     `json:"fetched"`
	VerifiedBy []string `json:"verifiedBy"`
}

type hiddenReq struct {
	User string   `json:"user"`
	Keys []string `json:"keys"`
}

type contactReq struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

type networkRemoveReq struct {
	ChainID uint64 `json:"chainId"`
}

type networkUpdateReq struct {
	ChainID uint64               `json:"chainId"`
	Patch   networks.UpdatePatch `json:"patch"`
}

type txReceiptReq struct {
	ChainID  uint64   `json:"chainId"`
	TxHash   string   `json:"txHash,omitempty"`
	TxHashes []string `json:"txHashes,omitempty"`
}

type txReceiptResp struct {
	Found          bool           `json:"found"`
	Status         receipt.Status `json:"status"`
	BlockNumberHex string         `json:"blockNumberHex,omitempty"`
	Error          string         `json:"error,omitempty"`
}

type currencyResp struct {
	Value     string `json:"value"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

func bigFromHex(v *hexutil.Big) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set((*big.Int)(v))
}

func hexFromBig(v *big.Int) *hexutil.Big {
	if v == nil {
		return nil
	}
	return (*hexutil.Big)(new(big.Int).Set(v))
}
