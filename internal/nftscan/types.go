package nftscan

import (
	"encoding/json"

	"github.com/dimensiondev/mask-wallet-core/internal/assets"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type ownedAssets struct {
	Total   int          `json:"total"`
	Next    string       `json:"next"`
	Content []ownedAsset `json:"content"`
}

type ownedAsset struct {
	ContractAddress string `json:"contract_address"`
	ContractName    string `json:"contract_name"`
	TokenID         string `json:"token_id"`
	Name            string `json:"name"`
	ImageURI        string `json:"image_uri"`
	NFTScanURI      string `json:"nftscan_uri"`
}

func (a ownedAsset) toAsset(chainID uint64, collectionID string) assets.Asset {
	name := a.Name
	if name == "" && a.ContractName != "" {
		name = a.ContractName + " #" + a.TokenID
	}
	img := a.NFTScanURI
	if img == "" {
		img = a.ImageURI
	}
	return assets.Asset{
		Address:      a.ContractAddress,
		TokenID:      a.TokenID,
		ChainID:      chainID,
		Name:         name,
		ImageURL:     img,
		CollectionID: collectionID,
	}
}

type collection struct {
	ContractAddress string `json:"contract_address"`
	Name            string `json:"name"`
	Verified        bool   `json:"verified"`
	OpenseaVerified bool   `json:"opensea_verified"`
}

func (c collection) verifiedBy() []string {
	out := []string{}
	if c.OpenseaVerified {
		out = append(out, "OpenSea")
	}
	if c.Verified {
		out = append(out, "NFTScan")
	}
	return out
}
