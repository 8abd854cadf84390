package http

import "time"

// Generic HTTP / JSON strings
const (
	HTTPErrorMethodNotAllowedText = "method not allowed"
	HTTPErrorInvalidJSONText      = "invalid JSON"
	HTTPErrorBadRequestText       = "bad request"
	HTTPErrorForbiddenText        = "forbidden"
	HTTPErrorForbiddenHostText    = "forbidden host"
	HTTPErrorForbiddenOriginText  = "forbidden origin"
)

const (
	CORSMaxAgeSeconds = 600
	CORSMethodsRead   = "GET,OPTIONS"
	CORSMethodsWrite  = "GET,POST,OPTIONS"
)

// Request field errors
const (
	ErrorMissingChainIDText    = "missing chainId"
	ErrorInvalidChainIDText    = "invalid chainId"
	ErrorInvalidOwnerText      = "invalid owner"
	ErrorMissingUserText       = "missing user"
	ErrorMissingKeysText       = "missing keys"
	ErrorMissingCollectionText = "missing collection id"
	ErrorMissingNameText       = "missing name"
	ErrorInvalidValueText      = "invalid value"
	ErrorInvalidTierText       = "invalid tier"
)

// Asset loading
const (
	AssetsLoadMaxCollections = 32
	AssetsLoadConcurrency    = 4
	AssetsFetchTimeout       = 30 * time.Second

	// AssetSessionsMax caps the owners with a live asset cache; the least
	// recently used one is dropped first.
	AssetSessionsMax = 16
)

// Transaction receipt constants
const (
	TxReceiptRequestMaxTxHashes = 50

	TxReceiptErrorMissingTxHashText      = "missing txHash/txHashes"
	TxReceiptErrorTooManyTxHashesText    = "too many txHashes (max 50)"
	TxReceiptErrorInvalidTxHashFieldText = "invalid txHash"
)

// Routes
const (
	PathHealth             = "/healthz"
	PathNetworks           = "/networks"
	PathNetworksAdd        = "/networks/add"
	PathNetworksUpdate     = "/networks/update"
	PathNetworksRemove     = "/networks/remove"
	PathGasOptions         = "/gas/options"
	PathGasNormalize       = "/gas/normalize"
	PathAssets             = "/assets"
	PathAssetsLoad         = "/assets/load"
	PathAssetsVerifiedBy   = "/assets/verified-by"
	PathAssetsVerifiedLoad = "/assets/verified-by/load"
	PathHidden             = "/hidden"
	PathHiddenHide         = "/hidden/hide"
	PathHiddenUnhide       = "/hidden/unhide"
	PathAddressBook        = "/addressbook"
	PathAddressBookAdd     = "/addressbook/add"
	PathAddressBookRemove  = "/addressbook/remove"
	PathAddressBookRename  = "/addressbook/rename"
	PathTxReceipt          = "/tx/receipt"
	PathFormatCurrency     = "/format/currency"
)
