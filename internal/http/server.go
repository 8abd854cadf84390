// Package http serves the wallet core to the browser extension over loopback.
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dimensiondev/mask-wallet-core/internal/addressbook"
	"github.com/dimensiondev/mask-wallet-core/internal/assets"
	"github.com/dimensiondev/mask-wallet-core/internal/gasfee"
	"github.com/dimensiondev/mask-wallet-core/internal/hiddenlist"
	"github.com/dimensiondev/mask-wallet-core/internal/networks"
	"github.com/dimensiondev/mask-wallet-core/internal/receipt"
)

// ChainCache is the dialed client cache, see chains.Service. Forget drops
// per-chain state after a network edit.
type ChainCache interface {
	Forget(chainID uint64)
	HeaderAges() map[uint64]time.Duration
}

// Options wires the server to its backends. Nil backends answer 500 on
// their routes.
type Options struct {
	AllowedOrigins []string

	Encoder     *gasfee.Encoder
	Oracle      gasfee.OracleProvider
	Networks    *networks.Manager
	Chains      ChainCache
	Source      assets.Source
	Verified    assets.VerifiedBySource
	Hidden      *hiddenlist.Store
	AddressBook *addressbook.Book
	Receipts    *receipt.Checker
}

type Server struct {
	ctx context.Context
	mux *http.ServeMux

	allowedOrigins map[string]struct{}

	encoder  *gasfee.Encoder
	oracle   gasfee.OracleProvider
	networks *networks.Manager
	chains   ChainCache
	hidden   *hiddenlist.Store
	book     *addressbook.Book
	receipts *receipt.Checker
	sessions *assetSessions
}

// NewServer registers every route. ctx bounds background work such as the
// hidden list watchers of asset sessions.
func NewServer(ctx context.Context, opts Options) *Server {
	s := &Server{
		ctx:            ctx,
		mux:            http.NewServeMux(),
		allowedOrigins: originSet(opts.AllowedOrigins),
		encoder:        opts.Encoder,
		oracle:         opts.Oracle,
		networks:       opts.Networks,
		chains:         opts.Chains,
		hidden:         opts.Hidden,
		book:           opts.AddressBook,
		receipts:       opts.Receipts,
	}

	var hidden assets.HiddenSource
	if opts.Hidden != nil {
		hidden = opts.Hidden
	}
	s.sessions = newAssetSessions(ctx, AssetSessionsMax, opts.Source, opts.Verified, hidden)

	read := func(path string, h http.HandlerFunc) {
		s.mux.HandleFunc(path, s.withLocalGuards(CORSMethodsRead, requireMethod(http.MethodGet, h)))
	}
	write := func(path string, h http.HandlerFunc) {
		s.mux.HandleFunc(path, s.withLocalGuards(CORSMethodsWrite, requireMethod(http.MethodPost, h)))
	}

	read(PathHealth, s.handleHealth)

	read(PathNetworks, s.handleNetworks)
	write(PathNetworksAdd, s.handleNetworkAdd)
	write(PathNetworksUpdate, s.handleNetworkUpdate)
	write(PathNetworksRemove, s.handleNetworkRemove)

	read(PathGasOptions, s.handleGasOptions)
	write(PathGasNormalize, s.handleGasNormalize)

	read(PathAssets, s.handleAssets)
	write(PathAssetsLoad, s.handleAssetsLoad)
	read(PathAssetsVerifiedBy, s.handleVerifiedBy)
	write(PathAssetsVerifiedLoad, s.handleVerifiedByLoad)

	read(PathHidden, s.handleHidden)
	write(PathHiddenHide, s.handleHiddenHide)
	write(PathHiddenUnhide, s.handleHiddenUnhide)

	read(PathAddressBook, s.handleAddressBook)
	write(PathAddressBookAdd, s.handleAddressBookAdd)
	write(PathAddressBookRemove, s.handleAddressBookRemove)
	write(PathAddressBookRename, s.handleAddressBookRename)

	write(PathTxReceipt, s.handleTxReceipt)

	read(PathFormatCurrency, s.handleFormatCurrency)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// networkChanged drops the dialed client and cached fee snapshot of chainID so
// the next request uses the edited RPC list.
func (s *Server) networkChanged(chainID uint64) {
	if s.chains != nil {
		s.chains.Forget(chainID)
	}
	if inv, ok := s.oracle.(interface{ Invalidate(chainID uint64) }); ok {
		inv.Invalidate(chainID)
	}
}

// GET /healthz reports the cached header age of every dialed chain.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResp{Status: "ok"}
	if s.chains != nil {
		ages := s.chains.HeaderAges()
		if len(ages) > 0 {
			resp.HeaderAge = make(map[string]string, len(ages))
			for id, age := range ages {
				resp.HeaderAge[strconv.FormatUint(id, 10)] = age.Round(time.Millisecond).String()
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
