package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"

	"github.com/dimensiondev/mask-wallet-core/internal/addressbook"
	"github.com/dimensiondev/mask-wallet-core/internal/format"
	"github.com/dimensiondev/mask-wallet-core/internal/networks"
)

// GET /networks
func (s *Server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	if s.networks == nil {
		writeError(w, http.StatusInternalServerError, "network manager not initialized")
		return
	}
	writeOK(w, s.networks.List())
}

// POST /networks/add { name, chainId, rpcs, ... }
func (s *Server) handleNetworkAdd(w http.ResponseWriter, r *http.Request) {
	if s.networks == nil {
		writeError(w, http.StatusInternalServerError, "network manager not initialized")
		return
	}

	var n networks.Network
	if !decodeJSONBody(w, r, &n) {
		return
	}

	added, err := s.networks.AddNetwork(r.Context(), n)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, networks.ErrNetworkExists) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	log.Info("network added", "name", added.Name, "chainId", added.ChainID)
	writeOK(w, added)
}

// POST /networks/update { chainId, patch: { explorer?, rpcs?, features? } }
func (s *Server) handleNetworkUpdate(w http.ResponseWriter, r *http.Request) {
	if s.networks == nil {
		writeError(w, http.StatusInternalServerError, "network manager not initialized")
		return
	}

	var req networkUpdateReq
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.ChainID == 0 {
		writeError(w, http.StatusBadRequest, ErrorMissingChainIDText)
		return
	}

	updated, err := s.networks.UpdateNetwork(r.Context(), req.ChainID, req.Patch)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, networks.ErrNetworkNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	s.networkChanged(req.ChainID)
	writeOK(w, updated)
}

// POST /networks/remove { chainId }
func (s *Server) handleNetworkRemove(w http.ResponseWriter, r *http.Request) {
	if s.networks == nil {
		writeError(w, http.StatusInternalServerError, "network manager not initialized")
		return
	}

	var req networkRemoveReq
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.ChainID == 0 {
		writeError(w, http.StatusBadRequest, ErrorMissingChainIDText)
		return
	}
	if err := s.networks.RemoveNetwork(r.Context(), req.ChainID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.networkChanged(req.ChainID)
	writeJSON(w, http.StatusOK, extensionResponse{OK: true})
}

// GET /hidden?user=0x..
func (s *Server) handleHidden(w http.ResponseWriter, r *http.Request) {
	if s.hidden == nil {
		writeError(w, http.StatusInternalServerError, "hidden list not initialized")
		return
	}
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		writeError(w, http.StatusBadRequest, ErrorMissingUserText)
		return
	}
	writeOK(w, s.hidden.Keys(user))
}

// POST /hidden/hide { user, keys }
func (s *Server) handleHiddenHide(w http.ResponseWriter, r *http.Request) {
	s.updateHidden(w, r, true)
}

// POST /hidden/unhide { user, keys }
func (s *Server) handleHiddenUnhide(w http.ResponseWriter, r *http.Request) {
	s.updateHidden(w, r, false)
}

func (s *Server) updateHidden(w http.ResponseWriter, r *http.Request, hide bool) {
	if s.hidden == nil {
		writeError(w, http.StatusInternalServerError, "hidden list not initialized")
		return
	}

	var req hiddenReq
	if !decodeJSONBody(w, r, &req) {
		return
	}
	user := strings.TrimSpace(req.User)
	if user == "" {
		writeError(w, http.StatusBadRequest, ErrorMissingUserText)
		return
	}
	keys := uniqueStrings(req.Keys)
	if len(keys) == 0 {
		writeError(w, http.StatusBadRequest, ErrorMissingKeysText)
		return
	}

	var err error
	if hide {
		err = s.hidden.Hide(r.Context(), user, keys...)
	} else {
		err = s.hidden.Unhide(r.Context(), user, keys...)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, s.hidden.Keys(user))
}

// GET /addressbook
func (s *Server) handleAddressBook(w http.ResponseWriter, r *http.Request) {
	if s.book == nil {
		writeError(w, http.StatusInternalServerError, "address book not initialized")
		return
	}
	writeOK(w, s.book.List())
}

// POST /addressbook/add { name, address }
func (s *Server) handleAddressBookAdd(w http.ResponseWriter, r *http.Request) {
	s.updateContact(w, r, func(req contactReq) error {
		if strings.TrimSpace(req.Name) == "" {
			return errMissingName
		}
		return s.book.AddContact(r.Context(), req.Name, req.Address)
	})
}

// POST /addressbook/remove { address }
func (s *Server) handleAddressBookRemove(w http.ResponseWriter, r *http.Request) {
	s.updateContact(w, r, func(req contactReq) error {
		return s.book.RemoveContact(r.Context(), req.Address)
	})
}

// POST /addressbook/rename { name, address }
func (s *Server) handleAddressBookRename(w http.ResponseWriter, r *http.Request) {
	s.updateContact(w, r, func(req contactReq) error {
		if strings.TrimSpace(req.Name) == "" {
			return errMissingName
		}
		return s.book.RenameContact(r.Context(), req.Name, req.Address)
	})
}

var errMissingName = errors.New(ErrorMissingNameText)

func (s *Server) updateContact(w http.ResponseWriter, r *http.Request, apply func(contactReq) error) {
	if s.book == nil {
		writeError(w, http.StatusInternalServerError, "address book not initialized")
		return
	}

	var req contactReq
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := apply(req); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, addressbook.ErrInvalidAddress) || errors.Is(err, errMissingName) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeOK(w, s.book.List())
}

// POST /tx/receipt { chainId, txHash } or { chainId, txHashes: [...] }
// Answers a map txHash -> { found, status, blockNumberHex }.
func (s *Server) handleTxReceipt(w http.ResponseWriter, r *http.Request) {
	if s.receipts == nil {
		writeError(w, http.StatusInternalServerError, "receipt checker not initialized")
		return
	}

	var req txReceiptReq
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.ChainID == 0 {
		writeError(w, http.StatusBadRequest, ErrorMissingChainIDText)
		return
	}

	raw := req.TxHashes
	if req.TxHash != "" {
		raw = append([]string{req.TxHash}, raw...)
	}
	raw = uniqueStrings(raw)
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, TxReceiptErrorMissingTxHashText)
		return
	}
	if len(raw) > TxReceiptRequestMaxTxHashes {
		writeError(w, http.StatusBadRequest, TxReceiptErrorTooManyTxHashesText)
		return
	}

	hashes := make([]common.Hash, 0, len(raw))
	for _, h := range raw {
		if !isTxHash(h) {
			writeError(w, http.StatusBadRequest, TxReceiptErrorInvalidTxHashFieldText)
			return
		}
		hashes = append(hashes, common.HexToHash(h))
	}

	results, err := s.receipts.CheckMany(r.Context(), req.ChainID, hashes)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	out := make(map[string]txReceiptResp, len(results))
	for h, res := range results {
		item := txReceiptResp{Found: res.Found, Status: res.Status, Error: res.Error}
		if res.Found {
			item.BlockNumberHex = hexutil.EncodeUint64(res.BlockNumber)
		}
		out[h.Hex()] = item
	}
	writeOK(w, out)
}

// GET /format/currency?value=1234.5&currency=USD
func (s *Server) handleFormatCurrency(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	value, err := decimal.NewFromString(strings.TrimSpace(q.Get("value")))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorInvalidValueText)
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(q.Get("currency")))
	if currency == "" {
		currency = format.DefaultCurrency
	}
	writeOK(w, currencyResp{
		Value:     value.String(),
		Currency:  currency,
		Formatted: format.FormatCurrency(value, currency, nil),
	})
}
