package http

import (
	"net/http"
	"strings"

	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/dimensiondev/mask-wallet-core/internal/gasfee"
)

// GET /gas/options?chainId=0x89[&tier=normal]
func (s *Server) handleGasOptions(w http.ResponseWriter, r *http.Request) {
	if s.oracle == nil {
		writeError(w, http.StatusInternalServerError, "gas oracle not initialized")
		return
	}

	q := r.URL.Query()
	var (
		tier     gasfee.Tier
		wantTier bool
	)
	if raw := strings.TrimSpace(q.Get("tier")); raw != "" {
		t, ok := gasfee.ParseTier(strings.ToLower(raw))
		if !ok {
			writeError(w, http.StatusBadRequest, ErrorInvalidTierText)
			return
		}
		tier, wantTier = t, true
	}

	raw := q.Get("chainId")
	if raw == "" {
		writeError(w, http.StatusBadRequest, ErrorMissingChainIDText)
		return
	}
	chainID, err := parseChainID(raw)
	if err != nil || chainID == 0 {
		writeError(w, http.StatusBadRequest, ErrorInvalidChainIDText)
		return
	}

	snapshot, err := s.oracle.GetGasOptions(r.Context(), chainID)
	if err != nil {
		log.Warn("gas options failed", "chainId", chainID, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if wantTier {
		opt, ok := snapshot[tier]
		if !ok {
			writeError(w, http.StatusBadGateway, "oracle has no "+tier.String()+" tier")
			return
		}
		snapshot = gasfee.Snapshot{tier: opt}
	}
	writeOK(w, gasOptionsFrom(snapshot))
}

// POST /gas/normalize { config, owner, readonly, overrides }
// The encoder is best effort, so a reachable encoder always answers 200.
func (s *Server) handleGasNormalize(w http.ResponseWriter, r *http.Request) {
	if s.encoder == nil {
		writeError(w, http.StatusInternalServerError, "gas encoder not initialized")
		return
	}

	var req gasNormalizeReq
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Config.ChainID == 0 {
		writeError(w, http.StatusBadRequest, ErrorMissingChainIDText)
		return
	}

	out := s.encoder.Encode(r.Context(), req.toRequest())
	writeOK(w, gasNormalizeResp{feeConfigDTO: feeConfigFrom(out), EIP1559: out.IsEIP1559()})
}
