package http

import (
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dimensiondev/mask-wallet-core/internal/assets"
)

// GET /assets?owner=0x..&id=0x..
// Without id, every known collection of the owner is returned.
func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, ok := parseOwner(q.Get("owner"))
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorInvalidOwnerText)
		return
	}

	cache, ok := s.sessions.peek(owner)
	id := strings.TrimSpace(q.Get("id"))
	if id != "" {
		if !ok {
			writeOK(w, assets.State{Assets: []assets.Asset{}})
			return
		}
		writeOK(w, cache.GetAssets(id))
		return
	}

	out := map[string]assets.State{}
	if ok {
		for _, cid := range cache.Collections() {
			out[cid] = cache.GetAssets(cid)
		}
	}
	writeOK(w, out)
}

// POST /assets/load { owner, collections: [{id, chainId}] }
// Loads the next page of each collection concurrently and answers with the
// resulting states keyed by collection id.
func (s *Server) handleAssetsLoad(w http.ResponseWriter, r *http.Request) {
	var req assetsLoadReq
	if !decodeJSONBody(w, r, &req) {
		return
	}
	owner, ok := parseOwner(req.Owner)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorInvalidOwnerText)
		return
	}

	cols := make([]assets.Collection, 0, len(req.Collections))
	seen := make(map[string]struct{}, len(req.Collections))
	for _, c := range req.Collections {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		writeError(w, http.StatusBadRequest, ErrorMissingCollectionText)
		return
	}
	if len(cols) > AssetsLoadMaxCollections {
		writeError(w, http.StatusBadRequest, HTTPErrorBadRequestText)
		return
	}

	sess, err := s.sessions.get(owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cache := sess.cache

	var g errgroup.Group
	g.SetLimit(AssetsLoadConcurrency)
	for _, c := range cols {
		g.Go(func() error {
			ctx, cancel := sess.fetchContext()
			defer cancel()
			cache.LoadAssets(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]assets.State, len(cols))
	for _, c := range cols {
		out[c.ID] = cache.GetAssets(c.ID)
	}
	writeOK(w, out)
}

// GET /assets/verified-by?owner=0x..&id=0x..
func (s *Server) handleVerifiedBy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, ok := parseOwner(q.Get("owner"))
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorInvalidOwnerText)
		return
	}
	id := strings.TrimSpace(q.Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrorMissingCollectionText)
		return
	}

	resp := verifiedByResp{ID: id, VerifiedBy: []string{}}
	if cache, ok := s.sessions.peek(owner); ok {
		if names, fetched := cache.GetVerifiedBy(id); fetched {
			resp.Fetched = true
			resp.VerifiedBy = names
		}
	}
	writeOK(w, resp)
}

// POST /assets/verified-by/load { owner, id }
func (s *Server) handleVerifiedByLoad(w http.ResponseWriter, r *http.Request) {
	var req verifiedByLoadReq
	if !decodeJSONBody(w, r, &req) {
		return
	}
	owner, ok := parseOwner(req.Owner)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorInvalidOwnerText)
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrorMissingCollectionText)
		return
	}

	sess, err := s.sessions.get(owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ctx, cancel := sess.fetchContext()
	defer cancel()
	cache := sess.cache
	cache.LoadVerifiedBy(ctx, id)

	resp := verifiedByResp{ID: id, VerifiedBy: []string{}}
	if names, fetched := cache.GetVerifiedBy(id); fetched {
		resp.Fetched = true
		resp.VerifiedBy = names
	}
	writeOK(w, resp)
}
