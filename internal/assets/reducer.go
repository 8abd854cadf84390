package assets

import (
	"errors"
)

var ErrCursorNotAdvanced = errors.New("data source returned the cursor it was given")

type eventKind int

const (
	fetchStarted eventKind = iota
	fetchSucceeded
	fetchFailed
)

type stateEvent struct {
	kind eventKind
	page Page
	err  error
}

// reduce is the only place collection state changes. It never mutates s.Assets in place.
func reduce(s State, ev stateEvent) State {
	switch ev.kind {
	case fetchStarted:
		if s.Loading || s.Finished {
			return s
		}
		s.Loading = true
		s.Error = ""
		return s

	case fetchSucceeded:
		if len(ev.page.Data) > 0 {
			s.Assets = appendUnique(s.Assets, ev.page.Data)
		}
		s.Loading = false
		s.Cursor = ev.page.NextCursor
		s.Finished = ev.page.NextCursor == ""
		if s.Finished {
			s.Cursor = ""
		}
		s.Error = ""
		return s

	case fetchFailed:
		s.Loading = false
		if ev.err != nil {
			s.Error = ev.err.Error()
		}
		return s

	default:
		return s
	}
}

// appendUnique returns a new slice with the items of page whose composite key
// is not already present.
func appendUnique(existing, page []Asset) []Asset {
	seen := make(map[string]struct{}, len(existing)+len(page))
	for _, a := range existing {
		seen[a.Key()] = struct{}{}
	}

	out := make([]Asset, len(existing), len(existing)+len(page))
	copy(out, existing)
	for _, a := range page {
		k := a.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}
