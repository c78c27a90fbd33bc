package detail

import (
	"rentdetail/internal/domain/listings"
)

// Phase is the coarse view state.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseNotFound
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseNotFound:
		return "not_found"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Region says where an interaction landed relative to the enlarged image.
type Region int

const (
	RegionOutside Region = iota
	RegionInside
)

// State is an immutable view snapshot. Transitions return a new value.
type State struct {
	Phase       Phase
	Listing     listings.Listing
	OverlayOpen bool
	// FetchErr keeps the settle error for diagnostics. It does not change the phase.
	FetchErr error
}

// Initial is the state on mount.
func Initial() State {
	return State{Phase: PhaseLoading}
}

func (s State) Loading() bool { return s.Phase == PhaseLoading }

// Settle leaves Loading exactly once. Any other phase is returned unchanged.
func (s State) Settle(collection []listings.Listing, id listings.ListingID, fetchErr error) State {
	if s.Phase != PhaseLoading {
		return s
	}
	return resolve(collection, id, fetchErr)
}

// Renavigate re-runs the resolver for a new identifier against an already settled snapshot.
func (s State) Renavigate(collection []listings.Listing, id listings.ListingID) State {
	if s.Phase == PhaseLoading {
		return s
	}
	return resolve(collection, id, s.FetchErr)
}

// ActivateImage opens the overlay. The second result is false when the transition
// is unavailable (not ready, no image, or already open).
func (s State) ActivateImage() (State, bool) {
	if s.Phase != PhaseReady || !s.Listing.HasImage() || s.OverlayOpen {
		return s, false
	}
	s.OverlayOpen = true
	return s, true
}

// Dismiss closes the overlay via the explicit close action.
func (s State) Dismiss() State {
	if s.Phase != PhaseReady {
		return s
	}
	s.OverlayOpen = false
	return s
}

// Interact handles a click while the overlay is shown. Only clicks outside close it.
func (s State) Interact(region Region) State {
	if s.Phase != PhaseReady || !s.OverlayOpen {
		return s
	}
	if region == RegionInside {
		return s
	}
	return s.Dismiss()
}

func resolve(collection []listings.Listing, id listings.ListingID, fetchErr error) State {
	listing, err := listings.FindIn(collection, id)
	if err != nil {
		return State{Phase: PhaseNotFound, FetchErr: fetchErr}
	}
	return State{Phase: PhaseReady, Listing: listing, FetchErr: fetchErr}
}
