package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tendra.org/internal/auth"
	"tendra.org/internal/bid"
)

type bidActionResponse struct {
	Bid     bid.Bid   `json:"bid"`
	Cascade []bid.Bid `json:"cascade,omitempty"`
}

// handleBidAction serves POST /v1/bids/{id}/{action}.
func (a *API) handleBidAction(w http.ResponseWriter, r *http.Request) {
	if a.bids == nil {
		writeError(w, r, http.StatusServiceUnavailable, "bid service unavailable")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/bids/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	bidID := parts[0]
	action, err := bid.ParseAction(parts[1])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "unknown bid action")
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	outcome, err := a.bids.Perform(r.Context(), principal, bidID, action)
	if err != nil {
		handleBidError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bidActionResponse{Bid: outcome.Bid, Cascade: outcome.Cascade})
}

// handleProjectScoped serves GET /v1/projects/{id}/bids.
func (a *API) handleProjectScoped(w http.ResponseWriter, r *http.Request) {
	if a.bids == nil {
		writeError(w, r, http.StatusServiceUnavailable, "bid service unavailable")
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/projects/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "bids" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	bids, err := a.bids.ListProjectBids(r.Context(), parts[0])
	if err != nil {
		handleBidError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": bids})
}

// handleBidError is the single translation point from engine/store error
// kinds to user-facing responses. Each kind keeps its specific message.
func handleBidError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "action not permitted for this account")
	case errors.Is(err, bid.ErrNotOwner):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, bid.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, bid.ErrConflictAlreadyAccepted):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, bid.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "bid not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
