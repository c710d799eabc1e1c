package bid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tendra.org/internal/audit"
	"tendra.org/internal/auth"
	"tendra.org/internal/obs"
	"tendra.org/internal/stream"
)

// Service coordinates a user-initiated bid action: capability gate, engine
// decision, atomic commit, then reporting. It is the single translation
// point between internal error kinds and what callers surface to users.
type Service struct {
	store  Store
	caps   *auth.Resolver
	events *stream.Stream
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithStream publishes committed transitions to the given event stream.
func WithStream(s *stream.Stream) ServiceOption {
	return func(svc *Service) { svc.events = s }
}

// NewService constructs the coordinator.
func NewService(store Store, caps *auth.Resolver, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("bid: store is required")
	}
	if caps == nil {
		return nil, errors.New("bid: capability resolver is required")
	}
	svc := &Service{store: store, caps: caps}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// tagFor maps an action to the capability tag that gates it.
func tagFor(action Action) auth.Tag {
	if action == ActionWithdraw {
		return auth.TagProvider
	}
	return auth.TagClient
}

// Perform runs the full action path. Either the transition and its cascade
// commit together or nothing changes.
func (s *Service) Perform(ctx context.Context, principal auth.Principal, bidID string, action Action) (Outcome, error) {
	bidID = strings.TrimSpace(bidID)
	if bidID == "" {
		return Outcome{}, fmt.Errorf("%w: bid id is required", ErrNotFound)
	}

	if !s.caps.Can(principal, tagFor(action)) {
		obs.ObserveBidTransition(string(action), "denied")
		return Outcome{}, auth.ErrForbidden
	}

	snap, err := s.loadSnapshot(ctx, bidID)
	if err != nil {
		return Outcome{}, err
	}

	outcome, err := Transition(snap, action, principal)
	if err != nil {
		obs.ObserveBidTransition(string(action), resultLabel(err))
		return Outcome{}, err
	}

	committed, err := s.commit(ctx, snap, action, outcome)
	if err != nil {
		obs.ObserveBidTransition(string(action), resultLabel(err))
		return Outcome{}, err
	}

	obs.ObserveBidTransition(string(action), "ok")
	_ = audit.LogEvent(ctx, "bid."+string(action), map[string]any{
		"bid_id":     committed.Bid.ID,
		"project_id": committed.Bid.ProjectID,
		"status":     string(committed.Bid.Status),
		"cascade":    len(committed.Cascade),
	})
	s.publish(action, committed)
	return committed, nil
}

// ListProjectBids returns every bid on the project.
func (s *Service) ListProjectBids(ctx context.Context, projectID string) ([]Bid, error) {
	return s.store.ListBidsByProject(ctx, projectID)
}

func (s *Service) loadSnapshot(ctx context.Context, bidID string) (Snapshot, error) {
	b, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return Snapshot{}, err
	}
	project, err := s.store.GetProject(ctx, b.ProjectID)
	if err != nil {
		return Snapshot{}, err
	}
	siblings, err := s.store.ListBidsByProject(ctx, b.ProjectID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Bid: b, Project: project, Siblings: siblings}, nil
}

// commit applies the decided outcome. Accept goes through the store's atomic
// conditional commit, which re-validates the acceptance invariant and applies
// the cascade in the same critical section; everything else is a CAS on the
// bid's prior status.
func (s *Service) commit(ctx context.Context, snap Snapshot, action Action, outcome Outcome) (Outcome, error) {
	if action == ActionAccept {
		accepted, cascade, err := s.store.CommitAcceptance(ctx, snap.Bid.ID, snap.Bid.ProjectID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Bid: accepted, Cascade: cascade}, nil
	}
	updated, err := s.store.UpdateStatus(ctx, snap.Bid.ID, snap.Bid.Status, outcome.Bid.Status)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Bid: updated}, nil
}

func (s *Service) publish(action Action, outcome Outcome) {
	if s.events == nil {
		return
	}
	evt := stream.BidEvent{
		BidID:     outcome.Bid.ID,
		ProjectID: outcome.Bid.ProjectID,
		Action:    string(action),
		Status:    string(outcome.Bid.Status),
		Timestamp: time.Now().UTC(),
	}
	for _, sib := range outcome.Cascade {
		evt.CascadeIDs = append(evt.CascadeIDs, sib.ID)
	}
	s.events.Publish(evt)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotOwner):
		return "denied"
	case errors.Is(err, ErrConflictAlreadyAccepted):
		return "conflict"
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrUnknownAction):
		return "invalid"
	default:
		return "error"
	}
}
