package bid

import "tendra.org/internal/auth"

// Snapshot is the explicit input to a transition decision: the target bid,
// its project, and every other bid on the same project. The engine never
// loads state itself; whoever commits the outcome must re-validate the
// acceptance invariant atomically (see Store.CommitAcceptance).
type Snapshot struct {
	Bid      Bid
	Project  Project
	Siblings []Bid
}

// Outcome is the decided transition. Cascade lists sibling bids that must be
// committed together with Bid in one atomic multi-record write: accepting a
// bid forecloses every other open bid on the project.
type Outcome struct {
	Bid     Bid
	Cascade []Bid
}

// Transition decides whether actor may apply action to the snapshot and what
// the resulting records are. Checks run in order: actor scope first, then
// status compatibility, then the cross-bid acceptance invariant.
func Transition(snap Snapshot, action Action, actor auth.Principal) (Outcome, error) {
	b := snap.Bid

	switch action {
	case ActionWithdraw:
		if actor.UserID != b.ProviderID {
			return Outcome{}, ErrNotOwner
		}
		if b.Status != StatusPending {
			return Outcome{}, ErrInvalidTransition
		}
		b.Status = StatusWithdrawn
		return Outcome{Bid: b}, nil

	case ActionShortlist:
		if actor.UserID != snap.Project.ClientID {
			return Outcome{}, ErrNotOwner
		}
		if b.Status != StatusPending {
			return Outcome{}, ErrInvalidTransition
		}
		b.Status = StatusShortlisted
		return Outcome{Bid: b}, nil

	case ActionReject:
		if actor.UserID != snap.Project.ClientID {
			return Outcome{}, ErrNotOwner
		}
		// Reject is allowed from any non-terminal status and, uniquely, from
		// accepted: rejecting a previously accepted bid leaves the project
		// with zero accepted bids and touches no sibling.
		switch b.Status {
		case StatusPending, StatusShortlisted, StatusAccepted:
			b.Status = StatusRejected
			return Outcome{Bid: b}, nil
		default:
			return Outcome{}, ErrInvalidTransition
		}

	case ActionAccept:
		if actor.UserID != snap.Project.ClientID {
			return Outcome{}, ErrNotOwner
		}
		if b.Status != StatusPending && b.Status != StatusShortlisted {
			return Outcome{}, ErrInvalidTransition
		}
		for _, sib := range snap.Siblings {
			if sib.ID != b.ID && sib.Status == StatusAccepted {
				return Outcome{}, ErrConflictAlreadyAccepted
			}
		}
		b.Status = StatusAccepted
		var cascade []Bid
		for _, sib := range snap.Siblings {
			if sib.ID == b.ID {
				continue
			}
			if sib.Status == StatusPending || sib.Status == StatusShortlisted {
				sib.Status = StatusRejected
				cascade = append(cascade, sib)
			}
		}
		return Outcome{Bid: b, Cascade: cascade}, nil

	default:
		return Outcome{}, ErrUnknownAction
	}
}
