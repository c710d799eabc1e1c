package bid

import "context"

// Store is the durable bid/project storage collaborator. The decision rules
// live in Transition; the store's job is the atomic conditional commit that
// keeps those decisions true under concurrent writers.
type Store interface {
	CreateProject(ctx context.Context, p *Project) error
	CreateBid(ctx context.Context, b *Bid) error
	GetProject(ctx context.Context, id string) (Project, error)
	GetBid(ctx context.Context, id string) (Bid, error)
	ListBidsByProject(ctx context.Context, projectID string) ([]Bid, error)

	// UpdateStatus applies a single-record transition conditioned on the
	// current status. A from-status mismatch means the caller decided against
	// a stale snapshot: the commit is refused with ErrInvalidTransition.
	UpdateStatus(ctx context.Context, bidID string, from, to Status) (Bid, error)

	// CommitAcceptance atomically accepts the bid and rejects every other
	// open bid on the project. It succeeds only while the bid is still
	// pending/shortlisted and no bid on the project is accepted; a racing
	// acceptance surfaces as ErrConflictAlreadyAccepted. No intermediate
	// state is observable by concurrent readers.
	CommitAcceptance(ctx context.Context, bidID, projectID string) (Bid, []Bid, error)
}
