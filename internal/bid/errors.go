package bid

import "errors"

var (
	ErrNotFound = errors.New("bid: not found")

	// ErrNotOwner means the actor is not allowed to perform the action on
	// this bid: withdraw belongs to the submitting provider, accept/reject/
	// shortlist to the project's owning client.
	ErrNotOwner = errors.New("bid: actor does not own this action")

	// ErrInvalidTransition means the action is incompatible with the bid's
	// current status.
	ErrInvalidTransition = errors.New("bid: invalid status transition")

	// ErrConflictAlreadyAccepted means another bid on the same project holds
	// accepted. The loser of an acceptance race gets this and must re-fetch.
	ErrConflictAlreadyAccepted = errors.New("bid: project already has an accepted bid")

	ErrUnknownAction = errors.New("bid: unknown action")
)
