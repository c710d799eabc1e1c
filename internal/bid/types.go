package bid

import "time"

// Status is a bid's lifecycle state. accepted, rejected and withdrawn are
// terminal; shortlisted is an intermediate state reachable only from pending.
type Status string

const (
	StatusPending     Status = "pending"
	StatusShortlisted Status = "shortlisted"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusWithdrawn   Status = "withdrawn"
)

// Terminal reports whether no further transition may leave the status.
// accepted is terminal for every action except an explicit reject, which
// reopens the project (see Transition).
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusWithdrawn:
		return true
	default:
		return false
	}
}

// Action is a user-initiated status change.
type Action string

const (
	ActionWithdraw  Action = "withdraw"
	ActionAccept    Action = "accept"
	ActionReject    Action = "reject"
	ActionShortlist Action = "shortlist"
)

// ParseAction validates an action string from the wire.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionWithdraw, ActionAccept, ActionReject, ActionShortlist:
		return a, nil
	default:
		return "", ErrUnknownAction
	}
}

// Project is a client-owned listing that providers bid on.
type Project struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Bid is a provider's offer on a project. Amount is in minor currency units.
type Bid struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	ProviderID string    `json:"provider_id"`
	Status     Status    `json:"status"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
