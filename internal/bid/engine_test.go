package bid

import (
	"errors"
	"testing"

	"tendra.org/internal/auth"
)

var (
	client   = auth.Principal{UserID: "client-1", Role: auth.RoleClient, AccountType: auth.AccountClient}
	provider = auth.Principal{UserID: "provider-1", Role: auth.RoleProvider, AccountType: auth.AccountProvider}
)

func snapshotWith(status Status, siblings ...Bid) Snapshot {
	target := Bid{ID: "b-1", ProjectID: "p-1", ProviderID: "provider-1", Status: status}
	return Snapshot{
		Bid:      target,
		Project:  Project{ID: "p-1", ClientID: "client-1"},
		Siblings: append([]Bid{target}, siblings...),
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		snap    Snapshot
		action  Action
		actor   auth.Principal
		want    Status
		wantErr error
	}{
		{"withdraw pending", snapshotWith(StatusPending), ActionWithdraw, provider, StatusWithdrawn, nil},
		{"withdraw shortlisted", snapshotWith(StatusShortlisted), ActionWithdraw, provider, "", ErrInvalidTransition},
		{"withdraw by non owner", snapshotWith(StatusPending), ActionWithdraw, auth.Principal{UserID: "provider-2", Role: auth.RoleProvider, AccountType: auth.AccountProvider}, "", ErrNotOwner},
		{"withdraw by client", snapshotWith(StatusPending), ActionWithdraw, client, "", ErrNotOwner},

		{"shortlist pending", snapshotWith(StatusPending), ActionShortlist, client, StatusShortlisted, nil},
		{"shortlist accepted", snapshotWith(StatusAccepted), ActionShortlist, client, "", ErrInvalidTransition},
		{"shortlist by provider", snapshotWith(StatusPending), ActionShortlist, provider, "", ErrNotOwner},

		{"reject pending", snapshotWith(StatusPending), ActionReject, client, StatusRejected, nil},
		{"reject shortlisted", snapshotWith(StatusShortlisted), ActionReject, client, StatusRejected, nil},
		{"reject accepted", snapshotWith(StatusAccepted), ActionReject, client, StatusRejected, nil},
		{"reject withdrawn", snapshotWith(StatusWithdrawn), ActionReject, client, "", ErrInvalidTransition},
		{"reject rejected", snapshotWith(StatusRejected), ActionReject, client, "", ErrInvalidTransition},
		{"reject by provider", snapshotWith(StatusPending), ActionReject, provider, "", ErrNotOwner},

		{"accept pending", snapshotWith(StatusPending), ActionAccept, client, StatusAccepted, nil},
		{"accept shortlisted", snapshotWith(StatusShortlisted), ActionAccept, client, StatusAccepted, nil},
		{"accept rejected", snapshotWith(StatusRejected), ActionAccept, client, "", ErrInvalidTransition},
		{"accept withdrawn", snapshotWith(StatusWithdrawn), ActionAccept, client, "", ErrInvalidTransition},
		{"accept by provider", snapshotWith(StatusPending), ActionAccept, provider, "", ErrNotOwner},
		{
			"accept with accepted sibling",
			snapshotWith(StatusPending, Bid{ID: "b-2", ProjectID: "p-1", ProviderID: "provider-2", Status: StatusAccepted}),
			ActionAccept, client, "", ErrConflictAlreadyAccepted,
		},

		{"unknown action", snapshotWith(StatusPending), Action("approve"), client, "", ErrUnknownAction},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Transition(tc.snap, tc.action, tc.actor)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Bid.Status != tc.want {
				t.Fatalf("status = %q, want %q", out.Bid.Status, tc.want)
			}
		})
	}
}

func TestTransitionAcceptCascadesOpenSiblings(t *testing.T) {
	snap := snapshotWith(StatusPending,
		Bid{ID: "b-2", ProjectID: "p-1", ProviderID: "provider-2", Status: StatusPending},
		Bid{ID: "b-3", ProjectID: "p-1", ProviderID: "provider-3", Status: StatusShortlisted},
		Bid{ID: "b-4", ProjectID: "p-1", ProviderID: "provider-4", Status: StatusWithdrawn},
	)

	out, err := Transition(snap, ActionAccept, client)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if out.Bid.Status != StatusAccepted {
		t.Fatalf("status = %q, want accepted", out.Bid.Status)
	}
	if len(out.Cascade) != 2 {
		t.Fatalf("cascade size = %d, want 2", len(out.Cascade))
	}
	for _, sib := range out.Cascade {
		if sib.Status != StatusRejected {
			t.Fatalf("cascaded bid %s has status %q, want rejected", sib.ID, sib.Status)
		}
		if sib.ID == "b-4" {
			t.Fatal("withdrawn sibling was cascaded")
		}
	}
}

// Rejecting a previously accepted bid reopens the project without touching
// the already-rejected siblings.
func TestTransitionRejectAcceptedLeavesSiblings(t *testing.T) {
	snap := snapshotWith(StatusAccepted,
		Bid{ID: "b-2", ProjectID: "p-1", ProviderID: "provider-2", Status: StatusRejected},
	)

	out, err := Transition(snap, ActionReject, client)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if out.Bid.Status != StatusRejected {
		t.Fatalf("status = %q, want rejected", out.Bid.Status)
	}
	if len(out.Cascade) != 0 {
		t.Fatalf("cascade size = %d, want 0", len(out.Cascade))
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, terminal := range map[Status]bool{
		StatusPending:     false,
		StatusShortlisted: false,
		StatusAccepted:    true,
		StatusRejected:    true,
		StatusWithdrawn:   true,
	} {
		if got := status.Terminal(); got != terminal {
			t.Fatalf("%s.Terminal() = %v, want %v", status, got, terminal)
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, valid := range []string{"withdraw", "accept", "reject", "shortlist"} {
		if _, err := ParseAction(valid); err != nil {
			t.Fatalf("ParseAction(%q): %v", valid, err)
		}
	}
	if _, err := ParseAction("approve"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("ParseAction(approve) err = %v, want ErrUnknownAction", err)
	}
}
