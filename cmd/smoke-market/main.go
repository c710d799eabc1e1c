package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"tendra.org/internal/bid"
	"tendra.org/internal/session"
)

// Smoke test against a running tendra-api started with TENDRA_DEMO=1. It
// drives the full client-side session path: login, authenticated calls
// through the retrying transport, and a bid acceptance with cascade.
func main() {
	baseURL := os.Getenv("TENDRA_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	mgr := session.NewManager(session.NewCredentialStore(), session.NewClient(baseURL, nil))
	client := &http.Client{
		Timeout:   10 * time.Second,
		Transport: &session.Transport{Manager: mgr},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := mgr.Login(ctx, "client@demo.tendra.org", "client-demo"); err != nil {
		log.Fatalf("login: %v", err)
	}

	bids, err := listBids(ctx, client, baseURL, "demo-project")
	if err != nil {
		log.Fatalf("list bids: %v", err)
	}
	var target string
	for _, b := range bids {
		if b.Status == bid.StatusPending {
			target = b.ID
			break
		}
	}
	if target == "" {
		log.Fatal("no pending bid to accept; restart the API to reseed")
	}

	if err := performAction(ctx, client, baseURL, target, "accept"); err != nil {
		log.Fatalf("accept %s: %v", target, err)
	}

	bids, err = listBids(ctx, client, baseURL, "demo-project")
	if err != nil {
		log.Fatalf("re-list bids: %v", err)
	}
	accepted := 0
	open := 0
	for _, b := range bids {
		switch b.Status {
		case bid.StatusAccepted:
			accepted++
		case bid.StatusPending, bid.StatusShortlisted:
			open++
		}
	}
	if accepted != 1 || open != 0 {
		log.Fatalf("cascade violated: accepted=%d open=%d", accepted, open)
	}

	fmt.Printf("smoke test passed: bid %s accepted, project closed\n", target)
}

func listBids(ctx context.Context, client *http.Client, baseURL, projectID string) ([]bid.Bid, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/projects/"+projectID+"/bids", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Items []bid.Bid `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

func performAction(ctx context.Context, client *http.Client, baseURL, bidID, action string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/bids/"+bidID+"/"+action, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
