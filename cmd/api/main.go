package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tendra.org/internal/auth"
	"tendra.org/internal/bid"
	"tendra.org/internal/httpapi"
	"tendra.org/internal/obs"
	"tendra.org/internal/store/pg"
	"tendra.org/internal/stream"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("TENDRA_AUTH_SECRET")
	if secret == "" {
		log.Fatal("TENDRA_AUTH_SECRET is required")
	}

	users := auth.NewMemoryUsers()
	tokens := auth.NewMemoryTokens()
	authSvc, err := auth.NewService(secret, users, tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	var (
		bidStore bid.Store
		probe    httpapi.ReadyProbe
	)
	if dsn := os.Getenv("TENDRA_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		bidStore = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		bidStore = bid.NewInMemory()
	}

	events := stream.New()
	caps := auth.NewResolver()
	bidSvc, err := bid.NewService(bidStore, caps, bid.WithStream(events))
	if err != nil {
		log.Fatalf("bid service: %v", err)
	}

	if os.Getenv("TENDRA_DEMO") == "1" {
		if err := seedDemo(context.Background(), users, bidStore); err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
		log.Println("demo data seeded")
	}

	api := httpapi.New(httpapi.Config{
		Auth:       authSvc,
		Caps:       caps,
		Bids:       bidSvc,
		Events:     events,
		ReadyProbe: probe,
		Version:    version,
	})

	addr := os.Getenv("TENDRA_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting tendra-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

// seedDemo provisions two accounts and a project with competing bids so the
// smoke client has something to act on.
func seedDemo(ctx context.Context, users *auth.MemoryUsers, store bid.Store) error {
	clientHash, err := auth.HashPassword("client-demo")
	if err != nil {
		return err
	}
	providerHash, err := auth.HashPassword("provider-demo")
	if err != nil {
		return err
	}
	if err := users.Create(ctx, &auth.User{
		ID:           "demo-client",
		Email:        "client@demo.tendra.org",
		PasswordHash: clientHash,
		Role:         auth.RoleClient,
		AccountType:  auth.AccountClient,
	}); err != nil {
		return err
	}
	if err := users.Create(ctx, &auth.User{
		ID:           "demo-provider",
		Email:        "provider@demo.tendra.org",
		PasswordHash: providerHash,
		Role:         auth.RoleProvider,
		AccountType:  auth.AccountProvider,
	}); err != nil {
		return err
	}
	if err := store.CreateProject(ctx, &bid.Project{
		ID:       "demo-project",
		ClientID: "demo-client",
		Title:    "Marketplace demo project",
	}); err != nil {
		return err
	}
	for _, b := range []*bid.Bid{
		{ID: "demo-bid-1", ProjectID: "demo-project", ProviderID: "demo-provider", Amount: 120_00, Currency: "USD"},
		{ID: "demo-bid-2", ProjectID: "demo-project", ProviderID: "demo-provider-2", Amount: 95_00, Currency: "USD"},
	} {
		if err := store.CreateBid(ctx, b); err != nil {
			return err
		}
	}
	return nil
}
