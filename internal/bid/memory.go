package bid

import (
	"context"
	"sync"
	"time"

	"tendra.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. The single
// mutex makes CommitAcceptance a true atomic multi-record commit: readers
// either see the pre-acceptance world or the fully cascaded one.
type InMemory struct {
	mu       sync.RWMutex
	projects map[string]*Project
	bids     map[string]*Bid
	byProj   map[string][]string
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		projects: make(map[string]*Project),
		bids:     make(map[string]*Bid),
		byProj:   make(map[string][]string),
	}
}

func (s *InMemory) CreateProject(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	stored := *p
	s.projects[stored.ID] = &stored
	return nil
}

func (s *InMemory) CreateBid(ctx context.Context, b *Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[b.ProjectID]; !ok {
		return ErrNotFound
	}
	if b.ID == "" {
		b.ID = ids.New()
	}
	if b.Status == "" {
		b.Status = StatusPending
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	stored := *b
	s.bids[stored.ID] = &stored
	s.byProj[stored.ProjectID] = append(s.byProj[stored.ProjectID], stored.ID)
	return nil
}

func (s *InMemory) GetProject(ctx context.Context, id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return *p, nil
}

func (s *InMemory) GetBid(ctx context.Context, id string) (Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bids[id]
	if !ok {
		return Bid{}, ErrNotFound
	}
	return *b, nil
}

func (s *InMemory) ListBidsByProject(ctx context.Context, projectID string) ([]Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idsForProj, ok := s.byProj[projectID]
	if !ok {
		if _, exists := s.projects[projectID]; !exists {
			return nil, ErrNotFound
		}
		return nil, nil
	}
	out := make([]Bid, 0, len(idsForProj))
	for _, id := range idsForProj {
		out = append(out, *s.bids[id])
	}
	return out, nil
}

func (s *InMemory) UpdateStatus(ctx context.Context, bidID string, from, to Status) (Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[bidID]
	if !ok {
		return Bid{}, ErrNotFound
	}
	if b.Status != from {
		return Bid{}, ErrInvalidTransition
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	return *b, nil
}

func (s *InMemory) CommitAcceptance(ctx context.Context, bidID, projectID string) (Bid, []Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.bids[bidID]
	if !ok || target.ProjectID != projectID {
		return Bid{}, nil, ErrNotFound
	}
	if target.Status != StatusPending && target.Status != StatusShortlisted {
		return Bid{}, nil, ErrInvalidTransition
	}
	// Conditional commit keyed on "no bid on this project is accepted":
	// re-checked here, under the lock, regardless of what the caller decided
	// against its snapshot.
	for _, id := range s.byProj[projectID] {
		if s.bids[id].Status == StatusAccepted {
			return Bid{}, nil, ErrConflictAlreadyAccepted
		}
	}

	now := time.Now().UTC()
	target.Status = StatusAccepted
	target.UpdatedAt = now

	var cascade []Bid
	for _, id := range s.byProj[projectID] {
		if id == bidID {
			continue
		}
		sib := s.bids[id]
		if sib.Status == StatusPending || sib.Status == StatusShortlisted {
			sib.Status = StatusRejected
			sib.UpdatedAt = now
			cascade = append(cascade, *sib)
		}
	}
	return *target, cascade, nil
}
