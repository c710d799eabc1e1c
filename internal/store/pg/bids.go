package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tendra.org/internal/bid"
	"tendra.org/internal/ids"
)

// Store is the PostgreSQL bid storage. CommitAcceptance is a single
// transaction that locks the project's bids, so the cross-bid acceptance
// invariant holds across processes, not just within one.
type Store struct {
	db *sql.DB
}

var _ bid.Store = (*Store)(nil)

// Open connects with tuned pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle (used by tests with sqlmock).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) CreateProject(ctx context.Context, p *bid.Project) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into projects(id, client_id, title, created_at)
		values ($1,$2,$3,$4)
	`, p.ID, p.ClientID, p.Title, p.CreatedAt)
	return err
}

func (s *Store) CreateBid(ctx context.Context, b *bid.Bid) error {
	if b.ID == "" {
		b.ID = ids.New()
	}
	if b.Status == "" {
		b.Status = bid.StatusPending
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		insert into bids(id, project_id, provider_id, status, amount, currency, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, b.ID, b.ProjectID, b.ProviderID, string(b.Status), b.Amount, b.Currency, b.CreatedAt, b.UpdatedAt)
	return err
}

func (s *Store) GetProject(ctx context.Context, id string) (bid.Project, error) {
	var p bid.Project
	err := s.db.QueryRowContext(ctx, `
		select id, client_id, title, created_at from projects where id=$1
	`, id).Scan(&p.ID, &p.ClientID, &p.Title, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return bid.Project{}, bid.ErrNotFound
	}
	if err != nil {
		return bid.Project{}, err
	}
	return p, nil
}

func (s *Store) GetBid(ctx context.Context, id string) (bid.Bid, error) {
	b, err := scanBid(s.db.QueryRowContext(ctx, `
		select id, project_id, provider_id, status, amount, currency, created_at, updated_at
		from bids where id=$1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return bid.Bid{}, bid.ErrNotFound
	}
	return b, err
}

func (s *Store) ListBidsByProject(ctx context.Context, projectID string) ([]bid.Bid, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, project_id, provider_id, status, amount, currency, created_at, updated_at
		from bids where project_id=$1 order by created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bid.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, bidID string, from, to bid.Status) (bid.Bid, error) {
	b, err := scanBid(s.db.QueryRowContext(ctx, `
		update bids set status=$3, updated_at=now()
		where id=$1 and status=$2
		returning id, project_id, provider_id, status, amount, currency, created_at, updated_at
	`, bidID, string(from), string(to)))
	if errors.Is(err, sql.ErrNoRows) {
		// Either the bid is gone or its status moved under us.
		if _, getErr := s.GetBid(ctx, bidID); errors.Is(getErr, bid.ErrNotFound) {
			return bid.Bid{}, bid.ErrNotFound
		}
		return bid.Bid{}, bid.ErrInvalidTransition
	}
	return b, err
}

func (s *Store) CommitAcceptance(ctx context.Context, bidID, projectID string) (bid.Bid, []bid.Bid, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return bid.Bid{}, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock every bid of the project so concurrent acceptances serialize here.
	rows, err := tx.QueryContext(ctx, `
		select id, status from bids where project_id=$1 for update
	`, projectID)
	if err != nil {
		return bid.Bid{}, nil, err
	}
	var (
		targetStatus bid.Status
		targetFound  bool
	)
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			rows.Close()
			return bid.Bid{}, nil, err
		}
		if bid.Status(status) == bid.StatusAccepted {
			rows.Close()
			return bid.Bid{}, nil, bid.ErrConflictAlreadyAccepted
		}
		if id == bidID {
			targetFound = true
			targetStatus = bid.Status(status)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return bid.Bid{}, nil, err
	}
	if !targetFound {
		return bid.Bid{}, nil, bid.ErrNotFound
	}
	if targetStatus != bid.StatusPending && targetStatus != bid.StatusShortlisted {
		return bid.Bid{}, nil, bid.ErrInvalidTransition
	}

	accepted, err := scanBid(tx.QueryRowContext(ctx, `
		update bids set status=$2, updated_at=now()
		where id=$1
		returning id, project_id, provider_id, status, amount, currency, created_at, updated_at
	`, bidID, string(bid.StatusAccepted)))
	if err != nil {
		return bid.Bid{}, nil, err
	}

	cascadeRows, err := tx.QueryContext(ctx, `
		update bids set status=$3, updated_at=now()
		where project_id=$1 and id <> $2 and status in ('pending','shortlisted')
		returning id, project_id, provider_id, status, amount, currency, created_at, updated_at
	`, projectID, bidID, string(bid.StatusRejected))
	if err != nil {
		return bid.Bid{}, nil, err
	}
	var cascade []bid.Bid
	for cascadeRows.Next() {
		b, err := scanBid(cascadeRows)
		if err != nil {
			cascadeRows.Close()
			return bid.Bid{}, nil, err
		}
		cascade = append(cascade, b)
	}
	cascadeRows.Close()
	if err := cascadeRows.Err(); err != nil {
		return bid.Bid{}, nil, err
	}

	if err := tx.Commit(); err != nil {
		return bid.Bid{}, nil, err
	}
	return accepted, cascade, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (bid.Bid, error) {
	var (
		b      bid.Bid
		status string
	)
	err := row.Scan(&b.ID, &b.ProjectID, &b.ProviderID, &status, &b.Amount, &b.Currency, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return bid.Bid{}, err
	}
	b.Status = bid.Status(status)
	return b, nil
}
