package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tyebliya/waitlist-api/internal/models"
	apperrors "github.com/tyebliya/waitlist-api/pkg/errors"
	"github.com/tyebliya/waitlist-api/pkg/metrics"
)

// Postgres error codes the repository classifies
const (
	pgUniqueViolation  = "23505"
	pgCheckViolation   = "23514"
	pgNotNullViolation = "23502"
)

// ReferralCodeConstraint is the unique index on referral_code
const ReferralCodeConstraint = "waitlist_users_referral_code_key"

// ErrReferralCodeTaken means the generated referral code already exists
var ErrReferralCodeTaken = errors.New("referral code already taken")

// querier is the subset of *pgxpool.Pool the repository uses
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// WaitlistRepository persists waitlist records in the waitlist_users table
type WaitlistRepository struct {
	db querier
}

// NewWaitlistRepository creates a new waitlist repository. db is usually a *pgxpool.Pool.
func NewWaitlistRepository(db querier) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// Create inserts a record and fills in its store-assigned id and timestamp.
//
// Errors: ErrReferralCodeTaken on a referral code collision, apperrors.ErrConflict
// on a duplicate email or phone, apperrors.ErrInvalidInput on a constraint violation.
func (r *WaitlistRepository) Create(ctx context.Context, rec *models.WaitlistRecord) error {
	start := time.Now()
	query := `
		INSERT INTO waitlist_users (role, name, email, phone, referred_by, referral_code, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	err = r.db.QueryRow(ctx, query,
		string(rec.Role), rec.Name, rec.Email, rec.Phone, rec.ReferredBy, rec.ReferralCode, metadata,
	).Scan(&rec.ID, &rec.CreatedAt)

	err = classify(err)
	observe("insert_waitlist_user", start, err)
	if err != nil {
		return fmt.Errorf("failed to create waitlist record: %w", err)
	}

	return nil
}

// Count returns the number of records on the waitlist
func (r *WaitlistRepository) Count(ctx context.Context) (int, error) {
	start := time.Now()

	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM waitlist_users`).Scan(&count)
	observe("count_waitlist_users", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count waitlist records: %w", err)
	}

	return int(count), nil
}

// List returns every record ordered by signup time
func (r *WaitlistRepository) List(ctx context.Context) ([]*models.WaitlistRecord, error) {
	start := time.Now()
	query := `
		SELECT id, role, name, email, phone, referred_by, referral_code, metadata, created_at
		FROM waitlist_users
		ORDER BY created_at, id
	`

	records, err := r.list(ctx, query)
	observe("list_waitlist_users", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist records: %w", err)
	}

	return records, nil
}

func (r *WaitlistRepository) list(ctx context.Context, query string) ([]*models.WaitlistRecord, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*models.WaitlistRecord, 0)
	for rows.Next() {
		var rec models.WaitlistRecord
		var role string
		var metadata []byte

		if err := rows.Scan(
			&rec.ID, &role, &rec.Name, &rec.Email, &rec.Phone, &rec.ReferredBy,
			&rec.ReferralCode, &metadata, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		rec.Role = models.Role(role)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for %s: %w", rec.ID, err)
			}
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// classify maps driver errors onto the application error taxonomy
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		if pgErr.ConstraintName == ReferralCodeConstraint {
			return fmt.Errorf("%w: %w", ErrReferralCodeTaken, err)
		}
		return fmt.Errorf("%w: %w", apperrors.ConflictError(pgErr.ConstraintName), err)
	case pgCheckViolation, pgNotNullViolation:
		return fmt.Errorf("%w: %w", apperrors.InvalidInputError(pgErr.ConstraintName, pgErr.Code), err)
	default:
		return err
	}
}

func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBOperationDuration.WithLabelValues(operation, status).Observe(metrics.MeasureDuration(start))
	metrics.DBOperationTotal.WithLabelValues(operation, status).Inc()
}
