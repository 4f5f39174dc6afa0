package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/caseqc/internal/domain"
	"github.com/persistorai/caseqc/internal/models"
)

// ReviewStore provides data access for the reviews table and owns the
// transaction boundary the approval service writes through.
type ReviewStore struct {
	Base
}

// NewReviewStore creates a ReviewStore.
func NewReviewStore(base Base) *ReviewStore {
	return &ReviewStore{Base: base}
}

// WithTx runs fn inside a read-write transaction. The transaction commits
// only if fn returns nil; any error or timeout rolls back every write.
func (s *ReviewStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.ReviewTx) error) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if err := fn(ctx, &pgReviewTx{base: &s.Base, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// GetReview returns a single review by ID.
func (s *ReviewStore) GetReview(ctx context.Context, reviewID string) (*models.Review, error) {
	if !validUUID(reviewID) {
		return nil, models.ErrReviewNotFound
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	return getReview(ctx, &s.Base, tx, reviewID)
}

// getReview loads and decrypts one review using tx.
func getReview(ctx context.Context, b *Base, tx pgx.Tx, reviewID string) (*models.Review, error) {
	row := tx.QueryRow(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id = $1", reviewID)

	r, err := scanReview(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrReviewNotFound
		}

		return nil, fmt.Errorf("getting review: %w", err)
	}

	if err := b.decryptReview(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// buildReviewFilter builds WHERE clause and args from ReviewListOpts.
func buildReviewFilter(opts models.ReviewListOpts) (where string, args []any, nextArg int) {
	var conditions []string
	argIdx := 1

	if opts.Status != "" {
		conditions = append(conditions, "status = $"+strconv.Itoa(argIdx))
		args = append(args, opts.Status)
		argIdx++
	}
	if opts.ReviewerID != "" {
		conditions = append(conditions, "reviewer_id = $"+strconv.Itoa(argIdx))
		args = append(args, opts.ReviewerID)
		argIdx++
	}
	if opts.CaseID != "" {
		conditions = append(conditions, "case_id = $"+strconv.Itoa(argIdx))
		args = append(args, opts.CaseID)
		argIdx++
	}

	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return where, args, argIdx
}

// ListReviews returns reviews matching opts, newest first, with a has_more flag.
// Mine is resolved by the service into ReviewerID before it gets here.
func (s *ReviewStore) ListReviews(ctx context.Context, opts models.ReviewListOpts) ([]models.Review, bool, error) {
	limit, offset := normalizePage(opts.Limit, opts.Offset)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	where, args, argIdx := buildReviewFilter(opts)

	query := fmt.Sprintf(
		"SELECT %s FROM reviews %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		reviewColumns, where, argIdx, argIdx+1,
	)
	args = append(args, limit+1, offset)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("listing reviews: %w", err)
	}
	defer rows.Close()

	reviews, err := s.collectReviews(ctx, rows)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(reviews) > limit
	if hasMore {
		reviews = reviews[:limit]
	}

	return reviews, hasMore, nil
}
