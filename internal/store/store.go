// Package store provides focused, single-concern data access stores for
// case QC reviews.
//
// Each store owns one concern (reviews, cases, change log, audit) and
// embeds shared helpers (Pool, crypto, logger) via the Base struct.
// Stores never import each other. Shared logic lives in this file or in
// dedicated helper files (encrypt.go, scan.go).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/crypto"
	"github.com/persistorai/caseqc/internal/dbpool"
	"github.com/persistorai/caseqc/internal/domain"
)

const defaultQueryTimeout = 30 * time.Second

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool   *dbpool.Pool
	Log    *logrus.Logger
	Crypto *crypto.Service
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// beginTx starts a read-write transaction.
func (b *Base) beginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return tx, nil
}

// beginReadTx starts a read-only transaction.
func (b *Base) beginReadTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}

	return tx, nil
}

// Postgres bundles the per-concern stores into the single persistence
// dependency the services take.
type Postgres struct {
	*ReviewStore
	*CaseStore
	*ChangeLogStore
	*AuditStore
}

var _ domain.Store = (*Postgres)(nil)

// NewPostgres creates every store over a shared Base.
func NewPostgres(base Base) *Postgres {
	return &Postgres{
		ReviewStore:    NewReviewStore(base),
		CaseStore:      NewCaseStore(base),
		ChangeLogStore: NewChangeLogStore(base),
		AuditStore:     NewAuditStore(base),
	}
}
