package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sitebeam/notify-service/pkg/metrics"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

// NewBaseRepository creates a new base repository. metrics may be nil, in
// which case operation counts are not recorded.
func NewBaseRepository(db *sqlx.DB, m *metrics.Metrics) *BaseRepository {
	return &BaseRepository{db: db, metrics: m}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// track counts one database operation and passes the error through, so call
// sites can wrap their return value.
func (r *BaseRepository) track(operation string, err error) error {
	if r.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.metrics.DatabaseOperations.WithLabelValues(operation, status).Inc()
	}
	return err
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
