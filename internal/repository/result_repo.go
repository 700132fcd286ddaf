package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Christina1281995/tema-emotions/internal/models"
)

// ErrDuplicateRow is returned when an insert collides with the unique
// (author, row_index) constraint on the results table.
var ErrDuplicateRow = errors.New("label record already exists for this row")

// ResultRepository persists label records.
type ResultRepository interface {
	// Insert stores one label record and fills in its generated ID.
	Insert(ctx context.Context, rec *models.LabelRecord) error
	// MaxRowIndex returns the highest row_index labeled by author. The second
	// return value is false when the author has no records.
	MaxRowIndex(ctx context.Context, author string) (int, bool, error)
	// ListByAuthor returns all of an author's records in row order.
	ListByAuthor(ctx context.Context, author string) ([]*models.LabelRecord, error)
}

type resultRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewResultRepository creates a repository over the results table.
func NewResultRepository(db *sqlx.DB, logger *zap.Logger) ResultRepository {
	return &resultRepository{db: db, logger: logger}
}

func (r *resultRepository) Insert(ctx context.Context, rec *models.LabelRecord) error {
	args := []interface{}{
		rec.Author, rec.RowIndex, rec.MessageID, rec.Text, rec.Source,
		rec.Emotion, rec.Target, rec.Urgent, rec.Irrelevant, rec.CreatedAt,
	}

	if r.db.DriverName() == DriverPostgres {
		query := r.db.Rebind(`INSERT INTO results (author, row_index, message_id, text, source, emotion, target, urgent, irrelevant, created_at)
		          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&rec.ID); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateRow
			}
			return fmt.Errorf("failed to insert label record: %w", err)
		}
		return nil
	}

	query := `INSERT INTO results (author, row_index, message_id, text, source, emotion, target, urgent, irrelevant, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRow
		}
		return fmt.Errorf("failed to insert label record: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

func (r *resultRepository) MaxRowIndex(ctx context.Context, author string) (int, bool, error) {
	query := r.db.Rebind(`SELECT MAX(row_index) FROM results WHERE author = ?`)

	var max sql.NullInt64
	if err := r.db.QueryRowxContext(ctx, query, author).Scan(&max); err != nil {
		return 0, false, fmt.Errorf("failed to query max row index: %w", err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}

func (r *resultRepository) ListByAuthor(ctx context.Context, author string) ([]*models.LabelRecord, error) {
	query := r.db.Rebind(`SELECT id, author, row_index, message_id, text, source, emotion, target, urgent, irrelevant, created_at
	          FROM results WHERE author = ? ORDER BY row_index ASC`)

	var records []*models.LabelRecord
	if err := r.db.SelectContext(ctx, &records, query, author); err != nil {
		return nil, fmt.Errorf("failed to list label records: %w", err)
	}
	return records, nil
}

// isUniqueViolation recognizes unique constraint errors from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
