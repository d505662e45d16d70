package nominations

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/guardkeeper/internal/common"
	"github.com/dmitrijs2005/guardkeeper/internal/dbx"
	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `SELECT id, email, guardian_id, account_id, status FROM nominations`

func (r *PostgresRepository) Create(ctx context.Context, n *models.Nomination) (*models.Nomination, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = models.NominationPending
	}

	query := `INSERT INTO nominations (id, email, guardian_id, account_id, status)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.ExecContext(ctx, query, n.ID, n.Email, n.GuardianID, n.AccountID, string(n.Status)); err != nil {
		return nil, dbx.Classify(err)
	}
	return n, nil
}

func (r *PostgresRepository) FindAll(ctx context.Context, f Filter) ([]*models.Nomination, error) {
	var (
		where []string
		args  []any
	)
	add := func(col string, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		where = append(where, col+" = $"+strconv.Itoa(len(args)))
	}
	add("account_id", f.AccountID)
	add("guardian_id", f.GuardianID)
	add("id", f.ID)
	add("email", f.Email)
	add("status", string(f.Status))

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	defer rows.Close()

	var result []*models.Nomination
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, dbx.Classify(err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Classify(err)
	}
	return result, nil
}

func (r *PostgresRepository) FindForAccount(ctx context.Context, accountID, id string) (*models.Nomination, error) {
	return r.findOne(ctx, selectColumns+` WHERE id = $1 AND account_id = $2`, id, accountID)
}

func (r *PostgresRepository) FindForGuardian(ctx context.Context, guardianID, id string) (*models.Nomination, error) {
	return r.findOne(ctx, selectColumns+` WHERE id = $1 AND guardian_id = $2 FOR UPDATE`, id, guardianID)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*models.Nomination, error) {
	n, err := scan(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Classify(err)
	}
	return n, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, guardianID, id string, status models.NominationStatus) (bool, error) {
	query := `UPDATE nominations SET status = $3
		WHERE id = $1 AND guardian_id = $2 AND status IN ('PENDING', $3)`

	return r.exec(ctx, query, id, guardianID, string(status))
}

func (r *PostgresRepository) DeletePending(ctx context.Context, accountID, id string) (bool, error) {
	query := `DELETE FROM nominations WHERE id = $1 AND account_id = $2 AND status = 'PENDING'`

	return r.exec(ctx, query, id, accountID)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, dbx.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbx.Classify(err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Nomination, error) {
	var (
		n      models.Nomination
		status string
	)
	if err := s.Scan(&n.ID, &n.Email, &n.GuardianID, &n.AccountID, &status); err != nil {
		return nil, err
	}
	n.Status = models.NominationStatus(status)
	return &n, nil
}
