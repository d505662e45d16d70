package accountguardians

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

func (r *PostgresRepository) Create(ctx context.Context, ag *models.AccountGuardian) (*models.AccountGuardian, error) {
	id := ag.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := ag.Status
	if status == "" {
		status = models.GuardianAvailable
	}

	query := `INSERT INTO account_guardians (id, guardian_id, account_id, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, guardian_id) DO NOTHING
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query, id, ag.GuardianID, ag.AccountID, string(status)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return r.FindByAccountAndGuardian(ctx, ag.AccountID, ag.GuardianID)
	}
	if err != nil {
		return nil, dbx.Classify(err)
	}

	return &models.AccountGuardian{ID: id, GuardianID: ag.GuardianID, AccountID: ag.AccountID, Status: status}, nil
}

func (r *PostgresRepository) FindByAccountAndGuardian(ctx context.Context, accountID, guardianID string) (*models.AccountGuardian, error) {
	query := `SELECT id, guardian_id, account_id, status FROM account_guardians
		WHERE account_id = $1 AND guardian_id = $2`

	ag, err := scan(r.db.QueryRowContext(ctx, query, accountID, guardianID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Classify(err)
	}
	return ag, nil
}

// where renders the WHERE clause for f with columns qualified by alias.
func where(alias string, f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		conds = append(conds, alias+col+" = $"+strconv.Itoa(len(args)))
	}
	add("account_id", f.AccountID)
	add("guardian_id", f.GuardianID)
	add("status", string(f.Status))
	if f.IDs != nil {
		conds = append(conds, alias+"id IN ("+dbx.Placeholders(len(args)+1, len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) FindAll(ctx context.Context, f Filter) ([]*models.AccountGuardian, error) {
	if f.IDs != nil && len(f.IDs) == 0 {
		return nil, nil
	}
	cond, args := where("", f)
	query := `SELECT id, guardian_id, account_id, status FROM account_guardians` + cond + ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	defer rows.Close()

	var result []*models.AccountGuardian
	for rows.Next() {
		ag, err := scan(rows)
		if err != nil {
			return nil, dbx.Classify(err)
		}
		result = append(result, ag)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Classify(err)
	}
	return result, nil
}

func (r *PostgresRepository) ListViews(ctx context.Context, f Filter) ([]models.AccountGuardianView, error) {
	if f.IDs != nil && len(f.IDs) == 0 {
		return nil, nil
	}
	cond, args := where("ag.", f)
	query := `SELECT ag.id, COALESCE(g.email, ''), COALESCE(g.wallet_address, ''), ag.status
		FROM account_guardians ag
		LEFT JOIN guardians g ON g.id = ag.guardian_id` + cond + ` ORDER BY ag.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	defer rows.Close()

	var result []models.AccountGuardianView
	for rows.Next() {
		var (
			v      models.AccountGuardianView
			status string
		)
		if err := rows.Scan(&v.ID, &v.Email, &v.WalletAddress, &status); err != nil {
			return nil, dbx.Classify(err)
		}
		v.Status = models.GuardianStatus(status)
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Classify(err)
	}
	return result, nil
}

func (r *PostgresRepository) ListAccountsForGuardian(ctx context.Context, guardianID, accountID string) ([]models.GuardianAccountView, error) {
	cond, args := where("ag.", Filter{GuardianID: guardianID, AccountID: accountID})
	query := `SELECT a.id, a.email, a.wallet_address
		FROM account_guardians ag
		JOIN accounts a ON a.id = ag.account_id` + cond + ` ORDER BY a.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	defer rows.Close()

	var result []models.GuardianAccountView
	for rows.Next() {
		var v models.GuardianAccountView
		if err := rows.Scan(&v.ID, &v.Email, &v.WalletAddress); err != nil {
			return nil, dbx.Classify(err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Classify(err)
	}
	return result, nil
}

func (r *PostgresRepository) DeleteAvailable(ctx context.Context, accountID, id string) (bool, error) {
	query := `DELETE FROM account_guardians WHERE id = $1 AND account_id = $2 AND status = 'AVAILABLE'`

	n, err := r.exec(ctx, query, id, accountID)
	return n > 0, err
}

func (r *PostgresRepository) SetStatusForAccount(ctx context.Context, accountID string, status models.GuardianStatus) (int64, error) {
	query := `UPDATE account_guardians SET status = $2 WHERE account_id = $1`

	return r.exec(ctx, query, accountID, string(status))
}

func (r *PostgresRepository) SetStatusForIDs(ctx context.Context, accountID string, ids []string, status models.GuardianStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE account_guardians SET status = $2
		WHERE account_id = $1 AND id IN (` + dbx.Placeholders(3, len(ids)) + `)`

	args := make([]any, 0, len(ids)+2)
	args = append(args, accountID, string(status))
	for _, id := range ids {
		args = append(args, id)
	}
	return r.exec(ctx, query, args...)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dbx.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbx.Classify(err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.AccountGuardian, error) {
	var (
		ag     models.AccountGuardian
		status string
	)
	if err := s.Scan(&ag.ID, &ag.GuardianID, &ag.AccountID, &status); err != nil {
		return nil, err
	}
	ag.Status = models.GuardianStatus(status)
	return &ag, nil
}
