package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const selectColumns = `SELECT id, email, wallet_address, eoa_address, eoa_private_key, updated_at FROM accounts`

// Create inserts account, assigning a new id when none is set. A second
// account for the same email yields common.ErrorInvalidState.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	query := `INSERT INTO accounts (id, email, wallet_address, eoa_address, eoa_private_key, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Email, account.WalletAddress, account.EOAAddress, account.EOAPrivateKey, account.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: account already exists for %s", common.ErrorInvalidState, account.Email)
		}
		return nil, dbx.Classify(err)
	}

	return account, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.findOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, selectColumns+` WHERE email = $1`, email)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg string) (*models.Account, error) {
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.Email, &a.WalletAddress, &a.EOAAddress, &a.EOAPrivateKey, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Classify(err)
	}
	return a, nil
}

func (r *PostgresRepository) FindAll(ctx context.Context, f Filter) ([]*models.Account, error) {
	query := selectColumns
	var args []any
	switch {
	case f.WalletAddress != "":
		query += ` WHERE wallet_address = $1`
		args = append(args, f.WalletAddress)
	case f.EOAAddress != "":
		query += ` WHERE eoa_address = $1`
		args = append(args, f.EOAAddress)
	case f.Email != "":
		query += ` WHERE email = $1`
		args = append(args, f.Email)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		a := &models.Account{}
		if err := rows.Scan(&a.ID, &a.Email, &a.WalletAddress, &a.EOAAddress, &a.EOAPrivateKey, &a.UpdatedAt); err != nil {
			return nil, dbx.Classify(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Classify(err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateAddresses(ctx context.Context, id string, walletAddress, eoaAddress sql.NullString, updatedAt int64) (bool, error) {
	query := `UPDATE accounts
		SET wallet_address = COALESCE($2, wallet_address),
			eoa_address = COALESCE($3, eoa_address),
			updated_at = $4
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, walletAddress, eoaAddress, updatedAt)
	if err != nil {
		return false, dbx.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbx.Classify(err)
	}
	return n > 0, nil
}
