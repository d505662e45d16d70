package guardians

import (
	"context"
	"database/sql"
	"errors"

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

const selectColumns = `SELECT id, email, account_id, wallet_address FROM guardians`

// Create inserts guardian unless a row with the same email exists, in which
// case that row is returned instead and guardian is left untouched.
func (r *PostgresRepository) Create(ctx context.Context, guardian *models.Guardian) (*models.Guardian, error) {
	id := guardian.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `INSERT INTO guardians (id, email, account_id, wallet_address)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query, id, guardian.Email, guardian.AccountID, guardian.WalletAddress).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return r.FindByEmail(ctx, guardian.Email)
	}
	if err != nil {
		return nil, dbx.Classify(err)
	}

	created := *guardian
	created.ID = id
	return &created, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Guardian, error) {
	return r.findOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Guardian, error) {
	return r.findOne(ctx, selectColumns+` WHERE email = $1`, email)
}

func (r *PostgresRepository) FindByAccountID(ctx context.Context, accountID string) (*models.Guardian, error) {
	return r.findOne(ctx, selectColumns+` WHERE account_id = $1 LIMIT 1`, accountID)
}

func (r *PostgresRepository) findOne(ctx context.Context, query, arg string) (*models.Guardian, error) {
	g := &models.Guardian{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&g.ID, &g.Email, &g.AccountID, &g.WalletAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Classify(err)
	}
	return g, nil
}

func (r *PostgresRepository) LinkAccount(ctx context.Context, email, accountID, walletAddress string) (int64, error) {
	query := `UPDATE guardians SET account_id = $2, wallet_address = $3
		WHERE email = $1 AND account_id IS NULL`

	res, err := r.db.ExecContext(ctx, query, email, accountID, walletAddress)
	if err != nil {
		return 0, dbx.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbx.Classify(err)
	}
	return n, nil
}
