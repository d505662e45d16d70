package guardiansettings

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

func (r *PostgresRepository) FindByAccountID(ctx context.Context, accountID string) (*models.GuardianSettings, error) {
	query := `SELECT id, account_id, signers FROM guardian_settings WHERE account_id = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, accountID))
}

func (r *PostgresRepository) Upsert(ctx context.Context, accountID string, signers models.SigningStrategy) (*models.GuardianSettings, error) {
	query := `INSERT INTO guardian_settings (id, account_id, signers)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE SET signers = EXCLUDED.signers
		RETURNING id, account_id, signers`

	return r.scanOne(r.db.QueryRowContext(ctx, query, uuid.NewString(), accountID, string(signers)))
}

func (r *PostgresRepository) LockAccount(ctx context.Context, accountID string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, accountID); err != nil {
		return dbx.Classify(err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.GuardianSettings, error) {
	var (
		s       models.GuardianSettings
		signers string
	)
	if err := row.Scan(&s.ID, &s.AccountID, &signers); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Classify(err)
	}
	s.Signers = models.SigningStrategy(signers)
	return &s, nil
}
