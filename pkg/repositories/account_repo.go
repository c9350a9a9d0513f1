package repositories

import (
	"context"
	"fmt"

	"github.com/fundmesh/transfer-service/pkg/currency"
	"github.com/fundmesh/transfer-service/pkg/database"
	"github.com/fundmesh/transfer-service/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, owner_id, owner_name, owner_address, currency, balance, created_at, updated_at`

// AccountFilter narrows List results. Query matches owner_name
// case-insensitively; zero values mean "no filter".
type AccountFilter struct {
	Query    string
	Currency currency.Code
	Limit    int
	Offset   int
}

// AccountRepository defines the interface for account repository.
// Write operations run inside a caller-owned transaction; reads go through
// the DB router and may land on a replica.
type AccountRepository interface {
	// Create inserts a new account and returns the stored row.
	Create(ctx context.Context, tx pgx.Tx, account models.Account) (models.Account, error)
	// FindById finds an account by ID on the read path.
	FindById(ctx context.Context, db *database.DB, accountID uuid.UUID) (models.Account, error)
	// FindByIdForUpdate reads an account under an exclusive row lock.
	// Callers must acquire locks in ascending account-id order.
	FindByIdForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (models.Account, error)
	// UpdateBalance persists a new balance and returns the fresh snapshot.
	UpdateBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance decimal.Decimal) (models.Account, error)
	// List returns accounts matching the filter, newest first.
	List(ctx context.Context, db *database.DB, filter AccountFilter) ([]models.Account, error)
	// Delete removes an account.
	Delete(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (pgconn.CommandTag, error)
}

type AccountRepositoryImpl struct {
}

func NewAccountRepository() AccountRepository {
	return &AccountRepositoryImpl{}
}

func (a AccountRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, account models.Account) (models.Account, error) {
	row := tx.QueryRow(ctx, `INSERT INTO accounts (id, owner_id, owner_name, owner_address, currency, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+accountColumns,
		account.ID, account.OwnerID, account.OwnerName, account.OwnerAddress, account.Currency, account.Balance)
	return scanAccount(row)
}

func (a AccountRepositoryImpl) FindById(ctx context.Context, db *database.DB, accountID uuid.UUID) (models.Account, error) {
	if accountID == uuid.Nil {
		return models.Account{}, fmt.Errorf("invalid account ID: %s", accountID.String())
	}
	row := db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	return scanAccount(row)
}

func (a AccountRepositoryImpl) FindByIdForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (models.Account, error) {
	if accountID == uuid.Nil {
		return models.Account{}, fmt.Errorf("invalid account ID: %s", accountID.String())
	}
	row := tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID)
	return scanAccount(row)
}

func (a AccountRepositoryImpl) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance decimal.Decimal) (models.Account, error) {
	row := tx.QueryRow(ctx, `UPDATE accounts SET balance = $1, updated_at = now() WHERE id = $2
		RETURNING `+accountColumns, balance, accountID)
	return scanAccount(row)
}

func (a AccountRepositoryImpl) List(ctx context.Context, db *database.DB, filter AccountFilter) ([]models.Account, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := db.Query(ctx, `SELECT `+accountColumns+` FROM accounts
		WHERE ($1 = '' OR lower(owner_name) LIKE '%' || lower($1) || '%')
		  AND ($2 = '' OR currency = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`,
		filter.Query, string(filter.Currency), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]models.Account, 0, limit)
	for rows.Next() {
		var account models.Account
		if err = rows.Scan(
			&account.ID,
			&account.OwnerID,
			&account.OwnerName,
			&account.OwnerAddress,
			&account.Currency,
			&account.Balance,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (a AccountRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (pgconn.CommandTag, error) {
	return tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.OwnerID,
		&account.OwnerName,
		&account.OwnerAddress,
		&account.Currency,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	return account, err
}
