package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/paybot/backend/internal/models"
	"github.com/paybot/backend/internal/services"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, owner_id, balance, currency, party`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.OwnerID, &a.Balance, &a.Currency, &a.Party)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return scanAccount(conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1`, id))
}

// GetByOwner returns the first account of a user. Users hold one account in practice.
func (r *AccountRepository) GetByOwner(ctx context.Context, ownerID int64) (*models.Account, error) {
	return scanAccount(conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE owner_id = $1
		ORDER BY id
		LIMIT 1`, ownerID))
}

func (r *AccountRepository) GetByOwnerUsername(ctx context.Context, username string) (*models.Account, error) {
	return scanAccount(conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT a.id, a.owner_id, a.balance, a.currency, a.party
		FROM accounts a
		JOIN users u ON u.id = a.owner_id
		WHERE u.username = $1
		ORDER BY a.id
		LIMIT 1`, username))
}

// LockForUpdate takes row locks in ascending id order so that two transfers touching the
// same pair of accounts in opposite directions cannot deadlock. Missing ids are absent
// from the result. It must run inside a unit of work.
func (r *AccountRepository) LockForUpdate(ctx context.Context, ids ...string) (map[string]*models.Account, error) {
	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)

	q := conn(ctx, r.db)
	locked := make(map[string]*models.Account, len(ordered))
	for _, id := range ordered {
		if _, done := locked[id]; done {
			continue
		}
		account, err := scanAccount(q.QueryRowContext(ctx, `
			SELECT `+accountColumns+`
			FROM accounts
			WHERE id = $1
			FOR UPDATE`, id))
		if errors.Is(err, services.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lock account %s: %w", id, err)
		}
		locked[id] = account
	}
	return locked, nil
}

// AdjustBalance applies delta in a single statement. The guard on the new balance backs
// up the balance check constraint.
func (r *AccountRepository) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE accounts
		SET balance = balance + $1
		WHERE id = $2 AND balance + $1 >= 0`, delta, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// the guard and a missing row both leave nothing updated
		var exists bool
		if err := conn(ctx, r.db).QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check account %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("adjust balance of %s: %w", id, services.ErrAccountNotFound)
		}
		return fmt.Errorf("balance update rejected for account %s: %w", id, services.ErrInsufficientBalance)
	}
	return nil
}

func (r *AccountRepository) GetOwnerDisplayName(ctx context.Context, id string) (string, error) {
	var u models.User
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT u.first_name, u.last_name
		FROM accounts a
		JOIN users u ON u.id = a.owner_id
		WHERE a.id = $1`, id).Scan(&u.FirstName, &u.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", services.ErrAccountNotFound
	}
	if err != nil {
		return "", err
	}
	return u.FullName(), nil
}
