package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/paybot/backend/internal/models"
	"github.com/paybot/backend/internal/services"
)

type CardRepository struct {
	db *sql.DB
}

func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	var c models.Card
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, account_id, expiration_date
		FROM cards
		WHERE id = $1`, id).Scan(&c.ID, &c.AccountID, &c.ExpirationDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrCardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CardRepository) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cards WHERE account_id = $1`, accountID).Scan(&n)
	return n, err
}
