package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/paybot/backend/internal/models"
)

const summarySelect = `
	SELECT t.id, t.created_at, s.owner_id, r.owner_id,
		su.first_name, su.last_name, ru.first_name, ru.last_name,
		t.amount, COALESCE(t.media_ref, '')
	FROM transactions t
	JOIN accounts s ON s.id = t.sender_id
	JOIN accounts r ON r.id = t.recipient_id
	JOIN users su ON su.id = s.owner_id
	JOIN users ru ON ru.id = r.owner_id`

// TransactionRepository stores the append-only transfer log
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert appends tx and fills in its id and creation time
func (r *TransactionRepository) Insert(ctx context.Context, tx *models.Transaction) (int64, error) {
	media := sql.NullString{String: tx.MediaRef, Valid: tx.MediaRef != ""}
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO transactions (sender_id, recipient_id, amount, media_ref)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		tx.SenderAccountID, tx.RecipientAccountID, tx.Amount, media).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return 0, err
	}
	return tx.ID, nil
}

func (r *TransactionRepository) ListParticipantPairs(ctx context.Context, userID int64) ([]models.ParticipantPair, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT DISTINCT s.owner_id, r.owner_id
		FROM transactions t
		JOIN accounts s ON s.id = t.sender_id
		JOIN accounts r ON r.id = t.recipient_id
		WHERE s.owner_id = $1 OR r.owner_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []models.ParticipantPair
	for rows.Next() {
		var p models.ParticipantPair
		if err := rows.Scan(&p.SenderOwnerID, &p.RecipientOwnerID); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// ListByParticipantBetween returns transactions of userID created in [from, to), oldest first
func (r *TransactionRepository) ListByParticipantBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.TransactionSummary, error) {
	return r.listSummaries(ctx, summarySelect+`
		WHERE (s.owner_id = $1 OR r.owner_id = $1)
			AND t.created_at >= $2 AND t.created_at < $3
		ORDER BY t.created_at, t.id`, userID, from, to)
}

func (r *TransactionRepository) ListUnseen(ctx context.Context, userID int64) ([]models.TransactionSummary, error) {
	return r.listSummaries(ctx, summarySelect+`
		WHERE (s.owner_id = $1 OR r.owner_id = $1) AND NOT t.seen
		ORDER BY t.created_at, t.id`, userID)
}

// MarkSeen flags ids as seen. Ids not involving userID and ids already seen are left alone.
func (r *TransactionRepository) MarkSeen(ctx context.Context, userID int64, ids []int64) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE transactions t
		SET seen = TRUE
		FROM accounts s, accounts r
		WHERE t.id = ANY($2) AND NOT t.seen
			AND s.id = t.sender_id AND r.id = t.recipient_id
			AND (s.owner_id = $1 OR r.owner_id = $1)`, userID, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *TransactionRepository) listSummaries(ctx context.Context, query string, args ...any) ([]models.TransactionSummary, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.TransactionSummary, 0)
	for rows.Next() {
		var (
			s                 models.TransactionSummary
			sender, recipient models.User
		)
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.SenderOwnerID, &s.RecipientOwnerID,
			&sender.FirstName, &sender.LastName, &recipient.FirstName, &recipient.LastName,
			&s.Amount, &s.MediaRef); err != nil {
			return nil, err
		}
		s.SenderName = sender.FullName()
		s.RecipientName = recipient.FullName()
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
