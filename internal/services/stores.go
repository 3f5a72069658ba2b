package services

import (
	"context"
	"time"

	"github.com/paybot/backend/internal/models"
	"github.com/shopspring/decimal"
)

// UnitOfWork runs fn inside one atomic storage transaction. Store calls made with the
// ctx passed to fn join that transaction. A non-nil error from fn rolls everything back.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountStore is the account/ledger store
type AccountStore interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByOwner(ctx context.Context, ownerID int64) (*models.Account, error)
	GetByOwnerUsername(ctx context.Context, username string) (*models.Account, error)
	// LockForUpdate locks the given rows until the surrounding unit of work ends.
	// Rows are locked in ascending id order.
	LockForUpdate(ctx context.Context, ids ...string) (map[string]*models.Account, error)
	// AdjustBalance applies delta atomically in storage (balance = balance + delta)
	// and refuses to leave the balance negative.
	AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error
	GetOwnerDisplayName(ctx context.Context, id string) (string, error)
}

// CardStore resolves cards to their accounts
type CardStore interface {
	GetByID(ctx context.Context, id int64) (*models.Card, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)
}

// TransactionStore is the append-only transaction log
type TransactionStore interface {
	Insert(ctx context.Context, tx *models.Transaction) (int64, error)
	ListParticipantPairs(ctx context.Context, userID int64) ([]models.ParticipantPair, error)
	ListByParticipantBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.TransactionSummary, error)
	ListUnseen(ctx context.Context, userID int64) ([]models.TransactionSummary, error)
	MarkSeen(ctx context.Context, userID int64, ids []int64) (int64, error)
}

// UserStore resolves user display data
type UserStore interface {
	UsernamesByIDs(ctx context.Context, ids []int64) ([]string, error)
}

// EventPublisher announces committed transfers to other systems
type EventPublisher interface {
	PublishTransferCompleted(ctx context.Context, event models.TransferCompletedEvent) error
}

// MediaResolver turns a stored media reference into viewable content (a URL)
type MediaResolver interface {
	ResolveURL(ctx context.Context, mediaRef string) (string, error)
}
