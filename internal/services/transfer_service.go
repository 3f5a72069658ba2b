package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/paybot/backend/internal/audit"
	"github.com/paybot/backend/internal/models"
	"github.com/shopspring/decimal"
)

// TransferRequest describes one money movement between two resolved accounts
type TransferRequest struct {
	SenderAccountID    string          `json:"senderAccountId" validate:"required,max=20"`
	RecipientAccountID string          `json:"recipientAccountId" validate:"required,max=20"`
	Amount             decimal.Decimal `json:"amount" validate:"required,positive_decimal"`
	MediaRef           string          `json:"mediaRef,omitempty" validate:"max=255"`
}

// TransferService is the transfer engine. It validates and applies one transfer, producing
// exactly one debit/credit pair and one transaction record, or nothing at all.
// There is no idempotency key: two identical calls perform two transfers.
type TransferService struct {
	uow          UnitOfWork
	accounts     AccountStore
	transactions TransactionStore
	publisher    EventPublisher
	audit        *audit.Logger
	validator    *ValidationHelper
	now          func() time.Time
}

// NewTransferService wires the engine. publisher may be nil.
func NewTransferService(uow UnitOfWork, accounts AccountStore, transactions TransactionStore, publisher EventPublisher, auditLogger *audit.Logger) *TransferService {
	if auditLogger == nil {
		auditLogger = audit.NewLogger()
	}
	return &TransferService{
		uow:          uow,
		accounts:     accounts,
		transactions: transactions,
		publisher:    publisher,
		audit:        auditLogger,
		validator:    NewValidationHelper(),
		now:          time.Now,
	}
}

// Transfer moves req.Amount from the sender account to the recipient account and returns
// the id of the new transaction record.
//
// Errors: ErrInvalidAmount, ErrSelfTransfer, ErrCurrencyMismatch and ErrInsufficientBalance
// are business-rule rejections. ErrAccountNotFound means an account vanished after the caller
// resolved it. Anything else is wrapped in ErrTransferFailed. No partial state survives any error.
func (s *TransferService) Transfer(ctx context.Context, req TransferRequest) (int64, error) {
	// amounts are stored with two decimals; anything that rounds to zero is not a transfer
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if req.SenderAccountID == req.RecipientAccountID {
		return 0, ErrSelfTransfer
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		return 0, fmt.Errorf("invalid transfer request: %w", err)
	}

	reference := uuid.NewString()
	var txID int64

	err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.accounts.LockForUpdate(ctx, req.SenderAccountID, req.RecipientAccountID)
		if err != nil {
			return err
		}
		sender, recipient := locked[req.SenderAccountID], locked[req.RecipientAccountID]
		if sender == nil || recipient == nil {
			return ErrAccountNotFound
		}

		if sender.Currency != recipient.Currency {
			return ErrCurrencyMismatch
		}
		if !sender.CanDebit(amount) {
			log.Printf("[TRANSFER] Balance of %s is not sufficient for %s", sender.ID, amount)
			return ErrInsufficientBalance
		}

		if err := s.accounts.AdjustBalance(ctx, sender.ID, amount.Neg()); err != nil {
			return fmt.Errorf("debit sender: %w", err)
		}
		if err := s.accounts.AdjustBalance(ctx, recipient.ID, amount); err != nil {
			return fmt.Errorf("credit recipient: %w", err)
		}

		txID, err = s.transactions.Insert(ctx, &models.Transaction{
			SenderAccountID:    sender.ID,
			RecipientAccountID: recipient.ID,
			Amount:             amount,
			MediaRef:           req.MediaRef,
		})
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientBalance):
		s.audit.LogTransfer(reference, 0, req.SenderAccountID, req.RecipientAccountID, amount, audit.StatusInsufficientBalance)
		return 0, err
	case errors.Is(err, ErrCurrencyMismatch), errors.Is(err, ErrAccountNotFound):
		s.audit.LogTransfer(reference, 0, req.SenderAccountID, req.RecipientAccountID, amount, audit.StatusRejected)
		return 0, err
	default:
		log.Printf("[TRANSFER] %s -> %s failed: %v (%s)", req.SenderAccountID, req.RecipientAccountID, err, describeStorageError(err))
		s.audit.LogError(reference, req.SenderAccountID, err)
		return 0, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	s.audit.LogTransfer(reference, txID, req.SenderAccountID, req.RecipientAccountID, amount, audit.StatusSuccess)
	s.publishCompleted(ctx, reference, txID, req, amount)
	return txID, nil
}

// publishCompleted runs after commit. A failed publish never undoes the transfer.
func (s *TransferService) publishCompleted(ctx context.Context, reference string, txID int64, req TransferRequest, amount decimal.Decimal) {
	if s.publisher == nil {
		return
	}
	event := models.TransferCompletedEvent{
		EventID:            uuid.NewString(),
		Reference:          reference,
		TransactionID:      txID,
		SenderAccountID:    req.SenderAccountID,
		RecipientAccountID: req.RecipientAccountID,
		Amount:             amount,
		HasMedia:           req.MediaRef != "",
		OccurredAt:         s.now().UTC(),
	}
	if err := s.publisher.PublishTransferCompleted(ctx, event); err != nil {
		log.Printf("[TRANSFER] Failed to publish completion of transaction %d: %v", txID, err)
	}
}
