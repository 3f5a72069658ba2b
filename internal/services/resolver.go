package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/paybot/backend/internal/models"
)

// RecipientTarget names a payee in exactly one of three ways
type RecipientTarget struct {
	AccountID string
	CardID    int64
	Username  string
}

// AccountResolver turns user-facing payer/payee handles into accounts before a transfer.
// Both sides must own an account with at least one linked card.
type AccountResolver struct {
	accounts AccountStore
	cards    CardStore
}

func NewAccountResolver(accounts AccountStore, cards CardStore) *AccountResolver {
	return &AccountResolver{accounts: accounts, cards: cards}
}

// ResolveSender returns the account owned by userID
func (r *AccountResolver) ResolveSender(ctx context.Context, userID int64) (*models.Account, error) {
	account, err := r.accounts.GetByOwner(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrSenderRestricted
	}
	if err != nil {
		return nil, fmt.Errorf("resolve sender: %w", err)
	}
	if err := r.requireCard(ctx, account.ID, ErrSenderRestricted); err != nil {
		return nil, err
	}
	return account, nil
}

// ResolveRecipient returns the account addressed by target
func (r *AccountResolver) ResolveRecipient(ctx context.Context, target RecipientTarget) (*models.Account, error) {
	var (
		account *models.Account
		err     error
	)
	switch {
	case target.AccountID != "":
		account, err = r.accounts.GetByID(ctx, target.AccountID)
	case target.CardID > 0:
		account, err = r.AccountByCard(ctx, target.CardID)
	case target.Username != "":
		account, err = r.accounts.GetByOwnerUsername(ctx, target.Username)
		if errors.Is(err, ErrAccountNotFound) {
			err = ErrRecipientRestricted
		}
	default:
		return nil, errors.New("recipient target is empty")
	}
	if err != nil {
		return nil, err
	}
	if err := r.requireCard(ctx, account.ID, ErrRecipientRestricted); err != nil {
		return nil, err
	}
	return account, nil
}

// AccountByCard returns the account a card is linked to
func (r *AccountResolver) AccountByCard(ctx context.Context, cardID int64) (*models.Account, error) {
	card, err := r.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return r.accounts.GetByID(ctx, card.AccountID)
}

// AccountByID returns the account with the given id
func (r *AccountResolver) AccountByID(ctx context.Context, accountID string) (*models.Account, error) {
	return r.accounts.GetByID(ctx, accountID)
}

// RecipientName returns the display name of the owner of accountID
func (r *AccountResolver) RecipientName(ctx context.Context, accountID string) (string, error) {
	return r.accounts.GetOwnerDisplayName(ctx, accountID)
}

func (r *AccountResolver) requireCard(ctx context.Context, accountID string, restricted error) error {
	n, err := r.cards.CountByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("count cards: %w", err)
	}
	if n == 0 {
		return restricted
	}
	return nil
}
