package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/paybot/backend/internal/models"
	"github.com/shopspring/decimal"
)

type memTxKey struct{}

// memBank is an in-memory implementation of every store plus the unit of work.
// One mutex is held for the whole of a unit of work, so units are serialized; a failed
// unit restores the snapshot taken when it started.
type memBank struct {
	mu         sync.Mutex
	users      map[int64]models.User
	accounts   map[string]models.Account
	cards      map[int64]models.Card
	txs        []models.Transaction
	nextID     int64
	now        func() time.Time
	failInsert error
}

func newMemBank() *memBank {
	return &memBank{
		users:    make(map[int64]models.User),
		accounts: make(map[string]models.Account),
		cards:    make(map[int64]models.Card),
		now:      time.Now,
	}
}

func (b *memBank) addUser(id int64, username, first, last string) {
	b.users[id] = models.User{ID: id, Username: username, FirstName: first, LastName: last}
}

func (b *memBank) addAccount(id string, owner int64, balance string, currency models.Currency) {
	b.accounts[id] = models.Account{
		ID:       id,
		OwnerID:  owner,
		Balance:  decimal.RequireFromString(balance),
		Currency: currency,
		Party:    models.PartyPerson,
	}
}

func (b *memBank) addCard(id int64, accountID string) {
	b.cards[id] = models.Card{ID: id, AccountID: accountID, ExpirationDate: time.Now().AddDate(3, 0, 0)}
}

func (b *memBank) balance(id string) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[id].Balance
}

func (b *memBank) total() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	sum := decimal.Zero
	for _, a := range b.accounts {
		sum = sum.Add(a.Balance)
	}
	return sum
}

func (b *memBank) transactions() []models.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Transaction(nil), b.txs...)
}

// guard takes the lock unless ctx already runs inside a unit of work
func (b *memBank) guard(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	b.mu.Lock()
	return b.mu.Unlock
}

func (b *memBank) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	accounts := make(map[string]models.Account, len(b.accounts))
	for k, v := range b.accounts {
		accounts[k] = v
	}
	txs := append([]models.Transaction(nil), b.txs...)
	nextID := b.nextID

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		b.accounts, b.txs, b.nextID = accounts, txs, nextID
		return err
	}
	return nil
}

func (b *memBank) GetByID(ctx context.Context, id string) (*models.Account, error) {
	defer b.guard(ctx)()
	a, ok := b.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

func (b *memBank) GetByOwner(ctx context.Context, ownerID int64) (*models.Account, error) {
	defer b.guard(ctx)()
	ids := make([]string, 0)
	for id, a := range b.accounts {
		if a.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, ErrAccountNotFound
	}
	sort.Strings(ids)
	a := b.accounts[ids[0]]
	return &a, nil
}

func (b *memBank) GetByOwnerUsername(ctx context.Context, username string) (*models.Account, error) {
	var owner int64
	func() {
		defer b.guard(ctx)()
		for _, u := range b.users {
			if u.Username == username {
				owner = u.ID
			}
		}
	}()
	if owner == 0 {
		return nil, ErrAccountNotFound
	}
	return b.GetByOwner(ctx, owner)
}

func (b *memBank) LockForUpdate(ctx context.Context, ids ...string) (map[string]*models.Account, error) {
	defer b.guard(ctx)()
	out := make(map[string]*models.Account, len(ids))
	for _, id := range ids {
		if a, ok := b.accounts[id]; ok {
			out[id] = &a
		}
	}
	return out, nil
}

func (b *memBank) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	defer b.guard(ctx)()
	a, ok := b.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("balance update rejected for account %s: %w", id, ErrInsufficientBalance)
	}
	a.Balance = next
	b.accounts[id] = a
	return nil
}

func (b *memBank) GetOwnerDisplayName(ctx context.Context, id string) (string, error) {
	defer b.guard(ctx)()
	a, ok := b.accounts[id]
	if !ok {
		return "", ErrAccountNotFound
	}
	return b.users[a.OwnerID].FullName(), nil
}

func (b *memBank) Insert(ctx context.Context, tx *models.Transaction) (int64, error) {
	defer b.guard(ctx)()
	if b.failInsert != nil {
		return 0, b.failInsert
	}
	b.nextID++
	rec := *tx
	rec.ID = b.nextID
	rec.CreatedAt = b.now()
	b.txs = append(b.txs, rec)
	return rec.ID, nil
}

func (b *memBank) ownerOf(accountID string) int64 {
	return b.accounts[accountID].OwnerID
}

func (b *memBank) involves(t models.Transaction, userID int64) bool {
	return b.ownerOf(t.SenderAccountID) == userID || b.ownerOf(t.RecipientAccountID) == userID
}

func (b *memBank) summary(t models.Transaction) models.TransactionSummary {
	sender, recipient := b.ownerOf(t.SenderAccountID), b.ownerOf(t.RecipientAccountID)
	return models.TransactionSummary{
		ID:               t.ID,
		CreatedAt:        t.CreatedAt,
		SenderOwnerID:    sender,
		RecipientOwnerID: recipient,
		SenderName:       b.users[sender].FullName(),
		RecipientName:    b.users[recipient].FullName(),
		Amount:           t.Amount,
		MediaRef:         t.MediaRef,
	}
}

func (b *memBank) ListParticipantPairs(ctx context.Context, userID int64) ([]models.ParticipantPair, error) {
	defer b.guard(ctx)()
	var pairs []models.ParticipantPair
	for _, t := range b.txs {
		if b.involves(t, userID) {
			pairs = append(pairs, models.ParticipantPair{
				SenderOwnerID:    b.ownerOf(t.SenderAccountID),
				RecipientOwnerID: b.ownerOf(t.RecipientAccountID),
			})
		}
	}
	return pairs, nil
}

func (b *memBank) ListByParticipantBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.TransactionSummary, error) {
	defer b.guard(ctx)()
	var out []models.TransactionSummary
	for _, t := range b.txs {
		if !b.involves(t, userID) || t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		out = append(out, b.summary(t))
	}
	return out, nil
}

func (b *memBank) ListUnseen(ctx context.Context, userID int64) ([]models.TransactionSummary, error) {
	defer b.guard(ctx)()
	var out []models.TransactionSummary
	for _, t := range b.txs {
		if !t.Seen && b.involves(t, userID) {
			out = append(out, b.summary(t))
		}
	}
	return out, nil
}

func (b *memBank) MarkSeen(ctx context.Context, userID int64, ids []int64) (int64, error) {
	defer b.guard(ctx)()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for i := range b.txs {
		t := &b.txs[i]
		if want[t.ID] && !t.Seen && b.involves(*t, userID) {
			t.Seen = true
			n++
		}
	}
	return n, nil
}

func (b *memBank) UsernamesByIDs(ctx context.Context, ids []int64) ([]string, error) {
	defer b.guard(ctx)()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if u, ok := b.users[id]; ok {
			out = append(out, u.Username)
		}
	}
	return out, nil
}

// memCards adapts memBank to CardStore; its method set clashes with AccountStore.GetByID
type memCards struct{ b *memBank }

func (c memCards) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	defer c.b.guard(ctx)()
	card, ok := c.b.cards[id]
	if !ok {
		return nil, ErrCardNotFound
	}
	return &card, nil
}

func (c memCards) CountByAccount(ctx context.Context, accountID string) (int, error) {
	defer c.b.guard(ctx)()
	n := 0
	for _, card := range c.b.cards {
		if card.AccountID == accountID {
			n++
		}
	}
	return n, nil
}
