package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/paybot/backend/internal/models"
)

// summaryDateLayout renders dates as day.month.year without zero padding, e.g. 5.3.2024
const summaryDateLayout = "2.1.2006"

// HistoryService answers read-only questions about the transaction log
type HistoryService struct {
	transactions TransactionStore
	users        UserStore
	media        MediaResolver
	location     *time.Location
	now          func() time.Time
}

// NewHistoryService creates the history query service. media may be nil, in which case
// media references are returned without URLs. loc is the zone "today" is computed in.
func NewHistoryService(transactions TransactionStore, users UserStore, media MediaResolver, loc *time.Location) *HistoryService {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryService{
		transactions: transactions,
		users:        users,
		media:        media,
		location:     loc,
		now:          time.Now,
	}
}

// ListCounterparties returns the usernames of every other user that has sent to or received
// from userID at least once. Each counterparty appears once; order is not defined.
func (s *HistoryService) ListCounterparties(ctx context.Context, userID int64) ([]string, error) {
	pairs, err := s.transactions.ListParticipantPairs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	seen := make(map[int64]struct{}, len(pairs))
	ids := make([]int64, 0, len(pairs))
	for _, p := range pairs {
		other := p.SenderOwnerID
		if other == userID {
			other = p.RecipientOwnerID
		}
		// transfers between two accounts of the same user have no counterparty
		if other == userID {
			continue
		}
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	usernames, err := s.users.UsernamesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve usernames: %w", err)
	}
	return usernames, nil
}

// LastMonthWindow returns the window used by ListLastMonth for the given instant:
// [today - days in the current month, today + 1 day), with today taken in loc.
func LastMonthWindow(now time.Time, loc *time.Location) (from, to time.Time) {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return today.AddDate(0, 0, -daysInMonth(today)), today.AddDate(0, 0, 1)
}

func daysInMonth(t time.Time) int {
	// day 0 of the next month is the last day of this one
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// ListLastMonth returns the transactions of userID inside LastMonthWindow, oldest first,
// each with a formatted date and both display names.
func (s *HistoryService) ListLastMonth(ctx context.Context, userID int64) ([]models.TransactionSummary, error) {
	from, to := LastMonthWindow(s.now(), s.location)

	rows, err := s.transactions.ListByParticipantBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	views := make([]models.TransactionSummary, 0, len(rows))
	for _, row := range rows {
		row.Date = row.CreatedAt.In(s.location).Format(summaryDateLayout)
		views = append(views, s.withMedia(ctx, row))
	}
	return views, nil
}

// ListLatestUnseen returns transactions involving userID that were never marked seen.
// It does not mark them; callers invoke MarkSeen after delivery.
func (s *HistoryService) ListLatestUnseen(ctx context.Context, userID int64) ([]models.TransactionSummary, error) {
	rows, err := s.transactions.ListUnseen(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unseen transactions: %w", err)
	}

	views := make([]models.TransactionSummary, 0, len(rows))
	for _, row := range rows {
		row.Date = row.CreatedAt.In(s.location).Format(summaryDateLayout)
		views = append(views, s.withMedia(ctx, row))
	}
	return views, nil
}

// MarkSeen flags the given transactions as delivered. Ids that do not involve userID
// are ignored. It returns how many rows changed.
func (s *HistoryService) MarkSeen(ctx context.Context, userID int64, transactionIDs []int64) (int64, error) {
	if len(transactionIDs) == 0 {
		return 0, nil
	}
	n, err := s.transactions.MarkSeen(ctx, userID, transactionIDs)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	return n, nil
}

// withMedia attaches a viewable URL when the row references media. A resolution failure
// keeps the row and drops only the URL.
func (s *HistoryService) withMedia(ctx context.Context, v models.TransactionSummary) models.TransactionSummary {
	if v.MediaRef == "" || s.media == nil {
		return v
	}
	url, err := s.media.ResolveURL(ctx, v.MediaRef)
	if err != nil {
		log.Printf("[HISTORY] Failed to resolve media %q for transaction %d: %v", v.MediaRef, v.ID, err)
		return v
	}
	v.MediaURL = url
	return v
}
