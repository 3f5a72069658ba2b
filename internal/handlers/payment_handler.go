package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	mW "github.com/paybot/backend/internal/middleware"
	"github.com/paybot/backend/internal/models"
	"github.com/paybot/backend/internal/services"
	"github.com/shopspring/decimal"
)

type TransferEngine interface {
	Transfer(ctx context.Context, req services.TransferRequest) (int64, error)
}

type HistoryQueries interface {
	ListCounterparties(ctx context.Context, userID int64) ([]string, error)
	ListLastMonth(ctx context.Context, userID int64) ([]models.TransactionSummary, error)
	ListLatestUnseen(ctx context.Context, userID int64) ([]models.TransactionSummary, error)
	MarkSeen(ctx context.Context, userID int64, transactionIDs []int64) (int64, error)
}

type AccountLookup interface {
	ResolveSender(ctx context.Context, userID int64) (*models.Account, error)
	ResolveRecipient(ctx context.Context, target services.RecipientTarget) (*models.Account, error)
	AccountByID(ctx context.Context, accountID string) (*models.Account, error)
	AccountByCard(ctx context.Context, cardID int64) (*models.Account, error)
	RecipientName(ctx context.Context, accountID string) (string, error)
}

type PaymentHandler struct {
	engine    TransferEngine
	history   HistoryQueries
	accounts  AccountLookup
	validator *services.ValidationHelper
}

func NewPaymentHandler(engine TransferEngine, history HistoryQueries, accounts AccountLookup) *PaymentHandler {
	return &PaymentHandler{
		engine:    engine,
		history:   history,
		accounts:  accounts,
		validator: services.NewValidationHelper(),
	}
}

// Routes registers the payment endpoints; r must already authenticate requests
func (h *PaymentHandler) Routes(r chi.Router) {
	r.Post("/transfers", h.CreateTransfer)
	r.Get("/transactions/counterparties", h.ListCounterparties)
	r.Get("/transactions/last-month", h.ListLastMonth)
	r.Get("/transactions/unseen", h.ListUnseen)
	r.Post("/transactions/seen", h.MarkSeen)
	r.Get("/accounts/{accountId}/balance", h.AccountBalance)
	r.Get("/cards/{cardId}/balance", h.CardBalance)
}

type transferRequest struct {
	ToAccountID string          `json:"toAccountId" validate:"omitempty,max=20"`
	ToCardID    int64           `json:"toCardId" validate:"omitempty,gt=0"`
	ToUsername  string          `json:"toUsername" validate:"omitempty,max=64"`
	Amount      decimal.Decimal `json:"amount" validate:"required,positive_decimal" swaggertype:"string"`
	MediaRef    string          `json:"mediaRef" validate:"max=255"`
}

func (r transferRequest) targets() int {
	n := 0
	if r.ToAccountID != "" {
		n++
	}
	if r.ToCardID != 0 {
		n++
	}
	if r.ToUsername != "" {
		n++
	}
	return n
}

type transferResponse struct {
	TransactionID int64           `json:"transactionId"`
	RecipientName string          `json:"recipientName"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string"`
}

// CreateTransfer sends money from the caller's account
// @Summary Transfer money
// @Description Transfer an amount to another account addressed by account id, card id or username
// @Tags Transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body transferRequest true "Transfer request"
// @Success 201 {object} transferResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *PaymentHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.targets() != 1 {
		services.SendErrorResponse(w, "Exactly one of toAccountId, toCardId or toUsername is required", http.StatusBadRequest, nil)
		return
	}

	ctx := r.Context()
	sender, err := h.accounts.ResolveSender(ctx, userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	recipient, err := h.accounts.ResolveRecipient(ctx, services.RecipientTarget{
		AccountID: req.ToAccountID,
		CardID:    req.ToCardID,
		Username:  req.ToUsername,
	})
	if err != nil {
		sendServiceError(w, err)
		return
	}

	txID, err := h.engine.Transfer(ctx, services.TransferRequest{
		SenderAccountID:    sender.ID,
		RecipientAccountID: recipient.ID,
		Amount:             req.Amount,
		MediaRef:           req.MediaRef,
	})
	if err != nil {
		sendServiceError(w, err)
		return
	}

	name, err := h.accounts.RecipientName(ctx, recipient.ID)
	if err != nil {
		log.Printf("[TRANSFER] Transaction %d committed but recipient name lookup failed: %v", txID, err)
	}

	writeJSON(w, http.StatusCreated, transferResponse{
		TransactionID: txID,
		RecipientName: name,
		Amount:        req.Amount.Round(2),
	})
}

// ListCounterparties returns usernames the caller has exchanged money with
// @Summary List counterparties
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{usernames=[]string}
// @Router /transactions/counterparties [get]
func (h *PaymentHandler) ListCounterparties(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	names, err := h.history.ListCounterparties(r.Context(), userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usernames": names})
}

// ListLastMonth returns the caller's transactions of the last month
// @Summary Last month history
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{transactions=[]models.TransactionSummary}
// @Router /transactions/last-month [get]
func (h *PaymentHandler) ListLastMonth(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := h.history.ListLastMonth(r.Context(), userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": rows})
}

// ListUnseen returns transactions not yet marked seen. It does not mark them.
// @Summary Unseen transactions
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{transactions=[]models.TransactionSummary}
// @Router /transactions/unseen [get]
func (h *PaymentHandler) ListUnseen(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := h.history.ListLatestUnseen(r.Context(), userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": rows})
}

// MarkSeen flags delivered transactions
// @Summary Mark transactions seen
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{ids=[]int64} true "Transaction ids"
// @Success 200 {object} object{marked=int64}
// @Failure 400 {object} services.ErrorResponse
// @Router /transactions/seen [post]
func (h *PaymentHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		IDs []int64 `json:"ids" validate:"required,min=1,max=500,dive,gt=0"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	n, err := h.history.MarkSeen(r.Context(), userID, req.IDs)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"marked": n})
}

// AccountBalance checks the balance of one of the caller's accounts
// @Summary Account balance
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} balanceResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/balance [get]
func (h *PaymentHandler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	account, err := h.accounts.AccountByID(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeBalance(w, userID, account)
}

// CardBalance checks the balance of the account behind one of the caller's cards
// @Summary Card balance
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param cardId path int true "Card ID"
// @Success 200 {object} balanceResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /cards/{cardId}/balance [get]
func (h *PaymentHandler) CardBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	cardID, err := strconv.ParseInt(chi.URLParam(r, "cardId"), 10, 64)
	if err != nil || cardID <= 0 {
		services.SendErrorResponse(w, "Invalid card id", http.StatusBadRequest, nil)
		return
	}

	account, err := h.accounts.AccountByCard(r.Context(), cardID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeBalance(w, userID, account)
}

type balanceResponse struct {
	AccountID string          `json:"accountId"`
	Balance   string          `json:"balance"`
	Currency  models.Currency `json:"currency"`
}

func writeBalance(w http.ResponseWriter, userID int64, account *models.Account) {
	if account.OwnerID != userID {
		services.SendErrorResponse(w, "Account belongs to another user", http.StatusForbidden, nil)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		AccountID: account.ID,
		Balance:   account.Balance.StringFixed(2),
		Currency:  account.Currency,
	})
}

// decode reads a single JSON object into dst and validates it
func (h *PaymentHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if err := h.validator.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

// statusFor maps service error kinds to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrSelfTransfer),
		errors.Is(err, services.ErrCurrencyMismatch):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrCardNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSenderRestricted),
		errors.Is(err, services.ErrRecipientRestricted):
		return http.StatusForbidden
	case errors.Is(err, services.ErrTransferFailed) && services.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func sendServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		// the whole transfer was rolled back and may be retried as is
		w.Header().Set("Retry-After", "1")
		message = services.ErrTransferFailed.Error()
	case http.StatusInternalServerError:
		log.Printf("Request failed: %v", err)
		message = "Internal server error"
		if errors.Is(err, services.ErrTransferFailed) {
			message = services.ErrTransferFailed.Error()
		}
	}
	services.SendErrorResponse(w, message, status, nil)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
