package wallet

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/schoollunch/lunchwallet/internal/ledger"
	"github.com/schoollunch/lunchwallet/internal/middleware"
)

const (
	defaultCreditDescription = "External credit"
	defaultDebitDescription  = "External debit"
	portalDepositDescription = "Deposit via wallet page"
	roleAdmin                = "ADMIN"
)

var minimumAmount = decimal.New(1, -2)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type operationRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
}

// TransactionResponse is the wire form of a ledger entry.
type TransactionResponse struct {
	ID            string    `json:"id"`
	WalletID      string    `json:"walletId"`
	Amount        string    `json:"amount"`
	BalanceLeft   string    `json:"balanceLeft"`
	Currency      string    `json:"currency"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Description   string    `json:"description"`
	FailureReason *string   `json:"failureReason"`
	CreatedOn     time.Time `json:"createdOn"`
}

// NewTransactionResponse renders an entry with two-decimal amounts.
func NewTransactionResponse(e ledger.Entry) TransactionResponse {
	return TransactionResponse{
		ID:            e.ID,
		WalletID:      e.WalletID,
		Amount:        e.Amount.StringFixed(2),
		BalanceLeft:   e.BalanceLeft.StringFixed(2),
		Currency:      e.Currency,
		Type:          string(e.Type),
		Status:        string(e.Status),
		Description:   e.Description,
		FailureReason: e.FailureReason,
		CreatedOn:     e.CreatedOn,
	}
}

// WalletResponse is the wire form of a wallet account.
type WalletResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Balance   string    `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedOn time.Time `json:"createdOn"`
	UpdatedOn time.Time `json:"updatedOn"`
}

// NewWalletResponse renders a wallet, showing a null balance as 0.00.
func NewWalletResponse(w Wallet) WalletResponse {
	return WalletResponse{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		Balance:   w.CurrentBalance().StringFixed(2),
		Currency:  w.Currency,
		CreatedOn: w.CreatedOn,
		UpdatedOn: w.UpdatedOn,
	}
}

// Credit deposits into the wallet named in the path.
func (h *Handler) Credit(c *fiber.Ctx) error {
	return h.operate(c, h.service.Deposit, defaultCreditDescription)
}

// Debit pays from the wallet named in the path. An insufficient balance still
// answers 201 with the FAILED entry.
func (h *Handler) Debit(c *fiber.Ctx) error {
	return h.operate(c, h.service.Payment, defaultDebitDescription)
}

type operation func(ctx context.Context, walletID string, amount decimal.Decimal, description string) (ledger.Entry, error)

func (h *Handler) operate(c *fiber.Ctx, op operation, fallbackDescription string) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	amount, description, err := parseOperation(c)
	if err != nil {
		return err
	}
	if description == "" {
		description = fallbackDescription
	}

	walletID := c.Params("walletId")
	w, err := h.service.Get(c.UserContext(), walletID)
	if err != nil {
		return err
	}
	if w.OwnerID != parentID && middleware.Role(c) != roleAdmin {
		return ErrNotOwner
	}

	entry, err := op(c.UserContext(), w.ID, amount, description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(NewTransactionResponse(entry))
}

// Deposit tops up the acting parent's own wallet from the portal.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	amount, _, err := parseOperation(c)
	if err != nil {
		return err
	}

	w, ok, err := h.service.GetWalletByParentID(c.UserContext(), parentID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	entry, err := h.service.Deposit(c.UserContext(), w.ID, amount, portalDepositDescription)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(NewTransactionResponse(entry))
}

func parseOperation(c *fiber.Ctx) (decimal.Decimal, string, error) {
	var req operationRequest
	if err := c.BodyParser(&req); err != nil {
		return decimal.Decimal{}, "", fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if req.Amount == nil {
		return decimal.Decimal{}, "", fiber.NewError(http.StatusBadRequest, "amount is required")
	}
	amount := *req.Amount
	if amount.LessThan(minimumAmount) {
		return decimal.Decimal{}, "", fiber.NewError(http.StatusBadRequest, "amount must be at least 0.01")
	}
	if !amount.Equal(amount.Round(2)) {
		return decimal.Decimal{}, "", fiber.NewError(http.StatusBadRequest, "amount must have at most two decimal places")
	}
	var description string
	if req.Description != nil {
		description = *req.Description
	}
	return amount, description, nil
}
