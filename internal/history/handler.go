package history

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/schoollunch/lunchwallet/internal/children"
	"github.com/schoollunch/lunchwallet/internal/ledger"
	"github.com/schoollunch/lunchwallet/internal/middleware"
	"github.com/schoollunch/lunchwallet/internal/wallet"
)

// Wallets is the read side of the wallet service used by the wallet page.
type Wallets interface {
	GetWalletByParentID(ctx context.Context, parentID string) (wallet.Wallet, bool, error)
	GetTransactionsByWalletID(ctx context.Context, walletID string) ([]ledger.Entry, error)
}

// Handler serves the parent's wallet page.
type Handler struct {
	wallets  Wallets
	enricher *Enricher
}

// NewHandler constructs the wallet page handler.
func NewHandler(wallets Wallets, enricher *Enricher) *Handler {
	return &Handler{wallets: wallets, enricher: enricher}
}

type childSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type displayResponse struct {
	wallet.TransactionResponse
	Child        *childSummary `json:"child,omitempty"`
	LunchRelated bool          `json:"lunchRelated"`
}

func newDisplayResponse(d Display) displayResponse {
	resp := displayResponse{TransactionResponse: wallet.NewTransactionResponse(d.Entry), LunchRelated: d.LunchRelated}
	if d.Child != nil {
		resp.Child = summarize(*d.Child)
	}
	return resp
}

func summarize(c children.Child) *childSummary {
	return &childSummary{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName}
}

// Wallet returns the acting parent's wallet with its latest transactions.
func (h *Handler) Wallet(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	w, ok, err := h.wallets.GetWalletByParentID(c.UserContext(), parentID)
	if err != nil {
		return err
	}
	if !ok {
		return wallet.ErrNotFound
	}
	entries, err := h.wallets.GetTransactionsByWalletID(c.UserContext(), w.ID)
	if err != nil {
		return err
	}

	displays := h.enricher.Enrich(c.UserContext(), entries, parentID)
	transactions := make([]displayResponse, 0, len(displays))
	for _, d := range displays {
		transactions = append(transactions, newDisplayResponse(d))
	}
	return c.JSON(fiber.Map{
		"wallet":       wallet.NewWalletResponse(w),
		"transactions": transactions,
	})
}
