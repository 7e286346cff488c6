package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/schoollunch/lunchwallet/internal/history"
	"github.com/schoollunch/lunchwallet/internal/wallet"
)

// RegisterWalletRoutes wires the wallet page and the money-moving endpoints.
// idem guards every mutation; nil disables it.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, page *history.Handler, idem fiber.Handler) {
	r.Get("/wallet", page.Wallet)
	r.Post("/wallet/deposit", guarded(idem, h.Deposit)...)
	r.Post("/wallets/:walletId/credit", guarded(idem, h.Credit)...)
	r.Post("/wallets/:walletId/debit", guarded(idem, h.Debit)...)
}

func guarded(idem, h fiber.Handler) []fiber.Handler {
	if idem == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{idem, h}
}
