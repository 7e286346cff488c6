// Package lunch talks to the remote lunch order service.
package lunch

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state reported by the lunch service.
type Status string

const (
	StatusPaid      Status = "PAID"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Meals offered by the lunch service, keyed by wire name.
var Meals = map[string]string{
	"FRIED_CHICKEN_WITH_YOGURT_SOUS": "Fried chicken with yogurt sous",
	"BAKED_FISH_WITH_VEGETABLES":     "Baked fish with vegetables",
	"BEAN_WITH_SALAD":                "Bean with salad",
	"BACKED_TURKEY_WITH_PATATOES":    "Baked turkey with potatoes",
	"MEAT_BOLLS_WITH_TOMATOES_SOUS":  "Meat balls with tomatoes sous",
}

var weekDays = []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY"}

// Order is a lunch order as held by the lunch service.
type Order struct {
	ID        string          `json:"id"`
	ParentID  string          `json:"parentId"`
	ChildID   string          `json:"childId"`
	WalletID  string          `json:"walletId,omitempty"`
	Meal      string          `json:"meal"`
	Quantity  int             `json:"quantity"`
	DayOfWeek string          `json:"dayOfWeek"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	CreatedOn time.Time       `json:"createdOn"`
	Deleted   bool            `json:"deleted,omitempty"`
}

// Paid reports whether the order still holds money taken from the wallet.
func (o Order) Paid() bool {
	return o.Status == StatusPaid
}

// OrderRequest is the payload for creating an order.
type OrderRequest struct {
	ParentID  string `json:"parentId"`
	ChildID   string `json:"childId"`
	WalletID  string `json:"walletId,omitempty"`
	Meal      string `json:"meal"`
	Quantity  int    `json:"quantity"`
	DayOfWeek string `json:"dayOfWeek"`
}

// ValidMeal reports whether meal is on the menu.
func ValidMeal(meal string) bool {
	_, ok := Meals[meal]
	return ok
}

// NormalizeDay upper-cases a school day name, reporting false for weekends
// and unknown values.
func NormalizeDay(day string) (string, bool) {
	d := strings.ToUpper(strings.TrimSpace(day))
	for _, wd := range weekDays {
		if d == wd {
			return d, true
		}
	}
	return "", false
}
