// Package history builds the parent-facing view of wallet transactions.
package history

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/schoollunch/lunchwallet/internal/children"
	"github.com/schoollunch/lunchwallet/internal/ledger"
	"github.com/schoollunch/lunchwallet/internal/logging"
	"github.com/schoollunch/lunchwallet/internal/lunch"
)

var lunchOrderPattern = regexp.MustCompile(`(?i)lunch order #([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`)

// Display is an entry plus the child its lunch order belongs to, if known.
type Display struct {
	Entry        ledger.Entry
	Child        *children.Child
	LunchRelated bool
}

// ChildLister lists a parent's children.
type ChildLister interface {
	ListByParent(ctx context.Context, parentID string) ([]children.Child, error)
}

// Enricher maps lunch order references in entry descriptions back to the
// child that placed the order.
type Enricher struct {
	children ChildLister
	lunches  lunch.Gateway
	logger   *slog.Logger
}

// NewEnricher constructs an enricher.
func NewEnricher(kids ChildLister, lunches lunch.Gateway, logger *slog.Logger) *Enricher {
	return &Enricher{children: kids, lunches: lunches, logger: logging.Component(logger, "history")}
}

// OrderID extracts the lunch order id referenced by a description.
func OrderID(description string) (string, bool) {
	m := lunchOrderPattern.FindStringSubmatch(description)
	if m == nil {
		return "", false
	}
	id, err := uuid.Parse(m[1])
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// Enrich returns one Display per entry, in the same order. Lookups are best
// effort: a failure for one child skips that child, and an unresolved order
// leaves the entry unenriched. Stored entries are never modified.
func (e *Enricher) Enrich(ctx context.Context, entries []ledger.Entry, parentID string) []Display {
	out := make([]Display, len(entries))
	for i, entry := range entries {
		out[i] = Display{Entry: entry}
	}

	wanted := map[string][]int{}
	for i, entry := range entries {
		if id, ok := OrderID(entry.Description); ok {
			wanted[id] = append(wanted[id], i)
		}
	}
	if len(wanted) == 0 {
		return out
	}

	kids, err := e.children.ListByParent(ctx, parentID)
	if err != nil {
		e.logger.Warn("list children for history failed", slog.String("parent_id", parentID), slog.Any("error", err))
		return out
	}

	for k := range kids {
		if len(wanted) == 0 {
			break
		}
		child := kids[k]
		orders, err := e.lunches.ListOrders(ctx, child.ID)
		if err != nil {
			e.logger.Warn("list orders for history failed", slog.String("child_id", child.ID), slog.Any("error", err))
			continue
		}
		for _, o := range orders {
			idxs, ok := wanted[strings.ToLower(o.ID)]
			if !ok {
				continue
			}
			for _, i := range idxs {
				c := child
				out[i].Child = &c
				out[i].LunchRelated = true
			}
			delete(wanted, strings.ToLower(o.ID))
		}
	}
	return out
}
