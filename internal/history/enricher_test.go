package history

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoollunch/lunchwallet/internal/children"
	"github.com/schoollunch/lunchwallet/internal/ledger"
	"github.com/schoollunch/lunchwallet/internal/logging"
	"github.com/schoollunch/lunchwallet/internal/lunch"
)

type staticChildren struct {
	kids []children.Child
	err  error
}

func (s staticChildren) ListByParent(context.Context, string) ([]children.Child, error) {
	return s.kids, s.err
}

type flakyGateway struct {
	*lunch.Memory
	failFor string
}

func (f flakyGateway) ListOrders(ctx context.Context, childID string) ([]lunch.Order, error) {
	if childID == f.failFor {
		return nil, lunch.ErrServiceUnavailable
	}
	return f.Memory.ListOrders(ctx, childID)
}

func entry(description string) ledger.Entry {
	return ledger.Entry{
		ID:          uuid.NewString(),
		WalletID:    uuid.NewString(),
		Amount:      decimal.RequireFromString("4.50"),
		BalanceLeft: decimal.RequireFromString("10.00"),
		Currency:    "EUR",
		Type:        ledger.TypePayment,
		Status:      ledger.StatusSuccessful,
		Description: description,
		CreatedOn:   time.Now().UTC(),
	}
}

func TestOrderIDParsing(t *testing.T) {
	id := uuid.NewString()

	got, ok := OrderID("Payment for lunch order #" + id)
	require.True(t, ok)
	assert.Equal(t, id, got)

	got, ok = OrderID("refund for LUNCH ORDER #" + strings.ToUpper(id))
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = OrderID("Payment for lunch order #not-a-uuid")
	assert.False(t, ok)
	_, ok = OrderID("Deposit via wallet page")
	assert.False(t, ok)
}

func TestEnrichResolvesChild(t *testing.T) {
	ctx := context.Background()
	parentID := uuid.NewString()
	ana := children.Child{ID: uuid.NewString(), ParentID: parentID, FirstName: "Ana"}
	ivo := children.Child{ID: uuid.NewString(), ParentID: parentID, FirstName: "Ivo"}

	mem := lunch.NewMemory()
	paid := mem.Seed(lunch.Order{ChildID: ivo.ID, Status: lunch.StatusPaid, Total: decimal.RequireFromString("4.50")})
	gone := mem.Seed(lunch.Order{ChildID: ana.ID, Status: lunch.StatusCancelled, Deleted: true})

	e := NewEnricher(staticChildren{kids: []children.Child{ana, ivo}}, mem, logging.Discard())
	entries := []ledger.Entry{
		entry("Payment for lunch order #" + paid.ID),
		entry("Refund for lunch order #" + gone.ID),
		entry("Deposit via wallet page"),
		entry("Payment for lunch order #" + uuid.NewString()),
	}
	before := append([]ledger.Entry(nil), entries...)

	out := e.Enrich(ctx, entries, parentID)
	require.Len(t, out, 4)

	require.NotNil(t, out[0].Child)
	assert.Equal(t, "Ivo", out[0].Child.FirstName)
	assert.True(t, out[0].LunchRelated)

	require.NotNil(t, out[1].Child, "soft-deleted orders still resolve")
	assert.Equal(t, "Ana", out[1].Child.FirstName)

	assert.Nil(t, out[2].Child)
	assert.False(t, out[2].LunchRelated)
	assert.Nil(t, out[3].Child)
	assert.False(t, out[3].LunchRelated)

	for i := range entries {
		assert.Equal(t, before[i].ID, out[i].Entry.ID)
		assert.Equal(t, before[i].Description, entries[i].Description)
	}
}

func TestEnrichSkipsFailingChild(t *testing.T) {
	ctx := context.Background()
	parentID := uuid.NewString()
	broken := children.Child{ID: uuid.NewString(), ParentID: parentID, FirstName: "Broken"}
	ok := children.Child{ID: uuid.NewString(), ParentID: parentID, FirstName: "Ok"}

	mem := lunch.NewMemory()
	order := mem.Seed(lunch.Order{ChildID: ok.ID, Status: lunch.StatusPaid})
	gw := flakyGateway{Memory: mem, failFor: broken.ID}

	e := NewEnricher(staticChildren{kids: []children.Child{broken, ok}}, gw, logging.Discard())
	out := e.Enrich(ctx, []ledger.Entry{entry("Payment for lunch order #" + order.ID)}, parentID)
	require.NotNil(t, out[0].Child)
	assert.Equal(t, "Ok", out[0].Child.FirstName)
}

func TestEnrichChildListFailureLeavesEntriesPlain(t *testing.T) {
	e := NewEnricher(staticChildren{err: errors.New("db down")}, lunch.NewMemory(), logging.Discard())
	out := e.Enrich(context.Background(), []ledger.Entry{entry("Payment for lunch order #" + uuid.NewString())}, uuid.NewString())
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Child)
	assert.False(t, out[0].LunchRelated)
}
