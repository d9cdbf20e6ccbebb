package order

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domcatalog "github.com/shopkit/storefront/internal/domain/catalog"
	domcustomer "github.com/shopkit/storefront/internal/domain/customer"
	domain "github.com/shopkit/storefront/internal/domain/order"
	"github.com/shopkit/storefront/internal/observability"
)

type fakeCustomers struct {
	known map[string]*domcustomer.Customer
}

func (f *fakeCustomers) FindByID(_ context.Context, id string) (*domcustomer.Customer, error) {
	if c, ok := f.known[id]; ok {
		return c, nil
	}
	return nil, domcustomer.ErrNotFound
}

type fakeCatalog struct {
	products map[string]*domcatalog.Product

	findCalls   [][]string
	adjustments [][]domcatalog.QuantityAdjustment
	updateErr   error
}

func (f *fakeCatalog) FindAllByID(_ context.Context, ids []string) ([]*domcatalog.Product, error) {
	f.findCalls = append(f.findCalls, ids)
	var found []*domcatalog.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			clone := *p
			found = append(found, &clone)
		}
	}
	return found, nil
}

func (f *fakeCatalog) UpdateQuantity(_ context.Context, adjustments []domcatalog.QuantityAdjustment) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.adjustments = append(f.adjustments, adjustments)
	for _, adj := range adjustments {
		f.products[adj.ProductID].Quantity = adj.NewQuantity
	}
	return nil
}

type fakeOrders struct {
	created   []*domain.Order
	createErr error
	normalize func(*domain.Order) *domain.Order
}

func (f *fakeOrders) Create(_ context.Context, o *domain.Order) (*domain.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	stored := o.Clone()
	if f.normalize != nil {
		stored = f.normalize(stored)
	}
	f.created = append(f.created, stored)
	return stored.Clone(), nil
}

func (f *fakeOrders) FindByID(_ context.Context, id string) (*domain.Order, error) {
	for _, o := range f.created {
		if o.ID == id {
			return o.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("order-%d", g.n)
}

type fixture struct {
	customers *fakeCustomers
	catalog   *fakeCatalog
	orders    *fakeOrders
	service   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	customers := &fakeCustomers{known: map[string]*domcustomer.Customer{}}
	cust, err := domcustomer.New("cust-1", "Ada", "ada@example.com")
	require.NoError(t, err)
	customers.known[cust.ID] = cust

	catalog := &fakeCatalog{products: map[string]*domcatalog.Product{}}
	for _, p := range []struct {
		id    string
		price int64
		qty   int
	}{
		{"p1", 2000, 10},
		{"p2", 500, 3},
	} {
		entity, err := domcatalog.NewProduct(p.id, p.id, p.price, p.qty)
		require.NoError(t, err)
		catalog.products[p.id] = entity
	}

	orders := &fakeOrders{}
	svc := NewService(orders, customers, catalog, &seqIDGen{}, observability.Nop())

	return &fixture{customers: customers, catalog: catalog, orders: orders, service: svc}
}

func TestPlaceOrder_UnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "nobody",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})

	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	assert.Empty(t, f.orders.created, "no order may be created")
	assert.Empty(t, f.catalog.adjustments, "no inventory may be adjusted")
	assert.Empty(t, f.catalog.findCalls, "catalog must not be consulted after the customer check fails")
}

func TestPlaceOrder_NoProductsFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items:      []ItemRequest{{ProductID: "ghost-1", Quantity: 1}, {ProductID: "ghost-2", Quantity: 2}},
	})

	assert.ErrorIs(t, err, domain.ErrNoProductsFound)
	assert.Empty(t, f.orders.created)
	assert.Empty(t, f.catalog.adjustments)
}

func TestPlaceOrder_MissingProduct_ReportsFirstInRequestOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items: []ItemRequest{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "ghost-1", Quantity: 1},
			{ProductID: "ghost-2", Quantity: 1},
		},
	})

	var notFound *domain.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost-1", notFound.ProductID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Empty(t, f.orders.created)
	assert.Empty(t, f.catalog.adjustments)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items:      []ItemRequest{{ProductID: "p2", Quantity: 7}},
	})

	var noStock *domain.InsufficientStockError
	require.ErrorAs(t, err, &noStock)
	assert.Equal(t, "p2", noStock.ProductID)
	assert.Equal(t, 7, noStock.Requested)
	assert.Empty(t, f.orders.created)
	assert.Empty(t, f.catalog.adjustments)
	assert.Equal(t, 3, f.catalog.products["p2"].Quantity, "stock must be untouched")
}

func TestPlaceOrder_InsufficientStock_FirstInRequestOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items: []ItemRequest{
			{ProductID: "p1", Quantity: 11}, // over p1's 10
			{ProductID: "p2", Quantity: 4},  // over p2's 3 too
		},
	})

	var noStock *domain.InsufficientStockError
	require.ErrorAs(t, err, &noStock)
	assert.Equal(t, "p1", noStock.ProductID)
	assert.Equal(t, 11, noStock.Requested)
}

func TestPlaceOrder_PriceSnapshotSurvivesCatalogChange(t *testing.T) {
	f := newFixture(t)

	placed, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, placed.LineItems, 1)
	assert.Equal(t, int64(2000), placed.LineItems[0].UnitPrice)

	// A later price change must not leak into the stored order.
	f.catalog.products["p1"].UnitPrice = 2400

	stored, err := f.service.Get(context.Background(), placed.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), stored.LineItems[0].UnitPrice)
}

func TestPlaceOrder_InventoryConservation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items:      []ItemRequest{{ProductID: "p2", Quantity: 2}},
	})
	require.NoError(t, err)

	require.Len(t, f.catalog.adjustments, 1, "exactly one batch update")
	batch := f.catalog.adjustments[0]
	require.Len(t, batch, 1)
	assert.Equal(t, domcatalog.QuantityAdjustment{ProductID: "p2", NewQuantity: 1}, batch[0])
	assert.Equal(t, 1, f.catalog.products["p2"].Quantity)
}

func TestPlaceOrder_EndToEnd(t *testing.T) {
	f := newFixture(t)

	placed, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items: []ItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})
	require.NoError(t, err)

	require.Len(t, placed.LineItems, 2)
	assert.Equal(t, domain.LineItem{ProductID: "p1", Quantity: 2, UnitPrice: 2000}, placed.LineItems[0])
	assert.Equal(t, domain.LineItem{ProductID: "p2", Quantity: 1, UnitPrice: 500}, placed.LineItems[1])
	assert.Equal(t, int64(2*2000+500), placed.Total())

	require.Len(t, f.catalog.adjustments, 1)
	assert.ElementsMatch(t, []domcatalog.QuantityAdjustment{
		{ProductID: "p1", NewQuantity: 8},
		{ProductID: "p2", NewQuantity: 2},
	}, f.catalog.adjustments[0])

	require.Len(t, f.orders.created, 1)
	assert.Equal(t, placed.ID, f.orders.created[0].ID)
}

func TestPlaceOrder_DecrementFollowsPersistedLineItems(t *testing.T) {
	f := newFixture(t)
	// The store halves the quantity; the decrement must follow what was
	// actually persisted, not the raw request.
	f.orders.normalize = func(o *domain.Order) *domain.Order {
		o.LineItems[0].Quantity = 1
		return o
	}

	placed, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, placed.LineItems[0].Quantity)

	require.Len(t, f.catalog.adjustments, 1)
	assert.Equal(t, domcatalog.QuantityAdjustment{ProductID: "p1", NewQuantity: 9}, f.catalog.adjustments[0][0])
}

func TestPlaceOrder_CreateFailureLeavesInventoryUntouched(t *testing.T) {
	f := newFixture(t)
	f.orders.createErr = errors.New("storage offline")

	_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})

	assert.ErrorIs(t, err, ErrRepository)
	assert.Empty(t, f.catalog.adjustments)
	assert.Equal(t, 10, f.catalog.products["p1"].Quantity)
}

func TestPlaceOrder_AdjustFailureKeepsOrderPersisted(t *testing.T) {
	f := newFixture(t)
	f.catalog.updateErr = errors.New("catalog offline")

	_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})

	require.Error(t, err)
	// No rollback: the order stays in the store for reconciliation.
	require.Len(t, f.orders.created, 1)
	_, findErr := f.orders.FindByID(context.Background(), f.orders.created[0].ID)
	assert.NoError(t, findErr)
}

func TestPlaceOrder_DistinctIDsInRequestOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items: []ItemRequest{
			{ProductID: "p2", Quantity: 1},
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 1},
		},
	})
	require.NoError(t, err)

	require.Len(t, f.catalog.findCalls, 1)
	assert.Equal(t, []string{"p2", "p1"}, f.catalog.findCalls[0])
}

func TestPlaceOrder_InputValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name  string
		input PlaceOrderInput
	}{
		{"empty customer", PlaceOrderInput{Items: []ItemRequest{{ProductID: "p1", Quantity: 1}}}},
		{"no items", PlaceOrderInput{CustomerID: "cust-1"}},
		{"empty product id", PlaceOrderInput{CustomerID: "cust-1", Items: []ItemRequest{{Quantity: 1}}}},
		{"zero quantity", PlaceOrderInput{CustomerID: "cust-1", Items: []ItemRequest{{ProductID: "p1"}}}},
		{"negative quantity", PlaceOrderInput{CustomerID: "cust-1", Items: []ItemRequest{{ProductID: "p1", Quantity: -2}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.PlaceOrder(context.Background(), tc.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Empty(t, f.orders.created)
	assert.Empty(t, f.catalog.adjustments)
}

func TestGet(t *testing.T) {
	f := newFixture(t)

	placed, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	got, err := f.service.Get(context.Background(), placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)

	_, err = f.service.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.service.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
