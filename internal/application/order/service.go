package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcatalog "github.com/shopkit/storefront/internal/domain/catalog"
	domcustomer "github.com/shopkit/storefront/internal/domain/customer"
	domain "github.com/shopkit/storefront/internal/domain/order"
	"github.com/shopkit/storefront/internal/observability"
	"github.com/shopkit/storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService      = "order-service"
	useCasePlaceOrder = "order.place"
	spanPrefix        = "UC."

	catalogPeer            = "catalog"
	endpointUpdateQuantity = "catalog.update_quantity"
)

var (
	ErrNotFound     = domain.ErrNotFound
	ErrInvalidInput = errors.New("order: invalid input")
	ErrRepository   = errors.New("order: repository failure")
)

// Service orchestrates order placement: it resolves the customer and the
// requested products, validates the request against catalog state, snapshots
// prices, persists the order, and decrements inventory in one batch.
type Service struct {
	orders      domain.Repository
	customers   domcustomer.Repository
	catalog     domcatalog.Repository
	idGenerator IDGenerator
	tel         observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewService(
	orders domain.Repository,
	customers domcustomer.Repository,
	catalog domcatalog.Repository,
	idGen IDGenerator,
	tel observability.Observability,
) *Service {
	baseLog := observability.NopLogger()
	if tel != nil {
		baseLog = tel.Logger()
	}
	baseLog = baseLog.With(observability.F("service", orderService))

	metricsProvider := observability.NopMetrics()
	if tel != nil {
		metricsProvider = tel.Metrics()
	}
	if tel == nil {
		tel = observability.Nop()
	}

	return &Service{
		orders:       orders,
		customers:    customers,
		catalog:      catalog,
		idGenerator:  idGen,
		tel:          tel,
		log:          baseLog,
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

type ItemRequest struct {
	ProductID string
	Quantity  int
}

type PlaceOrderInput struct {
	CustomerID string
	Items      []ItemRequest
}

// PlaceOrder executes the placement workflow. Checks run in a fixed order and
// short-circuit on the first failure: customer, catalog result, product
// existence, stock. No order is created and no inventory is touched unless
// every check passes. Once the order is persisted the inventory decrement is
// attempted exactly once; there is no compensating rollback.
func (s *Service) PlaceOrder(ctx context.Context, cmd PlaceOrderInput) (_ *domain.Order, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCasePlaceOrder))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"PlaceOrder",
		attribute.String("use_case", useCasePlaceOrder),
		attribute.String("order.customer_id", cmd.CustomerID),
		attribute.Int("order.item_count", len(cmd.Items)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var orderID string

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		if s.reqCounter != nil {
			s.reqCounter.Add(1,
				observability.L("use_case", useCasePlaceOrder),
				observability.L("outcome", outcome),
			)
		}
		if s.durHistogram != nil {
			s.durHistogram.Observe(lat, observability.L("use_case", useCasePlaceOrder))
		}

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if orderID != "" {
			fields = append(fields, observability.F("order_id", orderID))
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}

		logger.Info("use_case_done", fields...)
	}()

	if cmd.CustomerID == "" {
		outcome, statusText = "error", "CUSTOMER_ID_REQUIRED"
		return nil, newValidation("customer id is required")
	}
	if len(cmd.Items) == 0 {
		outcome, statusText = "error", "ITEMS_REQUIRED"
		return nil, newValidation("at least one item is required")
	}
	for _, it := range cmd.Items {
		if it.ProductID == "" {
			outcome, statusText = "error", "PRODUCT_ID_REQUIRED"
			return nil, newValidation("product id is required")
		}
		if it.Quantity <= 0 {
			outcome, statusText = "error", "QUANTITY_INVALID"
			return nil, newValidation("quantity must be greater than zero")
		}
	}
	if err := ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}

	if _, err := s.customers.FindByID(ctx, cmd.CustomerID); err != nil {
		if errors.Is(err, domcustomer.ErrNotFound) {
			outcome, statusText = "error", "CUSTOMER_NOT_FOUND"
			return nil, domain.ErrCustomerNotFound
		}
		outcome, statusText = "error", "CUSTOMER_LOOKUP_FAILED"
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	products, err := s.catalog.FindAllByID(ctx, distinctProductIDs(cmd.Items))
	if err != nil {
		outcome, statusText = "error", "CATALOG_LOOKUP_FAILED"
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	if len(products) == 0 {
		outcome, statusText = "error", "NO_PRODUCTS_FOUND"
		return nil, domain.ErrNoProductsFound
	}

	// Catalog snapshot for this placement. Prices and quantities below are
	// read from here, never from a fresh lookup.
	byID := make(map[string]*domcatalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Existence and stock checks report the first offender in request order.
	for _, it := range cmd.Items {
		if _, ok := byID[it.ProductID]; !ok {
			outcome, statusText = "error", "PRODUCT_NOT_FOUND"
			return nil, &domain.ProductNotFoundError{ProductID: it.ProductID}
		}
	}
	for _, it := range cmd.Items {
		if it.Quantity > byID[it.ProductID].Quantity {
			outcome, statusText = "error", "INSUFFICIENT_STOCK"
			return nil, &domain.InsufficientStockError{ProductID: it.ProductID, Requested: it.Quantity}
		}
	}

	lineItems := make([]domain.LineItem, 0, len(cmd.Items))
	for _, it := range cmd.Items {
		lineItems = append(lineItems, domain.LineItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: byID[it.ProductID].UnitPrice,
		})
	}

	orderID = s.idGenerator.NewID()
	entity, derr := domain.New(orderID, cmd.CustomerID, lineItems)
	if derr != nil {
		outcome, statusText = "error", "DOMAIN_CONSTRUCTION_FAILED"
		return nil, fmt.Errorf("order: construct: %w", derr)
	}
	if err := ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}

	created, err := s.orders.Create(ctx, entity)
	if err != nil {
		outcome, statusText = "error", "REPO_CREATE_FAILED"
		return nil, wrapRepositoryError(err)
	}

	// The persisted line items, not the request, drive the decrement so any
	// normalization done by the store is respected.
	adjustments := make([]domcatalog.QuantityAdjustment, 0, len(created.LineItems))
	for _, li := range created.LineItems {
		snapshot, ok := byID[li.ProductID]
		if !ok {
			outcome, statusText = "error", "PERSISTED_LINE_UNKNOWN_PRODUCT"
			return nil, fmt.Errorf("order: persisted line item references unknown product %q", li.ProductID)
		}
		adjustments = append(adjustments, domcatalog.QuantityAdjustment{
			ProductID:   li.ProductID,
			NewQuantity: snapshot.Quantity - li.Quantity,
		})
	}

	if err := s.updateQuantities(ctx, adjustments); err != nil {
		// The order is already persisted; surface the failure without rolling
		// back so the caller can reconcile.
		outcome, statusText = "error", "INVENTORY_ADJUST_FAILED"
		logger.Error("inventory_adjust_failed_order_persisted",
			observability.F("order_id", created.ID),
			observability.F("error", err.Error()),
		)
		return nil, fmt.Errorf("order: adjust inventory: %w", err)
	}

	span.SetAttributes(attribute.Int64("order.total_cents", created.Total()))
	span.AddEvent("order.placed",
		trace.WithAttributes(attribute.String("order.id", created.ID)),
	)

	return created, nil
}

// updateQuantities issues the single batch decrement, instrumented as an
// external call against the catalog peer.
func (s *Service) updateQuantities(ctx context.Context, adjustments []domcatalog.QuantityAdjustment) error {
	start := time.Now()
	callOutcome := "success"

	err := s.catalog.UpdateQuantity(ctx, adjustments)
	if err != nil {
		callOutcome = "error"
	}

	if s.extCounter != nil {
		s.extCounter.Add(1,
			observability.L("peer", catalogPeer),
			observability.L("endpoint", endpointUpdateQuantity),
			observability.L("outcome", callOutcome),
		)
	}
	if s.extHistogram != nil {
		s.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", catalogPeer),
			observability.L("endpoint", endpointUpdateQuantity),
		)
	}
	return err
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, newValidation("order id is required")
	}
	found, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return found, nil
}

func distinctProductIDs(items []ItemRequest) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, domain.ErrConflict):
		return domain.ErrConflict
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}

func newValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
