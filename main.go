package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appOrder "github.com/shopkit/storefront/internal/application/order"
	domcatalog "github.com/shopkit/storefront/internal/domain/catalog"
	domcustomer "github.com/shopkit/storefront/internal/domain/customer"
	domorder "github.com/shopkit/storefront/internal/domain/order"
	"github.com/shopkit/storefront/internal/infrastructure/id"
	"github.com/shopkit/storefront/internal/infrastructure/memory"
	obsinfra "github.com/shopkit/storefront/internal/infrastructure/observability"
	"github.com/shopkit/storefront/internal/infrastructure/observability/oteltrace"
	"github.com/shopkit/storefront/internal/infrastructure/observability/prometrics"
	"github.com/shopkit/storefront/internal/infrastructure/observability/telemetry"
	"github.com/shopkit/storefront/internal/infrastructure/observability/zaplogger"
	pgrepo "github.com/shopkit/storefront/internal/infrastructure/postgres"
	"github.com/shopkit/storefront/internal/observability"
	"github.com/shopkit/storefront/internal/pkg/logging"
	httppresentation "github.com/shopkit/storefront/internal/presentation/http"
)

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "storefront")
	env := getenvDefault("ENV", "dev")

	baseLogger := logging.MustNewLogger(serviceName, env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, serviceName, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		systemLogger.Fatal("tracing_init_failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	registry := prometrics.New(serviceName, "")
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: registry.Counter(
			string(observability.MUsecaseRequests), "Total number of use case invocations.",
			"use_case", "outcome"),
		observability.MHTTPRequests: registry.Counter(
			string(observability.MHTTPRequests), "Total number of HTTP requests.",
			"method", "route", "status"),
		observability.MExternalRequests: registry.Counter(
			string(observability.MExternalRequests), "Total number of calls to external peers.",
			"peer", "endpoint", "outcome"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: registry.Histogram(
			string(observability.MUsecaseDuration), "Duration of use case execution in seconds.",
			prometheus.DefBuckets, "use_case"),
		observability.MHTTPRequestDuration: registry.Histogram(
			string(observability.MHTTPRequestDuration), "Duration of HTTP requests in seconds.",
			prometheus.DefBuckets, "method", "route", "status"),
		observability.MExternalRequestDuration: registry.Histogram(
			string(observability.MExternalRequestDuration), "Duration of calls to external peers in seconds.",
			prometheus.DefBuckets, "peer", "endpoint"),
	}
	obs := obsinfra.New(oteltrace.New(serviceName), zaplogger.Wrap(baseLogger), counters, histograms)

	var (
		customerRepo domcustomer.Repository
		productRepo  domcatalog.Repository
		orderRepo    domorder.Repository
	)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			systemLogger.Fatal("db_open_failed", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		if err := pgrepo.EnsureSchema(db); err != nil {
			systemLogger.Fatal("db_schema_failed", zap.Error(err))
		}
		customerRepo = pgrepo.NewCustomerRepository(db)
		productRepo = pgrepo.NewProductRepository(db)
		orderRepo = pgrepo.NewOrderRepository(db)
		systemLogger.Info("storage_ready", zap.String("backend", "postgres"))
	} else {
		customers := memory.NewCustomerRepository()
		products := memory.NewProductRepository()
		if err := seedDemoData(ctx, customers, products); err != nil {
			systemLogger.Fatal("seed_failed", zap.Error(err))
		}
		customerRepo = customers
		productRepo = products
		orderRepo = memory.NewOrderRepository()
		systemLogger.Info("storage_ready", zap.String("backend", "memory"))
	}

	orderService := appOrder.NewService(orderRepo, customerRepo, productRepo, id.NewUUIDGenerator(), obs)

	handler := httppresentation.NewHandler(orderService, obs.Logger(), obs)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    getenvDefault("HTTP_ADDR", ":8080"),
		Handler: mux,
	}

	go func() {
		systemLogger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
}

// seedDemoData loads a small fixture set so the memory-backed mode is usable
// out of the box.
func seedDemoData(ctx context.Context, customers *memory.CustomerRepository, products *memory.ProductRepository) error {
	demoCustomers := []struct{ id, name, email string }{
		{"cust-1", "Ada Lovelace", "ada@example.com"},
		{"cust-2", "Alan Turing", "alan@example.com"},
	}
	for _, c := range demoCustomers {
		entity, err := domcustomer.New(c.id, c.name, c.email)
		if err != nil {
			return err
		}
		if err := customers.Save(ctx, entity); err != nil {
			return err
		}
	}

	demoProducts := []struct {
		id, name  string
		unitPrice int64
		quantity  int
	}{
		{"p1", "Mechanical Keyboard", 8900, 25},
		{"p2", "USB-C Cable", 1200, 100},
		{"p3", "Monitor Stand", 4500, 10},
	}
	for _, p := range demoProducts {
		entity, err := domcatalog.NewProduct(p.id, p.name, p.unitPrice, p.quantity)
		if err != nil {
			return err
		}
		if err := products.Save(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
