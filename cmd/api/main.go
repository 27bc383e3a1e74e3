package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"github.com/backoffice-platform/returns-service/internal/api/handlers"
	"github.com/backoffice-platform/returns-service/internal/application"
	"github.com/backoffice-platform/returns-service/internal/domain"
	"github.com/backoffice-platform/returns-service/internal/infrastructure/exchangerate"
	"github.com/backoffice-platform/returns-service/internal/infrastructure/invoicexpress"
	"github.com/backoffice-platform/returns-service/internal/infrastructure/picklist"
	"github.com/backoffice-platform/returns-service/internal/infrastructure/shopify"
	"github.com/backoffice-platform/returns-service/pkg/logging"
	"github.com/backoffice-platform/returns-service/pkg/metrics"
	"github.com/backoffice-platform/returns-service/pkg/middleware"
	"github.com/backoffice-platform/returns-service/pkg/tracing"
)

const serviceName = "returns-service"

func main() {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting returns-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing - don't exit
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))
	businessMetrics := middleware.NewBusinessMetrics(m)
	logger.Info("Metrics initialized")

	// Policy profiles: built-ins plus optional overrides from file
	policies, err := domain.LoadPolicySet(config.PolicyFile)
	if err != nil {
		logger.WithError(err).Error("Failed to load policy profiles", "path", config.PolicyFile)
		os.Exit(1)
	}
	logger.Info("Policy profiles loaded", "profiles", policies.Names())

	// Storefront client
	storefront := shopify.NewClient(shopify.Config{
		StoreDomain: config.Shopify.StoreDomain,
		AccessToken: config.Shopify.AccessToken,
	}, logger, m)
	logger.Info("Storefront client initialized", "store", config.Shopify.StoreDomain)

	// Invoicing client, guarded by a circuit breaker
	invoicing := invoicexpress.NewClient(invoicexpress.Config{
		AccountDomain: config.InvoiceExpress.AccountDomain,
		APIKey:        config.InvoiceExpress.APIKey,
	}, logger, m)

	// Exchange rate client
	rates := exchangerate.NewClient(exchangerate.Config{
		APIKey: config.ExchangeRate.APIKey,
	}, logger, m)

	// Pick list CSV store
	picklistStore, err := picklist.NewStore(config.PicklistDir)
	if err != nil {
		logger.WithError(err).Error("Failed to open picklist store", "dir", config.PicklistDir)
		os.Exit(1)
	}

	// Application services
	composer := application.NewComposer(config.StoreName)
	reviewService := application.NewReviewService(storefront, policies, composer, logger, businessMetrics)
	picklistService := application.NewPicklistService(storefront, picklistStore, config.HomeCountry, logger, businessMetrics)
	invoiceBuilder := invoicexpress.NewBuilder(invoicexpress.BuilderConfig{
		SequenceID:       getEnv("INVOICE_SEQUENCE_ID", "DefaultSequence"),
		TaxExemptionCode: getEnv("INVOICE_TAX_EXEMPTION", "M05"),
		ExporterName:     getEnv("INVOICE_EXPORTER_NAME", "Hanse Pty Ltd"),
	}, nil)
	invoiceService := application.NewInvoiceService(
		storefront, invoicing, rates, invoiceBuilder,
		config.InvoiceBaseCurrency, config.InvoiceTargetCurrency,
		logger, businessMetrics,
	)
	catalogService := application.NewCatalogService(storefront, config.PublicDomain, logger)

	// Setup Gin router with middleware
	if getEnv("GIN_MODE", "") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Add tracing middleware
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	// Handle 404 and 405 errors
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return invoicing.Ping(pingCtx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes
	apiV1 := router.Group("/api/v1")

	handlers.NewReturnsHandlers(reviewService, logger).RegisterRoutes(apiV1)
	handlers.NewPicklistHandlers(picklistService, logger).RegisterRoutes(apiV1)
	handlers.NewInvoiceHandlers(invoiceService, logger).RegisterRoutes(apiV1)
	handlers.NewCatalogHandlers(catalogService, logger).RegisterRoutes(apiV1)

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr            string
	StoreName             string
	PublicDomain          string
	HomeCountry           string
	PolicyFile            string
	PicklistDir           string
	InvoiceBaseCurrency   string
	InvoiceTargetCurrency string
	Shopify               ShopifyConfig
	InvoiceExpress        InvoiceExpressConfig
	ExchangeRate          ExchangeRateConfig
}

// ShopifyConfig holds storefront API credentials
type ShopifyConfig struct {
	StoreDomain string
	AccessToken string
}

// InvoiceExpressConfig holds invoicing vendor credentials
type InvoiceExpressConfig struct {
	AccountDomain string
	APIKey        string
}

// ExchangeRateConfig holds exchange rate API credentials
type ExchangeRateConfig struct {
	APIKey string
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:            getEnv("SERVER_ADDR", ":8080"),
		StoreName:             getEnv("STORE_NAME", "Maison Nord"),
		PublicDomain:          getEnv("STORE_PUBLIC_DOMAIN", "maison-nord.com"),
		HomeCountry:           getEnv("PICKLIST_HOME_COUNTRY", "AU"),
		PolicyFile:            getEnv("POLICY_FILE", ""),
		PicklistDir:           getEnv("PICKLIST_DIR", "data/picklists"),
		InvoiceBaseCurrency:   getEnv("INVOICE_BASE_CURRENCY", "AUD"),
		InvoiceTargetCurrency: getEnv("INVOICE_TARGET_CURRENCY", "EUR"),
		Shopify: ShopifyConfig{
			StoreDomain: getEnv("SHOPIFY_STORE_DOMAIN", ""),
			AccessToken: getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		},
		InvoiceExpress: InvoiceExpressConfig{
			AccountDomain: getEnv("INVOICEXPRESS_ACCOUNT_DOMAIN", ""),
			APIKey:        getEnv("INVOICEXPRESS_API_KEY", ""),
		},
		ExchangeRate: ExchangeRateConfig{
			APIKey: getEnv("EXCHANGERATE_API_KEY", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
