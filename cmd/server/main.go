package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/adapters/quoteevents"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/adapters/sqlite"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/ports"
	appservices "github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/services"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/carriers"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/carriers/fixed"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/carriers/freightapi"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/carriers/ssw"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/config"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/db"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/observability"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/server"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/server/routes"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/webhooks/yampi"
	"github.com/MercadinhoDaBisa/pajucara-middleware/pkg/eventpublisher"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := observability.NewLogger(os.Stdout, cfg.Server.LogLevel, cfg.IsLocalDevelopment())
	slog.SetDefault(log)

	if cfg.Webhook.Secret == "" {
		slog.Warn("YAMPI_SECRET_TOKEN not set, every quote request will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.SetupTelemetry(ctx, log, observability.TelemetryConfig{
		Enabled:           cfg.Observability.Enabled,
		Environment:       cfg.Environment,
		QuoteMode:         cfg.Quoting.Mode,
		OTLPEndpoint:      cfg.Observability.OTLPEndpoint,
		OTLPTraceHeaders:  cfg.Observability.OTLPTraceHeaders,
		OTLPMetricHeaders: cfg.Observability.OTLPMetricHeaders,
		ServiceName:       cfg.Observability.ServiceName,
		ServiceVer:        cfg.Observability.ServiceVer,
		SamplingRatio:     cfg.Observability.SamplingRatio,
		MetricsConsole:    cfg.Observability.MetricsConsole,
		MetricInterval:    cfg.Observability.MetricInterval,
		CarrierTimeout:    cfg.Quoting.CarrierTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	registered := buildCarriers(cfg, log)
	names := make([]string, 0, len(registered))
	for _, carrier := range registered {
		names = append(names, carrier.Name())
	}
	if len(registered) == 0 {
		slog.Warn("No carriers enabled, quote requests will return an empty list")
	}

	quoteCfg := appservices.QuoteServiceConfig{
		CarrierTimeout:      cfg.Quoting.CarrierTimeout,
		PlaceholderDocument: cfg.Quoting.DefaultRecipientDocument,
		PublishTimeout:      cfg.Events.Timeout,
	}
	var sinks []ports.QuoteEventPublisher
	if cfg.Ledger.Path != "" {
		database, err := db.New(cfg.Ledger.Path)
		if err != nil {
			return fmt.Errorf("failed to open quote ledger: %w", err)
		}
		defer func() {
			for _, stat := range database.QueryLatencyStats() {
				slog.Debug("Ledger query latency", "query", stat.Name, "count", stat.Count, "p50", stat.P50, "p95", stat.P95, "max", stat.Max)
			}
			if err := database.Close(); err != nil {
				slog.Error("Failed to close quote ledger", "error", err)
			}
		}()
		sinks = append(sinks, sqlite.NewQuoteLedger(database))
	}
	if cfg.Events.Endpoint != "" {
		sinks = append(sinks, quoteevents.NewPublisher(log, eventpublisher.Client{
			Endpoint:   cfg.Events.Endpoint,
			Timeout:    cfg.Events.Timeout,
			HTTPClient: observability.NewOutboundClient(cfg.Events.Timeout, cfg.Observability.Enabled),
		}))
	}
	quoteCfg.Publisher = quoteevents.Combine(sinks...)
	quoteService := appservices.NewQuoteService(log, yampi.NewVerifier(cfg.Webhook.Secret), registered, quoteCfg)

	banner := routes.DefaultBanner
	if cfg.IsFixedMode() {
		banner += " (Modo de Teste)"
	}

	srv := server.New(log, server.Options{
		ServiceName: cfg.Observability.ServiceName,
		Tracing:     cfg.Observability.Enabled,
	})
	srv.RegisterRouter(routes.NewQuoteRoutes(log, quoteService, banner))

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("Starting server", "port", cfg.Server.Port, "mode", cfg.Quoting.Mode, "carriers", names)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return <-errCh
}

func buildCarriers(cfg config.Config, log *slog.Logger) []ports.Carrier {
	if cfg.IsFixedMode() {
		return []ports.Carrier{fixed.New(cfg.Quoting.FixedQuotes)}
	}

	opts := carriers.Options{
		HTTPClient: observability.NewOutboundClient(cfg.Quoting.CarrierTimeout, cfg.Observability.Enabled),
		Logger:     log,
	}
	var out []ports.Carrier
	if cfg.SSW.Enabled {
		out = append(out, ssw.New(cfg.SSW, cfg.Quoting.OriginZipcode, opts)...)
	}
	if cfg.FreightAPI.Enabled {
		out = append(out, freightapi.New(cfg.FreightAPI, cfg.Quoting.OriginZipcode, opts))
	}
	return out
}

func main() {
	if err := Run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
