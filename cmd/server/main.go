package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/formyfuture/internal/auth"
	"github.com/mmynk/formyfuture/internal/config"
	"github.com/mmynk/formyfuture/internal/funding"
	"github.com/mmynk/formyfuture/internal/service"
	"github.com/mmynk/formyfuture/internal/storage"
	"github.com/mmynk/formyfuture/internal/storage/redisstore"
	"github.com/mmynk/formyfuture/internal/storage/sqlite"
	"github.com/mmynk/formyfuture/internal/telemetry"
	"github.com/mmynk/formyfuture/internal/transfer"
	"github.com/mmynk/formyfuture/pkg/logging"
)

const serviceName = "formyfuture"

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("formyfuture: %v", err)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, serviceName, telemetry.TracingOptions{
		Endpoint: cfg.OTelEndpoint,
		Enabled:  cfg.OTelEnabled,
	})
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	metrics := telemetry.NewMetrics()
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	admins := auth.NewAdminPolicy(cfg.AdminIDs)
	users := funding.NewUsers(store)
	ledger := funding.NewLedger(store)

	authenticator := auth.NewPasswordAuthenticator(store, admins, auth.WithAdminPasswordHashes(cfg.AdminPasswordHashes))

	mux := http.NewServeMux()
	service.Register(mux, service.Services{
		Auth:          service.NewAuthService(authenticator, jwtManager, users, slog.Default()),
		Proposals:     service.NewProposalService(funding.NewRegistry(store, admins), ledger, metrics),
		Contributions: service.NewContributionService(ledger, metrics),
		Settlements:   service.NewSettlementService(funding.NewSettler(store, newTransferrer(cfg)), metrics),
		Users:         service.NewUserService(users),
	}, service.HandlerOptions{
		JWT:      jwtManager,
		Observer: metrics,
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Connect server starting",
		"address", addr,
		"url", fmt.Sprintf("http://localhost%s", addr),
		"backend", cfg.StoreBackend,
		"admins", len(cfg.AdminIDs),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

// openStore opens the configured storage backend.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		store, err := redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", cfg.StoreBackend, "addr", cfg.RedisAddr)
		return store, nil
	default:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", cfg.StoreBackend, "database", cfg.DBPath)
		return store, nil
	}
}

// newTransferrer returns the payout client, or the in-process custody account
// when no payout service is configured.
func newTransferrer(cfg config.Config) transfer.Transferrer {
	if cfg.PayoutURL == "" {
		slog.Info("Payouts use in-process custody")
		return transfer.NewCustody()
	}
	slog.Info("Payouts use remote service", "url", cfg.PayoutURL, "timeout", cfg.PayoutTimeout)
	return transfer.NewRemote(&http.Client{Timeout: cfg.PayoutTimeout}, cfg.PayoutURL)
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, service.APIPrefix) || r.URL.Path == "/metrics" {
			return
		}
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, X-Error-Code")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
