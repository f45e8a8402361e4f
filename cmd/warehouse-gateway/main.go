package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beluma/warehouse-gateway/internal/api"
	"github.com/beluma/warehouse-gateway/internal/audit"
	"github.com/beluma/warehouse-gateway/internal/authz"
	"github.com/beluma/warehouse-gateway/internal/config"
	"github.com/beluma/warehouse-gateway/internal/storage"
	"github.com/beluma/warehouse-gateway/internal/warehouse"
)

func main() {
	cfg := config.Parse()

	// Configure logging format.
	var logHandler slog.Handler
	if cfg.LogFormat == "text" {
		logHandler = slog.NewTextHandler(os.Stdout, nil)
	} else {
		logHandler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(logHandler))

	// Disable audit logging if configured.
	if !cfg.AuditLogs {
		audit.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Tenancy policy: flags first, the optional policy file overrides.
	superAdminDomains := config.SplitList(cfg.SuperAdminDomains)
	superAdminScopes := config.SplitList(cfg.SuperAdminScopes)
	publicPaths := config.SplitList(cfg.PublicPaths)
	if cfg.AccessPolicyPath != "" {
		policy, err := authz.LoadAccessPolicy(cfg.AccessPolicyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load access policy: %v\n", err)
			os.Exit(1)
		}
		if len(policy.SuperAdminDomains) > 0 {
			superAdminDomains = policy.SuperAdminDomains
		}
		if len(policy.SuperAdminScopes) > 0 {
			superAdminScopes = policy.SuperAdminScopes
		}
		if len(policy.PublicPaths) > 0 {
			publicPaths = policy.PublicPaths
		}
		slog.Info("access policy loaded", "path", cfg.AccessPolicyPath)
	}

	// Open the directory store.
	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}

	// Token verifier per auth mode.
	var verifier authz.TokenVerifier
	switch cfg.AuthMode {
	case "oidc":
		v, err := authz.NewOIDCVerifier(context.Background(), authz.OIDCVerifierConfig{
			Issuer:   cfg.OIDCIssuer,
			ClientID: cfg.OIDCClientID,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create OIDC verifier: %v\n", err)
			os.Exit(1)
		}
		verifier = v
		slog.Info("auth mode: oidc", "issuer", cfg.OIDCIssuer, "client_id", cfg.OIDCClientID)
	case "jwt":
		v, err := authz.NewJWTVerifier(authz.JWTVerifierConfig{
			SigningKey: cfg.JWTSigningKey,
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create JWT verifier: %v\n", err)
			os.Exit(1)
		}
		verifier = v
		slog.Info("auth mode: jwt", "issuer", cfg.JWTIssuer, "audience", cfg.JWTAudience)
	}

	policy := authz.NewSuperAdminPolicy(superAdminDomains, superAdminScopes, cfg.DefaultScope)
	directory := authz.NewDirectory(store)
	cache := authz.NewIdentityCache(cfg.CacheSize, cfg.CacheTTL)
	gateway := authz.NewGateway(verifier, policy, directory, cache, cfg.CallTimeout)

	// Identity cache gauges for the metrics endpoint.
	api.RegisterIdentityCacheGauges(
		func() float64 { return float64(cache.Stats().Size) },
		func() float64 { return float64(cache.Stats().Hits) },
		func() float64 { return float64(cache.Stats().Misses) },
	)

	// Warehouse client over application default credentials.
	wh, err := warehouse.NewBigQueryClient(context.Background(), warehouse.BigQueryConfig{
		MaxResults: cfg.WarehouseMaxResults,
		JobTimeout: cfg.WarehouseJobTimeout.Milliseconds(),
		PingScope:  cfg.DefaultScope,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create warehouse client: %v\n", err)
		os.Exit(1)
	}

	srv := api.NewServer(gateway, store, wh, cfg.DefaultScope,
		api.WithPublicPaths(publicPaths),
		api.WithQueryTimeout(cfg.WarehouseJobTimeout),
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig.String())

		// Give in-flight requests 30 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
		close(done)
	}()

	slog.Info("warehouse gateway starting",
		"addr", cfg.Addr,
		"default_scope", cfg.DefaultScope,
		"cache_ttl", cfg.CacheTTL,
		"cache_size", cfg.CacheSize,
	)

	if cfg.TLS {
		err = httpServer.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	} else {
		err = httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// Wait for shutdown to complete.
	<-done

	store.Close()
	slog.Info("shutdown complete")
}
