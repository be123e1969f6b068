package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"assetdesk.org/internal/auth"
	"assetdesk.org/internal/config"
	"assetdesk.org/internal/httpapi"
	"assetdesk.org/internal/inventory"
	"assetdesk.org/internal/migrate"
	"assetdesk.org/internal/obs"
	"assetdesk.org/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer closeStore()

	tokens, err := auth.NewTokenService(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.Auth.Issuer)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	svc := inventory.NewServices(store, tokens, cfg.Auth.AccessTokenTTL.Duration)

	if admin := cfg.BootstrapAdmin; admin.Enabled() {
		u, created, err := svc.Users.EnsureAdmin(ctx, admin.Username, admin.Email, admin.Password)
		if err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
		if created {
			obs.Info("bootstrap admin created", map[string]any{"username": u.Username, "id": u.ID})
		}
	}

	proxies, err := cfg.HTTP.TrustedPrefixes()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	api := httpapi.New(svc, store, tokens, httpapi.Options{
		Version:        version,
		AuthRequired:   cfg.Auth.Required,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		LoginBurst:     cfg.LoginRate.Burst,
		LoginPerSecond: cfg.LoginRate.PerSecond,
		TrustedProxies: proxies,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		obs.Info("http listening", map[string]any{"addr": srv.Addr, "version": version})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		httpapi.NewHealthServer(store).Register(grpcSrv)
		go func() {
			obs.Info("grpc listening", map[string]any{"addr": cfg.GRPCAddr})
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errc <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		obs.Info("shutting down", nil)
	case err := <-errc:
		obs.Error("server failed", map[string]any{"err": err})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obs.Warn("http shutdown", map[string]any{"err": err})
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	obs.Info("stopped", nil)
}

// openStore returns the Postgres store, or the in-memory one in dev mode.
// With database.auto_migrate the embedded migrations and seeds run first.
func openStore(ctx context.Context, cfg config.Config) (inventory.Store, func(), error) {
	if cfg.Database.InMemory {
		obs.Warn("using in-memory store; data is lost on exit", nil)
		return inventory.NewInMemory(), func() {}, nil
	}
	dsn := cfg.DSN()
	store, err := pg.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		url, err := migrate.URL(dsn)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		mgr := migrate.NewManager(store.DB(), url)
		if err := mgr.Up(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		if err := mgr.Seed(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		obs.Info("migrations applied", nil)
	}
	return store, func() { _ = store.Close() }, nil
}
