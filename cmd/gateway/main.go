// The gateway binary fronts every service. Depending on the deployment
// descriptor it serves the auth endpoints in-process (monolith mode) or
// proxies them to a standalone auth service (microservice mode).
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andyeko/apisentinel/internal/authsvc"
	"github.com/andyeko/apisentinel/internal/config"
	"github.com/andyeko/apisentinel/internal/contract"
	"github.com/andyeko/apisentinel/internal/contract/direct"
	"github.com/andyeko/apisentinel/internal/contract/remote"
	"github.com/andyeko/apisentinel/internal/gateway"
	"github.com/andyeko/apisentinel/internal/obs"
	"github.com/andyeko/apisentinel/internal/store/pg"
)

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	routes, db, err := buildRoutes(cfg)
	if err != nil {
		log.Fatalf("wiring: %v", err)
	}

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: gateway.NewServer(gateway.Config{
			Token:         cfg.TokenConfig(),
			AuthPrefix:    "/auth",
			APIKey:        cfg.APIKey,
			RatePerSecond: cfg.RatePerSecond,
			RateBurst:     cfg.RateBurst,
			Routes:        routes,
		}).Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("gateway listening on %s", cfg.ListenAddr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("stopped")
}

// buildRoutes resolves the deployment descriptor into the gateway route
// table, opening the database only when some route needs direct storage.
func buildRoutes(cfg config.Config) ([]gateway.Route, *sql.DB, error) {
	var (
		routes []gateway.Route
		db     *sql.DB
		err    error
	)

	if cfg.AuthMode == config.ModeProxy {
		routes = append(routes, gateway.Route{
			BasePath: "/auth",
			Mode:     gateway.ModeProxy,
			Upstream: cfg.AuthUpstream,
		})
	} else {
		var (
			users  contract.UserDirectory
			tokens contract.RefreshTokenStore
		)
		if cfg.AdminInternalBase != "" {
			client := remote.NewClient(cfg.AdminInternalBase)
			users = remote.NewUserDirectory(client)
			tokens = remote.NewRefreshTokenStore(client)
		} else {
			db, err = pg.Open(cfg.DatabaseDSN)
			if err != nil {
				return nil, nil, err
			}
			users = direct.NewUserDirectory(db)
			tokens = direct.NewRefreshTokenStore(db)
		}
		svc := authsvc.NewService(users, tokens, cfg.TokenConfig(),
			authsvc.WithDefaultAdmin(cfg.DefaultAdminEmail, cfg.DefaultAdminPassword))
		routes = append(routes, gateway.Route{
			BasePath: "/auth",
			Mode:     gateway.ModeEmbedded,
			Handler:  http.StripPrefix("/auth", svc.Routes()),
		})
	}

	if cfg.AdminMode == config.ModeProxy {
		routes = append(routes, gateway.Route{
			BasePath: "/admin",
			Mode:     gateway.ModeProxy,
			Upstream: cfg.AdminUpstream,
			// Admin upstreams mount their routes at the root.
			StripPrefix: true,
		})
	}

	return routes, db, nil
}
