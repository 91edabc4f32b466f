// The authd binary runs the auth service standalone (microservice mode).
// It reaches user and token storage through the remote contracts when an
// admin internal base URL is configured, or directly when given a DSN.
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
	"github.com/andyeko/apisentinel/internal/httpx"
	"github.com/andyeko/apisentinel/internal/obs"
	"github.com/andyeko/apisentinel/internal/store/pg"
)

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		users  contract.UserDirectory
		tokens contract.RefreshTokenStore
		db     *sql.DB
	)
	if cfg.AdminInternalBase != "" {
		client := remote.NewClient(cfg.AdminInternalBase)
		users = remote.NewUserDirectory(client)
		tokens = remote.NewRefreshTokenStore(client)
	} else {
		db, err = pg.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		users = direct.NewUserDirectory(db)
		tokens = direct.NewRefreshTokenStore(db)
	}

	svc := authsvc.NewService(users, tokens, cfg.TokenConfig(),
		authsvc.WithDefaultAdmin(cfg.DefaultAdminEmail, cfg.DefaultAdminPassword))

	mux := http.NewServeMux()
	mux.Handle("/auth/", http.StripPrefix("/auth", svc.Routes()))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "authd"})
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           obs.Instrument(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("authd listening on %s", cfg.ListenAddr)

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
