// The admind binary serves the internal service-to-service API over the
// direct contracts. Bind it to an internal listener only; the gateway
// never publishes these routes.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andyeko/apisentinel/internal/admin"
	"github.com/andyeko/apisentinel/internal/config"
	"github.com/andyeko/apisentinel/internal/contract/direct"
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
	if cfg.DatabaseDSN == "" {
		log.Fatal("SENTINEL_PG_DSN is required")
	}

	db, err := pg.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	api := admin.New(direct.NewUserDirectory(db), direct.NewRefreshTokenStore(db))

	mux := http.NewServeMux()
	mux.Handle("/internal/", api.Routes())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "admind"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.Ping(r.Context(), db); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           obs.Instrument(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("admind listening on %s", cfg.ListenAddr)

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
	_ = db.Close()
	log.Println("stopped")
}
