package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AkremHaddad/Productivy-sub000/internal/api"
	"github.com/AkremHaddad/Productivy-sub000/internal/auth"
	"github.com/AkremHaddad/Productivy-sub000/internal/config"
	"github.com/AkremHaddad/Productivy-sub000/internal/domain"
	persistence "github.com/AkremHaddad/Productivy-sub000/internal/persistence/postgres"
	"github.com/AkremHaddad/Productivy-sub000/internal/scheduler"
	httptransport "github.com/AkremHaddad/Productivy-sub000/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	clock := quartz.NewReal()

	sessions := auth.Config{Secret: cfg.SessionSecret, Issuer: cfg.SessionIssuer, TTL: cfg.SessionTTL, Clock: clock}
	accounts := domain.NewAccounts(repo, clock)
	tracker := domain.NewTracker(repo, repo, clock, cfg.PresenceStaleAfter)
	summaries := domain.NewSummaries(repo, repo, repo, clock, cfg.SummaryCacheEnabled)
	projects := domain.NewProjects(repo, clock)
	boards := domain.NewBoards(repo, clock)

	heartbeat := scheduler.New(repo, clock, cfg.TickInterval, cfg.HeartbeatStaleAfter,
		scheduler.WithRetention(cfg.SampleRetention))
	heartbeat.Start(ctx)

	handler := api.NewHandler(accounts, tracker, summaries, projects, boards, sessions)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS for the browser client; credentials are required for the session cookie.
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(sessions, func(r *http.Request) bool {
		if strings.HasPrefix(r.URL.Path, "/api/auth/") {
			return true
		}
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  90 * time.Second,
	}, cors(logger(authMiddleware.Wrap(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("productivy backend listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	if err := heartbeat.Wait(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
}
