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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"authgate.org/internal/auth"
	"authgate.org/internal/httpapi"
	"authgate.org/internal/obs"
	"authgate.org/internal/ratelimit"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version)

	secret := os.Getenv("AUTHGATE_AUTH_SECRET")
	if secret == "" {
		log.Fatal("AUTHGATE_AUTH_SECRET is required")
	}

	tokens, err := auth.NewTokenManager(secret,
		auth.WithIssuer("authgate"),
		auth.WithTTL(envDuration("AUTHGATE_TOKEN_TTL", 24*time.Hour)),
	)
	if err != nil {
		log.Fatalf("token manager: %v", err)
	}

	// Postgres is the authoritative store when a DSN is configured;
	// otherwise everything lives in process memory (dev mode).
	var (
		db      *sql.DB
		users   auth.UserStore
		revoked auth.RevocationStore
		limiter ratelimit.Limiter
	)
	if dsn := os.Getenv("AUTHGATE_PG_DSN"); dsn != "" {
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		users = auth.NewPGUserStore(db)
		revoked = auth.NewPGRevocationStore(db)
	} else {
		users = auth.NewMemoryUserStore()
		revoked = auth.NewMemoryRevocationStore()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis, when configured, carries the revocation entries and the tier
	// counters so restarts do not forget either.
	if addr := os.Getenv("AUTHGATE_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		revoked = auth.NewRedisRevocationStore(client)
		limiter = ratelimit.NewRedisLimiter(client)
	} else {
		mem := ratelimit.NewMemoryLimiter()
		mem.StartSweep(ctx, time.Minute)
		limiter = mem
	}

	svc := auth.NewService(users, revoked, tokens)
	svc.StartPurgeLoop(ctx, envDuration("AUTHGATE_PURGE_INTERVAL", 24*time.Hour))

	api := httpapi.New(httpapi.Config{
		Service:    svc,
		Limiter:    limiter,
		ReadyProbe: httpapi.ReadyProbe{DB: db},
		Version:    version,
	})

	srv := &http.Server{
		Addr:              envString("AUTHGATE_ADDR", ":8080"),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting authgate-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Fatalf("%s: invalid duration %q", key, raw)
	}
	return d
}
