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

	"ldtt.org/internal/auth"
	"ldtt.org/internal/config"
	"ldtt.org/internal/httpapi"
	"ldtt.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.PGDSN == "" {
		log.Fatal("missing DSN: set LDTT_PG_DSN")
	}
	db, err := sql.Open("pgx", cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	accounts := auth.NewPGAccountStore(db)

	// The denylist lives in Redis when an address is configured; Redis TTLs
	// purge expired entries without a housekeeping job.
	var revoked auth.InvalidatedTokenStore = auth.NewPGInvalidatedTokenStore(db)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		revoked = auth.NewRedisInvalidatedTokenStore(rdb)
	}

	codec, err := auth.NewCodec(auth.CodecConfig{
		Secret:              []byte(cfg.SignerKey),
		Issuer:              cfg.Issuer,
		ValidDuration:       cfg.Valid(),
		RefreshableDuration: cfg.Refreshable(),
	}, revoked)
	if err != nil {
		log.Fatalf("codec: %v", err)
	}
	svc, err := auth.NewService(accounts, revoked, codec)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, svc)
	api.SetRateLimit(cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting ldtt-auth %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Println("Stopped")
}
