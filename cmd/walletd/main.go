// walletd is the wallet daemon: JSON/HTTP API plus the scheduled
// withdrawal sweep. Configuration comes from the environment, optionally
// seeded from a .env file.
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/brwallet/pix-wallet-go/internal/platform/audit"
	"github.com/brwallet/pix-wallet-go/internal/platform/auth"
	"github.com/brwallet/pix-wallet-go/internal/platform/clock"
	"github.com/brwallet/pix-wallet-go/internal/platform/notify"
	"github.com/brwallet/pix-wallet-go/internal/platform/server"
	"github.com/brwallet/pix-wallet-go/internal/platform/store/memory"
	"github.com/brwallet/pix-wallet-go/internal/platform/store/postgres"
	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpAddr := envOr("WALLET_HTTP_ADDR", ":8080")
	databaseURL := envOr("WALLET_DATABASE_URL", "")
	redisAddr := envOr("WALLET_REDIS_ADDR", "")
	kafkaBrokers := envOr("WALLET_KAFKA_BROKERS", "")
	kafkaTopic := envOr("WALLET_KAFKA_TOPIC", "withdraw_processed")
	jwtSecret := envOr("WALLET_JWT_SECRET", "dev-insecure-change-me")
	tokenTTL := envDurationOr("WALLET_TOKEN_TTL", time.Hour)
	sweepInterval := envDurationOr("WALLET_SWEEP_INTERVAL", time.Minute)
	rateRPS := envFloatOr("WALLET_RATE_RPS", 20)
	rateBurst := envIntOr("WALLET_RATE_BURST", 40)

	clk := clock.RealClock{}
	trail := audit.NewTrail()

	var ledger wallet.Ledger
	var records wallet.WithdrawStore
	if databaseURL != "" {
		db, err := sql.Open("pgx", databaseURL)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("ping database: %v", err)
		}
		defer db.Close()
		store := postgres.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		ledger = store
		records = store
	} else {
		log.Printf("no database configured, using in-memory store")
		store := memory.NewStore()
		ledger = store
		records = store
	}

	var blacklist auth.Blacklist
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("ping redis: %v", err)
		}
		defer client.Close()
		blacklist = auth.NewRedisBlacklist(client, clk)
	} else {
		blacklist = auth.NewMemoryBlacklist(clk)
	}

	var notifier wallet.Notifier
	if kafkaBrokers != "" {
		kn := notify.NewKafkaNotifier(strings.Split(kafkaBrokers, ","), kafkaTopic)
		defer kn.Close()
		notifier = kn
	} else {
		notifier = notify.NewLogNotifier(log.Printf)
	}

	metrics := server.NewMetrics(nil)

	engine := wallet.NewEngine(ledger, records, wallet.NewValidator(nil), trail, clk,
		wallet.WithNotifier(notifier),
		wallet.WithLogger(log.Printf),
		wallet.WithObserver(metrics.ObserveWithdraw),
	)
	accounts := wallet.NewAccounts(ledger, trail, clk)

	signer := auth.NewSigner(jwtSecret, tokenTTL, clk)
	creds, err := parseUsers(envOr("WALLET_USERS", ""))
	if err != nil {
		log.Fatalf("parse WALLET_USERS: %v", err)
	}
	if len(creds) == 0 {
		log.Printf("WALLET_USERS is empty, every login will be rejected")
	}
	authSvc := auth.NewService(signer, blacklist, creds, clk, auth.WithTrail(trail))

	sweep := wallet.NewSweep(engine, records, clk,
		wallet.SweepLogger(log.Printf),
		wallet.SweepObserver(func(res wallet.SweepResult) {
			metrics.ObserveSweep(res, clk.Now().UTC().Unix())
		}),
	)
	sweep.Start(ctx, sweepInterval)

	srv := server.New(accounts, engine, authSvc,
		server.WithLogger(log.Printf),
		server.WithMetrics(metrics),
		server.WithRateLimit(rateRPS, rateBurst),
	)
	httpServer := &http.Server{Addr: httpAddr, Handler: srv.Handler()}

	go func() {
		log.Printf("http listening on %s", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

// parseUsers reads "id:email:bcrypt-hash" triples separated by semicolons.
func parseUsers(raw string) ([]auth.Credential, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	entries := strings.Split(raw, ";")
	creds := make([]auth.Credential, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, errMalformedUser(entry)
		}
		creds = append(creds, auth.Credential{
			UserID:       parts[0],
			Email:        parts[1],
			PasswordHash: parts[2],
		})
	}
	return creds, nil
}

type errMalformedUser string

func (e errMalformedUser) Error() string {
	return "malformed user entry (want id:email:hash): " + string(e)
}

func envOr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("parse %s: %v", key, err)
	}
	return d
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("parse %s: %v", key, err)
	}
	return n
}

func envFloatOr(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("parse %s: %v", key, err)
	}
	return f
}
