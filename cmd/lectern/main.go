// Command lectern serves the Bible reading and study API: cached scripture
// with network fallback, streaming AI study chat with a daily free quota,
// the reading journal, and Stripe subscription billing.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern-app/lectern"
	"github.com/lectern-app/lectern/billing"
	"github.com/lectern-app/lectern/internal/config"
	"github.com/lectern-app/lectern/internal/server"
	"github.com/lectern-app/lectern/observer"
	"github.com/lectern-app/lectern/provider/gemini"
	"github.com/lectern-app/lectern/store/postgres"
	"github.com/lectern-app/lectern/store/sqlite"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[lectern] ")

	cfg := config.Load(os.Getenv("LECTERN_CONFIG"))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(ctx)
		if err != nil {
			log.Fatalf("observer init: %v", err)
		}
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(shutCtx); err != nil {
				log.Printf("observer shutdown: %v", err)
			}
		}()
	}

	store, journal, pool, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer store.Close() //nolint:errcheck
	if pool != nil {
		defer pool.Close()
	}

	var fetcher lectern.Fetcher = lectern.NewFetcher(
		lectern.FetcherBaseURL(cfg.Scripture.TextAPIBaseURL),
		lectern.FetcherRetries(cfg.Scripture.Retries),
		lectern.FetcherLogger(logger),
	)
	if inst != nil {
		fetcher = observer.WrapFetcher(fetcher, inst)
	}

	library := lectern.NewLibrary(store, fetcher,
		lectern.LibraryLogger(logger),
		lectern.LibraryBaseContext(ctx),
	)

	if err := seedBundledDataset(ctx, library, cfg.Scripture.DatasetPath); err != nil {
		log.Fatalf("seed dataset: %v", err)
	}

	var provider lectern.Provider = gemini.New(cfg.LLM.APIKey, cfg.LLM.Model,
		gemini.WithTemperature(cfg.LLM.Temperature),
		gemini.WithMaxOutputTokens(cfg.LLM.MaxOutputTokens),
	)
	provider = lectern.WithRetry(provider, lectern.RetryLogger(logger))
	if inst != nil {
		provider = observer.WrapProvider(provider, cfg.LLM.Model, inst)
	}

	limiter := lectern.NewLimiter(store,
		lectern.DailyLimit(cfg.LLM.DailyLimit),
		lectern.LimiterLogger(logger),
	)

	opts := []server.Option{server.WithLogger(logger)}
	if journal != nil {
		opts = append(opts, server.WithJournal(journal))
	}

	assistantOpts := []lectern.AssistantOption{lectern.AssistantLogger(logger)}
	if cfg.Billing.StripeSecretKey != "" {
		svc := newBilling(ctx, cfg, pool, logger)
		assistantOpts = append(assistantOpts, lectern.AssistantEntitlements(svc))
		opts = append(opts, server.WithBilling(svc))
	}

	assistant := lectern.NewAssistant(provider, limiter, assistantOpts...)

	srv := server.New(library, assistant, opts...)

	log.Printf("listening on %s", cfg.Server.Addr)
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
	log.Println("stopped")
}

// openStore picks the chapter store backend. Postgres serves deployments
// with a shared database; the default is a local SQLite file, which also
// carries the journal.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (lectern.Store, lectern.JournalStore, *pgxpool.Pool, error) {
	if cfg.Database.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.PostgresURL)
		if err != nil {
			return nil, nil, nil, err
		}
		store := postgres.New(pool)
		if err := store.Init(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return store, nil, pool, nil
	}

	store := sqlite.New(cfg.Database.Path, sqlite.WithLogger(logger))
	if err := store.Init(ctx); err != nil {
		return nil, nil, nil, err
	}
	return store, store, nil, nil
}

// seedBundledDataset loads the packaged KJV dataset into the store on
// first launch. A missing dataset file is not fatal; chapters fall back
// to the network.
func seedBundledDataset(ctx context.Context, library *lectern.Library, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("dataset %s not found, skipping offline seed", path)
			return nil
		}
		return err
	}
	defer f.Close() //nolint:errcheck

	return library.InitializeOffline(ctx, f, func(phase string) {
		log.Printf("offline setup: %s", phase)
	})
}

func newBilling(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) *billing.Service {
	var kv billing.KV = billing.NewMemoryKV()
	if pool != nil {
		pgkv := billing.NewPostgresKV(pool)
		if err := pgkv.Init(ctx); err != nil {
			log.Fatalf("billing kv init: %v", err)
		}
		kv = pgkv
	}
	return billing.New(
		cfg.Billing.StripeSecretKey,
		cfg.Billing.StripeWebhookSecret,
		cfg.Billing.StripePriceID,
		cfg.Server.AppURL,
		kv,
		billing.WithLogger(logger),
	)
}
