package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/access"
	"ledgerbot/internal/bot"
	"ledgerbot/internal/bot/telegram"
	"ledgerbot/internal/conversation"
	dirstore "ledgerbot/internal/directory/store"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/ledger/sheets"
	"ledgerbot/internal/notify"
	"ledgerbot/internal/platform/config"
	"ledgerbot/internal/platform/httpserver"
	"ledgerbot/internal/platform/logger"
	"ledgerbot/internal/platform/metrics"
	"ledgerbot/internal/platform/postgres"
	"ledgerbot/internal/platform/redis"
	"ledgerbot/internal/registration"
	"ledgerbot/internal/review"
	"ledgerbot/internal/taxonomy"
	taxstore "ledgerbot/internal/taxonomy/store"
	httptransport "ledgerbot/internal/transport/http"
	audit "ledgerbot/pkg/platform/audit"
	"ledgerbot/pkg/platform/audit/publisher"
	"ledgerbot/pkg/platform/audit/store/kafka"
	"ledgerbot/pkg/platform/audit/store/logstore"
	auditpg "ledgerbot/pkg/platform/audit/store/postgres"
	"ledgerbot/pkg/platform/circuit"
)

// main wires the stores, services and transport, then runs the bot and the
// ops server until SIGINT or SIGTERM.
func main() {
	envFile := flag.String("env", ".env", "dotenv file loaded before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("ledgerbot stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	opsOpts := []httptransport.Option{httptransport.WithLogger(log)}

	pool, err := postgres.Connect(ctx, cfg.Postgres.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()
	opsOpts = append(opsOpts, httptransport.WithCheck("postgres", pool.Ping))

	var conversations conversation.Store = conversation.NewInMemoryStore()
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		conversations = conversation.NewRedisStore(rdb.Client, cfg.Redis.StateTTL, reg)
		opsOpts = append(opsOpts, httptransport.WithCheck("redis", rdb.Health))
		log.Info("conversation state in redis")
	}

	var auditStore audit.Store
	switch cfg.AuditSink {
	case "kafka":
		ks, err := kafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer ks.Close()
		auditStore = ks
		opsOpts = append(opsOpts, httptransport.WithCheck("kafka", ks.Ping))
	case "postgres":
		auditStore = auditpg.New(pool)
	default:
		auditStore = logstore.New(log)
	}
	log.Info("audit sink selected", "sink", cfg.AuditSink)
	auditor := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.AuditBuffer),
		publisher.WithLogger(log),
	)
	// Runs after the bot has drained so late events still reach the store.
	defer auditor.Close()

	sheet, err := sheets.New(ctx, cfg.Ledger.CredentialsFile, cfg.Ledger.SpreadsheetID, cfg.Ledger.SheetName)
	if err != nil {
		return err
	}

	tg, err := telegram.New(cfg.Bot.Token,
		telegram.WithLogger(log),
		telegram.WithPollTimeout(cfg.Bot.PollTimeout),
	)
	if err != nil {
		return err
	}

	svc, err := buildServices(ctx, cfg, log, m, pool, conversations, auditor, sheet, tg)
	if err != nil {
		return err
	}
	opsOpts = append(opsOpts, httptransport.WithCheck("ledger", func(context.Context) error {
		if svc.breaker.IsOpen() {
			return errors.New("ledger circuit open")
		}
		return nil
	}))

	b, err := bot.New(tg, svc.Services,
		bot.WithLogger(log),
		bot.WithMetrics(m),
		bot.WithOperatorContact(cfg.Bot.OperatorContact),
	)
	if err != nil {
		return err
	}

	ops := httpserver.New(cfg.OpsAddr, httptransport.NewRouter(httptransport.NewHandler(reg, opsOpts...)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, ops, 5*time.Second, log)
	})
	g.Go(func() error {
		b.Start(gctx)
		if err := b.Run(gctx); err != nil {
			return err
		}
		if gctx.Err() == nil {
			return errors.New("update stream closed")
		}
		return nil
	})
	return g.Wait()
}

type services struct {
	bot.Services
	breaker *circuit.Breaker
}

func buildServices(
	ctx context.Context,
	cfg config.Config,
	log *slog.Logger,
	m *metrics.Metrics,
	pool *pgxpool.Pool,
	conversations conversation.Store,
	auditor *publisher.Publisher,
	sheet *sheets.Sheet,
	sender notify.Sender,
) (services, error) {
	directory := dirstore.NewPostgres(pool)

	gate, err := access.New(directory, cfg.AdminIDs,
		access.WithLogger(log),
		access.WithMetrics(m),
		access.WithLookupTimeout(cfg.DirectoryTimeout),
	)
	if err != nil {
		return services{}, fmt.Errorf("access controller: %w", err)
	}

	fanout, err := notify.New(sender,
		notify.WithLogger(log),
		notify.WithMetrics(m),
		notify.WithTimeout(cfg.NotifyTimeout),
		notify.WithParallelism(cfg.NotifyParallel),
	)
	if err != nil {
		return services{}, fmt.Errorf("notification fanout: %w", err)
	}

	reg, err := registration.New(directory, conversations, gate, fanout,
		registration.WithLogger(log),
		registration.WithMetrics(m),
		registration.WithAuditPublisher(auditor),
	)
	if err != nil {
		return services{}, fmt.Errorf("registration workflow: %w", err)
	}

	rev, err := review.New(directory, gate, fanout,
		review.WithLogger(log),
		review.WithMetrics(m),
		review.WithAuditPublisher(auditor),
	)
	if err != nil {
		return services{}, fmt.Errorf("review queue: %w", err)
	}

	breaker := circuit.New("ledger")
	gw, err := ledger.New(sheet, directory,
		ledger.WithLogger(log),
		ledger.WithMetrics(m),
		ledger.WithAuditPublisher(auditor),
		ledger.WithTimeout(cfg.Ledger.Timeout),
		ledger.WithBreaker(breaker),
	)
	if err != nil {
		return services{}, fmt.Errorf("ledger gateway: %w", err)
	}

	tax, err := taxonomy.New(taxstore.NewPostgres(pool), gate,
		taxonomy.WithLogger(log),
		taxonomy.WithAuditPublisher(auditor),
	)
	if err != nil {
		return services{}, fmt.Errorf("taxonomy: %w", err)
	}
	if err := tax.Seed(ctx); err != nil {
		return services{}, err
	}

	return services{
		Services: bot.Services{
			Access:        gate,
			Registration:  reg,
			Review:        rev,
			Ledger:        gw,
			Taxonomy:      tax,
			Notifier:      fanout,
			Roster:        directory,
			Conversations: conversations,
		},
		breaker: breaker,
	}, nil
}
