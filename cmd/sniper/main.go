package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"solana-sniper/internal/amm"
	"solana-sniper/internal/confirm"
	"solana-sniper/internal/discovery"
	"solana-sniper/internal/endpointpool"
	"solana-sniper/internal/ledger"
	"solana-sniper/internal/notify"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/oracle"
	"solana-sniper/internal/position"
	"solana-sniper/internal/riskcheck"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/storage"
	chstore "solana-sniper/internal/storage/clickhouse"
	"solana-sniper/internal/storage/memory"
	"solana-sniper/internal/storage/migrations"
	pgstore "solana-sniper/internal/storage/postgres"
	"solana-sniper/internal/txbuild"
)

// privateKeyEnv names the environment variable holding the signer key
// in base58. It is never accepted as a flag.
const privateKeyEnv = "SNIPER_PRIVATE_KEY"

const lamportsPerSOL = 1_000_000_000

func main() {
	rpcEndpoints := flag.String("rpc-endpoints", "", "Comma-separated Solana RPC HTTP endpoints")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint")
	rugcheckURL := flag.String("rugcheck-url", "https://api.rugcheck.xyz/v1", "Rugcheck API base URL")
	buySOL := flag.Float64("buy-sol", 0.1, "SOL spent per snipe, excluding rent and fees")
	slippageBps := flag.Int("slippage-bps", 500, "Slippage tolerance in basis points for buys and sells")
	takeProfit := flag.Float64("take-profit", 70, "First take-profit tier in percent")
	increment := flag.Float64("increment", 80, "Tier increment in percent after each partial sell")
	finalTier := flag.Float64("final-tier", 300, "PnL percent at which the whole position is sold")
	stopLoss := flag.Float64("stop-loss", -10, "Initial stop-loss in percent")
	stopFromTier := flag.Bool("stop-from-tier", true, "Recompute the stop from the last crossed tier instead of keeping it fixed")
	tickInterval := flag.Duration("tick-interval", 4500*time.Millisecond, "Interval between price samples")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for closed positions")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for PnL samples")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL and ClickHouse")
	webhookURL := flag.String("webhook-url", "", "Webhook URL for trade notifications (empty to disable)")
	ledgerPath := flag.String("ledger-path", "trades.log", "Path of the append-only trade ledger")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[sniper] ", log.LstdFlags|log.Lshortfile)

	metrics := observability.NewMetrics("")

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err := run(ctx, logger, metrics, options{
		rpcEndpoints:  splitEndpoints(*rpcEndpoints),
		wsEndpoint:    *wsEndpoint,
		rugcheckURL:   *rugcheckURL,
		buyLamports:   uint64(*buySOL * lamportsPerSOL),
		slippageBps:   *slippageBps,
		ladder: position.Ladder{
			TakeProfitTier:   *takeProfit,
			StopLoss:         *stopLoss,
			Increment:        *increment,
			FinalTier:        *finalTier,
			StopLossFromTier: *stopFromTier,
		},
		tickInterval:  *tickInterval,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		useMemory:     *useMemory,
		webhookURL:    *webhookURL,
		ledgerPath:    *ledgerPath,
	})

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type options struct {
	rpcEndpoints  []string
	wsEndpoint    string
	rugcheckURL   string
	buyLamports   uint64
	slippageBps   int
	ladder        position.Ladder
	tickInterval  time.Duration
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	webhookURL    string
	ledgerPath    string
}

func run(ctx context.Context, logger *log.Logger, metrics *observability.Metrics, opts options) error {
	if len(opts.rpcEndpoints) == 0 {
		return fmt.Errorf("--rpc-endpoints is required")
	}
	if opts.wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required")
	}
	if opts.buyLamports == 0 {
		return fmt.Errorf("--buy-sol must be positive")
	}

	key := os.Getenv(privateKeyEnv)
	if key == "" {
		return fmt.Errorf("%s environment variable is not set", privateKeyEnv)
	}
	signer, err := solana.KeypairFromBase58(key)
	if err != nil {
		return fmt.Errorf("parse %s: %w", privateKeyEnv, err)
	}
	logger.Printf("Trading as %s", signer.Pubkey())

	candidates := make([]endpointpool.Endpoint, 0, len(opts.rpcEndpoints))
	for _, ep := range opts.rpcEndpoints {
		candidates = append(candidates, endpointpool.Endpoint{
			Name:   ep,
			Client: solana.NewHTTPClient(ep),
		})
	}
	pool, err := endpointpool.New(ctx, candidates, &endpointpool.Options{
		Logger: logger,
		OnRotate: func(from, to string) {
			metrics.EndpointRotations.Inc()
		},
		Observe: func(label string, d time.Duration) {
			metrics.RPCCallLatency.WithLabelValues(label).Observe(d.Seconds())
		},
	})
	if err != nil {
		return fmt.Errorf("build endpoint pool: %w", err)
	}
	logger.Printf("Endpoint pool ready with %d endpoints", pool.Size())

	ws, err := solana.NewWS(ctx, opts.wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	if !opts.useMemory && opts.postgresDSN == "" {
		return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if !opts.useMemory && opts.clickhouseDSN == "" {
		return fmt.Errorf("--clickhouse-dsn is required (use --use-memory for in-memory storage)")
	}

	var positionStore storage.PositionStore = memory.NewPositionStore()
	var sampleStore storage.PnLSampleStore = memory.NewPnLSampleStore()

	if !opts.useMemory {
		pgPool, err := pgstore.NewPool(ctx, opts.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pgPool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}
		positionStore = pgstore.NewPositionStore(pgPool)

		chConn, err := migrations.RunClickhouseMigrations(ctx, opts.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		defer chConn.Close()
		sampleStore = chstore.NewPnLSampleStore(chConn)
	}

	var notifier notify.Notifier = notify.Nop{}
	if opts.webhookURL != "" {
		notifier = notify.NewWebhook(opts.webhookURL)
	}

	var tradeLog position.TradeLog
	if opts.ledgerPath != "" {
		l, err := ledger.Open(opts.ledgerPath)
		if err != nil {
			return fmt.Errorf("open trade ledger: %w", err)
		}
		defer l.Close()
		tradeLog = l
	}

	controller := position.NewController(position.Config{
		Ladder:       opts.ladder,
		BuyLamports:  opts.buyLamports,
		SlippageBps:  opts.slippageBps,
		TickInterval: opts.tickInterval,
	}, position.Deps{
		Pool:      pool,
		AMM:       amm.NewClient(endpointpool.Route(pool)),
		Risk:      riskcheck.NewClient(opts.rugcheckURL, riskcheck.WithLogger(logger)),
		Oracle:    oracle.New(pool, logger),
		Builder:   txbuild.NewBuilder(signer.Pubkey()),
		Confirmer: confirm.New(pool, &confirm.Options{Logger: logger}),
		Signer:    signer,
		Notifier:  notifier,
		TradeLog:  tradeLog,
		Positions: positionStore,
		Samples:   sampleStore,
		Metrics:   metrics,
		Logger:    logger,
	})

	watcher := discovery.NewWatcher(ws, pool, logger)
	watcher.OnResolveError = metrics.PoolEventsFailed.Inc
	events, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch pools: %w", err)
	}

	logger.Println("Watching for new pools...")

	var wg sync.WaitGroup
	for event := range events {
		metrics.PoolsDiscovered.Inc()

		mint, ok := event.TokenMint()
		if !ok {
			logger.Printf("pool %s has no SOL side, skipping", event.Pair)
			continue
		}
		logger.Printf("pool %s: token %s (slot %d)", event.Pair, mint, event.Slot)

		wg.Add(1)
		go func(mint, pair solana.Pubkey) {
			defer wg.Done()
			if _, err := controller.Run(ctx, mint, pair); err != nil && err != context.Canceled {
				logger.Printf("position %s: %v", mint, err)
			}
		}(mint, event.Pair)
	}

	logger.Println("Pool subscription ended, waiting for open positions...")
	wg.Wait()

	return ctx.Err()
}

func splitEndpoints(csv string) []string {
	var out []string
	for _, ep := range strings.Split(csv, ",") {
		ep = strings.TrimSpace(ep)
		if ep != "" {
			out = append(out, ep)
		}
	}
	return out
}
