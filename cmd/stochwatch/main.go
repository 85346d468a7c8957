package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"StochWatch/internal/collector"
	"StochWatch/internal/config"
	"StochWatch/internal/metrics"
	"StochWatch/internal/notifier"
	"StochWatch/internal/scheduler"
	"StochWatch/internal/store"
	"StochWatch/internal/web"
)

const usage = `usage: stochwatch [-config path] <command> [args]

commands:
  table              print the watchlist with slow stochastic values (default)
  serve              run the web UI, scheduled report and Telegram bot
  report             send the watchlist report once
  list               print stored symbols
  add SYMBOL...      add symbols to the watchlist
  remove SYMBOL...   remove symbols from the watchlist
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	_ = godotenv.Load(".env")

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "path to YAML config")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("[FATAL] open symbol store: %v", err)
	}

	cmd, args := "table", []string(nil)
	if flag.NArg() > 0 {
		cmd, args = flag.Arg(0), flag.Args()[1:]
	}

	err = run(cfg, st, cmd, args)
	if cerr := st.Close(); cerr != nil {
		log.Printf("[WARN] close symbol store: %v", cerr)
	}
	if errors.Is(err, errUsage) {
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("[FATAL] %s: %v", cmd, err)
	}
}

var errUsage = errors.New("unknown command")

func run(cfg *config.Config, st store.Store, cmd string, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "table":
		return runTable(ctx, cfg, st)
	case "serve":
		return runServe(ctx, cfg, st)
	case "report":
		return runReport(ctx, cfg, st)
	case "list":
		return runList(ctx, st)
	case "add":
		return runEdit(ctx, st, args, store.Add)
	case "remove":
		return runEdit(ctx, st, args, store.Remove)
	default:
		return errUsage
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		return store.NewSQLiteStore(cfg.Store.SQLitePath)
	case config.BackendRedis:
		return store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Key:      cfg.Store.Redis.Key,
		})
	default:
		return store.NewFileStore(cfg.Store.SymbolsFile), nil
	}
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	ds := cfg.DataSource
	switch ds.Provider {
	case config.ProviderREST:
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy)
	case config.ProviderAlpaca:
		return collector.NewAlpacaFetcher(ds.APIKey, ds.APISecret, ds.BaseURL)
	case config.ProviderMock:
		return &collector.MockFetcher{Price: 100}
	default:
		f := collector.NewYahooFetcher(cfg.Proxy)
		if ds.BaseURL != "" {
			f.BaseURL = ds.BaseURL
		}
		return f
	}
}

func newCollector(cfg *config.Config, m *metrics.Metrics) *collector.Collector {
	fetcher := newFetcher(cfg)
	log.Printf("[INFO] data source: %s", fetcher.Name())
	return collector.NewCollector(fetcher, cfg.Pipeline.Workers, m)
}

func runTable(ctx context.Context, cfg *config.Config, st store.Store) error {
	symbols, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("load symbols: %w", err)
	}
	if len(symbols) == 0 {
		fmt.Println("Watchlist is empty. Add symbols with: stochwatch add AAPL MSFT")
		return nil
	}
	snaps := newCollector(cfg, nil).SnapshotAll(ctx, symbols)
	return notifier.WriteTable(os.Stdout, snaps)
}

func runList(ctx context.Context, st store.Store) error {
	symbols, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("load symbols: %w", err)
	}
	for _, s := range symbols {
		fmt.Println(s)
	}
	return nil
}

func runEdit(ctx context.Context, st store.Store, args []string, op func([]string, string) ([]string, bool)) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	symbols, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("load symbols: %w", err)
	}
	changed := false
	for _, a := range args {
		var ok bool
		symbols, ok = op(symbols, a)
		changed = changed || ok
	}
	if !changed {
		log.Println("[INFO] watchlist unchanged")
		return nil
	}
	if err := st.Save(ctx, symbols); err != nil {
		return fmt.Errorf("save symbols: %w", err)
	}
	fmt.Println(notifier.FormatWatchlist(symbols))
	return nil
}

func newScheduler(ctx context.Context, cfg *config.Config, col *collector.Collector, st store.Store) (*scheduler.Scheduler, *notifier.TelegramNotifier) {
	if !cfg.TelegramEnabled() {
		return scheduler.NewScheduler(ctx, col, st, nil), nil
	}
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	return scheduler.NewScheduler(ctx, col, st, tn), tn
}

func runReport(ctx context.Context, cfg *config.Config, st store.Store) error {
	sched, _ := newScheduler(ctx, cfg, newCollector(cfg, nil), st)
	sched.RunReportNow()
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, st store.Store) error {
	log.Println("[INFO] StochWatch starting...")
	m := metrics.NewMetrics()
	col := newCollector(cfg, m)

	sched, tn := newScheduler(ctx, cfg, col, st)
	if tn != nil {
		if err := sched.Register(cfg.Schedule.ReportCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")

		if os.Getenv("RUN_ON_START") == "true" {
			log.Println("[INFO] RUN_ON_START enabled, sending report now")
			go sched.RunReportNow()
		}
	} else {
		log.Println("[INFO] Telegram not configured, scheduled report disabled")
	}

	srv, err := web.NewServer(col, st, m)
	if err != nil {
		return err
	}
	if err := srv.ListenAndServe(ctx, cfg.Web.ListenAddr); err != nil {
		return fmt.Errorf("web server: %w", err)
	}
	log.Println("[INFO] StochWatch stopped")
	return nil
}
