package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"StochWatch/internal/collector"
	"StochWatch/internal/notifier"
	"StochWatch/internal/store"

	"github.com/robfig/cron/v3"
)

// Sender delivers a report message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the periodic watchlist report and answers bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Store     store.Store
	Notifier  Sender
	Ctx       context.Context

	mu sync.Mutex // serializes watchlist edits
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, st store.Store, n Sender) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Store:     st,
		Notifier:  n,
		Ctx:       ctx,
	}
}

// Register adds the report task on the given cron spec (with seconds field).
func (s *Scheduler) Register(reportCron string) error {
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running report to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunReportNow executes the report task immediately.
func (s *Scheduler) RunReportNow() {
	s.reportTask()
}

func (s *Scheduler) reportTask() {
	log.Println("[INFO] running watchlist report")
	report, err := s.Report(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] report: %v", err)
		s.trySend(fmt.Sprintf("❌ Watchlist report failed: %v", err))
		return
	}
	s.trySend(report)
}

// Report loads the watchlist and formats fresh snapshots for every symbol.
func (s *Scheduler) Report(ctx context.Context) (string, error) {
	symbols, err := s.Store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load symbols: %w", err)
	}
	snaps := s.Collector.SnapshotAll(ctx, symbols)
	return notifier.FormatReport(snaps), nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // "/add@MyBot" in group chats
	}
	args := fields[1:]

	switch cmd {
	case "/report", "/stoch":
		report, err := s.Report(ctx)
		if err != nil {
			log.Printf("[ERROR] report command: %v", err)
			return fmt.Sprintf("❌ %v", err)
		}
		return report
	case "/list":
		symbols, err := s.Store.Load(ctx)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatWatchlist(symbols)
	case "/add":
		return s.edit(ctx, cmd, args, store.Add, "added")
	case "/remove", "/delete":
		return s.edit(ctx, cmd, args, store.Remove, "removed")
	default:
		return helpText
	}
}

const helpText = "Commands:\n• /report - slow stochastic for the watchlist\n• /list - show symbols\n• /add SYMBOL...\n• /remove SYMBOL..."

func (s *Scheduler) edit(ctx context.Context, cmd string, args []string, op func([]string, string) ([]string, bool), verb string) string {
	if len(args) == 0 {
		return fmt.Sprintf("Usage: %s SYMBOL", cmd)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols, err := s.Store.Load(ctx)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}
	var changed []string
	for _, a := range args {
		var ok bool
		symbols, ok = op(symbols, a)
		if ok {
			changed = append(changed, store.Clean(a))
		}
	}
	if len(changed) == 0 {
		return "No change. " + notifier.FormatWatchlist(symbols)
	}
	if err := s.Store.Save(ctx, symbols); err != nil {
		log.Printf("[ERROR] save symbols: %v", err)
		return fmt.Sprintf("❌ %v", err)
	}
	log.Printf("[INFO] %s %s", verb, strings.Join(changed, ", "))
	return fmt.Sprintf("✅ %s %s\n%s", strings.ToUpper(verb[:1])+verb[1:], strings.Join(changed, ", "), notifier.FormatWatchlist(symbols))
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		log.Printf("[INFO] report (no notifier configured):\n%s", text)
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
