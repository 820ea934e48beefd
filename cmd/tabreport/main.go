package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/auth"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/config"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/httpapi"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/logger"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/recordsapi"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/report"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/sheets"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/storage"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/syncer"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const usage = `usage:
  tabreport                 open the report
  tabreport auth set        store the records API token in the keychain
  tabreport auth remove     delete the stored token
  tabreport import FILE     replace the local cache with contracts from an xlsx file
  tabreport export FILE     write the full report to an xlsx file
  tabreport serve           serve the cache and report over HTTP
  tabreport sync            pull every contract from the records API once
  tabreport wipe            delete the local cache`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tabreport: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) >= 1 && args[0] == "auth" {
		return runAuth(args[1:])
	}

	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	dbCfg, err := storage.ResolveConfig(cfg.DBMode, cfg.DBPath)
	if err != nil {
		return err
	}

	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "":
		return runReport(cfg, dbCfg, log)
	case "import":
		if len(args) != 2 {
			return errors.New("usage: tabreport import FILE")
		}
		return runImport(dbCfg, args[1])
	case "export":
		if len(args) != 2 {
			return errors.New("usage: tabreport export FILE")
		}
		return runExport(cfg, dbCfg, log, args[1])
	case "serve":
		return runServe(cfg, dbCfg, log)
	case "sync":
		return runSync(cfg, dbCfg, log)
	case "wipe":
		if err := storage.Wipe(dbCfg); err != nil {
			return err
		}
		fmt.Printf("local cache removed: %s\n", dbCfg.Path)
		return nil
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func runAuth(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: tabreport auth set|remove")
	}
	switch args[0] {
	case "set":
		fmt.Print("Enter records API token: ")
		token, err := readSecret()
		if err != nil {
			return err
		}
		fmt.Println()
		if strings.TrimSpace(token) == "" {
			return errors.New("empty token")
		}
		if err := auth.SaveToken(token); err != nil {
			return err
		}
		fmt.Println("Token saved to your system credential store.")
		return nil
	case "remove":
		if err := auth.RemoveToken(); err != nil {
			return err
		}
		fmt.Println("Token removed.")
		return nil
	default:
		return fmt.Errorf("unknown auth command %q", args[0])
	}
}

func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		value, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(value), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		if len(line) == 0 {
			return "", err
		}
	}
	return strings.TrimSpace(line), nil
}

func newClient(cfg *config.Config) (*recordsapi.Client, error) {
	token, err := auth.LoadToken()
	if err != nil && !errors.Is(err, auth.ErrNoToken) {
		return nil, err
	}
	return recordsapi.New(cfg.APIBaseURL, token, cfg.APITimeout), nil
}

func serviceOptions(cfg *config.Config, log *zap.Logger) syncer.ServiceOptions {
	return syncer.ServiceOptions{
		StaleTTL:     cfg.SyncStaleAfter,
		PollInterval: cfg.SyncPollInterval,
		Backoff:      cfg.SyncBackoff,
		PageSize:     cfg.PageSize,
		Workers:      cfg.SyncWorkers,
		Logger:       log.Named("syncer"),
	}
}

func runReport(cfg *config.Config, dbCfg storage.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	events := make(chan syncer.Event, 16)
	opts := serviceOptions(cfg, log)
	opts.OnEvent = func(evt syncer.Event) {
		select {
		case events <- evt:
		default:
			log.Warn("dropped sync event", zap.String("type", string(evt.Type)))
		}
	}
	svc, err := syncer.NewContractsService(db, client, opts)
	if err != nil {
		return err
	}
	if err := svc.EnterReportView(ctx); err != nil {
		return err
	}

	model := tui.New(tui.Options{
		Source:      storage.NewContractsRepo(db),
		Ranges:      storage.NewAppConfigRepo(db),
		Sync:        svc,
		SyncEvents:  events,
		Remote:      client,
		Currency:    cfg.CurrencyFormat(),
		PageSize:    cfg.PageSize,
		RenderDelay: cfg.RenderDelay,
		Logger:      log.Named("tui"),
	})
	_, runErr := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()

	svc.LeaveView()
	close(events)
	if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return runErr
}

func runImport(dbCfg storage.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	contracts, err := sheets.ImportContracts(f)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}

	ctx := context.Background()
	db, err := storage.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.NewContractsRepo(db).ReplaceSnapshot(ctx, contracts, time.Now().UTC()); err != nil {
		return err
	}
	fmt.Printf("imported %d contracts into %s\n", len(contracts), dbCfg.Path)
	return nil
}

func runExport(cfg *config.Config, dbCfg storage.Config, log *zap.Logger, path string) error {
	ctx := context.Background()
	db, err := storage.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	contracts, err := storage.NewContractsRepo(db).AllRecords(ctx)
	if err != nil {
		return err
	}
	state := report.Build(contracts, time.Now(), report.Options{
		Currency: cfg.CurrencyFormat(),
		Logger:   log,
	})

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sheets.ExportReport(out, state); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %d contracts across %d months to %s\n", len(state.Rows()), len(state.Columns()), path)
	return nil
}

func runServe(cfg *config.Config, dbCfg storage.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := httpapi.New(storage.NewContractsRepo(db), httpapi.Config{
		RateLimit: cfg.HTTPRateLimit,
		Token:     cfg.HTTPToken,
		Currency:  cfg.CurrencyFormat(),
		Logger:    log.Named("http"),
	})
	fmt.Printf("serving %s on %s\n", dbCfg.Path, cfg.HTTPAddr)
	return srv.ListenAndServe(ctx, cfg.HTTPAddr)
}

func runSync(cfg *config.Config, dbCfg storage.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	svc, err := syncer.NewContractsService(db, client, serviceOptions(cfg, log))
	if err != nil {
		return err
	}
	if err := svc.SyncOnce(ctx); err != nil {
		return err
	}
	total, err := storage.NewContractsRepo(db).TotalRecords(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("synced %d contracts into %s\n", total, dbCfg.Path)
	return nil
}
