package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"towerterm/pkg/assets"
	"towerterm/pkg/config"
	"towerterm/pkg/liquidity"
	"towerterm/pkg/modal"
	"towerterm/pkg/models"
	"towerterm/pkg/rpc"
	"towerterm/pkg/server"
	"towerterm/pkg/tui"
	"towerterm/pkg/watcher"
)

// Version should be set during build
var Version = "dev"

const defaultLogFile = ".towerterm.log"

func main() {
	os.Exit(run())
}

func run() int {
	testFlag := flag.Bool("t", false, "Test configuration and exit")
	testLongFlag := flag.Bool("test", false, "Test configuration and exit")
	jsonFlag := flag.Bool("json", false, "Output test results as JSON")
	configFlag := flag.String("config", "", "Path to configuration file")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	serverFlag := flag.Bool("server", false, "Run in headless server mode")
	portFlag := flag.Int("port", 8080, "Port for API server")
	originsFlag := flag.String("origins", "", "Comma separated CORS origins for the API server")
	rateFlag := flag.Int("rate", 0, "Per-IP API requests per minute, 0 disables the limit")
	restoreFlag := flag.Bool("restore", false, "Restore the most recent config backup and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("towerterm version %s\n", Version)
		return 0
	}

	cfgInput := *configFlag
	if cfgInput == "" && len(flag.Args()) > 0 {
		cfgInput = flag.Args()[0]
	}
	path, err := config.GetConfigPath(cfgInput)
	if err != nil {
		fmt.Printf("Error determining config path: %v\n", err)
		return 1
	}

	if *restoreFlag {
		return restoreConfig(os.Stdout, path)
	}

	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		fmt.Printf("Error loading config from %s: %v\n", path, err)
		return 1
	}

	if *testFlag || *testLongFlag {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		return runTest(ctx, os.Stdout, path, cfg, *jsonFlag, rpc.CheckSource)
	}

	if !checkConfig(os.Stdout, path, cfg) {
		return 1
	}

	logger, closeLog, err := newLogger(cfg.Global.LogPath, *serverFlag)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		return 1
	}
	defer closeLog()
	setLoggers(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watcher.NewWatcher(cfg)
	w.Start(ctx)
	defer w.Stop()

	gate := liquidity.NewGate(newSubmitter(cfg.Submit))
	srv := server.NewServer(w, gate, server.Options{
		AllowedOrigins: splitList(*originsFlag),
		RatePerMinute:  *rateFlag,
	})

	if *serverFlag {
		logger.Info().Int("port", *portFlag).Msg("running in server mode")
		if err := srv.Start(ctx, *portFlag); err != nil {
			logger.Error().Err(err).Msg("server stopped")
			return 1
		}
		return 0
	}

	go func() {
		if err := srv.Start(ctx, *portFlag); err != nil {
			logger.Error().Err(err).Msg("server stopped")
		}
	}()

	if err := tui.Start(tui.Options{Watcher: w, Config: cfg, Gate: gate, Version: Version, ConfigPath: path}); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	return 0
}

// checkConfig prints every structural problem in cfg and reports whether
// it is safe to start.
func checkConfig(out io.Writer, path string, cfg config.Config) bool {
	problems := config.Validate(cfg)
	if len(problems) == 0 {
		return true
	}
	_, _ = fmt.Fprintf(out, "Invalid configuration at %s:\n", path)
	for _, p := range problems {
		_, _ = fmt.Fprintf(out, "Error: %s\n", p)
	}
	return false
}

func restoreConfig(out io.Writer, path string) int {
	if err := config.RestoreLastBackup(path); err != nil {
		_, _ = fmt.Fprintf(out, "Error restoring config at %s: %v\n", path, err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "Restored %s from the latest backup.\n", path)
	return 0
}

// newLogger writes to stderr in server mode. The TUI owns the terminal, so
// interactive runs log to a file instead.
func newLogger(logPath string, headless bool) (zerolog.Logger, func(), error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if headless {
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(out).With().Timestamp().Logger(), func() {}, nil
	}

	if logPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return zerolog.Nop(), func() {}, err
		}
		logPath = filepath.Join(home, defaultLogFile)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}
	return zerolog.New(f).With().Timestamp().Logger(), func() { _ = f.Close() }, nil
}

func setLoggers(l zerolog.Logger) {
	assets.SetLogger(l)
	liquidity.SetLogger(l)
	modal.SetLogger(l)
	rpc.SetLogger(l)
	server.SetLogger(l)
	watcher.SetLogger(l)
}

func newSubmitter(sc config.SubmitConfig) liquidity.Submitter {
	if sc.DryRun || sc.Endpoint == "" {
		return liquidity.LogSubmitter{}
	}
	return liquidity.NewHTTPSubmitter(sc.Endpoint, time.Duration(sc.TimeoutSeconds)*time.Second)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type sourceChecker func(ctx context.Context, src config.SourceConfig) models.SourceResult

// runTest validates the configuration, checks every source endpoint and
// prints the report. It returns the process exit code.
func runTest(ctx context.Context, out io.Writer, path string, cfg config.Config, jsonOut bool, check sourceChecker) int {
	report := models.TestReport{
		ConfigPath:     path,
		ValidStructure: true,
		SourceCount:    len(cfg.Sources),
		AssetCount:     len(cfg.Assets()),
		PoolCount:      len(cfg.Pools),
	}

	if !jsonOut {
		_, _ = fmt.Fprintf(out, "Testing configuration at: %s\n", path)
	}

	if problems := config.Validate(cfg); len(problems) > 0 {
		report.ValidStructure = false
		report.StructureErrors = problems
		if jsonOut {
			writeReport(out, report)
		} else {
			for _, p := range problems {
				_, _ = fmt.Fprintf(out, "Error: %s\n", p)
			}
		}
		return 1
	}

	if !jsonOut {
		_, _ = fmt.Fprintf(out, "Found %d sources, %d assets and %d pools.\n", report.SourceCount, report.AssetCount, report.PoolCount)
	}

	var unreachable []string
	for _, src := range cfg.Sources {
		res := check(ctx, src)
		report.Sources = append(report.Sources, res)

		if !jsonOut {
			_, _ = fmt.Fprintf(out, "Testing Source: %s (%s)\n", res.Name, res.Kind)
		}
		ok := false
		for _, u := range res.URLs {
			if u.Status == "ok" {
				ok = true
			}
			if jsonOut {
				continue
			}
			if u.Status == "ok" {
				_, _ = fmt.Fprintf(out, "  URL: %s ... OK (network %s)", u.URL, u.Network)
				if res.Network != "" && u.Network != res.Network {
					_, _ = fmt.Fprintf(out, " - WARNING: network mismatch with %s", res.Network)
				}
				_, _ = fmt.Fprintln(out)
			} else {
				_, _ = fmt.Fprintf(out, "  URL: %s ... Failed: %s\n", u.URL, u.Error)
			}
		}
		if !ok {
			unreachable = append(unreachable, res.Name)
		}
	}

	if jsonOut {
		writeReport(out, report)
	} else if len(unreachable) > 0 {
		_, _ = fmt.Fprintln(out, "\nWARNING: no reachable endpoint for:")
		for _, name := range unreachable {
			_, _ = fmt.Fprintf(out, " - %s\n", name)
		}
	}
	if len(unreachable) > 0 {
		return 1
	}
	return 0
}

func writeReport(out io.Writer, report models.TestReport) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}
