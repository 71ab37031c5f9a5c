// Command profverify checks whether a named person is an active professor
// at a given university.
//
// Usage:
//
//	profverify [-config file.yaml] [-env .env] verify -name "Jane Doe" -university MIT [-json]
//	profverify [-config file.yaml] batch -in requests.jsonl -out results.jsonl [-workers 4]
//	profverify [-config file.yaml] history [-limit 20]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Em-Deesha/profverify/internal/application"
	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/logging"
	"github.com/Em-Deesha/profverify/internal/ports"
)

const usage = `usage: profverify [-config file.yaml] [-env .env] <command> [flags]

commands:
  verify    verify a single professor
  batch     verify JSON lines of {"name","university"} requests
  history   list recent verifications (requires DATABASE_URL)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("profverify", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "YAML configuration file")
	envPath := global.String("env", ".env", "dotenv file loaded before reading the environment")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "failed to load %s: %v\n", *envPath, err)
		return 1
	}

	cfg, err := application.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}

	logger, err := application.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "verify", "batch", "history":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		global.Usage()
		return 2
	}

	rt, err := application.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed: %v", err)
		return 1
	}
	defer rt.Close()

	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr, rt.MetricsHandler(), logger)
		defer shutdown()
	}

	switch cmd {
	case "verify":
		err = verifyCommand(ctx, rt.Service, cmdArgs, stdout, stderr)
	case "batch":
		err = batchCommand(ctx, rt.Service, cmdArgs, stderr, logger)
	case "history":
		err = historyCommand(ctx, rt.History, cmdArgs, stdout, stderr)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp), errors.Is(err, errUsage):
		return 2
	default:
		logger.Error("%s: %v", cmd, err)
		return 1
	}
}

var errUsage = errors.New("invalid usage")

func verifyCommand(ctx context.Context, v Verifier, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("verify", flag.ContinueOnError)
	flags.SetOutput(stderr)
	name := flags.String("name", "", "full name of the person")
	university := flags.String("university", "", "claimed university")
	asJSON := flags.Bool("json", false, "print the raw JSON result")
	if err := flags.Parse(args); err != nil {
		return err
	}

	result, err := v.Verify(ctx, domain.VerificationRequest{Name: *name, University: *university})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			fmt.Fprintln(stderr, err)
			flags.Usage()
			return errUsage
		}
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printResult(stdout, result)
}

func printResult(w io.Writer, r domain.VerificationResult) error {
	verdict := "NOT VERIFIED"
	if r.Verified {
		verdict = "VERIFIED"
	}
	if _, err := fmt.Fprintf(w, "%s (confidence %d/100)\n%s\n", verdict, r.ConfidenceScore, r.Summary); err != nil {
		return err
	}
	if len(r.EvidenceLinks) > 0 {
		fmt.Fprintln(w, "\nEvidence:")
		for _, link := range r.EvidenceLinks {
			fmt.Fprintf(w, "  %s\n", link)
		}
	}
	return nil
}

func batchCommand(ctx context.Context, v Verifier, args []string, stderr io.Writer, logger logging.Logger) error {
	flags := flag.NewFlagSet("batch", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inPath := flags.String("in", "-", "JSON lines input, - for stdin")
	outPath := flags.String("out", "-", "JSON lines output, - for stdout")
	workers := flags.Int("workers", 4, "concurrent verifications")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *workers < 1 {
		fmt.Fprintln(stderr, "-workers must be at least 1")
		return errUsage
	}

	in := io.Reader(os.Stdin)
	if *inPath != "-" {
		f, err := os.Open(*inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	out := io.Writer(os.Stdout)
	if *outPath != "-" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	start := time.Now()
	stats, err := RunBatch(ctx, v, in, out, *workers)
	if err != nil {
		return err
	}
	logger.Info("batch finished: %d requests, %d verified, %d failed in %s",
		stats.Total, stats.Verified, stats.Failed, time.Since(start).Round(time.Millisecond))
	return nil
}

func historyCommand(ctx context.Context, h ports.HistoryStore, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("history", flag.ContinueOnError)
	flags.SetOutput(stderr)
	limit := flags.Int("limit", 20, "number of entries")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if h == nil {
		return errors.New("history requires a database (set DATABASE_URL)")
	}

	entries, err := h.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

// serveMetrics starts the Prometheus listener and returns its shutdown func.
func serveMetrics(addr string, handler http.Handler, logger logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener stopped: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
