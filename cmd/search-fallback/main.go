// Command search-fallback discovers a motorsport season schedule through web
// search and browser rendering when no dedicated connector exists.
//
// Usage:
//
//	search-fallback run -series indycar -name "NTT IndyCar Series" -season 2025
//	search-fallback serve
//	search-fallback worker
//	search-fallback request -series wec -name "FIA WEC" -season 2025
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/schedule-fallback/engine/fallback"
	"github.com/WessleyAI/schedule-fallback/pkg/metrics"
	"github.com/WessleyAI/schedule-fallback/pkg/natsutil"
)

func main() {
	loadDotEnv(".env", ".env.local")
	cfg := loadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "run":
		err = runOnce(ctx, cfg, args, os.Stdout, logger)
	case "serve":
		err = serve(ctx, cfg, args, logger)
	case "worker":
		err = worker(ctx, cfg, args, logger)
	case "request":
		err = request(ctx, cfg, args, os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		usage(os.Stderr)
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		logger.Error("search-fallback exited with error", "err", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: search-fallback <run|serve|worker|request> [flags]

  run      discover one season and print the output as JSON
  serve    HTTP API: POST /v1/fallback, GET /v1/drafts/{series}/{season}
  worker   answer requests on NATS_SUBJECT_REQUEST, publish to NATS_SUBJECT_OUTPUT
  request  send one request to a worker over NATS and print the output`)
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// requestFlags binds the flags that describe one discovery request.
func requestFlags(fs *flag.FlagSet) *fallback.Request {
	req := &fallback.Request{}
	fs.StringVar(&req.SeriesID, "series", "", "series id, e.g. indycar")
	fs.StringVar(&req.SeriesName, "name", "", "series display name used in queries")
	fs.IntVar(&req.Season, "season", time.Now().Year(), "season year")
	fs.StringVar(&req.Category, "category", "", "series category (openwheel, endurance, rally, motorcycle, ...)")
	return req
}

func runOnce(ctx context.Context, cfg Config, args []string, stdout io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	req := requestFlags(fs)
	stage := fs.Bool("stage", false, "stage the draft in Neo4j (requires NEO4J_URL)")
	timeout := fs.Duration("timeout", 20*time.Minute, "overall run timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if !*stage {
		cfg.Neo4jURL = ""
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a, err := newApp(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.runAndStage(ctx, *req)
	if err != nil {
		return err
	}
	return writeOutput(stdout, out)
}

func writeOutput(w io.Writer, out *fallback.Output) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func serve(ctx context.Context, cfg Config, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	met := metrics.New()
	met.ServeAsync(cfg.MetricsPort, logger)

	a, err := newApp(ctx, cfg, met, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Runs are long; the write deadline covers a full discovery.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(a, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "metrics_port", cfg.MetricsPort)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func worker(ctx context.Context, cfg Config, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 20*time.Minute, "per-request run timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	met := metrics.New()
	met.ServeAsync(cfg.MetricsPort, logger)

	a, err := newApp(ctx, cfg, met, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	nc, err := nats.Connect(cfg.NATSURL, nats.Name("search-fallback-worker"))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	handle := workerHandler(a, func(ctx context.Context, out *fallback.Output) error {
		return natsutil.Publish(ctx, nc, cfg.OutputSubject, out)
	}, *timeout, logger)

	sub, err := natsutil.Handle(nc, cfg.RequestSubject, cfg.WorkerQueue, logger, handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.RequestSubject, err)
	}
	defer sub.Unsubscribe()

	logger.Info("worker listening", "subject", cfg.RequestSubject, "queue", cfg.WorkerQueue, "output", cfg.OutputSubject)
	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}

// workerHandler runs one request and publishes the output. Publishing is
// best effort; the requester still gets the output in the reply.
func workerHandler(a *app, publish func(context.Context, *fallback.Output) error, timeout time.Duration, logger *slog.Logger) func(context.Context, fallback.Request) (*fallback.Output, error) {
	return func(ctx context.Context, req fallback.Request) (*fallback.Output, error) {
		if err := req.Validate(); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		out, err := a.runAndStage(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := publish(ctx, out); err != nil {
			logger.Warn("publish output", "run_id", out.RunID, "err", err)
		}
		return out, nil
	}
}

func request(ctx context.Context, cfg Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("request", flag.ContinueOnError)
	req := requestFlags(fs)
	timeout := fs.Duration("timeout", 20*time.Minute, "how long to wait for the worker")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	nc, err := nats.Connect(cfg.NATSURL, nats.Name("search-fallback-client"))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	out, err := natsutil.Request[fallback.Request, *fallback.Output](ctx, nc, cfg.RequestSubject, *req)
	if err != nil {
		return err
	}
	return writeOutput(stdout, out)
}
