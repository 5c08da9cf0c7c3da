package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utilitywarehouse/git-ws/appconfig"
	"github.com/utilitywarehouse/git-ws/workspace"
)

// runServe keeps a workspace up to date on an interval, the daemon
// counterpart to the one-shot `update` command. It exposes /metrics and
// pprof over HTTP the same way the mirrored-repository daemon does.
func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	interval := fs.Duration("interval", 5*time.Minute, "how often to re-run update")
	httpBind := fs.String("http-bind-address", appconfig.EnvString("GIT_WS_HTTP_BIND", ":9001"), "the address the metrics/pprof web server binds to")
	oneTime := fs.Bool("one-time", appconfig.EnvBool("GIT_WS_ONE_TIME", false), "exit after the first update")
	whSecret := fs.String("github-webhook-secret", appconfig.EnvString("GIT_WS_GITHUB_WEBHOOK_SECRET", ""), "GitHub webhook secret used to validate payloads")
	whPath := fs.String("github-webhook-path", appconfig.EnvString("GIT_WS_GITHUB_WEBHOOK_PATH", "/github-webhook"), "path on which the webhook handler listens")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}

	workspace.EnableMetrics("git_ws", prometheus.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())

	if rc := runUpdateIn(root, meta, defaultUpdateOptions(nil)); rc != 0 {
		logger.Error("initial update failed")
	}
	if *oneTime {
		cancel()
		return 0
	}

	go serveLoop(ctx, root, meta, *interval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	if *whSecret != "" {
		driver := workspace.NewExecDriver(logger)
		mainURL, _ := driver.RemoteURL(context.Background(), filepath.Join(root, meta.MainPath))
		wh := &githubWebhookHandler{
			root:    root,
			meta:    meta,
			mainURL: mainURL,
			secret:  *whSecret,
			log:     logger.With("logger", "github-webhook"),
		}
		logger.Info("registering github webhook", "path", *whPath)
		mux.Handle(*whPath, wh)
	}

	server := &http.Server{
		Addr:              *httpBind,
		Handler:           mux,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       5 * time.Second,
		ReadHeaderTimeout: 1 * time.Second,
	}

	go func() {
		logger.Info("starting web server", "address", *httpBind)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server terminated", "err", err)
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down http server", "err", err)
	}
	cancel()

	select {
	case <-stop:
		logger.Info("second signal received, terminating")
		return 1
	case <-time.After(time.Second):
		return 0
	}
}

func serveLoop(ctx context.Context, root string, meta *workspace.Metadata, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rc := runUpdateIn(root, meta, defaultUpdateOptions(nil)); rc != 0 {
				logger.Error("periodic update failed")
			}
		}
	}
}
