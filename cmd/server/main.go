package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/guard"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/observe"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/platform/config"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/platform/httpserver"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/platform/logger"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/platform/metrics"
	httptransport "github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/transport/http"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/witness"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// The evidence pipeline lives in internal/guard; this binary only serves the
// verification surface over HTTP.
func main() {
	configPath := flag.String("config", "", "path to guard.yaml (optional)")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(2)
	}

	eng, err := digest.New(cfg.Algorithm)
	if err != nil {
		log.Error("digest engine", "error", err)
		os.Exit(2)
	}

	source := observe.NewGitHub(cfg.GitHubToken, log)
	prober := witness.NewProber(cfg.Witness.URLs, cfg.Witness.Timeout.Std(), log)
	m := metrics.New()
	svc := guard.New(cfg, source, eng, prober, m, log)

	handler := httptransport.NewHandler(svc, eng, log)
	router := httptransport.NewRouter(handler)
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting audit sidecar", "addr", cfg.Server.Addr, "org", cfg.Expectation.Org)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(2)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(2)
	}
}
