package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/basp-mesh/basp/internal/auth"
	"github.com/basp-mesh/basp/internal/broker"
	"github.com/basp-mesh/basp/internal/callee"
	"github.com/basp-mesh/basp/internal/config"
	"github.com/basp-mesh/basp/internal/engine"
	"github.com/basp-mesh/basp/internal/hooks"
	"github.com/basp-mesh/basp/internal/observability"
)

func main() {
	configPath := flag.String("config", "baspd.toml", "path to instance config")
	writeTemplate := flag.Bool("init", false, "write a starter config to -config and exit")
	force := flag.Bool("force", false, "overwrite an existing config when used with -init")
	flag.Parse()

	if *writeTemplate {
		if err := config.WriteTemplate(*configPath, *force); err != nil {
			fmt.Fprintf(os.Stderr, "baspd: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote starter config to %s\n", *configPath)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "baspd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	self := cfg.NodeID()
	log := observability.InitLogger("baspd", self.String())
	log.Info().Str("listen", cfg.ListenAddr).Msg("starting")

	notifier := hooks.New(log)
	notifier.Register(&observability.MetricsListener{})

	eng := engine.New(self, nil, callee.NewLoggingCallee(log), notifier, log)
	b := broker.New(eng, log)
	eng.SetBroker(b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := b.Listen(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	go b.Run(ctx)
	go func() {
		if err := b.Serve(ctx, ln); err != nil {
			log.Error().Err(err).Msg("serve stopped")
		}
	}()

	for _, p := range cfg.Peers {
		addr := p.Addr
		go func() {
			if err := b.Connect(addr); err != nil {
				log.Warn().Err(err).Str("addr", addr).Msg("dial peer failed")
			}
		}()
	}

	heartbeat := time.NewTicker(time.Duration(cfg.HeartbeatSeconds) * time.Second)
	defer heartbeat.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				b.RunOnLoop(func() { eng.HandleHeartbeat(ctx) })
			}
		}
	}()

	var validator auth.Validator
	if cfg.AdminAuthToken != "" {
		validator = auth.StaticToken{Token: cfg.AdminAuthToken}
	}
	admin := observability.NewAdminServer(self.String(), eng, log, cfg.AdminCorsOrigins, validator)
	adminSrv := &http.Server{Addr: cfg.AdminAddr, Handler: admin.Router()}
	go func() {
		log.Info().Str("addr", cfg.AdminAddr).Msg("admin surface listening")
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("admin surface stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = adminSrv.Shutdown(shutdownCtx)
	cancel()
	return nil
}
