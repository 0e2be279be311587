package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"crewdesk/internal/adapter/payload"
	"crewdesk/internal/adapter/soap"
	"crewdesk/internal/adapter/store"
	"crewdesk/internal/domain"
	"crewdesk/internal/infra/config"
	"crewdesk/internal/infra/logger"
	"crewdesk/internal/infra/middleware"
	"crewdesk/internal/infra/tracer"
	"crewdesk/internal/usecase"
)

func run() error {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "serve" {
		args = args[1:]
	}
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "crewdesk.yaml", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	st, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if cfg.Auth.Username != "" {
		err := st.SeedConnection(ctx, domain.Connection{
			AppName:       cfg.Connector.AppName,
			Username:      cfg.Auth.Username,
			PasswordHash:  cfg.Auth.Password,
			DirectorySync: cfg.Connector.DirectorySync,
		})
		if err != nil {
			return fmt.Errorf("seed connection: %w", err)
		}
	}

	sessions := usecase.NewSessionRegistry()

	minVersion, err := strconv.ParseFloat(cfg.Connector.MinClientVersion, 64)
	if err != nil {
		return fmt.Errorf("connector.min_client_version: %w", err)
	}

	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Sessions:         sessions,
		Credentials:      usecase.NewCredentials(st),
		Queue:            st,
		Connections:      st,
		SyncLog:          st,
		Payloads:         payload.NewBuilder(),
		Directory:        payload.NewDirectoryQuery(),
		Responses:        payload.NewInterpreter(),
		Refs:             st,
		Logger:           log,
		ServerVersion:    cfg.Connector.ServerVersion,
		MinClientVersion: minVersion,
	})

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.SoapPath, soap.NewHandler(dispatcher, cfg.Connector.AppName, log))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	var handler http.Handler = mux
	handler = middleware.RateLimit(ctx, cfg.Server.RateLimitPerMin, cfg.Server.RateLimitBurst)(handler)
	handler = middleware.SecurityHeaders(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
	}

	sessionTTL := config.Duration(cfg.Connector.SessionTTL)
	logRetention := config.Duration(cfg.Store.LogRetention)
	staleReclaim := config.Duration(cfg.Store.StaleReclaim)

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Connector.SweepInterval, func() {
		if n := sessions.Sweep(sessionTTL); n > 0 {
			log.Info("evicted idle sessions", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	if _, err := sched.AddFunc(cfg.Store.MaintSchedule, func() {
		mctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n, err := st.ReclaimStale(mctx, staleReclaim); err != nil {
			log.Error("reclaim stale items", "error", err)
		} else if n > 0 {
			log.Info("reclaimed stale items", "count", n)
		}
		if n, err := st.Prune(mctx, logRetention); err != nil {
			log.Error("prune sync log", "error", err)
		} else if n > 0 {
			log.Info("pruned sync log", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("crewdesk listening", "addr", cfg.Server.Addr, "soap_path", cfg.Server.SoapPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		<-sched.Stop().Done()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	log.Info("crewdesk stopped")
	return err
}
