package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channel-console/activity"
	"channel-console/admin"
	"channel-console/api"
	"channel-console/backend"
	"channel-console/collector"
	"channel-console/config"
	"channel-console/editor"
	"channel-console/i18n"
	"channel-console/kafka"
	"channel-console/logger"
	"channel-console/rabbitmq"
	"channel-console/storage"
	"channel-console/tester"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

var version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogDir, version, cfg.LogLevel)
	if err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}
	log.Info("logger initialized successfully")
	log.Info("config loaded", "port", cfg.Port, "log_dir", cfg.LogDir, "db_path", cfg.DBPath, "backend_url", cfg.Backend.BaseURL, "rabbitmq_enabled", cfg.RabbitMQ.DSN != "", "kafka_enabled", len(cfg.Kafka.Brokers) > 0)

	dataStore, err := storage.NewStore(cfg.DBPath, log)
	if err != nil {
		log.Error("failed to create data store", "error", err)
		os.Exit(1)
	}
	defer dataStore.Close()
	log.Info("data store initialized")

	sinks := []activity.Sink{dataStore}
	if cfg.RabbitMQ.DSN != "" {
		rmq, err := rabbitmq.New(cfg.RabbitMQ, log)
		if err != nil {
			log.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rmq.Close()
		sinks = append(sinks, rmq)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := kafka.New(cfg.Kafka, log)
		defer kp.Close()
		sinks = append(sinks, kp)
	}
	recorder := activity.NewRecorder(log, sinks...)

	client, err := backend.NewClient(cfg.Backend, log)
	if err != nil {
		log.Error("failed to create backend client", "error", err)
		os.Exit(1)
	}

	editors := editor.NewManager(client, recorder, log)
	testers := tester.NewManager(client, recorder, log)
	collectorService := collector.NewService(client, cfg.Backend.Timeout(), log)

	var locales fs.FS = i18n.Locales()
	if cfg.LocalesDir != "" {
		locales = os.DirFS(cfg.LocalesDir)
	}
	i18nService, err := i18n.NewService(locales, log)
	if err != nil {
		log.Error("failed to load translations", "error", err)
		os.Exit(1)
	}

	log.Info("scheduling background jobs...")
	c := cron.New()
	jobs := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"session sweep", cfg.Sessions.SweepSchedule, func() {
			idle := cfg.Sessions.IdleTimeout()
			editors.Sweep(idle)
			testers.Sweep(idle)
		}},
		{"channel summary", cfg.CollectorSchedule, collectorService.Refresh},
		{"activity prune", "@daily", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			n, err := dataStore.PruneActivity(ctx, time.Now().Add(-cfg.ActivityRetention()))
			if err != nil {
				log.Error("failed to prune activity", "error", err)
				return
			}
			log.Info("pruned activity", "count", n)
		}},
	}
	for _, job := range jobs {
		if _, err := c.AddFunc(job.schedule, job.run); err != nil {
			log.Error("failed to add job to scheduler", "job", job.name, "schedule", job.schedule, "error", err)
			os.Exit(1)
		}
	}
	c.Start()
	defer c.Stop()
	log.Info("background jobs scheduled", "count", len(jobs))

	mux := http.NewServeMux()
	adminHandler := admin.NewHandler(admin.Deps{
		Backend:   client,
		Store:     dataStore,
		Editors:   editors,
		Testers:   testers,
		Collector: collectorService,
		Recorder:  recorder,
		Logger:    log,
		I18n:      i18nService,
		Version:   version,
		Retention: cfg.ActivityRetention(),
	})
	apiHandler := api.NewHandler(editors, testers, log, i18nService)

	mux.Handle("/admin", adminHandler)
	mux.Handle("/admin/", adminHandler)
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/admin", http.StatusFound)
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
