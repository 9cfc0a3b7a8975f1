package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rotationwatch/config"
	inputredis "rotationwatch/internal/input/redis"
	"rotationwatch/internal/logger"
	"rotationwatch/internal/monitor"
	"rotationwatch/internal/output/audithttp"
	"rotationwatch/internal/output/auditjson"
	"rotationwatch/internal/pipeline"
	"rotationwatch/internal/response"
	"rotationwatch/internal/rules"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("rotationwatch.yml"); err == nil {
		return "rotationwatch.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "rotationwatch.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "rotationwatch.yml"
}

func applyDefaults(cfg *config.Config) {
	rw := &cfg.RotationWatch

	if rw.Input.Redis.Addr == "" {
		rw.Input.Redis.Addr = "127.0.0.1:6379"
	}
	if rw.Input.Redis.Key == "" {
		rw.Input.Redis.Key = "rotation_events"
	}
	if rw.Input.Redis.BlockTimeout == 0 {
		rw.Input.Redis.BlockTimeout = 5 * time.Second
	}

	if rw.Pipeline.Workers <= 0 {
		rw.Pipeline.Workers = 4
	}
	if rw.Pipeline.BatchSize <= 0 {
		rw.Pipeline.BatchSize = 100
	}
	if rw.Pipeline.FlushInterval <= 0 {
		rw.Pipeline.FlushInterval = 2 * time.Second
	}
	if rw.Pipeline.AuditQueue <= 0 {
		rw.Pipeline.AuditQueue = 1024
	}

	if rw.Monitor.WindowMinutes <= 0 {
		rw.Monitor.WindowMinutes = 60
	}
	if rw.Monitor.MinConfidence <= 0 {
		rw.Monitor.MinConfidence = 0.7
	}

	if rw.Audit.Mode == "" {
		rw.Audit.Mode = "file"
	}
	if rw.Audit.File.Path == "" {
		rw.Audit.File.Path = "output/audit_events.jsonl"
	}

	if rw.Retention.Hours <= 0 {
		rw.Retention.Hours = 24
	}
	if rw.Retention.SweepInterval <= 0 {
		rw.Retention.SweepInterval = 15 * time.Minute
	}

	if rw.Metrics.Addr == "" {
		rw.Metrics.Addr = ":9187"
	}

	if rw.Logging.Level == "" {
		rw.Logging.Level = "info"
	}
}

func runServe(args []string) {
	configArg := ""
	if len(args) > 0 {
		configArg = args[0]
	}

	configPath := findConfigFile(configArg)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyDefaults(cfg)
	rw := cfg.RotationWatch

	if err := logger.Init(rw.Logging.Enabled, rw.Logging.Level, rw.Logging.File, rw.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("RotationWatch starting")
	logger.Infof("Config loaded from: %s", configPath)

	consumer, err := inputredis.NewConsumer(inputredis.Config{
		Addr:         rw.Input.Redis.Addr,
		Password:     rw.Input.Redis.Password,
		DB:           rw.Input.Redis.DB,
		Key:          rw.Input.Redis.Key,
		BlockTimeout: rw.Input.Redis.BlockTimeout,
	})
	if err != nil {
		logger.Errorf("Failed to create Redis consumer: %v", err)
		log.Fatalf("Failed to create Redis consumer: %v", err)
	}

	var ruleEngine rules.Engine
	if rw.Rules.Enabled {
		if strings.TrimSpace(rw.Rules.Path) == "" {
			logger.Warnf("Rules enabled but rules.path is empty; indicator tagging disabled")
		} else {
			sigmaEngine, stats, err := rules.NewSigmaEngine(rw.Rules.Path)
			if err != nil {
				logger.Errorf("Failed to load indicator rules from %s: %v", rw.Rules.Path, err)
				log.Fatalf("Failed to load indicator rules: %v", err)
			}
			ruleEngine = sigmaEngine
			logger.Infof("Indicator rules loaded: loaded=%d skipped_complex=%d skipped_source=%d skipped_invalid=%d files=%d",
				stats.Loaded,
				stats.SkippedComplex,
				stats.SkippedSource,
				stats.SkippedInvalid,
				stats.TotalFiles,
			)
			if stats.Loaded == 0 {
				logger.Warnf("No compatible indicator rules loaded; tagging is effectively disabled")
			}
		}
	}

	var auditWriter pipeline.AuditWriter
	switch rw.Audit.Mode {
	case "file":
		w, err := auditjson.NewWriter(rw.Audit.File.Path)
		if err != nil {
			logger.Errorf("Failed to create audit file writer: %v", err)
			log.Fatalf("Failed to create audit file writer: %v", err)
		}
		auditWriter = w
		logger.Infof("Audit output mode: file (%s)", rw.Audit.File.Path)
	case "http":
		w, err := audithttp.NewWriter(audithttp.Config{
			URL:     rw.Audit.HTTP.URL,
			Timeout: rw.Audit.HTTP.Timeout,
			Headers: rw.Audit.HTTP.Headers,
		})
		if err != nil {
			logger.Errorf("Failed to create audit HTTP writer: %v", err)
			log.Fatalf("Failed to create audit HTTP writer: %v", err)
		}
		auditWriter = w
		logger.Infof("Audit output mode: http (%s)", rw.Audit.HTTP.URL)
	default:
		log.Fatalf("Unknown audit output mode: %s", rw.Audit.Mode)
	}

	queue := pipeline.NewAuditQueue(rw.Pipeline.AuditQueue)

	var dispatcher *response.Dispatcher
	if rw.Response.WebhookURL != "" {
		table, err := response.NewWebhookHandlers(rw.Response.WebhookURL, rw.Response.WebhookTimeout)
		if err != nil {
			logger.Errorf("Failed to create remediation webhook handlers: %v", err)
			log.Fatalf("Failed to create remediation webhook handlers: %v", err)
		}
		dispatcher = response.NewDispatcher(queue, table, rw.Monitor.AutomatedResponse)
		logger.Infof("Remediation webhook: %s (automated=%v)", rw.Response.WebhookURL, rw.Monitor.AutomatedResponse)
	} else {
		dispatcher = response.NewDispatcher(queue, nil, rw.Monitor.AutomatedResponse)
	}

	mon := monitor.New(monitor.Config{
		Window: time.Duration(rw.Monitor.WindowMinutes) * time.Minute,
		Detectors: monitor.DetectorConfig{
			MinConfidence:        rw.Monitor.MinConfidence,
			FrequentThreshold:    rw.Monitor.FrequentThreshold,
			FailureThreshold:     rw.Monitor.FailureThreshold,
			AutomationMinSamples: rw.Monitor.AutomationSamples,
		},
		RealTimeResponse: rw.Monitor.RealTimeResponse,
	}, dispatcher)

	pipe := pipeline.NewMonitorPipeline(
		consumer,
		ruleEngine,
		mon,
		queue,
		auditWriter,
		rw.Pipeline.Workers,
		rw.Pipeline.BatchSize,
		rw.Pipeline.FlushInterval,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if rw.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Infof("Metrics endpoint on %s", rw.Metrics.Addr)
			if err := http.ListenAndServe(rw.Metrics.Addr, mux); err != nil {
				logger.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(rw.Retention.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mon.Cleanup(time.Duration(rw.Retention.Hours) * time.Hour)
			}
		}
	}()

	go func() {
		if err := pipe.Run(ctx); err != nil && err != context.Canceled {
			logger.Errorf("Pipeline error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	cancel()
	time.Sleep(1 * time.Second)

	if err := pipe.Close(); err != nil {
		logger.Errorf("Error closing pipeline: %v", err)
	}

	logger.Infof("RotationWatch stopped")
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		default:
			// Backward-compatible mode: first arg is config path.
			runServe(os.Args[1:])
			return
		}
	}

	runServe(nil)
}
