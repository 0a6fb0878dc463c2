package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"deploytrace/agent"
	"deploytrace/config"
	"deploytrace/debug"
	"deploytrace/scheduler"
)

// version is set at build time via ldflags
var version = "dev"

// setupLogging configures logging to write to both stdout and a log file
func setupLogging() (*os.File, error) {
	logDir := "/var/log/deploytrace"
	logFile := filepath.Join(logDir, "agent.log")

	// Try to create log file, but don't fail if we can't
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("Warning: could not open log file %s: %v (logging to stdout only)", logFile, err)
		return nil, nil
	}

	// Log to both stdout (systemd journal) and file
	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags)

	return file, nil
}

func main() {
	logFile, _ := setupLogging()
	if logFile != nil {
		defer func() { _ = logFile.Close() }()
	}

	// Load configuration from file with environment variable overrides
	cfg, err := config.LoadAgentConfigWithDefaults()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugConfig := debug.NewDebugConfig(cfg.DebugEnabled)

	log.Printf("deploytrace-agent v%s starting", version)
	log.Printf("Configuration: server_url=%s, environment=%q, resync_interval=%v, debug=%v",
		cfg.ServerURL, cfg.Environment, cfg.ResyncInterval, cfg.DebugEnabled)

	client := agent.NewClient(cfg.ServerURL)
	submitter := agent.NewSubmitter(client, debugConfig)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Check if Docker is available and start watcher
	if agent.IsDockerAvailable() {
		log.Println("Docker detected, starting container watcher")
		go func() {
			if err := agent.WatchContainers(ctx, submitter, cfg.Environment); err != nil {
				log.Printf("Docker watcher error: %v", err)
			}
		}()
	} else {
		log.Println("Docker not available or not accessible, container watching disabled")
	}

	// Schedule the periodic container resync
	sched := scheduler.New()
	resyncJob := agent.NewResyncJob(client, cfg.Environment)
	if err := sched.AddJob(
		resyncJob,
		scheduler.NewIntervalSchedule(cfg.ResyncInterval),
		scheduler.JobConfig{
			Enabled: true,
			Timeout: 5 * time.Minute,
		},
	); err != nil {
		log.Fatalf("Failed to add resync job: %v", err)
	}
	log.Printf("Scheduled %s job (interval: %v)", resyncJob.Name(), cfg.ResyncInterval)

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, shutting down gracefully...")

	cancel()

	if err := sched.Stop(); err != nil {
		log.Printf("Error stopping scheduler: %v", err)
	}
	submitter.Shutdown()

	log.Println("deploytrace-agent stopped")
}
