package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"deploytrace/config"
	"deploytrace/database"
	"deploytrace/debug"
	"deploytrace/deployment"
	"deploytrace/engine"
	"deploytrace/handlers"
	"deploytrace/metrics"
	"deploytrace/registry"
	_ "deploytrace/sqlitedriver"
)

// version is set at build time via ldflags
var version = "dev"

type InfoResponse struct {
	Component string `json:"component"`
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// ServerInfo describes this deployment for /info and the metrics exporters.
type ServerInfo struct{}

func (s *ServerInfo) GetInfo() interface{} {
	hostname, _ := os.Hostname()

	return InfoResponse{
		Component: "deploytrace-server",
		Version:   version,
		Hostname:  hostname,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

func (s *ServerInfo) GetDeploymentName() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "localhost"
	}
	return hostname
}

func (s *ServerInfo) GetDeploymentType() string {
	return "server"
}

func (s *ServerInfo) GetVersion() string {
	return version
}

// setupLogging configures logging to write to both stdout and a log file
func setupLogging() (*os.File, error) {
	logDir := "/var/log/deploytrace"
	logFile := filepath.Join(logDir, "server.log")

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
	cfg, err := config.LoadConfigWithDefaults()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugConfig := debug.NewDebugConfig(cfg.DebugEnabled)
	if debugConfig.IsEnabled() {
		log.Println("Debug mode ENABLED - /debug endpoints available")
	}

	log.Printf("deploytrace-server v%s starting", version)
	log.Printf("Configuration: port=%s, db_path=%s, create_image_fingerprints=%v, debug=%v",
		cfg.Port, cfg.DBPath, cfg.CreateImageFingerprints, cfg.DebugEnabled)

	// Initialize deployment UUID
	dbDir := filepath.Dir(cfg.DBPath)
	deploymentUUID, err := deployment.NewUUID(dbDir)
	if err != nil {
		log.Fatalf("Failed to initialize deployment UUID: %v", err)
	}
	log.Printf("Deployment UUID: %s", deploymentUUID)

	// Initialize database
	db, err := database.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	// Load the registered container set and subscribe it to new deployments
	reg, err := registry.New(db)
	if err != nil {
		log.Fatalf("Error loading container registry: %v", err)
	}
	log.Printf("Container registry loaded: %d containers", reg.Size())

	bus := engine.NewBus()
	bus.Register(reg)

	counters := metrics.NewCounters()
	eng := engine.New(db, bus, engine.Config{
		AutoCreateImages: cfg.CreateImageFingerprints,
	}, counters)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup HTTP server
	infoProvider := &ServerInfo{}
	collector := metrics.NewCollector(infoProvider, deploymentUUID.String(), db, counters)

	mux := http.NewServeMux()
	handlers.RegisterHandlers(mux, infoProvider)
	handlers.RegisterTraceabilityHandlers(mux, eng, reg)
	handlers.RegisterDebugHandlers(mux, debugConfig)
	metrics.RegisterMetricsHandler(mux, collector)

	// Initialize OpenTelemetry metrics exporter if enabled
	var otelExporter *metrics.OTELExporter
	if cfg.OTELEnabled {
		log.Printf("Initializing OpenTelemetry metrics exporter (endpoint: %s, protocol: %s, interval: %v)",
			cfg.OTELEndpoint, cfg.OTELProtocol, cfg.OTELPushInterval)

		otelConfig := metrics.OTELConfig{
			Endpoint:     cfg.OTELEndpoint,
			Protocol:     metrics.OTELProtocol(cfg.OTELProtocol),
			PushInterval: cfg.OTELPushInterval,
			Insecure:     cfg.OTELInsecure,
		}

		otelExporter, err = metrics.NewOTELExporter(ctx, collector, otelConfig)
		if err != nil {
			log.Printf("Warning: Failed to initialize OTEL exporter: %v (continuing without OTEL)", err)
		} else {
			otelExporter.Start()
			log.Println("OpenTelemetry metrics exporter started")
		}
	}

	// Wrap with logging middleware if debug enabled
	var handler http.Handler = mux
	if debugConfig.IsEnabled() {
		handler = debug.LoggingMiddleware(debugConfig, mux)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("deploytrace-server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutdown signal received, shutting down gracefully...")

	cancel()

	// Shutdown OTEL exporter if running
	if otelExporter != nil {
		log.Println("Shutting down OpenTelemetry exporter...")
		if err := otelExporter.Shutdown(); err != nil {
			log.Printf("Error shutting down OTEL exporter: %v", err)
		}
	}

	// Shutdown HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("deploytrace-server stopped")
}
