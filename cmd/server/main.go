//go:build !js && !wasm

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/himanishpuri/AudioLab/internal/config"
	"github.com/himanishpuri/AudioLab/pkg/audiolab"
	"github.com/himanishpuri/AudioLab/pkg/logger"
)

var (
	configPath     string
	port           int
	dbPath         string
	tempDir        string
	sampleRate     int
	allowedOrigins string
)

func init() {
	flag.StringVar(&configPath, "config", os.Getenv("AUDIOLAB_CONFIG"), "Path to a YAML config file")
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", "audiolab.sqlite3", "Path to SQLite database")
	flag.StringVar(&tempDir, "temp", "/tmp", "Temporary directory")
	flag.IntVar(&sampleRate, "rate", 0, "Decode sample rate, 0 keeps each file's rate")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

// loadConfig reads the config file and applies flags that were set
// explicitly on the command line.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = port
		case "db":
			cfg.Database.Path = dbPath
		case "temp":
			cfg.Audio.TempDir = tempDir
		case "rate":
			cfg.Audio.SampleRate = sampleRate
		case "origins":
			cfg.Server.AllowedOrigins = parseOrigins(allowedOrigins)
		}
	})
	return cfg, cfg.Validate()
}

func parseOrigins(s string) []string {
	if strings.TrimSpace(s) == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	service, err := audiolab.NewService(
		audiolab.WithDBPath(cfg.Database.Path),
		audiolab.WithTempDir(cfg.Audio.TempDir),
		audiolab.WithSampleRate(cfg.Audio.SampleRate),
		audiolab.WithAlignOptions(cfg.AlignOptions()),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:           cfg.Server.Port,
		DBPath:         cfg.Database.Path,
		TempDir:        cfg.Audio.TempDir,
		SampleRate:     cfg.Audio.SampleRate,
		AlignMethod:    cfg.Align.Method,
		WaveformWidth:  cfg.Waveform.Width,
		WaveformHeight: cfg.Waveform.Height,
		MaxUploadMB:    cfg.Server.MaxUploadMB,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		os.Exit(1)
	}
}
