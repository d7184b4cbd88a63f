//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"flag"
	"os"
	"strings"

	"github.com/himanishpuri/MelodyMatch/pkg/config"
	"github.com/himanishpuri/MelodyMatch/pkg/logger"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch"
)

var (
	configPath     string
	port           int
	dbPath         string
	allowedOrigins string
	logRequests    bool
	logLevel       string
)

func init() {
	flag.StringVar(&configPath, "config", os.Getenv("MELODY_CONFIG"), "Path to TOML config file")
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("MELODY_DB_PATH", ""), "Path to SQLite database (overrides config)")
	flag.StringVar(&allowedOrigins, "origins", "", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.BoolVar(&logRequests, "log-requests", false, "Log every HTTP request")
	flag.StringVar(&logLevel, "log-level", getEnvOrDefault("LOG_LEVEL", "INFO"), "Log level (DEBUG, INFO, WARN, ERROR)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// flagSet reports whether name was given on the command line.
func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func main() {
	flag.Parse()

	log := logger.GetLogger()
	log.SetLevel(logger.ParseLevel(logLevel))

	cfg, usedPath, err := config.LoadConfigWithPriority(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the config file
	if dbPath != "" {
		cfg.Catalog.DBPath = dbPath
	}
	if flagSet("port") {
		cfg.Server.Port = port
	}
	if allowedOrigins != "" {
		if allowedOrigins == "*" {
			cfg.Server.AllowedOrigins = []string{"*"}
		} else {
			origins := strings.Split(allowedOrigins, ",")
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
			cfg.Server.AllowedOrigins = origins
		}
	}

	opts, err := cfg.ServiceOptions()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	service, err := melodymatch.NewService(append(opts, melodymatch.WithLogger(log))...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:           cfg.Server.Port,
		DBPath:         cfg.Catalog.DBPath,
		ConfigPath:     usedPath,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		LogRequests:    logRequests,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
