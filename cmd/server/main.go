//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/himanishpuri/CardioDNA/internal/metrics"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna"
	"github.com/himanishpuri/CardioDNA/pkg/logger"
)

var (
	port           int
	dbPath         string
	modelPath      string
	modelVersion   int
	allowedOrigins string
	requireAPIKey  bool
	logRequests    bool
	logLevel       string
	logCaller      bool
)

func init() {
	flag.IntVar(&port, "port", getEnvInt("CARDIO_PORT", 8080), "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("CARDIO_DB_PATH", "cardiodna.sqlite3"), "Path to SQLite database")
	flag.StringVar(&modelPath, "model", getEnvOrDefault("CARDIO_MODEL_PATH", "models/ecg_cnn.json"), "Path to the model artifact")
	flag.IntVar(&modelVersion, "model-version", getEnvInt("MODEL_VERSION", 0), "Report this model version instead of the registry's (0 = registry)")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.BoolVar(&requireAPIKey, "require-key", getEnvBool("CARDIO_REQUIRE_API_KEY", true), "Require a valid x-api-key header on prediction routes")
	flag.BoolVar(&logRequests, "log-requests", true, "Log every HTTP request")
	flag.StringVar(&logLevel, "log-level", getEnvOrDefault("LOG_LEVEL", "INFO"), "Log level (DEBUG, INFO, WARN, ERROR)")
	flag.BoolVar(&logCaller, "log-caller", getEnvBool("LOG_CALLER", false), "Include file and function in log lines")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func main() {
	flag.Parse()
	logger.SetLevel(logger.ParseLevel(logLevel))
	logger.GetLogger().SetShowCaller(logCaller)

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	m := metrics.New(metrics.DefaultNamespace)

	service, err := cardiodna.NewService(
		cardiodna.WithDBPath(dbPath),
		cardiodna.WithModelPath(modelPath),
		cardiodna.WithModelVersion(modelVersion),
		cardiodna.WithMetrics(m),
	)
	if err != nil {
		logger.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		AllowedOrigins: origins,
		RequireAPIKey:  requireAPIKey,
		LogRequests:    logRequests,
	}

	server := NewServer(service, config, m)
	if err := server.Start(); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}
