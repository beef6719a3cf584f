package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/CardioDNA/pkg/cardiodna"
	"github.com/himanishpuri/CardioDNA/pkg/logger"
)

// Shared flags, bound on every subcommand that opens the service.
type serviceFlags struct {
	dbPath       string
	modelPath    string
	modelVersion int
}

func bindServiceFlags(fs *flag.FlagSet) *serviceFlags {
	sf := &serviceFlags{}
	fs.StringVar(&sf.dbPath, "db", getEnvOrDefault("CARDIO_DB_PATH", "cardiodna.sqlite3"), "Path to the SQLite database file")
	fs.StringVar(&sf.modelPath, "model", getEnvOrDefault("CARDIO_MODEL_PATH", "models/ecg_cnn.json"), "Path to the model artifact")
	fs.IntVar(&sf.modelVersion, "model-version", 0, "Override the reported model version (0 = registry)")
	return sf
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService creates a new CardioDNA service with configured options
func (sf *serviceFlags) createService() (cardiodna.Service, error) {
	return cardiodna.NewService(
		cardiodna.WithDBPath(sf.dbPath),
		cardiodna.WithModelPath(sf.modelPath),
		cardiodna.WithModelVersion(sf.modelVersion),
	)
}

func main() {
	log := logger.GetLogger()

	printBanner()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	log.Debugf("Executing command: %s", command)

	switch command {
	case "predict":
		handlePredict(os.Args[2:])
	case "batch":
		handleBatch(os.Args[2:])
	case "synth":
		handleSynth(os.Args[2:])
	case "model":
		handleModel(os.Args[2:])
	case "keys":
		handleKeys(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
  ____              _ _       ____  _   _    _
 / ___|__ _ _ __ __| (_) ___ |  _ \| \ | |  / \
| |   / _' | '__/ _' | |/ _ \| | | |  \| | / _ \
| |__| (_| | | | (_| | | (_) | |_| | |\  |/ ___ \
 \____\__,_|_|  \__,_|_|\___/|____/|_| \_/_/   \_\

        Single-lead ECG Analysis CLI Tool
`
	fmt.Println(banner)
}

func printUsage() {
	fmt.Println("Usage: cardiodna <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  predict <file>              Classify a recording (.json, .csv, .txt, .wav)")
	fmt.Println("  batch <dir> [--out file]    Classify every recording in a directory into a CSV report")
	fmt.Println("  synth --out <file>          Write a synthetic ECG recording")
	fmt.Println("  model init [--seed N]       Write an untrained model artifact")
	fmt.Println("  model info                  Show the loaded model and registered versions")
	fmt.Println("  keys create --email <addr>  Issue an API key")
	fmt.Println("  keys list                   List API keys")
	fmt.Println("  keys revoke <id|prefix>     Deactivate an API key")
	fmt.Println("  keys activate <id|prefix>   Reactivate an API key")
	fmt.Println()
	fmt.Println("Common options: --db <path> --model <path> --model-version <n>")
}

// splitArgs separates leading positional arguments from flags so that
// "predict file.json --db x" and "predict --db x file.json" both work.
func splitArgs(args []string) (positional, flags []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			flags = append(flags, arg)
			if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && !isBoolFlag(arg) {
				flags = append(flags, args[i+1])
				i++
			}
			continue
		}
		positional = append(positional, arg)
	}
	return positional, flags
}

func isBoolFlag(arg string) bool {
	switch strings.TrimLeft(arg, "-") {
	case "json", "force":
		return true
	}
	return false
}

func fail(log *logger.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("❌ %s\n", msg)
	log.Errorf("%s", msg)
	os.Exit(1)
}

func mustService(log *logger.Logger, sf *serviceFlags) cardiodna.Service {
	fmt.Println("🔧 Initializing service...")
	svc, err := sf.createService()
	if err != nil {
		if errors.Is(err, cardiodna.ErrModelNotLoaded) {
			fmt.Println("   Hint: run 'cardiodna model init' to create a model artifact")
		}
		fail(log, "Failed to create service: %v", err)
	}
	return svc
}

func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
