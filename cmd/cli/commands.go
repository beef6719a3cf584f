package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/CardioDNA/internal/synth"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/model"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/waveform"
	"github.com/himanishpuri/CardioDNA/pkg/logger"
	"github.com/himanishpuri/CardioDNA/pkg/models"
	"github.com/himanishpuri/CardioDNA/pkg/utils"
)

func handlePredict(args []string) {
	log := logger.GetLogger()

	positional, rest := splitArgs(args)
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	sf := bindServiceFlags(fs)
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	fs.Parse(rest)

	if len(positional) < 1 {
		fmt.Println("Error: recording file is required")
		fmt.Println("Usage: cardiodna predict <file> [--json]")
		os.Exit(1)
	}
	path := positional[0]

	rec, err := waveform.ReadFile(path)
	if err != nil {
		fail(log, "Failed to read recording: %v", err)
	}
	fmt.Printf("📂 Loaded %s: %d samples (%.2fs)\n", filepath.Base(path), len(rec.Samples), rec.Duration())
	if err := checkSampleRate(rec); err != nil {
		fail(log, "Cannot classify %s: %v", filepath.Base(path), err)
	}

	svc := mustService(log, sf)
	defer svc.Close()

	ctx, cancel := withTimeout(time.Minute)
	defer cancel()

	if len(rec.Samples) == waveform.Length {
		res, err := svc.Predict(ctx, rec.Samples)
		if err != nil {
			fail(log, "Prediction failed (%s): %v", cardiodna.ReasonOf(err), err)
		}
		if *asJSON {
			printJSON(res)
			return
		}
		printResult(res)
		return
	}

	results, err := svc.PredictRecording(ctx, rec.Samples)
	if err != nil {
		fail(log, "Prediction failed: %v", err)
	}
	if *asJSON {
		printJSON(results)
		return
	}

	fmt.Printf("\n🫀 %d windows:\n\n", len(results))
	summary := map[models.Diagnosis]int{}
	failed := 0
	for _, wr := range results {
		if wr.Err != nil {
			failed++
			fmt.Printf("  [%3d] %6dms  ❌ %s\n", wr.Index, wr.OffsetMs, wr.Err)
			continue
		}
		summary[wr.Result.Diagnosis]++
		fmt.Printf("  [%3d] %6dms  %-20s p=%.3f  HR=%.1f bpm\n",
			wr.Index, wr.OffsetMs, wr.Result.Diagnosis, wr.Result.Probability, wr.Result.Features.HeartRate)
	}

	fmt.Println()
	for _, d := range models.Diagnoses {
		fmt.Printf("   %-20s %d\n", d, summary[d])
	}
	if failed > 0 {
		fmt.Printf("   %-20s %d\n", "Rejected", failed)
	}
}

func printResult(res *models.PredictionResult) {
	fmt.Println()
	fmt.Printf("🫀 Diagnosis:   %s\n", res.Diagnosis)
	fmt.Printf("   Probability: %.4f\n", res.Probability)
	fmt.Printf("   Model:       v%d\n", res.ModelVersion)
	fmt.Println()
	fmt.Println("📊 Features:")
	fmt.Printf("   Heart rate:    %.1f bpm\n", res.Features.HeartRate)
	if res.Quality.HRVDefined {
		fmt.Printf("   HRV (RMSSD):   %.1f ms\n", res.Features.HRVRMSSD)
	} else {
		fmt.Printf("   HRV (RMSSD):   n/a (%d RR intervals)\n", res.Quality.RRIntervals)
	}
	fmt.Printf("   QRS duration:  %.3f s\n", res.Features.QRSDuration)
	fmt.Printf("   R amplitude:   %.3f\n", res.Features.RAmplitude)
	fmt.Printf("   Signal energy: %.3f\n", res.Features.SignalEnergy)
	fmt.Printf("   Peaks:         %d, dominant %.1f Hz\n", res.Quality.PeaksDetected, res.Quality.DominantFrequencyHz)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Errorf("Failed to encode output: %v", err)
	}
}

func handleBatch(args []string) {
	log := logger.GetLogger()

	positional, rest := splitArgs(args)
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	sf := bindServiceFlags(fs)
	out := fs.String("out", "report.csv", "Path of the CSV report")
	fs.Parse(rest)

	if len(positional) < 1 {
		fmt.Println("Error: directory is required")
		fmt.Println("Usage: cardiodna batch <dir> [--out report.csv]")
		os.Exit(1)
	}

	files, err := utils.ListFiles(positional[0], ".json", ".csv", ".txt", ".wav")
	if err != nil {
		fail(log, "Failed to list recordings: %v", err)
	}
	if len(files) == 0 {
		fmt.Println("No recordings found.")
		return
	}
	fmt.Printf("📂 Found %d recordings\n", len(files))

	svc := mustService(log, sf)
	defer svc.Close()

	ctx, cancel := withTimeout(10 * time.Minute)
	defer cancel()

	var rows []reportRow
	for i, path := range files {
		fmt.Printf("[%d/%d] %s\n", i+1, len(files), filepath.Base(path))
		rows = append(rows, classifyFile(ctx, svc, path)...)
	}

	if err := ensureParentDir(*out); err != nil {
		fail(log, "Failed to create report directory: %v", err)
	}
	if err := writeReport(*out, rows); err != nil {
		fail(log, "Failed to write report: %v", err)
	}

	failed := 0
	for _, r := range rows {
		if r.Error != "" {
			failed++
		}
	}
	fmt.Printf("\n✅ Wrote %d rows to %s (%d rejected)\n", len(rows), *out, failed)
}

func handleSynth(args []string) {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("synth", flag.ExitOnError)
	hr := fs.Float64("hr", 72, "Heart rate in bpm")
	noise := fs.Float64("noise", 0.02, "Noise amplitude")
	amp := fs.Float64("amp", 1.0, "R-wave amplitude")
	seconds := fs.Int("seconds", 1, "Recording length in seconds")
	phase := fs.Float64("phase", 0, "Starting phase within the beat, 0..1")
	out := fs.String("out", "", "Output file (.json, .csv or .wav)")
	fs.Parse(args)

	if *out == "" {
		fmt.Println("Error: --out is required")
		fmt.Println("Usage: cardiodna synth --out <file> [--hr 72] [--noise 0.02] [--amp 1] [--seconds 1]")
		os.Exit(1)
	}
	if *seconds < 1 {
		fail(log, "--seconds must be at least 1")
	}

	gen := synth.New(waveform.SampleRate, *hr, *noise, *amp).WithPhase(*phase)
	samples := gen.Samples(*seconds * waveform.Length)

	if err := ensureParentDir(*out); err != nil {
		fail(log, "Failed to create output directory: %v", err)
	}
	if err := writeSamples(*out, samples); err != nil {
		fail(log, "Failed to write recording: %v", err)
	}
	fmt.Printf("✅ Wrote %d samples (%.0f bpm) to %s\n", len(samples), *hr, *out)
}

func writeSamples(path string, samples []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.NewEncoder(f).Encode(map[string][]float64{"ecg_signal": samples})
	case ".csv", ".txt":
		for _, v := range samples {
			if _, err := fmt.Fprintf(f, "%.6f\n", v); err != nil {
				return err
			}
		}
		return nil
	case ".wav":
		return waveform.WriteWAV(f, samples, waveform.SampleRate)
	default:
		return fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func handleModel(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: cardiodna model <init|info> [options]")
		os.Exit(1)
	}
	switch args[0] {
	case "init":
		handleModelInit(args[1:])
	case "info":
		handleModelInfo(args[1:])
	default:
		fmt.Printf("Unknown model command: %s\n", args[0])
		os.Exit(1)
	}
}

func handleModelInit(args []string) {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("model init", flag.ExitOnError)
	seed := fs.Uint64("seed", 1, "Seed for the weight initialisation")
	out := fs.String("out", getEnvOrDefault("CARDIO_MODEL_PATH", "models/ecg_cnn.json"), "Artifact path")
	force := fs.Bool("force", false, "Overwrite an existing artifact")
	fs.Parse(args)

	if _, err := os.Stat(*out); err == nil && !*force {
		fail(log, "%s already exists (use --force to overwrite)", *out)
	}
	if dir := filepath.Dir(*out); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			fail(log, "Failed to create model directory: %v", err)
		}
	}

	a := model.GenerateArtifact(*seed)
	if err := model.SaveArtifact(*out, a); err != nil {
		fail(log, "Failed to save artifact: %v", err)
	}

	fmt.Printf("✅ Wrote %s\n", *out)
	fmt.Printf("   Digest: %s\n", a.Digest)
	fmt.Println("   Note: weights are randomly initialised, not trained")
}

func handleModelInfo(args []string) {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("model info", flag.ExitOnError)
	sf := bindServiceFlags(fs)
	version := fs.Int("version", 0, "Show a single registered version instead of the active model")
	fs.Parse(args)

	if *version > 0 {
		st := openStorage(log, sf.dbPath)
		defer st.Close()

		mv, err := st.GetModelVersion(*version)
		if err != nil {
			fail(log, "Failed to look up v%d: %v", *version, err)
		}
		fmt.Printf("🧠 Model v%d\n", mv.Version)
		fmt.Printf("   Path:   %s\n", mv.Path)
		fmt.Printf("   Digest: %s\n", mv.Digest)
		fmt.Printf("   Loaded: %s\n", mv.LoadedAt.Format(time.RFC3339))
		return
	}

	c, err := model.Load(sf.modelPath)
	if err != nil {
		fail(log, "Failed to load model: %v", err)
	}

	svc := mustService(log, sf)
	defer svc.Close()

	mv := svc.ModelInfo()
	fmt.Println()
	fmt.Printf("🧠 Active model: v%d\n", mv.Version)
	fmt.Printf("   Path:   %s\n", mv.Path)
	fmt.Printf("   Digest: %s\n", mv.Digest)
	fmt.Printf("   Loaded: %s\n", mv.LoadedAt.Format(time.RFC3339))
	fmt.Printf("   Shape:  %s\n", describeModel(c))

	versions, err := svc.ListModelVersions()
	if err != nil {
		fail(log, "Failed to list model versions: %v", err)
	}
	fmt.Printf("\n📚 Registered versions (%d):\n\n", len(versions))
	for _, v := range versions {
		marker := " "
		if v.Digest == mv.Digest {
			marker = "*"
		}
		fmt.Printf(" %s v%-3d %s  %s\n", marker, v.Version, v.Digest[:min(12, len(v.Digest))], v.Path)
	}
}

// describeModel summarises what the classifier consumes and produces.
func describeModel(c *model.Classifier) string {
	labels := make([]string, len(c.Labels()))
	for i, l := range c.Labels() {
		labels[i] = string(l)
	}
	return fmt.Sprintf("%d samples -> [%s]", c.InputLength(), strings.Join(labels, ", "))
}

func handleKeys(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: cardiodna keys <create|list|revoke|activate> [options]")
		os.Exit(1)
	}
	switch args[0] {
	case "create":
		handleKeysCreate(args[1:])
	case "list":
		handleKeysList(args[1:])
	case "revoke":
		handleKeysSetActive(args[1:], false)
	case "activate":
		handleKeysSetActive(args[1:], true)
	default:
		fmt.Printf("Unknown keys command: %s\n", args[0])
		os.Exit(1)
	}
}

// Key management only touches the registry, so it opens storage directly
// instead of loading the model.
func openStorage(log *logger.Logger, dbPath string) cardiodna.Storage {
	st, err := cardiodna.NewSQLiteStorage(dbPath)
	if err != nil {
		fail(log, "Failed to open database: %v", err)
	}
	return st
}

func handleKeysCreate(args []string) {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("keys create", flag.ExitOnError)
	sf := bindServiceFlags(fs)
	email := fs.String("email", "", "Owner email")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		fmt.Println("Error: --email is required")
		os.Exit(1)
	}

	st := openStorage(log, sf.dbPath)
	defer st.Close()

	plaintext, key, err := st.CreateAPIKey(*email)
	if err != nil {
		fail(log, "Failed to create key: %v", err)
	}

	fmt.Println("✅ API key created")
	fmt.Printf("   ID:     %s\n", key.ID)
	fmt.Printf("   Email:  %s\n", key.Email)
	fmt.Printf("   Key:    %s\n", plaintext)
	fmt.Println("   Store it now, it cannot be shown again.")
}

func handleKeysList(args []string) {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("keys list", flag.ExitOnError)
	sf := bindServiceFlags(fs)
	fs.Parse(args)

	st := openStorage(log, sf.dbPath)
	defer st.Close()

	keys, err := st.ListAPIKeys()
	if err != nil {
		fail(log, "Failed to list keys: %v", err)
	}
	if len(keys) == 0 {
		fmt.Println("No API keys issued.")
		return
	}

	fmt.Printf("\n🔑 API keys (%d):\n\n", len(keys))
	for _, k := range keys {
		status := "active"
		if !k.Active {
			status = "revoked"
		}
		lastUsed := "never"
		if k.LastUsed != nil {
			lastUsed = k.LastUsed.Format(time.RFC3339)
		}
		fmt.Printf("  %s  %-10s %-8s %-30s last used %s\n", k.ID, k.Prefix, status, k.Email, lastUsed)
	}
}

func handleKeysSetActive(args []string, active bool) {
	log := logger.GetLogger()

	positional, rest := splitArgs(args)
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	sf := bindServiceFlags(fs)
	fs.Parse(rest)

	if len(positional) < 1 {
		fmt.Println("Error: key id or prefix is required")
		os.Exit(1)
	}

	st := openStorage(log, sf.dbPath)
	defer st.Close()

	if err := st.SetAPIKeyActive(positional[0], active); err != nil {
		fail(log, "Failed to update key: %v", err)
	}
	if active {
		fmt.Printf("✅ Key %s activated\n", positional[0])
	} else {
		fmt.Printf("✅ Key %s revoked\n", positional[0])
	}
}
