package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"film-frame-tracker/internal/config"
	"film-frame-tracker/internal/detect"
	"film-frame-tracker/internal/opencv"
	"film-frame-tracker/internal/overlay"
	"film-frame-tracker/internal/track"
)

func main() {
	var (
		verbose     bool
		configPath  string
		writeConfig string
		device      string
		serve       bool
		fps         float64
		colors      string
		opts        batchOptions
	)
	cfg := config.DefaultConfig()

	flag.BoolVar(&verbose, "verbose", false, "Print debug information")
	flag.StringVar(&configPath, "config", "", "JSON configuration file")
	flag.StringVar(&writeConfig, "write-config", "", "Write the effective configuration to this path and exit")
	flag.Float64Var(&cfg.Aggressiveness, "aggressiveness", cfg.Aggressiveness, "Detection aggressiveness, 0 (strict) to 100 (permissive)")
	flag.IntVar(&cfg.MaxCandidates, "max-candidates", cfg.MaxCandidates, "Maximum candidate regions per detection (1-8)")
	flag.BoolVar(&cfg.MultiCapture, "multi", cfg.MultiCapture, "Multi-frame capture: propose up to 8 candidates")
	flag.StringVar(&device, "device", "", "Live mode: camera index or video file")
	flag.StringVar(&device, "video", "", "Alias for -device")
	flag.BoolVar(&serve, "serve", false, "Live mode: serve snapshots and accept input over a websocket")
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Websocket listen address")
	flag.Float64Var(&fps, "fps", 30, "Live mode tick rate")
	flag.StringVar(&opts.DebugDir, "debug-dir", "", "Directory for annotated analysis images")
	flag.StringVar(&colors, "colors", "", "Analysis image colors as locked,candidate hex, e.g. #4dd6c1,#ff8a5b")
	flag.BoolVar(&opts.Enforce32, "enforce-32", false, "Enforce 3:2 or 2:3 aspect ratio")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "Do not write cropped output image")
	flag.StringVar(&opts.OutputDir, "output-dir", "", "Output directory for processed images")
	flag.BoolVar(&opts.Overwrite, "overwrite", false, "Overwrite original images")

	flag.Parse()

	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to load config '%s': %v\n", configPath, err)
			os.Exit(2)
		}
		overrideFromFlags(loaded, cfg)
		cfg = loaded
	}
	if verbose {
		cfg.Debug = true
	}
	style, err := parseColors(colors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Invalid -colors '%s': %v\n", colors, err)
		os.Exit(2)
	}
	opts.Style = style
	_ = cfg.Validate()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)

	if writeConfig != "" {
		if err := cfg.Save(writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to write config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if device != "" {
		if err := runLive(cfg, device, serve, fps, logger); err != nil {
			logger.Error("live mode stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] image_files...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [options] -device 0\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Expand directories
	var inputFiles []string
	for _, file := range files {
		if isDir(file) {
			if !opts.Overwrite && opts.OutputDir == "" && !opts.DryRun {
				fmt.Fprintf(os.Stderr, "ERROR: When passing a folder, provide --output-dir or --overwrite\n")
				os.Exit(2)
			}
			dirFiles, err := expandDirectory(file)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: Failed to list directory '%s': %v\n", file, err)
				continue
			}
			inputFiles = append(inputFiles, dirFiles...)
		} else {
			inputFiles = append(inputFiles, file)
		}
	}

	det := newDetector(cfg, logger)
	defer det.Close()

	if failed := newBatch(cfg, opts, det, logger, os.Stdout).run(inputFiles); failed > 0 {
		os.Exit(1)
	}
}

// overrideFromFlags copies the detection flags given on the command line
// over values loaded from the config file.
func overrideFromFlags(dst, flags *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "aggressiveness":
			dst.Aggressiveness = flags.Aggressiveness
		case "max-candidates":
			dst.MaxCandidates = flags.MaxCandidates
		case "multi":
			dst.MultiCapture = flags.MultiCapture
		case "listen":
			dst.ListenAddr = flags.ListenAddr
		}
	})
}

// parseColors reads the -colors value. Empty means the default palette.
func parseColors(v string) (overlay.Style, error) {
	if v == "" {
		return overlay.DefaultStyle(), nil
	}
	locked, candidate, ok := strings.Cut(v, ",")
	if !ok {
		return overlay.Style{}, fmt.Errorf("want two colors separated by a comma")
	}
	return overlay.ParseStyle(strings.TrimSpace(locked), strings.TrimSpace(candidate))
}

// newDetector picks the contour detector when OpenCV is linked in and the
// edge-density heuristic otherwise.
func newDetector(cfg *config.Config, logger *slog.Logger) detect.Detector {
	if opencv.Available() {
		return opencv.NewContourDetector(logger, cfg.WeightByContrast)
	}
	logger.Info("OpenCV unavailable, using edge-density detection")
	return detect.NewEdgeDensity(logger)
}

// newFlow returns the optical-flow estimator, or nil without OpenCV so the
// tracker runs on overlap matching alone.
func newFlow() (track.FlowEstimator, func() error) {
	if !opencv.Available() {
		return nil, func() error { return nil }
	}
	f := opencv.NewLKFlow()
	return f, f.Close
}
