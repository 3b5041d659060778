package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bagel786/pregrader/internal/config"
	"github.com/bagel786/pregrader/internal/detection"
	"github.com/bagel786/pregrader/internal/grader"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags before flag parsing so they work bare
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("pregrader %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	// Logging goes to stderr; stdout carries the JSON report only
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	front := flag.String("front", "", "path to the card front photo (required)")
	back := flag.String("back", "", "path to the card back photo (optional)")
	fastOnly := flag.Bool("fast-only", false, "never contact the vision service")
	debug := flag.Bool("debug", false, "save intermediate images for diagnosis")
	flag.Parse()

	if *front == "" {
		fmt.Fprintln(os.Stderr, "pregrader: -front is required")
		printHelp()
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if *fastOnly {
		cfg.Mode = detection.ModeFastOnly
	}
	if *debug {
		cfg.DebugEnabled = true
	}

	g, err := grader.New(cfg, log.Default())
	if err != nil {
		log.Fatalf("Setup error: %v", err)
	}

	frontData, err := os.ReadFile(*front)
	if err != nil {
		log.Fatalf("Read front photo: %v", err)
	}

	ctx := context.Background()
	var report any
	if *back != "" {
		backData, err := os.ReadFile(*back)
		if err != nil {
			log.Fatalf("Read back photo: %v", err)
		}
		report, err = g.GradeBoth(ctx, frontData, backData)
		if err != nil {
			exitGradeError(err)
		}
	} else {
		report, err = g.Grade(ctx, frontData)
		if err != nil {
			exitGradeError(err)
		}
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Encode report: %v", err)
	}
	fmt.Println(string(out))
}

// exitGradeError gives detection failures a distinct exit code so scripts
// can separate "bad photo" from "broken setup".
func exitGradeError(err error) {
	log.Printf("Grading failed: %v", err)
	if errors.Is(err, detection.ErrCardNotDetected) {
		fmt.Fprintln(os.Stderr, "No card detected. Try a cleaner background, better lighting, or a closer shot.")
		os.Exit(3)
	}
	os.Exit(1)
}

func printHelp() {
	fmt.Println("pregrader - trading card condition pre-grader")
	fmt.Println()
	fmt.Println("Usage: pregrader -front FILE [-back FILE] [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -front FILE      Photo of the card front (required)")
	fmt.Println("  -back FILE       Photo of the card back (optional)")
	fmt.Println("  -fast-only       Never contact the vision service")
	fmt.Println("  -debug           Save intermediate images for diagnosis")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  PREGRADER_VISION_API_KEY       Vision service key (enables the slow path)")
	fmt.Println("  PREGRADER_MODE                 hybrid (default) or fast-only")
	fmt.Println("  PREGRADER_CONFIDENCE_THRESHOLD Fast-path acceptance threshold (default 0.70)")
	fmt.Println("  PREGRADER_SLOW_CONCURRENCY     Max in-flight vision calls (default 5)")
	fmt.Println("  PREGRADER_SLOW_TIMEOUT         Per-call vision timeout (default 30s)")
	fmt.Println("  PREGRADER_DEBUG                Save intermediate images (default false)")
	fmt.Println("  PREGRADER_DEBUG_DIR            Debug artifact directory (default debug_images)")
	fmt.Println()
	fmt.Println("The grading report is written to stdout as JSON; logs go to stderr.")
}
