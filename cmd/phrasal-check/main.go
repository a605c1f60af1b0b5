package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/chagge/phrasal/internal/corpus"
	"github.com/chagge/phrasal/pkg/phrasal"
	"github.com/chagge/phrasal/pkg/phrasal/config"
	"github.com/chagge/phrasal/pkg/phrasal/logging"
	"github.com/chagge/phrasal/pkg/phrasal/store/sqlite"
)

func main() {
	var (
		refPath    = flag.String("ref", "", "Reference phrase table to check against (required)")
		snapshot   = flag.String("snapshot", "", "SQLite snapshot of a trained model")
		runID      = flag.String("run", "", "Optional: run id inside the snapshot (default: latest)")
		sourcePath = flag.String("source", "", "Source-side corpus file (when retraining)")
		targetPath = flag.String("target", "", "Target-side corpus file (when retraining)")
		alignPath  = flag.String("align", "", "Word alignment file (when retraining)")
		configPath = flag.String("config", "", "Optional: YAML extraction config")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		logFormat  = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if *refPath == "" {
		log.Fatal("--ref required")
	}
	retrain := *sourcePath != "" || *targetPath != "" || *alignPath != ""
	if *snapshot == "" && !retrain {
		log.Fatal("either --snapshot or --source/--target/--align required")
	}

	logger := logging.Setup(*logLevel, *logFormat)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	ctx := context.Background()

	extractor, err := phrasal.New(cfg, logger)
	if err != nil {
		log.Fatalf("create extractor: %v", err)
	}

	if *snapshot != "" {
		st, err := sqlite.Open(ctx, *snapshot)
		if err != nil {
			log.Fatalf("open snapshot store: %v", err)
		}
		defer st.Close()
		snap, err := st.LoadModel(ctx, *runID)
		if err != nil {
			log.Fatalf("load model: %v", err)
		}
		if err := extractor.Restore(snap); err != nil {
			log.Fatalf("restore model: %v", err)
		}
	} else {
		pairs, err := corpus.Load(*sourcePath, *targetPath, *alignPath)
		if err != nil {
			log.Fatalf("load corpus: %v", err)
		}
		if err := extractor.Train(ctx, pairs); err != nil {
			log.Fatalf("train: %v", err)
		}
	}

	ref, err := os.Open(*refPath)
	if err != nil {
		log.Fatalf("open reference table: %v", err)
	}
	defer ref.Close()

	mismatches, err := extractor.CheckAgainst(ref)
	if err != nil {
		log.Fatalf("check: %v", err)
	}
	logger.Info("check complete",
		"run_id", extractor.RunID(), "reference", *refPath, "mismatches", len(mismatches))
	if len(mismatches) > 0 {
		os.Exit(1)
	}
}
