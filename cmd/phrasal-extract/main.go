package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chagge/phrasal/internal/corpus"
	"github.com/chagge/phrasal/pkg/phrasal"
	"github.com/chagge/phrasal/pkg/phrasal/config"
	"github.com/chagge/phrasal/pkg/phrasal/logging"
	"github.com/chagge/phrasal/pkg/phrasal/store/sqlite"
)

func main() {
	var (
		sourcePath = flag.String("source", "", "Source-side corpus file (required)")
		targetPath = flag.String("target", "", "Target-side corpus file (required)")
		alignPath  = flag.String("align", "", "Word alignment file, i-j format (required)")
		configPath = flag.String("config", "", "Optional: YAML extraction config")
		snapshot   = flag.String("snapshot", "", "Optional: SQLite file to save the trained model to")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		logFormat  = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if *sourcePath == "" || *targetPath == "" || *alignPath == "" {
		log.Fatal("--source, --target and --align are required")
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

	pairs, err := corpus.Load(*sourcePath, *targetPath, *alignPath)
	if err != nil {
		log.Fatalf("load corpus: %v", err)
	}

	extractor, err := phrasal.New(cfg, logger)
	if err != nil {
		log.Fatalf("create extractor: %v", err)
	}
	if err := extractor.Train(ctx, pairs); err != nil {
		log.Fatalf("train: %v", err)
	}

	emitted, err := writeTable(os.Stdout, extractor)
	if err != nil {
		log.Fatalf("write table: %v", err)
	}
	logger.Info("phrase table written",
		"run_id", extractor.RunID(), "candidates", extractor.Candidates(), "emitted", emitted)

	if *snapshot != "" {
		st, err := sqlite.Open(ctx, *snapshot)
		if err != nil {
			log.Fatalf("open snapshot store: %v", err)
		}
		defer st.Close()
		if err := st.SaveModel(ctx, extractor.Snapshot()); err != nil {
			log.Fatalf("save snapshot: %v", err)
		}
		logger.Info("snapshot saved", "run_id", extractor.RunID(), "path", *snapshot)
	}
}

// writeTable scores every registered phrase pair and writes the survivors
// in Moses text format.
func writeTable(f *os.File, extractor *phrasal.Extractor) (int, error) {
	w := bufio.NewWriter(f)
	emitted := 0
	for id := int32(0); int(id) < extractor.Candidates(); id++ {
		cand, err := extractor.Candidate(id)
		if err != nil {
			return emitted, err
		}
		values, ok := extractor.Score(cand)
		if !ok {
			continue
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = strconv.FormatFloat(v, 'g', 6, 64)
		}
		fmt.Fprintf(w, "%s ||| %s ||| %s ||| %s\n",
			cand.SourcePhrase(), cand.TargetPhrase(), cand.LinkString(), strings.Join(parts, " "))
		emitted++
	}
	return emitted, w.Flush()
}
