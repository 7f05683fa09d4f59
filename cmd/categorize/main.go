package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/cognicore/herba/internal/llm"
	"github.com/cognicore/herba/internal/logger"
	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/config"
	"github.com/cognicore/herba/pkg/remedy/enrich"
)

func main() {
	var (
		configPath = flag.String("config", "", "Pipeline YAML config (optional)")
		input      = flag.String("input", "", "Structured remedies (default from config)")
		output     = flag.String("output", "", "Categorized output path (default from config)")
		workers    = flag.Int("workers", 0, "Concurrent LLM requests (default from config)")
		llmBase    = flag.String("llm-base", "", "Chat completions URL (default from config)")
		llmModel   = flag.String("llm-model", "", "Model name (default from config)")
		llmKey     = flag.String("llm-api-key", "", "API key (else $OPENAI_API_KEY, else prompt)")
		logMode    = flag.String("log-mode", "dev", "Log format: dev or prod")
	)
	flag.Parse()

	comps, err := (&config.Loader{ConfigPath: *configPath, Model: *llmModel, BaseURL: *llmBase, Workers: *workers}).Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg := comps.Config
	in := *input
	if in == "" {
		in = cfg.Paths.Structured
	}
	out := *output
	if out == "" {
		out = cfg.Paths.Categorized
	}

	zl, err := logger.New(*logMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	key, err := llm.ResolveAPIKey(*llmKey, os.Stdin, os.Stderr)
	if err != nil {
		log.Fatalf("api key: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	counts, err := run(ctx, in, out, enrich.New(llm.New(cfg.LLM, key), zl), cfg.LLM.Workers, zl)
	if err != nil {
		log.Fatalf("categorize: %v", err)
	}
	fmt.Printf("Saved %d categorized remedies to %s\n", counts.total(), out)
	for _, c := range append(append([]string{}, remedy.Categories...), remedy.CategoryUnknown) {
		if counts[c] > 0 {
			fmt.Printf("  %-18s %d\n", c, counts[c])
		}
	}
}

type categoryCounts map[string]int

func (c categoryCounts) total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// run categorizes every record in the input file and writes the result.
// Records the model left without a known category are counted as unknown.
func run(ctx context.Context, in, out string, e *enrich.Enricher, workers int, zl *logger.Logger) (categoryCounts, error) {
	records, skipped, err := remedy.ReadRecords(in)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Printf("Ignoring %d non-object entries in %s", skipped, in)
	}
	log.Printf("Loaded %d remedies", len(records))

	categorized, err := enrich.Run(ctx, enrich.Runner{Workers: workers, Log: zl}, records, remedy.Record.DisplayName, e.Categorize)
	if err != nil {
		return nil, err
	}
	if err := remedy.WriteRecords(out, categorized); err != nil {
		return nil, err
	}

	counts := categoryCounts{}
	for _, r := range categorized {
		if remedy.IsKnownCategory(r.Category) {
			counts[r.Category]++
		} else {
			counts[remedy.CategoryUnknown]++
		}
	}
	return counts, nil
}
