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
	"github.com/cognicore/herba/pkg/remedy/checkpoint"
	"github.com/cognicore/herba/pkg/remedy/config"
	"github.com/cognicore/herba/pkg/remedy/crossref"
	"github.com/cognicore/herba/pkg/remedy/enrich"
	"github.com/cognicore/herba/pkg/remedy/store/sqlite"
)

type options struct {
	input      string
	output     string
	checkpoint string
	dbPath     string
	workers    int
}

func main() {
	var (
		configPath = flag.String("config", "", "Pipeline YAML config (optional)")
		input      = flag.String("input", "", "Categorized remedies (default from config)")
		output     = flag.String("output", "", "Enhanced output path (default from config)")
		cpPath     = flag.String("checkpoint", "", "Progress file used to resume (default from config)")
		dbPath     = flag.String("db", "", "Also persist records and cross-references to this SQLite file")
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
	opts := options{
		input:      orDefault(*input, cfg.Paths.Categorized),
		output:     orDefault(*output, cfg.Paths.Enhanced),
		checkpoint: orDefault(*cpPath, cfg.Paths.Checkpoint),
		dbPath:     orDefault(*dbPath, cfg.Paths.Database),
		workers:    cfg.LLM.Workers,
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

	stats, err := run(ctx, opts, enrich.New(llm.New(cfg.LLM, key), zl), comps.Builder, zl)
	if err != nil {
		log.Fatalf("enhance: %v", err)
	}
	fmt.Printf("Saved %d enhanced remedies to %s (%d cross-references, %d related, %d alternative, %d isolated)\n",
		stats.Records, opts.output, stats.Edges, stats.Related, stats.Alternative, stats.Isolated)
}

// run enhances every record not yet in the checkpoint, rebuilds the
// cross-reference graph over the full set, writes it out and removes the
// checkpoint. An interrupted run leaves the checkpoint for the next one.
func run(ctx context.Context, opts options, e *enrich.Enricher, builder *crossref.Builder, zl *logger.Logger) (crossref.Stats, error) {
	records, skipped, err := remedy.ReadRecords(opts.input)
	if err != nil {
		return crossref.Stats{}, err
	}
	if skipped > 0 {
		log.Printf("Ignoring %d non-object entries in %s", skipped, opts.input)
	}
	log.Printf("Loaded %d remedies", len(records))

	cp, err := checkpoint.Open(opts.checkpoint)
	if err != nil {
		return crossref.Stats{}, fmt.Errorf("open checkpoint: %w", err)
	}
	prior := cp.Records()
	log.Printf("Found %d previously processed remedies", len(prior))

	var todo []remedy.Record
	for _, r := range records {
		if cp.Done(r.DisplayName()) {
			log.Printf("Skipping already processed remedy: %s", r.DisplayName())
			continue
		}
		todo = append(todo, r)
	}

	enhanced, err := enrich.Run(ctx, enrich.Runner{Workers: opts.workers, Log: zl, OnResult: cp.Append},
		todo, remedy.Record.DisplayName, e.Enhance)
	if err != nil {
		return crossref.Stats{}, err
	}

	log.Printf("Finding related remedies...")
	all := builder.Apply(append(prior, enhanced...))
	stats := crossref.Summarize(all)

	if err := remedy.WriteRecords(opts.output, all); err != nil {
		return crossref.Stats{}, err
	}
	if opts.dbPath != "" {
		if err := persist(ctx, opts.dbPath, all); err != nil {
			return crossref.Stats{}, err
		}
		log.Printf("Persisted %d remedies to %s", len(all), opts.dbPath)
	}
	if err := cp.Remove(); err != nil {
		return crossref.Stats{}, fmt.Errorf("remove checkpoint: %w", err)
	}
	return stats, nil
}

func persist(ctx context.Context, path string, records []remedy.Record) error {
	st, err := sqlite.OpenSQLite(ctx, path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()
	return st.ReplaceAll(ctx, records)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
