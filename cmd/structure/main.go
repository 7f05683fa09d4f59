package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/cognicore/herba/internal/llm"
	"github.com/cognicore/herba/internal/logger"
	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/config"
	"github.com/cognicore/herba/pkg/remedy/enrich"
	"github.com/cognicore/herba/pkg/remedy/source"
)

func main() {
	var (
		configPath = flag.String("config", "", "Pipeline YAML config (optional)")
		jsonPath   = flag.String("json", "", "JSON knowledge file (default from config)")
		rtfPath    = flag.String("rtf", "", "RTF book export (default from config)")
		htmlPaths  = flag.String("html", "", "Comma-separated HTML pages to include (optional)")
		output     = flag.String("output", "", "Structured output path (default from config)")
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
	src := source.Sources{
		JSON: firstNonEmpty(*jsonPath, cfg.Paths.JSONSource),
		RTF:  firstNonEmpty(*rtfPath, cfg.Paths.RTFSource),
		HTML: cfg.Paths.HTMLSources,
	}
	if *htmlPaths != "" {
		src.HTML = splitList(*htmlPaths)
	}
	out := firstNonEmpty(*output, cfg.Paths.Structured)
	if src.JSON == "" && src.RTF == "" && len(src.HTML) == 0 {
		log.Fatal("no sources: set --json, --rtf or --html")
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

	n, err := run(ctx, src, out, enrich.New(llm.New(cfg.LLM, key), zl), cfg.LLM.Workers, zl)
	if err != nil {
		log.Fatalf("structure: %v", err)
	}
	fmt.Printf("Saved %d structured remedies to %s\n", n, out)
}

// run loads, deduplicates and structures every source entry, then writes the
// structured array to out.
func run(ctx context.Context, src source.Sources, out string, e *enrich.Enricher, workers int, zl *logger.Logger) (int, error) {
	entries, counts, err := source.Collect(src)
	if err != nil {
		return 0, err
	}
	log.Printf("Loaded %d JSON, %d RTF and %d HTML entries", counts.JSON, counts.RTF, counts.HTML)

	unique := source.Dedupe(entries)
	log.Printf("%d unique remedies to process", len(unique))

	records, err := enrich.Run(ctx, enrich.Runner{Workers: workers, Log: zl}, unique,
		func(en source.Entry) string { return en.Name }, e.Structure)
	if err != nil {
		return 0, err
	}
	if err := remedy.WriteRecords(out, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
