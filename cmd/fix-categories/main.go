package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "Pipeline YAML config with categories.overrides (optional)")
		file       = flag.String("file", "", "Enhanced remedies to fix in place (default from config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	path := *file
	if path == "" {
		path = cfg.Paths.Enhanced
	}

	fixed, err := run(path, cfg.Categories)
	if err != nil {
		log.Fatalf("fix categories: %v", err)
	}
	fmt.Printf("Filled %d missing categories in %s\n", fixed, path)
}

// run fills empty categories from the override table and rewrites path.
// Records that already have a category are left alone.
func run(path string, overrides config.Categories) (int, error) {
	records, skipped, err := remedy.ReadRecords(path)
	if err != nil {
		return 0, err
	}
	if skipped > 0 {
		log.Printf("WARNING: dropping %d non-object entries from %s", skipped, path)
	}

	fixed := 0
	for i, r := range records {
		if strings.TrimSpace(r.Category) != "" {
			continue
		}
		if category, ok := overrides.CategoryFor(r.Name); ok {
			records[i].Category = category
			fixed++
		}
	}
	if err := remedy.WriteRecords(path, records); err != nil {
		return 0, err
	}
	return fixed, nil
}
