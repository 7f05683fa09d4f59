package main

import (
	"flag"
	"log"
	"os"

	"github.com/cognicore/herba/pkg/remedy/completion"
	"github.com/cognicore/herba/pkg/remedy/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "Pipeline YAML config (optional)")
		input      = flag.String("input", "", "Categorized remedies fed to enhance (default from config)")
		cpPath     = flag.String("checkpoint", "", "Enhance progress file (default from config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	in := *input
	if in == "" {
		in = cfg.Paths.Categorized
	}
	cp := *cpPath
	if cp == "" {
		cp = cfg.Paths.Checkpoint
	}

	report, err := completion.Check(in, cp)
	if err != nil {
		log.Fatalf("check completion: %v", err)
	}
	if err := report.Write(os.Stdout); err != nil {
		log.Fatalf("write report: %v", err)
	}
}
