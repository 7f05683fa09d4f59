package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/config"
	"github.com/cognicore/herba/pkg/remedy/crossref"
	"github.com/cognicore/herba/pkg/remedy/internalerr"
	"github.com/cognicore/herba/pkg/remedy/store"
	"github.com/cognicore/herba/pkg/remedy/store/sqlite"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Pipeline YAML config (optional)")
		input       = flag.String("input", "", "Enhanced remedies (default from config)")
		output      = flag.String("output", "", "Where to write the rebuilt file (default: overwrite input)")
		altThresh   = flag.Float64("alternative-threshold", 0, "Minimum similarity for any cross-reference (default from config)")
		relThresh   = flag.Float64("related-threshold", 0, "Minimum similarity for a related remedy (default from config)")
		wTags       = flag.Float64("weight-tags", 0, "Weight of tag similarity (default from config)")
		wUses       = flag.Float64("weight-uses", 0, "Weight of use similarity (default from config)")
		wConditions = flag.Float64("weight-conditions", 0, "Weight of condition similarity (default from config)")
		dbPath      = flag.String("db", "", "SQLite file to persist the graph to (or read from with --show, --label, --from-db)")
		fromDB      = flag.Bool("from-db", false, "Rebuild the records stored in --db instead of reading --input")
		show        = flag.String("show", "", "Print the stored neighbours of this record ID instead of rebuilding")
		label       = flag.String("label", "", "List stored records carrying a label, as kind:value (kind is tag, use or condition)")
		k           = flag.Int("k", 10, "Neighbours to print with --show (0 = all)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db := *dbPath
	if db == "" {
		db = cfg.Paths.Database
	}
	ctx := context.Background()

	if *show != "" {
		if db == "" {
			log.Fatal("--show requires --db")
		}
		if err := showNeighbors(ctx, os.Stdout, db, *show, *k); err != nil {
			log.Fatalf("show: %v", err)
		}
		return
	}
	if *label != "" {
		if db == "" {
			log.Fatal("--label requires --db")
		}
		if err := listByLabel(ctx, os.Stdout, db, *label); err != nil {
			log.Fatalf("label: %v", err)
		}
		return
	}

	// only flags given on the command line override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "alternative-threshold":
			cfg.CrossRef.AlternativeThreshold = *altThresh
		case "related-threshold":
			cfg.CrossRef.RelatedThreshold = *relThresh
		case "weight-tags":
			cfg.CrossRef.Weights.Tags = *wTags
		case "weight-uses":
			cfg.CrossRef.Weights.Uses = *wUses
		case "weight-conditions":
			cfg.CrossRef.Weights.Conditions = *wConditions
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	opts := rebuildOptions{in: *input, out: *output, db: db, fromDB: *fromDB}
	if !opts.fromDB {
		if opts.in == "" {
			opts.in = cfg.Paths.Enhanced
		}
		if opts.out == "" {
			opts.out = opts.in
		}
	}

	stats, err := rebuild(ctx, opts, crossref.New(cfg.CrossRef.BuilderOptions()))
	if err != nil {
		log.Fatalf("crossref: %v", err)
	}
	printStats(os.Stdout, stats)
}

type rebuildOptions struct {
	in     string
	out    string // no file is written when empty
	db     string
	fromDB bool
}

// rebuild recomputes every record's cross-references and writes the result to
// the output file and, when a database is given, replaces its content.
func rebuild(ctx context.Context, opts rebuildOptions, builder *crossref.Builder) (crossref.Stats, error) {
	var st store.Store
	if opts.db != "" {
		s, err := sqlite.OpenSQLite(ctx, opts.db)
		if err != nil {
			return crossref.Stats{}, fmt.Errorf("open db: %w", err)
		}
		defer s.Close()
		st = s
	}

	records, err := loadRecords(ctx, opts, st)
	if err != nil {
		return crossref.Stats{}, err
	}
	rebuilt := builder.Apply(records)
	if opts.out != "" {
		if err := remedy.WriteRecords(opts.out, rebuilt); err != nil {
			return crossref.Stats{}, err
		}
	}
	if st != nil {
		if err := st.ReplaceAll(ctx, rebuilt); err != nil {
			return crossref.Stats{}, err
		}
	}
	return crossref.Summarize(rebuilt), nil
}

func loadRecords(ctx context.Context, opts rebuildOptions, st store.Store) ([]remedy.Record, error) {
	if opts.fromDB {
		if st == nil {
			return nil, errors.New("--from-db requires --db")
		}
		return st.ListRecords(ctx)
	}
	records, skipped, err := remedy.ReadRecords(opts.in)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Printf("Ignoring %d non-object entries in %s", skipped, opts.in)
	}
	return records, nil
}

func showNeighbors(ctx context.Context, w io.Writer, db, id string, k int) error {
	st, err := sqlite.OpenSQLite(ctx, db)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	rec, ok, err := st.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("record %s not found", id)
	}
	neighbors, err := st.Neighbors(ctx, id, k)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%s)\n", rec.DisplayName(), rec.Category)
	if len(neighbors) == 0 {
		fmt.Fprintln(w, "  no cross-references")
		return nil
	}
	for _, e := range neighbors {
		fmt.Fprintf(w, "  %.3f  %-24s %-16s %s\n", e.Similarity, e.TargetName, e.TargetCategory, e.TargetID)
	}
	return nil
}

// listByLabel prints the stored records indexed under query, e.g. "tag:calming".
func listByLabel(ctx context.Context, w io.Writer, db, query string) error {
	kindName, value, ok := strings.Cut(query, ":")
	if !ok || value == "" {
		return fmt.Errorf("%w: label %q, want kind:value", internalerr.ErrInvalidInput, query)
	}
	kind, err := store.ParseLabelKind(kindName)
	if err != nil {
		return err
	}

	st, err := sqlite.OpenSQLite(ctx, db)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	ids, err := st.RecordsByLabel(ctx, kind, value)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintf(w, "no records with %s %q\n", kind, value)
		return nil
	}
	for _, id := range ids {
		rec, ok, err := st.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%-24s %-16s %s\n", rec.DisplayName(), rec.Category, id)
	}
	return nil
}

func printStats(w io.Writer, s crossref.Stats) {
	fmt.Fprintf(w, "Records:            %d\n", s.Records)
	fmt.Fprintf(w, "Cross-references:   %d\n", s.Edges)
	fmt.Fprintf(w, "Related links:      %d\n", s.Related)
	fmt.Fprintf(w, "Alternative links:  %d\n", s.Alternative)
	fmt.Fprintf(w, "Isolated records:   %d\n", s.Isolated)
}
