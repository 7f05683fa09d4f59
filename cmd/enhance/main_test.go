package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/cognicore/herba/internal/logger"
	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/crossref"
	"github.com/cognicore/herba/pkg/remedy/enrich"
	"github.com/cognicore/herba/pkg/remedy/store/sqlite"
)

var namePattern = regexp.MustCompile(`"name": "([^"]+)"`)

// profileChat replies with a fixed tag/use profile per remedy name.
type profileChat struct {
	mu       sync.Mutex
	asked    []string
	profiles map[string]string
	// after, when set, runs after every reply.
	after func(name string)
}

func (c *profileChat) Chat(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m := namePattern.FindStringSubmatch(user)
	if m == nil {
		return "", fmt.Errorf("no name in prompt")
	}
	name := m[1]
	c.mu.Lock()
	c.asked = append(c.asked, name)
	c.mu.Unlock()
	if c.after != nil {
		defer c.after(name)
	}
	return fmt.Sprintf(`{"name": %q, %s}`, name, c.profiles[name]), nil
}

var profiles = map[string]string{
	"Ginger":     `"tags": ["digestive", "warming"], "uses": ["nausea", "colds"]`,
	"Turmeric":   `"tags": ["digestive", "warming"], "uses": ["nausea", "joints"]`,
	"Peppermint": `"tags": ["digestive", "cooling"], "uses": ["nausea"]`,
	"Sea Salt":   `"tags": ["mineral"], "uses": ["gargle"]`,
}

func writeInput(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, "categorized.json")
	data := `[
		{"name": "Ginger", "category": "herb"},
		{"name": "Turmeric", "category": "herb"},
		{"name": "Peppermint", "category": "herb"},
		{"name": "Sea Salt", "category": "mineral"}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testOptions(dir string) options {
	return options{
		input:      filepath.Join(dir, "categorized.json"),
		output:     filepath.Join(dir, "enhanced.json"),
		checkpoint: filepath.Join(dir, "enhanced_temp.json"),
		dbPath:     filepath.Join(dir, "herba.db"),
		workers:    1,
	}
}

func TestRunEnhancesAndCrossReferences(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir)
	opts := testOptions(dir)
	chat := &profileChat{profiles: profiles}

	stats, err := run(context.Background(), opts, enrich.New(chat, logger.Nop()), crossref.New(crossref.DefaultOptions()), logger.Nop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Records != 4 {
		t.Fatalf("expected 4 records, got %+v", stats)
	}
	if _, err := os.Stat(opts.checkpoint); !os.IsNotExist(err) {
		t.Fatalf("checkpoint should be removed, stat err=%v", err)
	}

	records, _, err := remedy.ReadRecords(opts.output)
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]remedy.Record{}
	for _, r := range records {
		byName[r.Name] = r
		if r.ID == "" || r.Version != enrich.Version || r.AppSpecific == nil {
			t.Fatalf("record %s not stamped: %+v", r.Name, r)
		}
	}
	ginger, turmeric := byName["Ginger"], byName["Turmeric"]
	// tags 1, uses 1/3, conditions 0 → 4/9
	if len(ginger.CrossReferences) == 0 || ginger.CrossReferences[0].TargetID != turmeric.ID {
		t.Fatalf("expected Ginger → Turmeric edge, got %+v", ginger.CrossReferences)
	}
	if got := ginger.AppSpecific.AlternativeRemedies; len(got) != 1 || got[0] != turmeric.ID {
		t.Fatalf("expected Turmeric as alternative, got %v", got)
	}
	if len(byName["Sea Salt"].CrossReferences) != 0 {
		t.Fatalf("Sea Salt should be isolated")
	}

	st, err := sqlite.OpenSQLite(context.Background(), opts.dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer st.Close()
	neighbors, err := st.Neighbors(context.Background(), ginger.ID, 1)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].TargetID != turmeric.ID {
		t.Fatalf("unexpected stored neighbors: %+v", neighbors)
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir)
	opts := testOptions(dir)
	opts.dbPath = ""

	ctx, cancel := context.WithCancel(context.Background())
	first := &profileChat{profiles: profiles, after: func(name string) {
		if name == "Turmeric" {
			cancel()
		}
	}}
	_, err := run(ctx, opts, enrich.New(first, logger.Nop()), crossref.New(crossref.DefaultOptions()), logger.Nop())
	if err == nil {
		t.Fatal("expected the interrupted run to fail")
	}
	saved, _, err := remedy.ReadRecords(opts.checkpoint)
	if err != nil {
		t.Fatalf("checkpoint should survive the interruption: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected Ginger and Turmeric in checkpoint, got %d", len(saved))
	}
	if _, err := os.Stat(opts.output); !os.IsNotExist(err) {
		t.Fatalf("no output expected after interruption")
	}

	second := &profileChat{profiles: profiles}
	stats, err := run(context.Background(), opts, enrich.New(second, logger.Nop()), crossref.New(crossref.DefaultOptions()), logger.Nop())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if fmt.Sprint(second.asked) != "[Peppermint Sea Salt]" {
		t.Fatalf("resume should only ask for the rest, asked %v", second.asked)
	}
	if stats.Records != 4 {
		t.Fatalf("expected 4 records after resume, got %d", stats.Records)
	}
	records, _, err := remedy.ReadRecords(opts.output)
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, r := range records {
		order = append(order, r.Name)
	}
	if fmt.Sprint(order) != "[Ginger Turmeric Peppermint Sea Salt]" {
		t.Fatalf("unexpected order %v", order)
	}
}
