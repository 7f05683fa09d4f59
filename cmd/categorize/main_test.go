package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/herba/internal/logger"
	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/enrich"
)

type categoryChat map[string]string

func (c categoryChat) Chat(ctx context.Context, system, user string) (string, error) {
	for name, reply := range c {
		if strings.Contains(user, `"name": "`+name+`"`) {
			return reply, nil
		}
	}
	return "", nil
}

func TestRunCategorizes(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "structured.json")
	out := filepath.Join(dir, "categorized.json")
	if err := os.WriteFile(in, []byte(`[
		{"name": "Lavender Oil", "uses": ["sleep"]},
		{"name": "Zinc"},
		"stray text",
		{"name": "Folk Wisdom"},
		{"name": "Silent"}
	]`), 0o644); err != nil {
		t.Fatal(err)
	}

	chat := categoryChat{
		"Lavender Oil": `{"name": "Lavender Oil", "category": "Essential Oil", "tags": ["calm"]}`,
		"Zinc":         "```json\n{\"name\": \"Zinc\", \"category\": \"mineral\"}\n```",
		"Folk Wisdom":  `{"name": "Folk Wisdom", "category": "folklore"}`,
	}
	counts, err := run(context.Background(), in, out, enrich.New(chat, nil), 1, logger.Nop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if counts.total() != 3 {
		t.Fatalf("expected 3 categorized, got %d (%v)", counts.total(), counts)
	}
	if counts[remedy.CategoryEssentialOil] != 1 || counts[remedy.CategoryMineral] != 1 || counts[remedy.CategoryUnknown] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	records, _, err := remedy.ReadRecords(out)
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Category != "essential_oil" || records[2].Category != "folklore" {
		t.Fatalf("unexpected categories: %q %q", records[0].Category, records[2].Category)
	}
}
