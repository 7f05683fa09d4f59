package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/herba/pkg/remedy"
)

func TestOpenMissingStartsEmpty(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "temp.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.Len() != 0 {
		t.Fatalf("expected empty checkpoint, got %d", f.Len())
	}
	if f.Done("Ginger") {
		t.Fatal("nothing should be done yet")
	}
}

func TestAppendPersistsAndResumes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp.json")
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Append(remedy.Record{ID: "ginger-1", Name: "Ginger"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := f.Append(remedy.Record{ID: "x-2"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", reopened.Len())
	}
	if !reopened.Done("Ginger") || !reopened.Done("Unnamed") {
		t.Fatal("expected Ginger and Unnamed to be done")
	}
	if got := reopened.Records()[0].ID; got != "ginger-1" {
		t.Fatalf("unexpected first record %s", got)
	}
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for corrupt checkpoint")
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp.json")
	f, _ := Open(path)
	if err := f.Append(remedy.Record{Name: "Sage"}); err != nil {
		t.Fatal(err)
	}
	if err := f.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file to be gone, got %v", err)
	}
	if err := f.Remove(); err != nil {
		t.Fatalf("second Remove should be a no-op: %v", err)
	}
}
