package ids

import (
	"strings"
	"sync"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Chamomile", "chamomil"},
		{"St. John's Wort", "stjohnsw"},
		{"Aloe", "aloe"},
		{"", "unknown"},
		{"!!!", "unknown"},
		{"Ginger, Turmeric", "gingertu"},
	}
	for _, tt := range tests {
		if got := Slug(tt.name); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestIDFormat(t *testing.T) {
	g := New()
	id := g.ID("Echinacea")
	if !strings.HasPrefix(id, "echinace-") {
		t.Fatalf("unexpected prefix in %q", id)
	}
	suffix := strings.TrimPrefix(id, "echinace-")
	if len(suffix) != 8 {
		t.Fatalf("expected 8 char suffix, got %q", suffix)
	}
	if strings.ToLower(suffix) != suffix {
		t.Fatalf("suffix should be lower case: %q", suffix)
	}
}

func TestIDUniqueConcurrent(t *testing.T) {
	g := New()
	const n = 500
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.ID("Garlic")
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("expected %d unique ids, got %d", n, len(seen))
	}
}
