package ids

import (
	"crypto/rand"
	"regexp"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Generator mints record identifiers of the form "<slug>-<suffix>", where the
// slug is the first eight alphanumerics of the name and the suffix comes from
// a monotonic ULID source.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a generator seeded from crypto/rand.
func New() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// ID returns a fresh identifier for name. Safe for concurrent use.
func (g *Generator) ID(name string) string {
	g.mu.Lock()
	id := ulid.MustNew(ulid.Now(), g.entropy).String()
	g.mu.Unlock()

	// The trailing characters carry the entropy bits, which the monotonic
	// source increments within a millisecond.
	return Slug(name) + "-" + strings.ToLower(id[len(id)-8:])
}

// Slug lower-cases name, drops anything that is not ASCII alphanumeric and
// keeps at most eight characters. Empty names slug to "unknown".
func Slug(name string) string {
	base := nonAlnum.ReplaceAllString(strings.ToLower(name), "")
	if base == "" {
		return "unknown"
	}
	if len(base) > 8 {
		base = base[:8]
	}
	return base
}
