// Package enrich drives the LLM stages of the pipeline: structuring raw
// entries, assigning categories and expanding categorized records.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/herba/internal/logger"
	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/ids"
	"github.com/cognicore/herba/pkg/remedy/internalerr"
	"github.com/cognicore/herba/pkg/remedy/prompts"
	"github.com/cognicore/herba/pkg/remedy/source"
)

// Version is stamped on every enhanced record.
const Version = "1.0"

// TimestampLayout formats lastUpdated: local time, microseconds, no zone.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// DefaultRating is the placeholder for preparation, cost and availability.
const DefaultRating = "medium"

// Chatter sends one prompt to a chat model and returns its reply.
type Chatter interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Enricher runs the per-record LLM calls.
type Enricher struct {
	LLM Chatter
	IDs *ids.Generator
	Now func() time.Time
	Log *logger.Logger
}

// New returns an Enricher with a fresh ID generator and the wall clock.
func New(llm Chatter, log *logger.Logger) *Enricher {
	if log == nil {
		log = logger.Nop()
	}
	return &Enricher{LLM: llm, IDs: ids.New(), Now: time.Now, Log: log}
}

// Structure turns a raw source entry into a remedy record.
func (e *Enricher) Structure(ctx context.Context, entry source.Entry) (remedy.Record, error) {
	return e.ask(ctx, prompts.Structure(entry.PromptBody()))
}

// Categorize asks the model to assign a category and tidy the record. The
// returned category is normalized.
func (e *Enricher) Categorize(ctx context.Context, rec remedy.Record) (remedy.Record, error) {
	body, err := entryJSON(rec)
	if err != nil {
		return remedy.Record{}, err
	}
	out, err := e.ask(ctx, prompts.Categorize(body))
	if err != nil {
		return remedy.Record{}, err
	}
	out.Category = remedy.NormalizeCategory(out.Category)
	if !remedy.IsKnownCategory(out.Category) && out.Category != "" {
		e.Log.Warn("unexpected category", "name", out.DisplayName(), "category", out.Category)
	}
	return out, nil
}

// Enhance expands a categorized record and stamps the app metadata.
func (e *Enricher) Enhance(ctx context.Context, rec remedy.Record) (remedy.Record, error) {
	category := rec.Category
	if category == "" {
		category = remedy.CategoryUnknown
	}
	body, err := entryJSON(rec)
	if err != nil {
		return remedy.Record{}, err
	}
	out, err := e.ask(ctx, prompts.Enhance(category, body))
	if err != nil {
		return remedy.Record{}, err
	}
	if out.NameText() == "" {
		out.Name = rec.Name
		if raw, ok := rec.Extra["name"]; ok && rec.Name == "" {
			if out.Extra == nil {
				out.Extra = map[string]json.RawMessage{}
			}
			out.Extra["name"] = raw
		}
	}
	if out.Category == "" {
		out.Category = rec.Category
	}
	return Stamp(out, e.IDs.ID(out.NameText()), e.now()), nil
}

// stampedKeys may hold malformed model output in Extra; Stamp owns them.
var stampedKeys = []string{"id", "lastUpdated", "version", "crossReferences", "userRatings", "appSpecific"}

// Stamp sets the identity, version and placeholder app fields of an enhanced
// record, resetting any relations the model may have invented.
func Stamp(rec remedy.Record, id string, now time.Time) remedy.Record {
	rec = rec.Clone()
	for _, key := range stampedKeys {
		delete(rec.Extra, key)
	}
	rec.ID = id
	rec.LastUpdated = now.Format(TimestampLayout)
	rec.Version = Version
	rec.CrossReferences = []remedy.Edge{}
	rec.UserRatings = &remedy.UserRatings{Reviews: []json.RawMessage{}}
	rec.AppSpecific = &remedy.AppSpecific{
		PreparationDifficulty: DefaultRating,
		CostIndicator:         DefaultRating,
		AvailabilityRating:    DefaultRating,
		RelatedRemedies:       remedy.Labels{},
		AlternativeRemedies:   remedy.Labels{},
	}
	return rec
}

func (e *Enricher) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Enricher) ask(ctx context.Context, prompt string) (remedy.Record, error) {
	reply, err := e.LLM.Chat(ctx, "", prompt)
	if err != nil {
		return remedy.Record{}, err
	}
	return ParseRecord(reply)
}

// ParseRecord decodes a model reply into a record. Markdown code fences
// around the object are tolerated.
func ParseRecord(reply string) (remedy.Record, error) {
	body := stripFences(reply)
	if body == "" {
		return remedy.Record{}, internalerr.ErrEmptyResponse
	}
	if body[0] != '{' {
		return remedy.Record{}, fmt.Errorf("%w: expected a JSON object", internalerr.ErrMalformedResponse)
	}
	var rec remedy.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return remedy.Record{}, fmt.Errorf("%w: %v", internalerr.ErrMalformedResponse, err)
	}
	return rec, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func entryJSON(rec remedy.Record) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("encode %s: %w", rec.DisplayName(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
