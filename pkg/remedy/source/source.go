// Package source loads raw remedy entries from the corpus files that feed the
// structuring stage: a JSON knowledge file, an RTF book export and optional
// HTML pages.
package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/internalerr"
)

// MinChunkLength is the shortest text chunk (in characters, exclusive) kept
// when splitting free text into entries.
const MinChunkLength = 30

// Entry is one raw remedy before structuring. Exactly one of Raw or Text is set.
type Entry struct {
	Name string
	Raw  json.RawMessage
	Text string
}

// IsText reports whether the entry came from free text.
func (e Entry) IsText() bool { return e.Raw == nil }

// PromptBody renders the entry for inclusion in a prompt: indented JSON for
// structured entries, the text itself otherwise.
func (e Entry) PromptBody() string {
	if e.IsText() {
		return e.Text
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, e.Raw, "", "  "); err != nil {
		return string(e.Raw)
	}
	return buf.String()
}

// Sources lists the files to collect entries from. Empty paths are skipped.
type Sources struct {
	JSON string
	RTF  string
	HTML []string
}

// Counts reports how many entries each source produced.
type Counts struct {
	JSON, RTF, HTML int
}

// Collect loads every configured source in order: JSON, RTF, then HTML.
func Collect(src Sources) ([]Entry, Counts, error) {
	var (
		all    []Entry
		counts Counts
	)
	if src.JSON != "" {
		entries, err := LoadJSON(src.JSON)
		if err != nil {
			return nil, counts, err
		}
		counts.JSON = len(entries)
		all = append(all, entries...)
	}
	if src.RTF != "" {
		entries, err := LoadRTF(src.RTF)
		if err != nil {
			return nil, counts, err
		}
		counts.RTF = len(entries)
		all = append(all, entries...)
	}
	for _, path := range src.HTML {
		entries, err := LoadHTML(path)
		if err != nil {
			return nil, counts, err
		}
		counts.HTML += len(entries)
		all = append(all, entries...)
	}
	return all, counts, nil
}

// LoadJSON reads a JSON knowledge file.
func LoadJSON(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	entries, err := DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}

// DecodeJSON extracts entries from a JSON document. A top-level object yields
// one entry per key whose value is an object or array, wrapped as {key: value}
// and named by the key. A top-level array yields its objects (named by their
// "name" field, else their first key) and its strings as text entries.
func DecodeJSON(data []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty JSON source", internalerr.ErrInvalidInput)
	}
	switch trimmed[0] {
	case '{':
		return decodeObject(trimmed)
	case '[':
		return decodeArray(trimmed)
	default:
		return nil, fmt.Errorf("%w: JSON source must be an object or array", internalerr.ErrInvalidInput)
	}
}

func decodeObject(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var entries []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		val = bytes.TrimSpace(val)
		if len(val) == 0 || (val[0] != '{' && val[0] != '[') {
			continue
		}
		wrapped, err := json.Marshal(map[string]json.RawMessage{key: val})
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: key, Raw: wrapped})
	}
	return entries, nil
}

func decodeArray(data []byte) ([]Entry, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
	}
	var entries []Entry
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			continue
		}
		switch item[0] {
		case '{':
			entries = append(entries, Entry{Name: objectName(item), Raw: item})
		case '"':
			var s string
			if err := json.Unmarshal(item, &s); err != nil || strings.TrimSpace(s) == "" {
				continue
			}
			entries = append(entries, TextEntry(s))
		}
	}
	return entries, nil
}

// objectName returns the "name" field of a JSON object, else its first key.
func objectName(obj json.RawMessage) string {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if _, err := dec.Token(); err != nil {
		return ""
	}
	first := ""
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		key, _ := tok.(string)
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			break
		}
		if key == "name" {
			return remedy.FlexName(val)
		}
		if first == "" {
			first = key
		}
	}
	return first
}

// TextEntry wraps a text chunk; its name is the first line.
func TextEntry(text string) Entry {
	text = strings.TrimSpace(text)
	name := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		name = text[:i]
	}
	return Entry{Name: strings.TrimSpace(name), Text: text}
}

// Chunks splits free text on blank lines and keeps chunks longer than
// MinChunkLength characters.
func Chunks(text string) []Entry {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var entries []Entry
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) <= MinChunkLength {
			continue
		}
		entries = append(entries, TextEntry(part))
	}
	return entries
}

// Dedupe drops entries whose lower-cased name was already seen, keeping the first.
func Dedupe(entries []Entry) []Entry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		key := strings.ToLower(e.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
