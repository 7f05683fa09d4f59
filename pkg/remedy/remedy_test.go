package remedy

import (
	"encoding/json"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeCategory(t *testing.T) {
	tests := map[string]string{
		"Herb":             "herb",
		" Essential Oil ":  "essential_oil",
		"essential-oil":    "essential_oil",
		"COMMON KNOWLEDGE": "common_knowledge",
		"":                 "",
	}
	for in, want := range tests {
		if got := NormalizeCategory(in); got != want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
	if !IsKnownCategory("mineral") || IsKnownCategory("unknown") {
		t.Fatal("IsKnownCategory mismatch")
	}
}

func TestLabelsDecoding(t *testing.T) {
	var got Labels
	if err := json.Unmarshal([]byte(`["a", "b"]`), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, Labels{"a", "b"}) {
		t.Fatalf("got %#v", got)
	}

	for _, in := range []string{`"calming"`, `3`, `{"k": 1}`, `["a", 3]`, `["a", null]`, `[{"method": "tea"}]`} {
		var l Labels
		if err := json.Unmarshal([]byte(in), &l); err == nil {
			t.Errorf("%s: expected error, got %#v", in, l)
		}
	}

	out, err := json.Marshal(struct{ L Labels }{})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"L":[]}` {
		t.Fatalf("nil labels should encode as [], got %s", out)
	}
}

func TestLabelValues(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"array", `["a", "b"]`, []string{"a", "b"}},
		{"null", `null`, nil},
		{"bare string", `"calming"`, []string{"calming"}},
		{"empty string", `""`, nil},
		{"mixed items", `["a", 3, true, null, {"k": 1}]`, []string{"a", "3", "true", `{"k":1}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LabelValues(json.RawMessage(tt.in)); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestRecordRoundTripIsExact(t *testing.T) {
	in := `{"category":"","cautions":["Avoid in pregnancy & nursing"],"evidenceLevel":{"level":"high"},` +
		`"id":"ginger-1","lastUpdated":null,"name":"Ginger","preparationMethods":[{"method":"tea","steps":"steep 5 min"}],` +
		`"rating":1.50,"sourceReferences":[{"title":"<Herbal> Monographs","year":1998}],"tags":["warming"],"uses":[]}`
	var r Record
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.PreparationMethods != nil || r.SourceReferences != nil || r.EvidenceLevel != "" {
		t.Fatalf("structured values should not be decoded into labels: %+v", r)
	}
	out, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != in {
		t.Fatalf("round trip changed the record:\n got %s\nwant %s", out, in)
	}

	r.Category = CategoryHerb
	out, err = json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"category":"herb"`) {
		t.Fatalf("set category should replace the empty one: %s", out)
	}
}

func TestRecordKeepsUnknownFields(t *testing.T) {
	in := `{
		"name": ["Peppermint", "Mentha piperita"],
		"category": "herb",
		"tags": "cooling",
		"uses": ["digestion", "headache"],
		"plantFamily": "Lamiaceae",
		"dosage": {"adult": "1 cup"},
		"crossReferences": ["Spearmint"]
	}`
	var r Record
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.Name != "" || r.DisplayName() != "Peppermint, Mentha piperita" {
		t.Fatalf("list name should stay raw and display joined, got %q / %q", r.Name, r.DisplayName())
	}
	if r.Tags != nil || !reflect.DeepEqual(r.TagLabels(), []string{"cooling"}) {
		t.Fatalf("unexpected tags %#v / %#v", r.Tags, r.TagLabels())
	}
	if !reflect.DeepEqual(r.UseLabels(), []string{"digestion", "headache"}) {
		t.Fatalf("unexpected uses %#v", r.UseLabels())
	}
	if r.CrossReferences != nil {
		t.Fatalf("malformed cross references should not be decoded: %#v", r.CrossReferences)
	}
	for _, key := range []string{"name", "tags", "plantFamily", "dosage", "crossReferences"} {
		if _, ok := r.Extra[key]; !ok {
			t.Errorf("expected %s in Extra", key)
		}
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if back["plantFamily"] != "Lamiaceae" || back["tags"] != "cooling" {
		t.Fatalf("raw values lost: %s", out)
	}
	if _, ok := back["name"].([]any); !ok {
		t.Fatalf("name list should round-trip as written: %s", out)
	}
	if _, ok := back["evidenceLevel"]; ok {
		t.Fatalf("absent fields should stay absent: %s", out)
	}
}

func TestRecordMarshalKnownFieldsWin(t *testing.T) {
	r := Record{
		ID:              "ginger-1",
		Name:            "Ginger",
		CrossReferences: []Edge{{TargetID: "x", TargetName: "X", TargetCategory: "herb", Similarity: 0.5}},
		Extra:           map[string]json.RawMessage{"name": json.RawMessage(`"stale"`)},
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"crossReferences":[{"id":"x","name":"X","category":"herb","similarity":0.5}],"id":"ginger-1","name":"Ginger"}`
	if string(out) != want {
		t.Fatalf("got %s\nwant %s", out, want)
	}
}

func TestDisplayNameAndClone(t *testing.T) {
	if (Record{}).DisplayName() != "Unnamed" {
		t.Fatal("empty name should display as Unnamed")
	}
	orig := Record{
		Name:        "Sage",
		Tags:        Labels{"a"},
		AppSpecific: &AppSpecific{RelatedRemedies: Labels{"x"}},
		Extra:       map[string]json.RawMessage{"k": json.RawMessage(`1`)},
	}
	c := orig.Clone()
	c.Tags[0] = "changed"
	c.AppSpecific.RelatedRemedies[0] = "changed"
	c.Extra["k"] = json.RawMessage(`2`)
	if orig.Tags[0] != "a" || orig.AppSpecific.RelatedRemedies[0] != "x" || string(orig.Extra["k"]) != "1" {
		t.Fatalf("clone shares state with original: %+v", orig)
	}
}

func TestDecodeRecords(t *testing.T) {
	recs, skipped, err := DecodeRecords([]byte(`[{"name": "A"}, "text", [1], {"name": "B"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 2 || skipped != 2 {
		t.Fatalf("got %d records, %d skipped", len(recs), skipped)
	}
	if _, _, err := DecodeRecords([]byte(`{"name": "A"}`)); err == nil {
		t.Fatal("expected error for non-array input")
	}
}

func TestWriteAndReadRecords(t *testing.T) {
	path := t.TempDir() + "/nested/out.json"
	in := []Record{{ID: "a", Name: "Rose & Hips", Uses: Labels{"<skin>"}}}
	if err := WriteRecords(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, _, err := ReadRecords(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(back, in) {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"Rose & Hips"`) || !strings.Contains(string(raw), `"<skin>"`) {
		t.Fatalf("output should not be HTML-escaped:\n%s", raw)
	}

	if err := WriteRecords(path, nil); err != nil {
		t.Fatal(err)
	}
	back, _, err = ReadRecords(path)
	if err != nil || len(back) != 0 {
		t.Fatalf("empty write: %v %v", back, err)
	}
}

func TestReadRecordsMissing(t *testing.T) {
	_, _, err := ReadRecords(t.TempDir() + "/missing.json")
	if err == nil || !strings.Contains(err.Error(), "missing.json") {
		t.Fatalf("expected path in error, got %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Fatal("error should wrap the os error")
	}
}
