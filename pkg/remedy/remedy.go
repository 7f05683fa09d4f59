// Package remedy defines the remedy record shared by every stage of the
// knowledge-base pipeline, from the first structuring pass to the final
// cross-referenced export.
package remedy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Category labels assigned by the categorize stage.
const (
	CategoryHerb            = "herb"
	CategoryMineral         = "mineral"
	CategoryEssentialOil    = "essential_oil"
	CategoryCommonKnowledge = "common_knowledge"
	CategoryUnknown         = "unknown"
)

// Categories lists the categories the categorize prompt offers.
var Categories = []string{CategoryHerb, CategoryMineral, CategoryEssentialOil, CategoryCommonKnowledge}

var categoryReplacer = strings.NewReplacer(" ", "_", "-", "_")

// NormalizeCategory lower-cases a category and joins words with underscores,
// so "Essential Oil" and "essential-oil" both become "essential_oil".
func NormalizeCategory(s string) string {
	return categoryReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// IsKnownCategory reports whether c is one of Categories.
func IsKnownCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Labels is a list of string labels as produced by the LLM stages. Only an
// array of strings decodes into Labels; any other shape is an error so the
// caller can keep the raw value. LabelValues reads labels from such values.
type Labels []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *Labels) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("labels: want array of strings, got %.20s", trimmed)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return err
	}
	out := make(Labels, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '"' {
			return fmt.Errorf("labels: item %d is not a string", i)
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return err
		}
		out = append(out, s)
	}
	*l = out
	return nil
}

// MarshalJSON implements json.Marshaler. A nil list encodes as [].
func (l Labels) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return marshalNoEscape([]string(l))
}

// LabelValues reads comparison labels from any JSON value: strings in an
// array are taken as-is, other array items as their compact JSON text, and a
// bare scalar becomes a one-element list. Null items are skipped.
func LabelValues(raw json.RawMessage) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] != '[' {
		if s, ok := scalarString(trimmed); ok && s != "" {
			return []string{s}
		}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := scalarString(item); ok {
			out = append(out, s)
		}
	}
	return out
}

// Edge is a directed cross-reference from one record to another. The target
// fields are a snapshot taken when the edge was computed.
type Edge struct {
	TargetID       string  `json:"id"`
	TargetName     string  `json:"name"`
	TargetCategory string  `json:"category"`
	Similarity     float64 `json:"similarity"`
}

// UserRatings is the placeholder rating block stamped onto enhanced records.
type UserRatings struct {
	Average float64           `json:"average"`
	Count   int               `json:"count"`
	Reviews []json.RawMessage `json:"reviews"`
}

// AppSpecific holds app-facing hints plus the two relation buckets.
type AppSpecific struct {
	PreparationDifficulty string `json:"preparationDifficulty"`
	CostIndicator         string `json:"costIndicator"`
	AvailabilityRating    string `json:"availabilityRating"`
	RelatedRemedies       Labels `json:"relatedRemedies"`
	AlternativeRemedies   Labels `json:"alternativeRemedies"`
}

// Record is one remedy entry. Fields the pipeline does not know about are kept
// in Extra and written back unchanged, and so are known fields that are
// empty, null or of an unexpected shape. A typed field that is set always
// wins over the Extra entry of the same key.
type Record struct {
	ID                 string
	Name               string
	Category           string
	Synonyms           Labels
	Properties         Labels
	Uses               Labels
	PreparationMethods Labels
	Cautions           Labels
	Tags               Labels
	ConditionsTreated  Labels
	EvidenceLevel      string
	SourceReferences   Labels
	LastUpdated        string
	Version            string
	CrossReferences    []Edge
	UserRatings        *UserRatings
	AppSpecific        *AppSpecific

	Extra map[string]json.RawMessage
}

type field struct {
	key string
	ptr any
}

func (r *Record) fields() []field {
	return []field{
		{"id", &r.ID},
		{"name", &r.Name},
		{"category", &r.Category},
		{"synonyms", &r.Synonyms},
		{"properties", &r.Properties},
		{"uses", &r.Uses},
		{"preparationMethods", &r.PreparationMethods},
		{"cautions", &r.Cautions},
		{"tags", &r.Tags},
		{"conditionsTreated", &r.ConditionsTreated},
		{"evidenceLevel", &r.EvidenceLevel},
		{"sourceReferences", &r.SourceReferences},
		{"lastUpdated", &r.LastUpdated},
		{"version", &r.Version},
		{"crossReferences", &r.CrossReferences},
		{"userRatings", &r.UserRatings},
		{"appSpecific", &r.AppSpecific},
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{}
	for _, f := range r.fields() {
		val, ok := raw[f.key]
		if !ok {
			continue
		}
		if decodeField(f.ptr, val) {
			delete(raw, f.key)
		}
	}
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

// decodeField decodes val into ptr. It reports false, leaving ptr untouched,
// when val is null, an empty string, or not of the field's shape.
func decodeField(ptr any, val json.RawMessage) bool {
	val = bytes.TrimSpace(val)
	if len(val) == 0 || bytes.Equal(val, []byte("null")) {
		return false
	}
	switch p := ptr.(type) {
	case *string:
		if val[0] != '"' {
			return false
		}
		var s string
		if err := json.Unmarshal(val, &s); err != nil || s == "" {
			return false
		}
		*p = s
	case *Labels:
		var tmp Labels
		if err := json.Unmarshal(val, &tmp); err != nil {
			return false
		}
		*p = tmp
	case *[]Edge:
		var tmp []Edge
		if err := json.Unmarshal(val, &tmp); err != nil {
			return false
		}
		*p = tmp
	case **UserRatings:
		var tmp *UserRatings
		if err := json.Unmarshal(val, &tmp); err != nil {
			return false
		}
		*p = tmp
	case **AppSpecific:
		var tmp *AppSpecific
		if err := json.Unmarshal(val, &tmp); err != nil {
			return false
		}
		*p = tmp
	}
	return true
}

// MarshalJSON implements json.Marshaler. Unset typed fields fall back to their
// Extra entry, if any; keys are written in sorted order and &, <, > are not
// escaped.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Extra)+17)
	for k, v := range r.Extra {
		out[k] = v
	}
	for _, f := range r.fields() {
		var val any
		switch p := f.ptr.(type) {
		case *string:
			if *p == "" {
				continue
			}
			val = *p
		case *Labels:
			if *p == nil {
				continue
			}
			val = *p
		case *[]Edge:
			if *p == nil {
				continue
			}
			val = *p
		case **UserRatings:
			if *p == nil {
				continue
			}
			val = *p
		case **AppSpecific:
			if *p == nil {
				continue
			}
			val = *p
		}
		buf, err := marshalNoEscape(val)
		if err != nil {
			return nil, err
		}
		out[f.key] = buf
	}
	return marshalNoEscape(out)
}

// marshalNoEscape is json.Marshal without the HTML escaping of &, < and >.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// NameText returns the record name. A name kept in Extra, such as a list of
// names, is rendered with FlexName.
func (r Record) NameText() string {
	if r.Name != "" {
		return r.Name
	}
	if raw, ok := r.Extra["name"]; ok {
		return FlexName(raw)
	}
	return ""
}

// DisplayName returns the record name, or "Unnamed" when it has none.
func (r Record) DisplayName() string {
	name := r.NameText()
	if strings.TrimSpace(name) == "" {
		return "Unnamed"
	}
	return name
}

// TagLabels returns the tags used for comparison.
func (r Record) TagLabels() []string { return r.labelsOf(r.Tags, "tags") }

// UseLabels returns the uses used for comparison.
func (r Record) UseLabels() []string { return r.labelsOf(r.Uses, "uses") }

// ConditionLabels returns the treated conditions used for comparison.
func (r Record) ConditionLabels() []string {
	return r.labelsOf(r.ConditionsTreated, "conditionsTreated")
}

func (r Record) labelsOf(typed Labels, key string) []string {
	if typed != nil {
		return typed
	}
	if raw, ok := r.Extra[key]; ok {
		return LabelValues(raw)
	}
	return nil
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	c := r
	c.Synonyms = cloneLabels(r.Synonyms)
	c.Properties = cloneLabels(r.Properties)
	c.Uses = cloneLabels(r.Uses)
	c.PreparationMethods = cloneLabels(r.PreparationMethods)
	c.Cautions = cloneLabels(r.Cautions)
	c.Tags = cloneLabels(r.Tags)
	c.ConditionsTreated = cloneLabels(r.ConditionsTreated)
	c.SourceReferences = cloneLabels(r.SourceReferences)
	if r.CrossReferences != nil {
		c.CrossReferences = append([]Edge(nil), r.CrossReferences...)
	}
	if r.UserRatings != nil {
		ur := *r.UserRatings
		ur.Reviews = append([]json.RawMessage(nil), r.UserRatings.Reviews...)
		c.UserRatings = &ur
	}
	if r.AppSpecific != nil {
		as := *r.AppSpecific
		as.RelatedRemedies = cloneLabels(r.AppSpecific.RelatedRemedies)
		as.AlternativeRemedies = cloneLabels(r.AppSpecific.AlternativeRemedies)
		c.AppSpecific = &as
	}
	if r.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

func cloneLabels(l Labels) Labels {
	if l == nil {
		return nil
	}
	return append(Labels{}, l...)
}

// FlexName renders a raw JSON name value: strings as-is, lists joined with
// ", ", anything else as its JSON text.
func FlexName(raw json.RawMessage) string {
	return flexString(raw)
}

func flexString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if s, ok := scalarString(item); ok {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
	}
	s, _ := scalarString(trimmed)
	return s
}

// scalarString converts one JSON value to its label form. Null yields false.
func scalarString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed), true
	}
	return buf.String(), true
}
