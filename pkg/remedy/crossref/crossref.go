// Package crossref computes similarity cross-references between remedy records.
//
// Every record is compared with every other record (both orderings, O(n²)).
// Similarity is a weighted mean of three Jaccard scores over tags, uses and
// treated conditions. Pairs above AlternativeThreshold become edges; each edge
// also lands in exactly one bucket: related (above RelatedThreshold) or
// alternative.
//
// The computation is pure: records are first normalized into immutable
// Profiles, relations are computed from those snapshots, and Apply returns a
// new slice instead of mutating its input.
package crossref

import (
	"github.com/cognicore/herba/pkg/remedy"
)

// Default thresholds.
const (
	DefaultAlternativeThreshold = 0.3
	DefaultRelatedThreshold     = 0.5
)

// Weights scales each attribute's Jaccard score in the combined similarity.
type Weights struct {
	Tags       float64 `yaml:"tags"`
	Uses       float64 `yaml:"uses"`
	Conditions float64 `yaml:"conditions"`
}

// Options tunes the builder.
type Options struct {
	// AlternativeThreshold is the minimum (exclusive) similarity for an edge.
	AlternativeThreshold float64
	// RelatedThreshold is the minimum (exclusive) similarity for the related bucket.
	RelatedThreshold float64
	Weights          Weights
}

// DefaultOptions returns the 0.3/0.5 thresholds with an unweighted mean.
func DefaultOptions() Options {
	return Options{
		AlternativeThreshold: DefaultAlternativeThreshold,
		RelatedThreshold:     DefaultRelatedThreshold,
		Weights:              Weights{Tags: 1, Uses: 1, Conditions: 1},
	}
}

// Set is a collapsed set of labels.
type Set map[string]struct{}

// NewSet builds a set from labels. Matching is exact: no trimming or case folding.
func NewSet(labels []string) Set {
	s := make(Set, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b Set) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Profile is the comparable snapshot of one record.
type Profile struct {
	ID         string
	Name       string
	Category   string
	Tags       Set
	Uses       Set
	Conditions Set
}

// Normalize converts a record into a Profile. Missing label lists become
// empty sets; lists kept raw on the record are read with remedy.LabelValues.
func Normalize(r remedy.Record) Profile {
	return Profile{
		ID:         r.ID,
		Name:       r.NameText(),
		Category:   r.Category,
		Tags:       NewSet(r.TagLabels()),
		Uses:       NewSet(r.UseLabels()),
		Conditions: NewSet(r.ConditionLabels()),
	}
}

// Relations are the relationship fields computed for one record.
type Relations struct {
	CrossReferences []remedy.Edge
	Related         []string
	Alternative     []string
}

// Builder computes cross-references.
type Builder struct {
	opts Options
}

// New creates a builder. A zero weight vector falls back to the unweighted mean.
func New(opts Options) *Builder {
	w := opts.Weights
	if w.Tags+w.Uses+w.Conditions <= 0 {
		opts.Weights = DefaultOptions().Weights
	}
	return &Builder{opts: opts}
}

// Similarity combines the three Jaccard scores of a and b. The result is in [0,1].
func (b *Builder) Similarity(x, y Profile) float64 {
	w := b.opts.Weights
	sum := w.Tags*Jaccard(x.Tags, y.Tags) +
		w.Uses*Jaccard(x.Uses, y.Uses) +
		w.Conditions*Jaccard(x.Conditions, y.Conditions)
	return sum / (w.Tags + w.Uses + w.Conditions)
}

// Compute returns the relations of every profile, aligned with the input.
// Profiles sharing an ID are never compared with each other.
func (b *Builder) Compute(profiles []Profile) []Relations {
	out := make([]Relations, len(profiles))
	for i, entry := range profiles {
		rel := Relations{
			CrossReferences: []remedy.Edge{},
			Related:         []string{},
			Alternative:     []string{},
		}
		for _, other := range profiles {
			if other.ID == entry.ID {
				continue
			}
			sim := b.Similarity(entry, other)
			if sim <= b.opts.AlternativeThreshold {
				continue
			}
			rel.CrossReferences = append(rel.CrossReferences, remedy.Edge{
				TargetID:       other.ID,
				TargetName:     other.Name,
				TargetCategory: other.Category,
				Similarity:     sim,
			})
			if sim > b.opts.RelatedThreshold {
				rel.Related = append(rel.Related, other.ID)
			} else {
				rel.Alternative = append(rel.Alternative, other.ID)
			}
		}
		out[i] = rel
	}
	return out
}

// ComputeByID is Compute keyed by record ID. With duplicate IDs the last one wins.
func (b *Builder) ComputeByID(profiles []Profile) map[string]Relations {
	rels := b.Compute(profiles)
	out := make(map[string]Relations, len(rels))
	for i, p := range profiles {
		out[p.ID] = rels[i]
	}
	return out
}

// Apply returns copies of records with crossReferences and both relation
// buckets replaced. Records without an appSpecific block get an empty one.
func (b *Builder) Apply(records []remedy.Record) []remedy.Record {
	profiles := make([]Profile, len(records))
	for i, r := range records {
		profiles[i] = Normalize(r)
	}
	rels := b.Compute(profiles)

	out := make([]remedy.Record, len(records))
	for i, r := range records {
		c := r.Clone()
		c.CrossReferences = rels[i].CrossReferences
		if c.AppSpecific == nil {
			c.AppSpecific = &remedy.AppSpecific{}
		}
		c.AppSpecific.RelatedRemedies = remedy.Labels(rels[i].Related)
		c.AppSpecific.AlternativeRemedies = remedy.Labels(rels[i].Alternative)
		out[i] = c
	}
	return out
}

// Stats summarizes a computed graph.
type Stats struct {
	Records     int
	Edges       int
	Related     int
	Alternative int
	Isolated    int
}

// Summarize counts edges and bucket entries across records.
func Summarize(records []remedy.Record) Stats {
	st := Stats{Records: len(records)}
	for _, r := range records {
		st.Edges += len(r.CrossReferences)
		if len(r.CrossReferences) == 0 {
			st.Isolated++
		}
		if r.AppSpecific != nil {
			st.Related += len(r.AppSpecific.RelatedRemedies)
			st.Alternative += len(r.AppSpecific.AlternativeRemedies)
		}
	}
	return st
}
