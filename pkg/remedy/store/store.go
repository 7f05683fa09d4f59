package store

import (
	"context"
	"fmt"

	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/internalerr"
)

// Store persists enriched records and their cross-reference graph
type Store interface {
	Close() error

	// Records
	UpsertRecord(ctx context.Context, r remedy.Record) error
	GetRecord(ctx context.Context, id string) (remedy.Record, bool, error)
	ListRecords(ctx context.Context) ([]remedy.Record, error)
	RecordsByLabel(ctx context.Context, kind LabelKind, label string) ([]string, error)

	// Cross-references
	ReplaceCrossReferences(ctx context.Context, sourceID string, edges []remedy.Edge) error
	Neighbors(ctx context.Context, id string, k int) ([]remedy.Edge, error)

	// ReplaceAll makes records, in order, the whole content of the store:
	// records and edges from earlier collections are removed atomically.
	ReplaceAll(ctx context.Context, records []remedy.Record) error
}

// LabelKind names one of the label lists indexed per record
type LabelKind string

const (
	LabelTag       LabelKind = "tag"
	LabelUse       LabelKind = "use"
	LabelCondition LabelKind = "condition"
)

// ParseLabelKind accepts "tag", "use" or "condition".
func ParseLabelKind(s string) (LabelKind, error) {
	switch k := LabelKind(s); k {
	case LabelTag, LabelUse, LabelCondition:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown label kind %q", internalerr.ErrInvalidInput, s)
}

// Labels returns the indexed label lists of r keyed by kind.
func Labels(r remedy.Record) map[LabelKind][]string {
	return map[LabelKind][]string{
		LabelTag:       r.TagLabels(),
		LabelUse:       r.UseLabels(),
		LabelCondition: r.ConditionLabels(),
	}
}

// CheckIDs fails with ErrInvalidInput when a record has no ID.
func CheckIDs(records []remedy.Record) error {
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record %q has no id", internalerr.ErrInvalidInput, r.DisplayName())
		}
	}
	return nil
}
