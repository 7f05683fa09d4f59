package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/crossref"
	"github.com/cognicore/herba/pkg/remedy/internalerr"
	"github.com/cognicore/herba/pkg/remedy/store"
	"github.com/cognicore/herba/pkg/remedy/store/memstore"
)

func TestReplaceAllIndexesLabelsAndEdges(t *testing.T) {
	ctx := context.Background()
	records := crossref.New(crossref.DefaultOptions()).Apply([]remedy.Record{
		{ID: "a", Name: "Ginger", Tags: remedy.Labels{"warming"}, Uses: remedy.Labels{"nausea"}},
		{ID: "b", Name: "Galangal", Tags: remedy.Labels{"warming"}, Uses: remedy.Labels{"nausea"}},
		{ID: "c", Name: "Quartz", Tags: remedy.Labels{"crystal"}},
	})

	st := memstore.New()
	if err := st.ReplaceAll(ctx, records); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	ids, err := st.RecordsByLabel(ctx, store.LabelUse, "nausea")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected label lookup %v", ids)
	}
	edges, err := st.Neighbors(ctx, "b", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].TargetID != "a" || edges[0].TargetName != "Ginger" {
		t.Fatalf("unexpected edges %+v", edges)
	}
	if edges, _ := st.Neighbors(ctx, "c", 0); len(edges) != 0 {
		t.Fatalf("isolated record should have no edges, got %+v", edges)
	}
}

func TestReplaceAllRejectsMissingID(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	if err := st.UpsertRecord(ctx, remedy.Record{ID: "kept"}); err != nil {
		t.Fatal(err)
	}
	err := st.ReplaceAll(ctx, []remedy.Record{{ID: "a"}, {Name: "No ID"}})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, found, _ := st.GetRecord(ctx, "kept"); !found {
		t.Fatal("a rejected collection must not touch the store")
	}
}

func TestParseLabelKind(t *testing.T) {
	for _, s := range []string{"tag", "use", "condition"} {
		if k, err := store.ParseLabelKind(s); err != nil || string(k) != s {
			t.Errorf("ParseLabelKind(%q) = %q, %v", s, k, err)
		}
	}
	if _, err := store.ParseLabelKind("tags"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLabels(t *testing.T) {
	l := store.Labels(remedy.Record{Tags: remedy.Labels{"t"}, ConditionsTreated: remedy.Labels{"c"}})
	if len(l[store.LabelTag]) != 1 || len(l[store.LabelUse]) != 0 || l[store.LabelCondition][0] != "c" {
		t.Fatalf("unexpected labels %v", l)
	}

	var r remedy.Record
	if err := json.Unmarshal([]byte(`{"id": "x", "tags": "calming", "uses": ["sleep", {"time": "night"}]}`), &r); err != nil {
		t.Fatal(err)
	}
	l = store.Labels(r)
	if len(l[store.LabelTag]) != 1 || l[store.LabelTag][0] != "calming" || len(l[store.LabelUse]) != 2 {
		t.Fatalf("raw label lists should be indexed: %v", l)
	}
}
