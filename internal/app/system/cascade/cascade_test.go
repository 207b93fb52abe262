package cascade_test

import (
	"testing"

	"github.com/dalemusser/datatracker/internal/app/system/cascade"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/google/go-cmp/cmp"
)

func TestFor_OwnedFirst(t *testing.T) {
	for _, kind := range models.Kinds {
		seenOther := false
		for _, r := range cascade.For(kind) {
			if r.Action != cascade.DeleteOwned {
				seenOther = true
				continue
			}
			if seenOther {
				t.Errorf("%s: DeleteOwned rule after a reference rule", kind)
			}
		}
	}

	got := cascade.For(models.KindOrder)
	if len(got) != 1 || got[0].Action != cascade.DeleteOwned || got[0].Referrer != models.KindDataset {
		t.Errorf("order rules = %+v", got)
	}
	if len(cascade.For(models.KindCollection)) != 0 {
		t.Error("deleting a collection should touch nothing else")
	}
}

func TestReferrers(t *testing.T) {
	order, byKind := cascade.Referrers(models.KindUser)
	want := []models.Kind{models.KindOrder, models.KindCollection, models.KindProject}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("referrer order (-want +got):\n%s", diff)
	}
	if n := len(byKind[models.KindOrder]); n != 4 {
		t.Errorf("order rules for user = %d, want 4", n)
	}

	if order, _ := cascade.Referrers(models.KindOrder); len(order) != 0 {
		t.Errorf("order deletion has no reference rules, got %v", order)
	}
}

func TestApply(t *testing.T) {
	uid := models.NewID()
	other := models.NewID()
	_, byKind := cascade.Referrers(models.KindUser)

	rec := models.Record{
		"_id":          models.NewID(),
		"editors":      []any{uid, other},
		"authors":      []any{other},
		"generators":   []any{uid},
		"organisation": uid,
	}
	changed := cascade.Apply(rec, uid, byKind[models.KindOrder])

	if diff := cmp.Diff([]string{"editors", "generators", "organisation"}, changed); diff != "" {
		t.Errorf("changed fields (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{other}, rec["editors"]); diff != "" {
		t.Errorf("editors (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{}, rec["generators"]); diff != "" {
		t.Errorf("generators (-want +got):\n%s", diff)
	}
	if rec["organisation"] != "" {
		t.Errorf("organisation = %v, want cleared", rec["organisation"])
	}

	if changed := cascade.Apply(rec, uid, byKind[models.KindOrder]); len(changed) != 0 {
		t.Errorf("second Apply changed %v", changed)
	}
}
