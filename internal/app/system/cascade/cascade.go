// internal/app/system/cascade/cascade.go
//
// Package cascade declares what happens to references when an entity is
// deleted. The rules are data; changes.Recorder executes them.
package cascade

import "github.com/dalemusser/datatracker/internal/domain/models"

// Action is what a rule does to a referrer.
type Action int

const (
	// Pull removes the deleted id from a list field of every referrer.
	Pull Action = iota
	// Clear blanks a single-reference field that holds the deleted id.
	Clear
	// DeleteOwned deletes every entity listed in a field of the deleted
	// entity itself.
	DeleteOwned
)

func (a Action) String() string {
	switch a {
	case Pull:
		return "pull"
	case Clear:
		return "clear"
	case DeleteOwned:
		return "delete owned"
	}
	return "unknown"
}

// Rule is one reference to fix up. For Pull and Clear, Field belongs to
// Referrer; for DeleteOwned it belongs to the deleted entity and lists
// Referrer ids.
type Rule struct {
	Referrer models.Kind
	Field    string
	Action   Action
}

var rules = map[models.Kind][]Rule{
	models.KindDataset: {
		{Referrer: models.KindOrder, Field: "datasets", Action: Pull},
		{Referrer: models.KindCollection, Field: "datasets", Action: Pull},
		{Referrer: models.KindProject, Field: "datasets", Action: Pull},
	},
	models.KindOrder: {
		{Referrer: models.KindDataset, Field: "datasets", Action: DeleteOwned},
	},
	models.KindUser: {
		{Referrer: models.KindOrder, Field: "editors", Action: Pull},
		{Referrer: models.KindOrder, Field: "authors", Action: Pull},
		{Referrer: models.KindOrder, Field: "generators", Action: Pull},
		{Referrer: models.KindOrder, Field: "organisation", Action: Clear},
		{Referrer: models.KindCollection, Field: "editors", Action: Pull},
		{Referrer: models.KindProject, Field: "owners", Action: Pull},
	},
}

// For returns the rules that apply when an entity of kind is deleted,
// owned deletions first.
func For(kind models.Kind) []Rule {
	src := rules[kind]
	out := make([]Rule, 0, len(src))
	for _, r := range src {
		if r.Action == DeleteOwned {
			out = append(out, r)
		}
	}
	for _, r := range src {
		if r.Action != DeleteOwned {
			out = append(out, r)
		}
	}
	return out
}

// Referrers groups the Pull and Clear rules of kind by referrer, keeping
// declaration order.
func Referrers(kind models.Kind) (order []models.Kind, byKind map[models.Kind][]Rule) {
	byKind = make(map[models.Kind][]Rule)
	for _, r := range rules[kind] {
		if r.Action == DeleteOwned {
			continue
		}
		if _, seen := byKind[r.Referrer]; !seen {
			order = append(order, r.Referrer)
		}
		byKind[r.Referrer] = append(byKind[r.Referrer], r)
	}
	return order, byKind
}

// Apply removes id from the rule fields of rec, in place, and returns the
// fields that changed.
func Apply(rec models.Record, id string, rs []Rule) []string {
	var changed []string
	for _, r := range rs {
		switch r.Action {
		case Pull:
			if !models.Contains(rec[r.Field], id) {
				continue
			}
			kept := []any{}
			for _, v := range models.StringList(rec[r.Field]) {
				if v != id {
					kept = append(kept, v)
				}
			}
			rec[r.Field] = kept
			changed = append(changed, r.Field)
		case Clear:
			if rec.String(r.Field) != id {
				continue
			}
			rec[r.Field] = ""
			changed = append(changed, r.Field)
		}
	}
	return changed
}
