// internal/app/system/validate/validate.go
//
// Package validate checks incoming request documents ("indata") before they
// are merged into stored records. Every recognized key maps to exactly one
// check; keys without a check are rejected.
package validate

import (
	"context"
	"errors"
	"sort"

	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/hashicorp/go-multierror"
)

// Field is a recognized indata key.
type Field int

const (
	FieldTitle Field = iota
	FieldName
	FieldDescription
	FieldDMP
	FieldContact
	FieldAffiliation
	FieldORCID
	FieldEmail
	FieldURL
	FieldAuthIDs
	FieldTags
	FieldProperties
	FieldExtra
	FieldLinks
	FieldDataURLs
	FieldPublications
	FieldCrossReferences
	FieldPermissions
	FieldAuthors
	FieldGenerators
	FieldEditors
	FieldOwners
	FieldOrganisation
	FieldCreator
	FieldReceiver
	FieldDatasets

	numFields
)

var fieldNames = [numFields]string{
	FieldTitle:           "title",
	FieldName:            "name",
	FieldDescription:     "description",
	FieldDMP:             "dmp",
	FieldContact:         "contact",
	FieldAffiliation:     "affiliation",
	FieldORCID:           "orcid",
	FieldEmail:           "email",
	FieldURL:             "url",
	FieldAuthIDs:         "auth_ids",
	FieldTags:            "tags",
	FieldProperties:      "properties",
	FieldExtra:           "extra",
	FieldLinks:           "links",
	FieldDataURLs:        "data_urls",
	FieldPublications:    "publications",
	FieldCrossReferences: "cross_references",
	FieldPermissions:     "permissions",
	FieldAuthors:         "authors",
	FieldGenerators:      "generators",
	FieldEditors:         "editors",
	FieldOwners:          "owners",
	FieldOrganisation:    "organisation",
	FieldCreator:         "creator",
	FieldReceiver:        "receiver",
	FieldDatasets:        "datasets",
}

var byName = func() map[string]Field {
	m := make(map[string]Field, numFields)
	for f, name := range fieldNames {
		m[name] = Field(f)
	}
	return m
}()

// String returns the key name of f.
func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

// ParseField maps an exact key name to its Field.
func ParseField(name string) (Field, error) {
	f, ok := byName[name]
	if !ok {
		return 0, &FieldError{Field: name, Reason: "no validator for key", Err: ErrUnknownField}
	}
	return f, nil
}

type checker func(ctx context.Context, lookup Lookup, v any) error

func local(fn func(any) error) checker {
	return func(_ context.Context, _ Lookup, v any) error { return fn(v) }
}

var checks = [numFields]checker{
	FieldTitle:           local(Title),
	FieldName:            local(Title),
	FieldDescription:     local(String),
	FieldDMP:             local(String),
	FieldContact:         local(String),
	FieldAffiliation:     local(String),
	FieldORCID:           local(String),
	FieldEmail:           local(Email),
	FieldURL:             local(URL),
	FieldAuthIDs:         local(StringList),
	FieldTags:            local(Tags),
	FieldProperties:      local(Properties),
	FieldExtra:           local(Extra),
	FieldLinks:           local(ObjectList("description", "url")),
	FieldDataURLs:        local(ObjectList("description", "url")),
	FieldPublications:    local(ObjectList("title", "doi")),
	FieldCrossReferences: local(ObjectList("title", "value")),
	FieldPermissions:     local(Permissions),
	FieldAuthors:         UserList,
	FieldGenerators:      UserList,
	FieldEditors:         UserList,
	FieldOwners:          UserList,
	FieldOrganisation:    User,
	FieldCreator:         User,
	FieldReceiver:        User,
	FieldDatasets:        Datasets,
}

// Value validates a single field value.
func Value(ctx context.Context, lookup Lookup, f Field, v any) error {
	if f < 0 || f >= numFields {
		return &FieldError{Field: f.String(), Reason: "no validator for key", Err: ErrUnknownField}
	}
	if err := checks[f](ctx, lookup, v); err != nil {
		return withField(f.String(), err)
	}
	return nil
}

// Indata validates every key of indata and returns all failures as a
// *multierror.Error, or nil when the document is valid. Keys are visited in
// sorted order so the reported failures are stable.
func Indata(ctx context.Context, lookup Lookup, indata map[string]any) error {
	var result *multierror.Error
	for _, key := range sortedKeys(indata) {
		f, err := ParseField(key)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if err := Value(ctx, lookup, f, indata[key]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Check reports whether indata is valid.
func Check(ctx context.Context, lookup Lookup, indata map[string]any) bool {
	return Indata(ctx, lookup, indata) == nil
}

// AlwaysProhibited lists keys no client may set on any entity.
var AlwaysProhibited = []string{"_id", "id", "identifier"}

// Basic is the check every write handler runs: each key must belong to the
// entity template, must not be prohibited, and must pass Indata.
func Basic(ctx context.Context, lookup Lookup, indata map[string]any, template models.Record, prohibited []string) error {
	blocked := make(map[string]struct{}, len(prohibited)+len(AlwaysProhibited))
	for _, k := range AlwaysProhibited {
		blocked[k] = struct{}{}
	}
	for _, k := range prohibited {
		blocked[k] = struct{}{}
	}

	var result *multierror.Error
	for _, key := range sortedKeys(indata) {
		if _, ok := blocked[key]; ok {
			result = multierror.Append(result, &FieldError{Field: key, Reason: "may not be set", Err: ErrProhibitedField})
			continue
		}
		if !template.Has(key) {
			result = multierror.Append(result, &FieldError{Field: key, Reason: "not part of this entity", Err: ErrUnknownField})
		}
	}
	if result != nil {
		return result.ErrorOrNil()
	}
	return Indata(ctx, lookup, indata)
}

// Reasons flattens a validation error into "field: reason" strings for
// logging.
func Reasons(err error) []string {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		out = append(out, e.Error())
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
