// internal/domain/models/structure.go
package models

import "github.com/google/uuid"

// NewID returns a fresh record identifier (a 36-character UUID string).
func NewID() string {
	return uuid.NewString()
}

// IsID reports whether s parses as a record identifier.
func IsID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// NewOrder returns an empty order document with a new identifier.
func NewOrder() Record {
	return Record{
		"_id":          NewID(),
		"title":        "",
		"description":  "",
		"authors":      []any{},
		"generators":   []any{},
		"organisation": "",
		"editors":      []any{},
		"datasets":     []any{},
		"properties":   map[string]any{},
		"tags":         []any{},
	}
}

// NewDataset returns an empty dataset document with a new identifier.
func NewDataset() Record {
	return Record{
		"_id":         NewID(),
		"title":       "",
		"description": "",
		"data_urls":   []any{},
		"properties":  map[string]any{},
		"tags":        []any{},
	}
}

// NewCollection returns an empty collection document with a new identifier.
func NewCollection() Record {
	return Record{
		"_id":         NewID(),
		"title":       "",
		"description": "",
		"editors":     []any{},
		"datasets":    []any{},
		"properties":  map[string]any{},
		"tags":        []any{},
	}
}

// NewProject returns an empty project document with a new identifier.
func NewProject() Record {
	return Record{
		"_id":          NewID(),
		"title":        "",
		"description":  "",
		"contact":      "",
		"dmp":          "",
		"owners":       []any{},
		"datasets":     []any{},
		"publications": []any{},
		"properties":   map[string]any{},
		"tags":         []any{},
	}
}

// NewUserRecord returns an empty user document with a new identifier.
func NewUserRecord() Record {
	return Record{
		"_id":         NewID(),
		"affiliation": "",
		"api_key":     "",
		"api_salt":    "",
		"auth_ids":    []any{},
		"email":       "",
		"contact":     "",
		"name":        "",
		"orcid":       "",
		"permissions": []any{},
		"url":         "",
	}
}

// Structure returns the empty document template for kind.
func Structure(kind Kind) Record {
	switch kind {
	case KindOrder:
		return NewOrder()
	case KindDataset:
		return NewDataset()
	case KindCollection:
		return NewCollection()
	case KindProject:
		return NewProject()
	case KindUser:
		return NewUserRecord()
	}
	return nil
}
