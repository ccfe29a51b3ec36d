// internal/services/category_ref.go
package services

import (
	"strings"

	"github.com/google/uuid"
)

// CategoryRef is how a service refers to its category or subcategory: either
// a row in the category tables or a free-text name kept from before those
// tables existed. Stored strings are parsed once, here.
type CategoryRef interface {
	stored() string
}

// CategoryByID references a category or subcategory row.
type CategoryByID struct {
	ID uuid.UUID
}

// CategoryByName is a literal category name with no matching row.
type CategoryByName struct {
	Name string
}

func (r CategoryByID) stored() string   { return r.ID.String() }
func (r CategoryByName) stored() string { return r.Name }

// ParseCategoryRef interprets a stored column value. Empty values yield nil.
func ParseCategoryRef(value string) CategoryRef {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if id, err := uuid.Parse(value); err == nil {
		return CategoryByID{ID: id}
	}
	return CategoryByName{Name: value}
}

func storedCategory(ref CategoryRef) string {
	if ref == nil {
		return ""
	}
	return ref.stored()
}

// displayName resolves a reference against the id to name map. Unknown ids
// are returned as-is.
func displayName(ref CategoryRef, names map[string]string) string {
	switch r := ref.(type) {
	case CategoryByID:
		if name, ok := names[r.ID.String()]; ok {
			return name
		}
		return r.ID.String()
	case CategoryByName:
		return r.Name
	default:
		return ""
	}
}
