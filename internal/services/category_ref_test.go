package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseCategoryRef(t *testing.T) {
	id := uuid.New()

	assert.Nil(t, ParseCategoryRef("   "))
	assert.Equal(t, CategoryByID{ID: id}, ParseCategoryRef(id.String()))
	assert.Equal(t, CategoryByName{Name: "Web Design"}, ParseCategoryRef(" Web Design "))
}

func TestDisplayName(t *testing.T) {
	known := uuid.New()
	unknown := uuid.New()
	names := map[string]string{known.String(): "Marketing"}

	assert.Equal(t, "Marketing", displayName(CategoryByID{ID: known}, names))
	assert.Equal(t, unknown.String(), displayName(CategoryByID{ID: unknown}, names))
	assert.Equal(t, "Legacy", displayName(CategoryByName{Name: "Legacy"}, names))
	assert.Equal(t, "", displayName(nil, names))
}

func TestStoredCategoryRoundTrip(t *testing.T) {
	id := uuid.New()
	for _, ref := range []CategoryRef{CategoryByID{ID: id}, CategoryByName{Name: "Writing"}} {
		assert.Equal(t, ref, ParseCategoryRef(storedCategory(ref)))
	}
	assert.Equal(t, "", storedCategory(nil))
}
