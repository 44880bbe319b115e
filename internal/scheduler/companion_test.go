package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

func TestExpand(t *testing.T) {
	lecture := offering("L", "BIO", models.Monday, "s2")
	lab := withParent(offering("T", "BIO-LAB", models.Tuesday, "s3"), "L")
	catalog := NewCatalog([]models.ClassOffering{lecture, lab})

	set, err := catalog.Expand(lecture)
	require.NoError(t, err)
	assert.Equal(t, []string{"L"}, classIDs(set))

	set, err = catalog.Expand(lab)
	require.NoError(t, err)
	assert.Equal(t, []string{"T", "L"}, classIDs(set))
}

func TestExpandMissingParent(t *testing.T) {
	lab := withParent(offering("T", "BIO-LAB", models.Tuesday, "s3"), "GONE")
	_, err := NewCatalog().Expand(lab)
	assert.ErrorIs(t, err, appErrors.ErrUnresolvedReference)

	assert.Equal(t, []string{"GONE"}, NewCatalog().MissingParents([]models.ClassOffering{lab, lab}))
}

func TestValidateParent(t *testing.T) {
	a := offering("A", "BIO", models.Monday, "s1")
	b := withParent(offering("B", "BIO", models.Monday, "s2"), "A")
	c := withParent(offering("C", "BIO", models.Monday, "s3"), "B")
	foreign := offering("F", "BIO", models.Monday, "s4")
	foreign.TermID = "term-2"
	catalog := NewCatalog([]models.ClassOffering{a, b, c, foreign})

	assert.NoError(t, catalog.ValidateParent(a))
	assert.NoError(t, catalog.ValidateParent(b))
	assert.NoError(t, catalog.ValidateParent(c))

	self := withParent(offering("S", "BIO", models.Monday, "s1"), "S")
	assert.ErrorIs(t, catalog.ValidateParent(self), appErrors.ErrInvalidArgument)

	missing := withParent(offering("M", "BIO", models.Monday, "s1"), "nope")
	assert.ErrorIs(t, catalog.ValidateParent(missing), appErrors.ErrUnresolvedReference)

	crossTerm := withParent(offering("X", "BIO", models.Monday, "s1"), "F")
	assert.ErrorIs(t, catalog.ValidateParent(crossTerm), appErrors.ErrInvalidArgument)

	// pointing A at C closes A -> C -> B -> A
	cycle := withParent(a, "C")
	err := catalog.ValidateParent(cycle)
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "cycle")
}
