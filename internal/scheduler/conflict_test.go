package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

func TestOccupancyDeduplicates(t *testing.T) {
	single := offering("A", "MATH", models.Monday, "s1")
	assert.Len(t, Occupancy(single), 1)

	double := twoSessions("B", "MATH", models.Monday, "s1", models.Wednesday, "s1")
	assert.Equal(t, []models.OccupancyCell{
		{Day: models.Monday, TimeslotID: "s1"},
		{Day: models.Wednesday, TimeslotID: "s1"},
	}, Occupancy(double))

	blankSecond := models.ClassOffering{ClassERP: "C", Day1: models.Friday, Timeslot1: "s2"}
	assert.Equal(t, []models.OccupancyCell{{Day: models.Friday, TimeslotID: "s2"}}, Occupancy(blankSecond))
}

func TestConflictsSameCell(t *testing.T) {
	d := NewDetector(testSlots())
	a := offering("A", "MATH", models.Monday, "s5")
	b := offering("B", "PHYS", models.Monday, "s5")
	c := offering("C", "CHEM", models.Tuesday, "s5")

	assert.True(t, d.Conflicts(a, b))
	assert.False(t, d.Conflicts(a, c))
}

func TestConflictsOverlappingSlots(t *testing.T) {
	d := NewDetector(testSlots())
	a := offering("A", "MATH", models.Monday, "s1")
	b := offering("B", "PHYS", models.Monday, "x1")
	c := offering("C", "CHEM", models.Monday, "s3")

	assert.True(t, d.Conflicts(a, b))
	assert.False(t, d.Conflicts(a, c))
	assert.False(t, d.Conflicts(b, c))

	shared := d.SharedCells(a, b)
	require.Len(t, shared, 1)
	assert.Equal(t, models.Monday, shared[0].Day)
	require.NotNil(t, shared[0].Range)
	assert.Equal(t, 8*hour, shared[0].Range.Start)
}

func TestConflictsDayIndependent(t *testing.T) {
	d := NewDetector(testSlots())
	slots := []string{"s1", "s2", "s3", "x1"}
	for _, sa := range slots {
		for _, sb := range slots {
			a := twoSessions("A", "MATH", models.Monday, sa, models.Wednesday, sa)
			b := twoSessions("B", "PHYS", models.Tuesday, sb, models.Thursday, sb)
			assert.False(t, d.Conflicts(a, b), "%s vs %s", sa, sb)
		}
	}
}

func TestConflictsSymmetricAndIrreflexive(t *testing.T) {
	d := NewDetector(testSlots())
	var offerings []models.ClassOffering
	for _, day := range []models.WeekDay{models.Monday, models.Tuesday} {
		for _, slot := range []string{"s1", "s2", "x1"} {
			offerings = append(offerings, offering(string(day)+slot, "S"+slot, day, slot))
		}
	}
	offerings = append(offerings, twoSessions("mix", "MIX", models.Monday, "s2", models.Tuesday, "s1"))

	for _, a := range offerings {
		assert.False(t, d.Conflicts(a, a))
		for _, b := range offerings {
			assert.Equal(t, d.Conflicts(a, b), d.Conflicts(b, a), "%s vs %s", a.ClassERP, b.ClassERP)
		}
	}
}

func TestConflictsUnknownTimeslotFallsBackToIdentity(t *testing.T) {
	d := NewDetector(nil)
	a := offering("A", "MATH", models.Monday, "ghost")
	b := offering("B", "PHYS", models.Monday, "ghost")
	c := offering("C", "CHEM", models.Monday, "s1")

	assert.True(t, d.Conflicts(a, b))
	assert.False(t, d.Conflicts(a, c))
}

func TestCollisionsSkipCompanions(t *testing.T) {
	d := NewDetector(testSlots())
	lecture := offering("L", "BIO", models.Monday, "s2")
	lab := withParent(offering("T", "BIO-LAB", models.Monday, "s2"), "L")
	other := offering("O", "ART", models.Monday, "s2")

	assert.True(t, Companions(lecture, lab))
	assert.True(t, Companions(lab, lecture))
	assert.False(t, Companions(lecture, other))

	assert.Empty(t, d.Collisions([]models.ClassOffering{lecture, lab}))

	collisions := d.Collisions([]models.ClassOffering{lecture, lab, other})
	require.Len(t, collisions, 2)
	assert.Equal(t, "L", collisions[0].ClassA)
	assert.Equal(t, "O", collisions[0].ClassB)
	assert.Equal(t, "T", collisions[1].ClassA)
}
