package scheduler

import (
	"slices"
	"strings"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

const hour = 3600

// testSlots are hourly slots from 08:00 plus x1 (08:30-09:30) straddling s1 and s2.
func testSlots() []models.Timeslot {
	return []models.Timeslot{
		{ID: "s1", StartSeconds: 8 * hour, EndSeconds: 9 * hour, SlotNumber: 1},
		{ID: "s2", StartSeconds: 9 * hour, EndSeconds: 10 * hour, SlotNumber: 2},
		{ID: "s3", StartSeconds: 10 * hour, EndSeconds: 11 * hour, SlotNumber: 3},
		{ID: "s4", StartSeconds: 11 * hour, EndSeconds: 12 * hour, SlotNumber: 4},
		{ID: "s5", StartSeconds: 12 * hour, EndSeconds: 13 * hour, SlotNumber: 5},
		{ID: "x1", StartSeconds: 8*hour + 1800, EndSeconds: 9*hour + 1800, SlotNumber: 6},
	}
}

func offering(erp, subject string, day models.WeekDay, slot string) models.ClassOffering {
	return models.ClassOffering{
		ClassERP:    erp,
		SubjectCode: subject,
		TermID:      "term-1",
		Day1:        day,
		Timeslot1:   slot,
		Day2:        day,
		Timeslot2:   slot,
	}
}

func twoSessions(erp, subject string, day1 models.WeekDay, slot1 string, day2 models.WeekDay, slot2 string) models.ClassOffering {
	o := offering(erp, subject, day1, slot1)
	o.Day2 = day2
	o.Timeslot2 = slot2
	return o
}

func withParent(o models.ClassOffering, parent string) models.ClassOffering {
	o.ParentClassERP = &parent
	return o
}

func classIDs(set []models.ClassOffering) []string {
	ids := make([]string, 0, len(set))
	for _, o := range set {
		ids = append(ids, o.ClassERP)
	}
	return ids
}

func sortedKey(set []models.ClassOffering) string {
	ids := classIDs(set)
	slices.Sort(ids)
	return strings.Join(ids, ",")
}
