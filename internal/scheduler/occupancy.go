package scheduler

import "github.com/noah-isme/campus-timetable-api/internal/models"

// Occupancy returns the distinct (day, timeslot) cells an offering holds.
// An empty second pair is treated as a repeat of the first.
func Occupancy(c models.ClassOffering) []models.OccupancyCell {
	first := models.OccupancyCell{Day: c.Day1, TimeslotID: c.Timeslot1}
	second := models.OccupancyCell{Day: c.Day2, TimeslotID: c.Timeslot2}
	if second.Day == "" || second.TimeslotID == "" || sameCell(first, second) {
		return []models.OccupancyCell{first}
	}
	return []models.OccupancyCell{first, second}
}

func sameCell(a, b models.OccupancyCell) bool {
	return a.Day == b.Day && a.TimeslotID == b.TimeslotID
}
