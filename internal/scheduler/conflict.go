package scheduler

import "github.com/noah-isme/campus-timetable-api/internal/models"

// Detector decides whether two class offerings collide. It resolves timeslot
// ids to ranges once so the pairwise check stays allocation free.
type Detector struct {
	ranges map[string]models.TimeRange
}

// NewDetector indexes the known timeslots.
func NewDetector(timeslots []models.Timeslot) *Detector {
	ranges := make(map[string]models.TimeRange, len(timeslots))
	for _, slot := range timeslots {
		ranges[slot.ID] = slot.Range()
	}
	return &Detector{ranges: ranges}
}

// Range returns the interval behind a timeslot id.
func (d *Detector) Range(timeslotID string) (models.TimeRange, bool) {
	r, ok := d.ranges[timeslotID]
	return r, ok
}

// Conflicts reports whether a and b share a day on which their timeslots
// overlap. An offering never conflicts with itself.
func (d *Detector) Conflicts(a, b models.ClassOffering) bool {
	return len(d.SharedCells(a, b)) > 0
}

// SharedCells lists the cells of a that collide with some cell of b.
func (d *Detector) SharedCells(a, b models.ClassOffering) []models.OccupancyCell {
	if a.ClassERP == b.ClassERP {
		return nil
	}
	var shared []models.OccupancyCell
	cellsB := Occupancy(b)
	for _, ca := range Occupancy(a) {
		for _, cb := range cellsB {
			if ca.Day != cb.Day || !d.slotsOverlap(ca.TimeslotID, cb.TimeslotID) {
				continue
			}
			cell := ca
			if r, ok := d.ranges[ca.TimeslotID]; ok {
				cell.Range = &r
			}
			shared = append(shared, cell)
			break
		}
	}
	return shared
}

// slotsOverlap falls back to id equality for timeslots the detector does not know.
func (d *Detector) slotsOverlap(x, y string) bool {
	if x == y {
		return true
	}
	rx, okx := d.ranges[x]
	ry, oky := d.ranges[y]
	if !okx || !oky {
		return false
	}
	return rx.Overlaps(ry)
}

// Companions reports whether one offering is the declared parent of the other.
func Companions(a, b models.ClassOffering) bool {
	return (a.Parent() != "" && a.Parent() == b.ClassERP) || (b.Parent() != "" && b.Parent() == a.ClassERP)
}

// Collisions returns every conflicting pair in set, skipping companion pairs.
func (d *Detector) Collisions(set []models.ClassOffering) []models.ScheduleConflict {
	var out []models.ScheduleConflict
	for i := 0; i < len(set); i++ {
		for j := i + 1; j < len(set); j++ {
			if Companions(set[i], set[j]) {
				continue
			}
			if cells := d.SharedCells(set[i], set[j]); len(cells) > 0 {
				out = append(out, models.ScheduleConflict{ClassA: set[i].ClassERP, ClassB: set[j].ClassERP, Cells: cells})
			}
		}
	}
	return out
}

// fits reports whether candidate can join working without a collision.
func (d *Detector) fits(candidate models.ClassOffering, working []models.ClassOffering) bool {
	for _, w := range working {
		if Companions(candidate, w) {
			continue
		}
		if d.Conflicts(candidate, w) {
			return false
		}
	}
	return true
}
