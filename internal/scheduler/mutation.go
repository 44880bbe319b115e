package scheduler

import (
	"github.com/samber/lo"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// MutationPlan is the validated outcome of an add/remove request.
type MutationPlan struct {
	// Classes is the resulting class set in stable order.
	Classes []models.ClassOffering
	// Added holds ids to insert, companions included.
	Added []string
	// Removed holds ids to delete that were actually present.
	Removed []string
}

// PlanMutation computes (existing - removed) + expand(added) and rejects the
// result when a child would lose its companion or any pair collides.
// Added offerings must already be resolved; their companions are looked up
// in catalog.
func PlanMutation(existing, added []models.ClassOffering, removed []string, catalog Catalog, detector *Detector) (*MutationPlan, error) {
	if detector == nil {
		detector = NewDetector(nil)
	}

	addIDs := lo.Map(added, func(o models.ClassOffering, _ int) string { return o.ClassERP })
	if both := lo.Intersect(addIDs, removed); len(both) > 0 {
		return nil, invalidArgument("class %s is both added and removed", both[0])
	}

	removeSet := lo.SliceToMap(removed, func(id string) (string, struct{}) { return id, struct{}{} })
	plan := &MutationPlan{}
	present := make(map[string]struct{}, len(existing)+len(added))
	for _, o := range existing {
		if _, drop := removeSet[o.ClassERP]; drop {
			plan.Removed = append(plan.Removed, o.ClassERP)
			continue
		}
		if _, dup := present[o.ClassERP]; dup {
			continue
		}
		present[o.ClassERP] = struct{}{}
		plan.Classes = append(plan.Classes, o)
	}

	for _, o := range added {
		set, err := catalog.Expand(o)
		if err != nil {
			return nil, err
		}
		for _, member := range set {
			if _, ok := present[member.ClassERP]; ok {
				continue
			}
			if _, drop := removeSet[member.ClassERP]; drop {
				return nil, conflictError(models.ConflictTypeCompanion, []models.ScheduleConflict{{ClassA: o.ClassERP, ClassB: member.ClassERP}})
			}
			present[member.ClassERP] = struct{}{}
			plan.Classes = append(plan.Classes, member)
			plan.Added = append(plan.Added, member.ClassERP)
		}
	}

	var orphans []models.ScheduleConflict
	for _, o := range plan.Classes {
		if p := o.Parent(); p != "" {
			if _, ok := present[p]; !ok {
				orphans = append(orphans, models.ScheduleConflict{ClassA: o.ClassERP, ClassB: p})
			}
		}
	}
	if len(orphans) > 0 {
		return nil, conflictError(models.ConflictTypeCompanion, orphans)
	}

	if collisions := detector.Collisions(plan.Classes); len(collisions) > 0 {
		return nil, conflictError(models.ConflictTypeOverlap, collisions)
	}
	return plan, nil
}
