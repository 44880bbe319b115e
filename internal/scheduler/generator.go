package scheduler

import (
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// GenerateInput carries everything the combination search needs.
type GenerateInput struct {
	TermID      string
	Pool        []models.ClassOffering
	NumSubjects int
	// Catalog resolves companions that are not part of Pool.
	Catalog  Catalog
	Detector *Detector
}

type subjectGroup struct {
	code       string
	candidates []models.ClassOffering
}

// Generate returns a lazy sequence of conflict-free drafts. Each draft takes
// one offering from each of NumSubjects subject groups together with the
// mandatory companions of those offerings. When the pool spans more subjects
// than requested, every subject subset of that size is searched.
//
// Groups are visited fewest-candidates first and candidates in pool order, so
// output order is stable for a fixed input. An empty sequence is a valid
// result; errors are reserved for malformed input.
func Generate(in GenerateInput) (iter.Seq[models.TimetableDraft], error) {
	if in.NumSubjects < 1 {
		return nil, invalidArgument("num_of_subjects must be at least 1")
	}
	if len(in.Pool) == 0 {
		return nil, invalidArgument("candidate pool is empty")
	}

	groups := groupBySubject(in.Pool)
	if in.NumSubjects > len(groups) {
		return nil, invalidArgument("num_of_subjects %d exceeds the %d subjects in the pool", in.NumSubjects, len(groups))
	}

	detector := in.Detector
	if detector == nil {
		detector = NewDetector(nil)
	}
	catalog := make(Catalog, len(in.Catalog)+len(in.Pool))
	for erp, o := range in.Catalog {
		catalog[erp] = o
	}
	catalog.Add(in.Pool...)

	expanded := make(map[string][]models.ClassOffering, len(in.Pool))
	for _, o := range in.Pool {
		set, err := catalog.Expand(o)
		if err != nil {
			return nil, err
		}
		expanded[o.ClassERP] = set
	}

	s := &search{
		termID:   in.TermID,
		want:     in.NumSubjects,
		groups:   groups,
		expanded: expanded,
		detector: detector,
	}
	return s.run, nil
}

// groupBySubject orders subject groups by ascending candidate count, breaking
// ties by subject code. Candidate order inside a group follows the pool.
func groupBySubject(pool []models.ClassOffering) []subjectGroup {
	bySubject := lo.GroupBy(pool, func(o models.ClassOffering) string { return o.SubjectCode })
	groups := make([]subjectGroup, 0, len(bySubject))
	for code, candidates := range bySubject {
		candidates = lo.UniqBy(candidates, func(o models.ClassOffering) string { return o.ClassERP })
		groups = append(groups, subjectGroup{code: code, candidates: candidates})
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].candidates) != len(groups[j].candidates) {
			return len(groups[i].candidates) < len(groups[j].candidates)
		}
		return groups[i].code < groups[j].code
	})
	return groups
}

type search struct {
	termID   string
	want     int
	groups   []subjectGroup
	expanded map[string][]models.ClassOffering
	detector *Detector

	working []models.ClassOffering
	present map[string]struct{}
	emitted map[string]struct{}
}

// run searches with fresh working state so the sequence can be ranged over
// more than once.
func (s *search) run(yield func(models.TimetableDraft) bool) {
	st := *s
	st.working = make([]models.ClassOffering, 0, s.want*2)
	st.present = make(map[string]struct{}, s.want*2)
	st.emitted = make(map[string]struct{})
	st.walk(0, 0, yield)
}

// walk assigns group idx onward; it returns false once the consumer stops.
func (s *search) walk(idx, chosen int, yield func(models.TimetableDraft) bool) bool {
	if chosen == s.want {
		return s.emit(yield)
	}
	remaining := len(s.groups) - idx
	if remaining < s.want-chosen {
		return true
	}

	for _, candidate := range s.groups[idx].candidates {
		added, ok := s.push(s.expanded[candidate.ClassERP])
		if !ok {
			continue
		}
		more := s.walk(idx+1, chosen+1, yield)
		s.pop(added)
		if !more {
			return false
		}
	}

	if remaining-1 >= s.want-chosen {
		return s.walk(idx+1, chosen, yield)
	}
	return true
}

// push adds the offerings of set not yet in the working set, provided none
// collides with it. Offerings already present satisfy their group as is.
func (s *search) push(set []models.ClassOffering) (int, bool) {
	fresh := make([]models.ClassOffering, 0, len(set))
	for _, o := range set {
		if _, ok := s.present[o.ClassERP]; ok {
			continue
		}
		if !s.detector.fits(o, s.working) || !s.detector.fits(o, fresh) {
			return 0, false
		}
		fresh = append(fresh, o)
	}
	for _, o := range fresh {
		s.working = append(s.working, o)
		s.present[o.ClassERP] = struct{}{}
	}
	return len(fresh), true
}

func (s *search) pop(n int) {
	for i := 0; i < n; i++ {
		last := s.working[len(s.working)-1]
		delete(s.present, last.ClassERP)
		s.working = s.working[:len(s.working)-1]
	}
}

func (s *search) emit(yield func(models.TimetableDraft) bool) bool {
	key := draftKey(s.working)
	if _, dup := s.emitted[key]; dup {
		return true
	}
	s.emitted[key] = struct{}{}
	return yield(models.TimetableDraft{
		TermID:   s.termID,
		IsActive: false,
		Classes:  slices.Clone(s.working),
	})
}

func draftKey(set []models.ClassOffering) string {
	ids := lo.Map(set, func(o models.ClassOffering, _ int) string { return o.ClassERP })
	slices.Sort(ids)
	return strings.Join(ids, "\x00")
}
