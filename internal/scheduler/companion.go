package scheduler

import "github.com/noah-isme/campus-timetable-api/internal/models"

// Catalog is a flat arena of offerings keyed by class_erp. Companion links
// are resolved through it with a single lookup.
type Catalog map[string]models.ClassOffering

// NewCatalog indexes the given offerings; later entries replace earlier ones.
func NewCatalog(sets ...[]models.ClassOffering) Catalog {
	size := 0
	for _, set := range sets {
		size += len(set)
	}
	c := make(Catalog, size)
	for _, set := range sets {
		c.Add(set...)
	}
	return c
}

// Add indexes offerings into the catalog.
func (c Catalog) Add(offerings ...models.ClassOffering) {
	for _, o := range offerings {
		c[o.ClassERP] = o
	}
}

// Expand returns the selection followed by its mandatory companion, if any.
func (c Catalog) Expand(selection models.ClassOffering) ([]models.ClassOffering, error) {
	parentERP := selection.Parent()
	if parentERP == "" {
		return []models.ClassOffering{selection}, nil
	}
	parent, ok := c[parentERP]
	if !ok {
		return nil, unresolvedError("companion class %s of %s not found", parentERP, selection.ClassERP)
	}
	return []models.ClassOffering{selection, parent}, nil
}

// MissingParents lists parent ids referenced by offerings but absent from the catalog.
func (c Catalog) MissingParents(offerings []models.ClassOffering) []string {
	seen := make(map[string]struct{})
	var missing []string
	for _, o := range offerings {
		p := o.Parent()
		if p == "" {
			continue
		}
		if _, ok := c[p]; ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		missing = append(missing, p)
	}
	return missing
}

// ValidateParent checks the companion link of offering against the catalog:
// the parent must exist, differ from the offering, share its term and not
// lead back to the offering through the parent chain.
func (c Catalog) ValidateParent(offering models.ClassOffering) error {
	parentERP := offering.Parent()
	if parentERP == "" {
		return nil
	}
	if parentERP == offering.ClassERP {
		return invalidArgument("class %s cannot be its own companion", offering.ClassERP)
	}
	parent, ok := c[parentERP]
	if !ok {
		return unresolvedError("companion class %s not found", parentERP)
	}
	if parent.TermID != offering.TermID {
		return invalidArgument("companion class %s belongs to term %s, not %s", parentERP, parent.TermID, offering.TermID)
	}

	visited := map[string]struct{}{offering.ClassERP: {}}
	current := parent
	for {
		if _, loop := visited[current.ClassERP]; loop {
			return invalidArgument("companion chain of class %s forms a cycle through %s", offering.ClassERP, current.ClassERP)
		}
		visited[current.ClassERP] = struct{}{}
		next := current.Parent()
		if next == "" {
			return nil
		}
		if next == offering.ClassERP {
			return invalidArgument("companion chain of class %s forms a cycle through %s", offering.ClassERP, current.ClassERP)
		}
		var found bool
		current, found = c[next]
		if !found {
			return nil
		}
	}
}
