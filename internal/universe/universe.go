package universe

import (
	"fmt"

	"trawl/internal/workid"
)

// Interval is a closed numeric range [Lo, Hi].
type Interval struct {
	Lo uint32
	Hi uint32
}

// Count returns the number of identifiers the interval covers.
func (iv Interval) Count() uint64 {
	return uint64(iv.Hi) - uint64(iv.Lo) + 1
}

// FamilyRanges pairs a family prefix with its declared intervals.
type FamilyRanges struct {
	Family    string
	Intervals []Interval
}

// Universe is the full enumeration space: every family's intervals in
// declared order.
type Universe struct {
	families []FamilyRanges
	total    uint64
}

// New validates the declared ranges and builds a Universe. Intervals must be
// in-domain, ascending, and disjoint within each family; families must be
// unique and non-empty.
func New(families []FamilyRanges) (*Universe, error) {
	if len(families) == 0 {
		return nil, fmt.Errorf("universe: no families declared")
	}
	seen := make(map[string]struct{}, len(families))
	var total uint64
	for _, fam := range families {
		if fam.Family == "" {
			return nil, fmt.Errorf("universe: empty family prefix")
		}
		if _, dup := seen[fam.Family]; dup {
			return nil, fmt.Errorf("universe: duplicate family %q", fam.Family)
		}
		seen[fam.Family] = struct{}{}
		if len(fam.Intervals) == 0 {
			return nil, fmt.Errorf("universe: family %q has no intervals", fam.Family)
		}
		for i, iv := range fam.Intervals {
			if iv.Lo > iv.Hi {
				return nil, fmt.Errorf("universe: family %q interval %d: lo %d above hi %d", fam.Family, i, iv.Lo, iv.Hi)
			}
			if iv.Hi > workid.MaxNumber {
				return nil, fmt.Errorf("universe: family %q interval %d: hi %d above %d", fam.Family, i, iv.Hi, uint32(workid.MaxNumber))
			}
			if i > 0 && fam.Intervals[i-1].Hi >= iv.Lo {
				return nil, fmt.Errorf("universe: family %q intervals %d and %d overlap or are out of order", fam.Family, i-1, i)
			}
			total += iv.Count()
		}
	}
	cp := make([]FamilyRanges, len(families))
	for i, fam := range families {
		cp[i] = FamilyRanges{Family: fam.Family, Intervals: append([]Interval(nil), fam.Intervals...)}
	}
	return &Universe{families: cp, total: total}, nil
}

// Size returns the total number of identifiers in the universe.
func (u *Universe) Size() uint64 {
	return u.total
}

// First returns the first identifier of the universe.
func (u *Universe) First() (workid.ID, bool) {
	if u == nil || len(u.families) == 0 {
		return workid.ID{}, false
	}
	fam := u.families[0]
	return workid.ID{Family: fam.Family, Number: fam.Intervals[0].Lo}, true
}

// Walk visits every identifier from the resume point onward, in declared
// family order and strictly increasing numeric order within a family. A nil
// or zero from starts at the beginning; a non-nil from resumes at that
// identifier inclusive, applying the gap and past-end placement rules. Walk
// stops and returns the first error visit reports.
func (u *Universe) Walk(from *workid.ID, visit func(workid.ID) error) error {
	startFamily, startInterval, startNumber := u.locate(from)
	for fi := startFamily; fi < len(u.families); fi++ {
		fam := u.families[fi]
		ii := 0
		if fi == startFamily {
			ii = startInterval
		}
		for ; ii < len(fam.Intervals); ii++ {
			iv := fam.Intervals[ii]
			lo := iv.Lo
			if fi == startFamily && ii == startInterval && startNumber > lo {
				lo = startNumber
			}
			for n := lo; n <= iv.Hi; n++ {
				if err := visit(workid.ID{Family: fam.Family, Number: n}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Offset returns an identifier's absolute position in the walk order,
// counting from zero. ok is false for identifiers outside the declared
// universe (unknown family, inside a gap, or past the family's last
// interval).
func (u *Universe) Offset(id workid.ID) (uint64, bool) {
	var offset uint64
	for _, fam := range u.families {
		if fam.Family != id.Family {
			for _, iv := range fam.Intervals {
				offset += iv.Count()
			}
			continue
		}
		for _, iv := range fam.Intervals {
			if id.Number < iv.Lo {
				return 0, false
			}
			if id.Number <= iv.Hi {
				return offset + uint64(id.Number-iv.Lo), true
			}
			offset += iv.Count()
		}
		return 0, false
	}
	return 0, false
}

// locate maps a resume cursor to (family index, interval index, number). An
// absent, zero, or unknown-family cursor maps to the start of the universe.
func (u *Universe) locate(from *workid.ID) (int, int, uint32) {
	if from == nil || from.IsZero() {
		return 0, 0, 0
	}
	for fi, fam := range u.families {
		if fam.Family != from.Family {
			continue
		}
		for ii, iv := range fam.Intervals {
			if from.Number <= iv.Hi {
				return fi, ii, from.Number
			}
		}
		// Past the family's last interval: continue with the next family.
		return fi + 1, 0, 0
	}
	return 0, 0, 0
}
