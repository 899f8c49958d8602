package universe_test

import (
	"errors"
	"testing"

	"trawl/internal/universe"
	"trawl/internal/workid"
)

func twoFamilyUniverse(t *testing.T) *universe.Universe {
	t.Helper()
	u, err := universe.New([]universe.FamilyRanges{
		{Family: "RJ", Intervals: []universe.Interval{{Lo: 0, Hi: 4}, {Lo: 10, Hi: 12}}},
		{Family: "VJ", Intervals: []universe.Interval{{Lo: 2, Hi: 3}}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return u
}

func collect(t *testing.T, u *universe.Universe, from *workid.ID) []string {
	t.Helper()
	var ids []string
	err := u.Walk(from, func(id workid.ID) error {
		ids = append(ids, id.String())
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	return ids
}

func TestWalkFullSequence(t *testing.T) {
	u := twoFamilyUniverse(t)
	got := collect(t, u, nil)
	want := []string{
		"RJ000000", "RJ000001", "RJ000002", "RJ000003", "RJ000004",
		"RJ000010", "RJ000011", "RJ000012",
		"VJ000002", "VJ000003",
	}
	if len(got) != len(want) {
		t.Fatalf("walk yielded %d ids, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("walk[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if u.Size() != uint64(len(want)) {
		t.Fatalf("Size() = %d, want %d", u.Size(), len(want))
	}
}

func TestWalkResumeInclusive(t *testing.T) {
	u := twoFamilyUniverse(t)
	from := workid.ID{Family: "RJ", Number: 3}
	got := collect(t, u, &from)
	if len(got) == 0 || got[0] != "RJ000003" {
		t.Fatalf("resume walk starts at %v, want RJ000003 first", got)
	}
	if len(got) != 7 {
		t.Fatalf("resume walk yielded %d ids, want 7: %v", len(got), got)
	}
}

func TestWalkResumeInGapMovesForward(t *testing.T) {
	u := twoFamilyUniverse(t)
	from := workid.ID{Family: "RJ", Number: 7}
	got := collect(t, u, &from)
	if len(got) == 0 || got[0] != "RJ000010" {
		t.Fatalf("gap resume starts at %v, want RJ000010 first", got)
	}
}

func TestWalkResumePastFamilyEnd(t *testing.T) {
	u := twoFamilyUniverse(t)
	from := workid.ID{Family: "RJ", Number: 500}
	got := collect(t, u, &from)
	want := []string{"VJ000002", "VJ000003"}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("past-end resume = %v, want %v", got, want)
	}
}

func TestWalkResumeUnknownFamilyStartsOver(t *testing.T) {
	u := twoFamilyUniverse(t)
	from := workid.ID{Family: "XX", Number: 3}
	got := collect(t, u, &from)
	if len(got) != int(u.Size()) {
		t.Fatalf("unknown-family resume yielded %d ids, want full %d", len(got), u.Size())
	}
	zero := workid.ID{}
	got = collect(t, u, &zero)
	if len(got) != int(u.Size()) {
		t.Fatalf("zero-cursor resume yielded %d ids, want full %d", len(got), u.Size())
	}
}

func TestWalkResumeLastFamilyPastEndVisitsNothing(t *testing.T) {
	u := twoFamilyUniverse(t)
	from := workid.ID{Family: "VJ", Number: 9999}
	if got := collect(t, u, &from); len(got) != 0 {
		t.Fatalf("past-universe resume yielded %v, want nothing", got)
	}
}

func TestWalkStopsOnVisitError(t *testing.T) {
	u := twoFamilyUniverse(t)
	stop := errors.New("stop")
	var visited int
	err := u.Walk(nil, func(workid.ID) error {
		visited++
		if visited == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Walk error = %v, want stop", err)
	}
	if visited != 3 {
		t.Fatalf("visited %d ids after stop, want 3", visited)
	}
}

func TestResumeEquivalence(t *testing.T) {
	u := twoFamilyUniverse(t)
	full := collect(t, u, nil)

	for split := 1; split < len(full); split++ {
		var first []string
		stop := errors.New("stop")
		err := u.Walk(nil, func(id workid.ID) error {
			if len(first) == split {
				return stop
			}
			first = append(first, id.String())
			return nil
		})
		if err != nil && !errors.Is(err, stop) {
			t.Fatalf("first pass failed: %v", err)
		}

		codec, err := workid.NewCodec("RJ", "VJ")
		if err != nil {
			t.Fatalf("NewCodec failed: %v", err)
		}
		cursor := codec.Parse(first[len(first)-1])
		second := collect(t, u, &cursor)

		// The cursor identifier is re-visited on resume; drop the overlap.
		combined := append(append([]string(nil), first[:len(first)-1]...), second...)
		if len(combined) != len(full) {
			t.Fatalf("split %d: combined %d ids, want %d", split, len(combined), len(full))
		}
		for i := range full {
			if combined[i] != full[i] {
				t.Fatalf("split %d: combined[%d] = %s, want %s", split, i, combined[i], full[i])
			}
		}
	}
}

func TestOffsetMatchesWalkOrder(t *testing.T) {
	u := twoFamilyUniverse(t)

	var position uint64
	err := u.Walk(nil, func(id workid.ID) error {
		offset, ok := u.Offset(id)
		if !ok {
			t.Fatalf("Offset(%s) not in universe", id)
		}
		if offset != position {
			t.Fatalf("Offset(%s) = %d, want %d", id, offset, position)
		}
		position++
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
}

func TestOffsetOutsideUniverse(t *testing.T) {
	u := twoFamilyUniverse(t)
	outside := []workid.ID{
		{Family: "RJ", Number: 7},   // gap between intervals
		{Family: "RJ", Number: 500}, // past family end
		{Family: "VJ", Number: 0},   // before first interval
		{Family: "XX", Number: 1},   // unknown family
	}
	for _, id := range outside {
		if _, ok := u.Offset(id); ok {
			t.Errorf("Offset(%s) should not be in universe", id)
		}
	}
}

func TestNewRejectsBadRanges(t *testing.T) {
	cases := []struct {
		name     string
		families []universe.FamilyRanges
	}{
		{"empty", nil},
		{"no intervals", []universe.FamilyRanges{{Family: "RJ"}}},
		{"lo above hi", []universe.FamilyRanges{{Family: "RJ", Intervals: []universe.Interval{{Lo: 5, Hi: 1}}}}},
		{"out of domain", []universe.FamilyRanges{{Family: "RJ", Intervals: []universe.Interval{{Lo: 0, Hi: 10_000_000}}}}},
		{"overlapping", []universe.FamilyRanges{{Family: "RJ", Intervals: []universe.Interval{{Lo: 0, Hi: 10}, {Lo: 10, Hi: 20}}}}},
		{"out of order", []universe.FamilyRanges{{Family: "RJ", Intervals: []universe.Interval{{Lo: 100, Hi: 200}, {Lo: 0, Hi: 50}}}}},
		{"duplicate family", []universe.FamilyRanges{
			{Family: "RJ", Intervals: []universe.Interval{{Lo: 0, Hi: 1}}},
			{Family: "RJ", Intervals: []universe.Interval{{Lo: 2, Hi: 3}}},
		}},
	}
	for _, tc := range cases {
		if _, err := universe.New(tc.families); err == nil {
			t.Errorf("%s: New succeeded, want error", tc.name)
		}
	}
}
