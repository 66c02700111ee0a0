package post

import (
	"sort"
	"time"
)

// SortByDate orders summaries newest first. Entries without a usable date
// go after every dated entry. Ties keep their incoming order.
func SortByDate(summaries []Summary) {
	type keyed struct {
		s     Summary
		t     time.Time
		dated bool
	}

	ks := make([]keyed, len(summaries))
	for i, s := range summaries {
		t, ok := s.Date()
		ks[i] = keyed{s: s, t: t, dated: ok}
	}

	sort.SliceStable(ks, func(i, j int) bool {
		if ks[i].dated != ks[j].dated {
			return ks[i].dated
		}
		return ks[i].t.After(ks[j].t)
	})

	for i := range ks {
		summaries[i] = ks[i].s
	}
}

// Listing builds sorted summaries for entries. The result is never nil.
func Listing(entries []Entry) []Summary {
	summaries := make([]Summary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, e.Summary())
	}
	SortByDate(summaries)
	return summaries
}
