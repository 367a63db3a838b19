package friends

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the secondary ordering applied after in-game and status.
type SortKey string

const (
	SortAlphabetic     SortKey = "alphabetic"
	SortRecentActivity SortKey = "recent_activity"
	SortTotalPlaytime  SortKey = "total_playtime"
)

// Valid reports whether the key is a known sort key. An empty key is treated as SortAlphabetic.
func (k SortKey) Valid() bool {
	switch k {
	case "", SortAlphabetic, SortRecentActivity, SortTotalPlaytime:
		return true
	default:
		return false
	}
}

// Sort orders the list in place: in-game friends first, then by status rank, then by the
// secondary key. Names break any remaining ties, falling back to the steam id so that no two
// distinct friends ever compare equal.
func Sort(list []Friend, key SortKey) {
	// Collators keep an internal buffer, so one is created per call.
	collator := collate.New(language.Und, collate.IgnoreCase, collate.Loose)

	slices.SortStableFunc(list, func(a Friend, b Friend) int {
		return compare(collator, key, a, b)
	})
}

func compare(collator *collate.Collator, key SortKey, a Friend, b Friend) int {
	if a.InGame != b.InGame {
		if a.InGame {
			return -1
		}

		return 1
	}

	if order := cmp.Compare(a.Status.rank(), b.Status.rank()); order != 0 {
		return order
	}

	switch key {
	case SortRecentActivity:
		if order := cmp.Compare(b.LastLogoff, a.LastLogoff); order != 0 {
			return order
		}
	case SortTotalPlaytime:
		if order := cmp.Compare(b.playtime(), a.playtime()); order != 0 {
			return order
		}
	case SortAlphabetic:
	}

	return compareNames(collator, a, b)
}

func compareNames(collator *collate.Collator, a Friend, b Friend) int {
	if order := collator.CompareString(a.Name, b.Name); order != 0 {
		return order
	}

	if order := strings.Compare(a.Name, b.Name); order != 0 {
		return order
	}

	idA, idB := a.SteamID.String(), b.SteamID.String()
	if order := cmp.Compare(len(idA), len(idB)); order != 0 {
		return order
	}

	return strings.Compare(idA, idB)
}
