package navigator

import (
	"slices"
	"sort"
	"strings"

	"github.com/amsel/raido/internal/models"
)

// SortBy selects the listing sort key.
type SortBy string

// Sort keys.
const (
	SortByName SortBy = "name"
	SortByDate SortBy = "date"
	SortBySize SortBy = "size"
)

// SortOrder selects the listing sort direction.
type SortOrder string

// Sort directions.
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// SortItems returns a sorted copy of items under the given projection.
// It never changes membership, and ties keep their insertion order
// (stable sort) in both directions.
//
// Keys: name compares the display name lexicographically; date compares
// the kind-appropriate created_at string, with folders sorting as the
// empty string; size compares the leading integer of the audio size
// label, with non-audio items contributing zero.
func SortItems(items []models.Item, by SortBy, order SortOrder) []models.Item {
	out := slices.Clone(items)
	sort.SliceStable(out, func(i, j int) bool {
		c := compareItems(out[i], out[j], by)
		if order == OrderDesc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compareItems(a, b models.Item, by SortBy) int {
	switch by {
	case SortByDate:
		return strings.Compare(a.CreatedAt(), b.CreatedAt())
	case SortBySize:
		return sizeKey(a) - sizeKey(b)
	default:
		return strings.Compare(a.Name, b.Name)
	}
}

// sizeKey parses the leading integer of the audio size label.
func sizeKey(it models.Item) int {
	if !it.IsAudio() || it.Audio == nil {
		return 0
	}
	s := strings.TrimSpace(it.Audio.SizeLabel)
	n := 0
	seen := false
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		seen = true
	}
	if !seen {
		return 0
	}
	return n
}
