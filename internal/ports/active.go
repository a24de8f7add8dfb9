// Package ports maps active board connectors to named ports that the API
// layer reads and writes.
package ports

import (
	"cmp"
	"slices"

	"github.com/KevinKickass/HotmockBridge/internal/hotmock"
)

// ActiveSet is the sorted, duplicate-free list of connectors in use.
type ActiveSet []hotmock.Address

// NewActiveSet sorts and deduplicates addrs.
func NewActiveSet(addrs ...hotmock.Address) ActiveSet {
	s := slices.Clone(addrs)
	slices.SortFunc(s, compareAddress)
	return ActiveSet(slices.Compact(s))
}

func compareAddress(a, b hotmock.Address) int {
	if c := cmp.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Contains reports whether addr is active.
func (s ActiveSet) Contains(addr hotmock.Address) bool {
	_, ok := slices.BinarySearchFunc(s, addr, compareAddress)
	return ok
}

// IDs returns the active IDs of type t in ascending order.
func (s ActiveSet) IDs(t hotmock.ConnectorType) []int {
	var ids []int
	for _, a := range s {
		if a.Type == t {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Changes is the result of comparing two active sets.
type Changes struct {
	Added   []hotmock.Address
	Kept    []hotmock.Address
	Removed []hotmock.Address
}

// Empty reports whether nothing was added or removed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// Diff compares two active sets. Both inputs must be sorted as produced by
// NewActiveSet.
func Diff(previous, current ActiveSet) Changes {
	var ch Changes
	i, j := 0, 0
	for i < len(previous) && j < len(current) {
		switch c := compareAddress(previous[i], current[j]); {
		case c < 0:
			ch.Removed = append(ch.Removed, previous[i])
			i++
		case c > 0:
			ch.Added = append(ch.Added, current[j])
			j++
		default:
			ch.Kept = append(ch.Kept, current[j])
			i++
			j++
		}
	}
	ch.Removed = append(ch.Removed, previous[i:]...)
	ch.Added = append(ch.Added, current[j:]...)
	return ch
}
