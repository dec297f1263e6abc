// Package diff computes item-list deltas for the minicart event stream.
// Given two snapshots of the item list it reports which items appeared and
// which disappeared, by stable item identity. Pure functions, no side effects.
package diff

import "minicart-sync/internal/cart"

// Changes describes the delta between two item-list snapshots.
// Added holds items present in current but not previous; Removed holds items
// present in previous but not current. Matching is by item ID only, set
// semantics: the order of the input lists does not affect the result.
type Changes struct {
	Added   []cart.Item
	Removed []cart.Item
}

// IsEmpty returns true if the two snapshots contain the same item IDs.
func (c *Changes) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// Items computes the delta between two item-list snapshots.
//
// Identity comparison is by ID, never by struct equality: an item whose
// quantity changed is neither added nor removed. Result slices preserve the
// order of the input list each item came from.
func Items(previous, current []cart.Item) *Changes {
	changes := &Changes{}

	prevIDs := make(map[string]bool, len(previous))
	for _, item := range previous {
		prevIDs[item.ID] = true
	}

	currIDs := make(map[string]bool, len(current))
	for _, item := range current {
		currIDs[item.ID] = true
	}

	for _, item := range current {
		if !prevIDs[item.ID] {
			changes.Added = append(changes.Added, item)
		}
	}

	for _, item := range previous {
		if !currIDs[item.ID] {
			changes.Removed = append(changes.Removed, item)
		}
	}

	return changes
}

// Partition splits modified items into the two disjoint remote operation
// groups: toAdd holds items the backend has never seen (no cart index),
// toUpdate holds items already confirmed server-side. The two groups cover
// the input completely.
func Partition(modified []cart.Item) (toAdd, toUpdate []cart.Item) {
	for _, item := range modified {
		if item.Confirmed() {
			toUpdate = append(toUpdate, item)
		} else {
			toAdd = append(toAdd, item)
		}
	}
	return toAdd, toUpdate
}
