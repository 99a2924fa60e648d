package dedup

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// seenText is one accepted string plus the identifier of the item that
// contributed it. Slice order is acceptance order.
type seenText struct {
	text string
	id   string
}

// fuzzyMatch compares a candidate against every previously accepted string
// using a word-order-independent token-sort ratio, short-circuiting on the
// first match at or above threshold (0-100). Returns the ratio scaled to
// [0,1] and the matching item's identifier; no match yields (false, 0, "").
//
// Cost is O(n) against the running accepted list, so a batch of N items is
// O(N^2) worst case. Fine for batches of hundreds; shard larger inputs by
// content partition upstream.
func fuzzyMatch(candidate string, seen []seenText, threshold int) (bool, float64, string) {
	if candidate == "" || len(seen) == 0 {
		return false, 0, ""
	}

	lowered := NormalizeText(candidate)
	for _, prior := range seen {
		ratio := fuzzy.TokenSortRatio(lowered, NormalizeText(prior.text))
		if ratio >= threshold {
			return true, float64(ratio) / 100.0, prior.id
		}
	}
	return false, 0, ""
}
