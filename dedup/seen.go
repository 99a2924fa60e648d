package dedup

import "storymill/types"

// PriorState carries accepted keys from earlier runs so a caller can extend
// deduplication across batches. Only the exact-match indexes survive a run;
// fuzzy text lists and embeddings are rebuilt per batch.
type PriorState struct {
	IDs    []string `json:"ids,omitempty"`
	Titles []string `json:"titles,omitempty"` // normalized
	Hashes []string `json:"hashes,omitempty"`
}

// seenIndex is the mutable state of one deduplication pass. Every accepted
// item contributes exactly one entry to each applicable index, in acceptance
// order, and nothing is ever pruned within a run.
type seenIndex struct {
	ids    map[string]struct{}
	titles map[string]string // normalized title -> accepted item id
	hashes map[string]string // fingerprint -> accepted item id

	titleTexts   []seenText
	contentTexts []seenText
	embeddings   []seenEmbedding
}

func newSeenIndex(prior *PriorState) *seenIndex {
	s := &seenIndex{
		ids:    make(map[string]struct{}),
		titles: make(map[string]string),
		hashes: make(map[string]string),
	}
	if prior != nil {
		for _, id := range prior.IDs {
			s.ids[id] = struct{}{}
		}
		// Prior entries have no accepted id from this run; group keys fall
		// back to the matched value itself.
		for _, title := range prior.Titles {
			s.titles[NormalizeText(title)] = ""
		}
		for _, hash := range prior.Hashes {
			s.hashes[hash] = ""
		}
	}
	return s
}

// accept records an accepted item in every index its fields support. Called
// only after classification so an item is never compared against itself.
func (s *seenIndex) accept(item types.Item, fingerprint string, embedding []float32) {
	id := item.ID()
	if id != "" {
		s.ids[id] = struct{}{}
	}

	if title := item.Title(); title != "" {
		s.titles[NormalizeText(title)] = id
		s.titleTexts = append(s.titleTexts, seenText{text: title, id: id})
	}

	if text := item.Text(); text != "" {
		s.hashes[fingerprint] = id
		s.contentTexts = append(s.contentTexts, seenText{text: contentSample(text), id: id})
		if len(embedding) > 0 {
			s.embeddings = append(s.embeddings, seenEmbedding{vector: embedding, id: id})
		}
	}
}
