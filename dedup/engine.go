package dedup

import (
	"log"
	"sort"

	"storymill/types"
)

// Default thresholds. Tunable starting points, not validated optima.
const (
	DefaultFuzzyThreshold    int     = 85
	DefaultSemanticThreshold float64 = 0.90
)

// Options configures one deduplication run.
type Options struct {
	UseFuzzy          bool
	UseSemantic       bool
	FuzzyThreshold    int     // 0-100; 0 means DefaultFuzzyThreshold
	SemanticThreshold float64 // 0-1; 0 means DefaultSemanticThreshold
	// ModelName selects the embedding model when no Embedder is supplied.
	ModelName string
	// Embedder supplies the semantic signal. Nil disables semantic matching
	// unless an env-configured provider is available.
	Embedder EmbeddingsProvider
	// Prior seeds the exact-match indexes from earlier runs.
	Prior *PriorState
}

// DefaultOptions enables every signal with the default thresholds.
func DefaultOptions() Options {
	return Options{
		UseFuzzy:          true,
		UseSemantic:       true,
		FuzzyThreshold:    DefaultFuzzyThreshold,
		SemanticThreshold: DefaultSemanticThreshold,
	}
}

// Capabilities records which optional backends are actually usable,
// independent of what the caller requested.
type Capabilities struct {
	FuzzyAvailable    bool
	SemanticAvailable bool
}

// Engine deduplicates batches of content items. One Engine may serve many
// Deduplicate calls; all per-run state lives inside the call.
type Engine struct {
	opts     Options
	embedder EmbeddingsProvider
	caps     Capabilities
}

// New builds an engine, filling zero thresholds with defaults and resolving
// the embedding backend once up front.
func New(opts Options) *Engine {
	if opts.FuzzyThreshold == 0 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if opts.SemanticThreshold == 0 {
		opts.SemanticThreshold = DefaultSemanticThreshold
	}

	embedder := opts.Embedder
	if embedder == nil && opts.UseSemantic {
		embedder = NewDefaultEmbeddingsProvider(opts.ModelName)
	}

	return &Engine{
		opts:     opts,
		embedder: embedder,
		caps: Capabilities{
			// The fuzzy backend is a compile-time dependency in this
			// implementation, so it is always present.
			FuzzyAvailable:    true,
			SemanticAvailable: embedder != nil,
		},
	}
}

// Capabilities reports backend availability detected at construction.
func (e *Engine) Capabilities() Capabilities { return e.caps }

// duplicateRecord describes why an item was rejected.
type duplicateRecord struct {
	reason     string
	prefix     string
	similarity float64
	matchedID  string
}

// groupKey identifies the duplicate cluster this rejection belongs to. When
// the accepted side came from prior state its id is unknown; fall back to the
// matched value so distinct clusters still count separately.
func (r duplicateRecord) groupKey(fallback string) string {
	id := r.matchedID
	if id == "" {
		id = fallback
	}
	return r.prefix + ":" + id
}

// Deduplicate ranks items by composite score and classifies them in that
// order, so the first-seen member of any duplicate cluster is its best-
// scoring one. Returns the retained items and a run report. A nil or empty
// batch returns an empty slice and a zeroed report; nothing inside the loop
// aborts the run.
func (e *Engine) Deduplicate(items []types.Item) ([]types.Item, *types.Report) {
	ranked := rankByScore(items)
	seen := newSeenIndex(e.opts.Prior)

	fuzzyActive := e.opts.UseFuzzy && e.caps.FuzzyAvailable
	semanticActive := e.opts.UseSemantic && e.caps.SemanticAvailable

	// Embedding is the only expensive external call, so batch it before the
	// strictly sequential classification loop. A batch failure degrades to
	// per-item embedding, where a failure costs only that item's check.
	var embeddings [][]float32
	batched := false
	if semanticActive {
		embeddings, batched = e.embedBatch(ranked)
	}

	unique := make([]types.Item, 0, len(ranked))
	reasonCounts := make(map[string]int, len(types.ReasonCodes))
	for _, reason := range types.ReasonCodes {
		reasonCounts[reason] = 0
	}
	groups := make(map[string]int)

	for i, item := range ranked {
		fingerprint := Fingerprint(item)

		var embedding []float32
		if semanticActive && item.Text() != "" {
			if batched {
				embedding = embeddings[i]
			} else {
				embedding = e.embedOne(item)
			}
		}

		rec, isDup := e.classify(item, fingerprint, embedding, seen, fuzzyActive, semanticActive)
		if isDup {
			item["duplicate_reason"] = rec.reason
			item["similarity_score"] = rec.similarity
			reasonCounts[rec.reason]++
			groups[rec.groupKey(fingerprint)]++
			continue
		}

		unique = append(unique, item)
		seen.accept(item, fingerprint, embedding)
	}

	features := types.FeaturesUsed{
		FuzzyMatching:     fuzzyActive,
		SemanticMatching:  semanticActive,
		FuzzyThreshold:    e.opts.FuzzyThreshold,
		SemanticThreshold: e.opts.SemanticThreshold,
	}
	if e.embedder != nil {
		features.SemanticModel = e.embedder.ModelName()
	}

	report := buildReport(len(ranked), len(unique), reasonCounts, len(groups), features)
	return unique, report
}

// classify evaluates the duplicate checks in strict precedence order and
// stops at the first hit.
func (e *Engine) classify(item types.Item, fingerprint string, embedding []float32, seen *seenIndex, fuzzyActive, semanticActive bool) (duplicateRecord, bool) {
	if id := item.ID(); id != "" {
		if _, ok := seen.ids[id]; ok {
			return duplicateRecord{reason: types.ReasonExactID, prefix: "id", similarity: 1.0, matchedID: id}, true
		}
	}

	title := item.Title()
	if title != "" {
		if acceptedID, ok := seen.titles[NormalizeText(title)]; ok {
			return duplicateRecord{reason: types.ReasonTitle, prefix: "title", similarity: 1.0, matchedID: acceptedID}, true
		}
	}

	if acceptedID, ok := seen.hashes[fingerprint]; ok {
		return duplicateRecord{reason: types.ReasonContentHash, prefix: "hash", similarity: 1.0, matchedID: acceptedID}, true
	}

	if fuzzyActive && title != "" {
		if ok, sim, matchedID := fuzzyMatch(title, seen.titleTexts, e.opts.FuzzyThreshold); ok {
			return duplicateRecord{reason: types.ReasonFuzzyTitle, prefix: "fuzzy_title", similarity: sim, matchedID: matchedID}, true
		}
	}

	if fuzzyActive && item.Text() != "" {
		if ok, sim, matchedID := fuzzyMatch(contentSample(item.Text()), seen.contentTexts, e.opts.FuzzyThreshold); ok {
			return duplicateRecord{reason: types.ReasonFuzzyContent, prefix: "fuzzy_content", similarity: sim, matchedID: matchedID}, true
		}
	}

	if semanticActive && item.Text() != "" {
		if ok, sim, matchedID := semanticMatch(embedding, seen.embeddings, e.opts.SemanticThreshold); ok {
			return duplicateRecord{reason: types.ReasonSemantic, prefix: "semantic", similarity: sim, matchedID: matchedID}, true
		}
	}

	return duplicateRecord{}, false
}

// embedBatch embeds every item's content sample in one provider call.
// Returns (vectors, true) on success, with nil vectors at empty-text
// positions; (nil, false) when the batch call failed.
func (e *Engine) embedBatch(ranked []types.Item) ([][]float32, bool) {
	texts := make([]string, 0, len(ranked))
	positions := make([]int, 0, len(ranked))
	for i, item := range ranked {
		if text := item.Text(); text != "" {
			texts = append(texts, contentSample(text))
			positions = append(positions, i)
		}
	}
	if len(texts) == 0 {
		return make([][]float32, len(ranked)), true
	}

	vectors, err := e.embedder.EmbedTexts(texts)
	if err != nil || len(vectors) != len(texts) {
		log.Printf("Warning: batch embedding failed, falling back to per-item embedding: %v", err)
		return nil, false
	}

	out := make([][]float32, len(ranked))
	for i, pos := range positions {
		out[pos] = vectors[i]
	}
	return out, true
}

// embedOne embeds a single item's content sample. Failure is logged and
// degrades only this item's semantic check.
func (e *Engine) embedOne(item types.Item) []float32 {
	vectors, err := e.embedder.EmbedTexts([]string{contentSample(item.Text())})
	if err != nil || len(vectors) != 1 {
		log.Printf("Warning: embedding failed for item %q: %v", item.ID(), err)
		return nil
	}
	return vectors[0]
}

// rankByScore orders items by descending composite score. The sort is stable
// so ties keep their original input order.
func rankByScore(items []types.Item) []types.Item {
	ranked := make([]types.Item, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore() > ranked[j].CompositeScore()
	})
	return ranked
}
