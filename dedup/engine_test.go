package dedup

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"storymill/types"
)

// fakeEmbedder maps content samples to fixed vectors. Unknown texts get a
// default vector; configured texts or batches can be made to fail.
type fakeEmbedder struct {
	vectors   map[string][]float32
	failBatch bool
	failTexts map[string]bool
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed-v1" }

func (f *fakeEmbedder) EmbedTexts(texts []string) ([][]float32, error) {
	if f.failBatch && len(texts) > 1 {
		return nil, errors.New("batch embed unavailable")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if f.failTexts[text] {
			return nil, fmt.Errorf("embed failed for %q", text)
		}
		if v, ok := f.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = []float32{1, 0, 0}
		}
	}
	return out, nil
}

func basicOptions() Options {
	return Options{UseFuzzy: false, UseSemantic: false}
}

func checkConservation(t *testing.T, report *types.Report) {
	t.Helper()
	if report.UniqueItems+report.TotalDuplicates != report.TotalInputItems {
		t.Fatalf("count conservation violated: %d unique + %d dup != %d input",
			report.UniqueItems, report.TotalDuplicates, report.TotalInputItems)
	}
	if report.RetentionRate < 0 || report.RetentionRate > 100 {
		t.Fatalf("retention rate %v outside [0,100]", report.RetentionRate)
	}
}

func TestDeduplicateExactIDKeepsBestScore(t *testing.T) {
	items := []types.Item{
		{"id": "1", "title": "T", "text": "X", "viral_score": float64(100)},
		{"id": "1", "title": "T2", "text": "Y", "viral_score": float64(60)},
	}

	unique, report := New(basicOptions()).Deduplicate(items)

	if len(unique) != 1 {
		t.Fatalf("expected 1 unique item, got %d", len(unique))
	}
	if unique[0].CompositeScore() != 100 {
		t.Fatalf("expected the 100-score item to survive, got score %v", unique[0].CompositeScore())
	}
	if report.DuplicatesByType[types.ReasonExactID] != 1 {
		t.Fatalf("exact_id_match count = %d; want 1", report.DuplicatesByType[types.ReasonExactID])
	}
	checkConservation(t, report)
}

func TestDeduplicateTitleCaseInsensitive(t *testing.T) {
	items := []types.Item{
		{"id": "a", "title": "Hello World"},
		{"id": "b", "title": "HELLO world"},
	}

	unique, report := New(basicOptions()).Deduplicate(items)

	if len(unique) != 1 {
		t.Fatalf("expected 1 unique item, got %d", len(unique))
	}
	if report.DuplicatesByType[types.ReasonTitle] != 1 {
		t.Fatalf("title_match count = %d; want 1", report.DuplicatesByType[types.ReasonTitle])
	}
	checkConservation(t, report)
}

func TestDeduplicateContentHash(t *testing.T) {
	body := "An identical story body, reposted under a different headline."
	items := []types.Item{
		{"id": "a", "title": "Original Headline", "text": body},
		{"id": "b", "title": "Totally Different Headline", "text": strings.ToUpper(body)},
	}

	unique, report := New(basicOptions()).Deduplicate(items)

	if len(unique) != 1 {
		t.Fatalf("expected 1 unique item, got %d", len(unique))
	}
	if report.DuplicatesByType[types.ReasonContentHash] != 1 {
		t.Fatalf("content_similarity count = %d; want 1", report.DuplicatesByType[types.ReasonContentHash])
	}
}

func TestDeduplicateFuzzyTitleThresholdFlip(t *testing.T) {
	a := "The Quick Brown Fox"
	b := "The Quik Brown Fox"
	ratio := fuzzy.TokenSortRatio(strings.ToLower(a), strings.ToLower(b))
	if ratio < DefaultFuzzyThreshold || ratio >= 100 {
		t.Fatalf("test fixture assumption broken: ratio = %d", ratio)
	}

	items := []types.Item{
		{"id": "a", "title": a, "viral_score": float64(2)},
		{"id": "b", "title": b, "viral_score": float64(1)},
	}

	unique, report := New(Options{UseFuzzy: true}).Deduplicate(items)
	if len(unique) != 1 {
		t.Fatalf("expected fuzzy duplicate at default threshold, got %d unique", len(unique))
	}
	if report.DuplicatesByType[types.ReasonFuzzyTitle] != 1 {
		t.Fatalf("fuzzy_title_match count = %d; want 1", report.DuplicatesByType[types.ReasonFuzzyTitle])
	}

	// Raising the threshold above the observed ratio flips the outcome.
	strict := New(Options{UseFuzzy: true, FuzzyThreshold: ratio + 1})
	unique, report = strict.Deduplicate([]types.Item{
		{"id": "a", "title": a, "viral_score": float64(2)},
		{"id": "b", "title": b, "viral_score": float64(1)},
	})
	if len(unique) != 2 {
		t.Fatalf("expected 2 unique above the ratio, got %d", len(unique))
	}
	checkConservation(t, report)
}

func TestDeduplicateFuzzyContent(t *testing.T) {
	items := []types.Item{
		{"id": "a", "text": "the market crashed hard today in new york city"},
		{"id": "b", "text": "the market crashed hard today in new yorc city"},
	}

	unique, report := New(Options{UseFuzzy: true}).Deduplicate(items)

	if len(unique) != 1 {
		t.Fatalf("expected 1 unique item, got %d", len(unique))
	}
	if report.DuplicatesByType[types.ReasonFuzzyContent] != 1 {
		t.Fatalf("fuzzy_content_match count = %d; want 1", report.DuplicatesByType[types.ReasonFuzzyContent])
	}
}

func TestDeduplicateBasicModeZeroesNewCounters(t *testing.T) {
	items := []types.Item{
		{"content_id": "x", "title": "First"},
		{"content_id": "x", "title": "Second"},
		{"content_id": "y", "title": "Third"},
	}

	unique, report := New(basicOptions()).Deduplicate(items)

	if len(unique) != 2 {
		t.Fatalf("expected 2 unique items, got %d", len(unique))
	}
	for _, reason := range []string{types.ReasonFuzzyTitle, types.ReasonFuzzyContent, types.ReasonSemantic} {
		if report.DuplicatesByType[reason] != 0 {
			t.Fatalf("%s count = %d; want 0 in basic mode", reason, report.DuplicatesByType[reason])
		}
	}
	if report.FeaturesUsed.FuzzyMatching || report.FeaturesUsed.SemanticMatching {
		t.Fatalf("features_used should report both optional signals inactive")
	}
	checkConservation(t, report)
}

func TestDeduplicateEmptyInput(t *testing.T) {
	for _, items := range [][]types.Item{nil, {}} {
		unique, report := New(basicOptions()).Deduplicate(items)
		if len(unique) != 0 {
			t.Fatalf("expected no unique items, got %d", len(unique))
		}
		if report.UniqueItems != 0 || report.TotalDuplicates != 0 || report.RetentionRate != 0 {
			t.Fatalf("empty input report wrong: %+v", report)
		}
		if len(report.DuplicatesByType) != len(types.ReasonCodes) {
			t.Fatalf("expected all %d reason counters, got %d", len(types.ReasonCodes), len(report.DuplicatesByType))
		}
	}
}

func TestDeduplicateSemantic(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"the senate passed the infrastructure bill": {1, 0},
		"senate approves major infrastructure deal": {1, 0.05},
		"local bakery wins pie contest":             {0, 1},
	}}

	items := []types.Item{
		{"id": "a", "text": "the senate passed the infrastructure bill", "viral_score": float64(3)},
		{"id": "b", "text": "senate approves major infrastructure deal", "viral_score": float64(2)},
		{"id": "c", "text": "local bakery wins pie contest", "viral_score": float64(1)},
	}

	engine := New(Options{UseSemantic: true, Embedder: embedder})
	unique, report := engine.Deduplicate(items)

	if len(unique) != 2 {
		t.Fatalf("expected 2 unique items, got %d", len(unique))
	}
	if report.DuplicatesByType[types.ReasonSemantic] != 1 {
		t.Fatalf("semantic_similarity count = %d; want 1", report.DuplicatesByType[types.ReasonSemantic])
	}
	if !report.FeaturesUsed.SemanticMatching {
		t.Fatalf("features_used should report semantic matching active")
	}
	if report.FeaturesUsed.SemanticModel != "fake-embed-v1" {
		t.Fatalf("semantic model = %q", report.FeaturesUsed.SemanticModel)
	}
}

func TestDeduplicateBatchEmbedFailureFallsBackPerItem(t *testing.T) {
	embedder := &fakeEmbedder{
		failBatch: true,
		vectors: map[string][]float32{
			"first story":      {1, 0},
			"first story copy": {1, 0.01},
		},
	}

	items := []types.Item{
		{"id": "a", "text": "first story", "viral_score": float64(2)},
		{"id": "b", "text": "first story copy", "viral_score": float64(1)},
	}

	unique, report := New(Options{UseSemantic: true, Embedder: embedder}).Deduplicate(items)

	if len(unique) != 1 {
		t.Fatalf("expected per-item fallback to still find the duplicate, got %d unique", len(unique))
	}
	if report.DuplicatesByType[types.ReasonSemantic] != 1 {
		t.Fatalf("semantic_similarity count = %d; want 1", report.DuplicatesByType[types.ReasonSemantic])
	}
}

func TestDeduplicatePerItemEmbedFailureDegradesOnlyThatItem(t *testing.T) {
	embedder := &fakeEmbedder{
		failBatch: true,
		failTexts: map[string]bool{"unembeddable story": true},
		vectors: map[string][]float32{
			"base story":      {1, 0},
			"base story echo": {1, 0.01},
		},
	}

	items := []types.Item{
		{"id": "a", "text": "base story", "viral_score": float64(3)},
		{"id": "b", "text": "unembeddable story", "viral_score": float64(2)},
		{"id": "c", "text": "base story echo", "viral_score": float64(1)},
	}

	unique, report := New(Options{UseSemantic: true, Embedder: embedder}).Deduplicate(items)

	if len(unique) != 2 {
		t.Fatalf("expected the failed item to stay unique and the echo to match, got %d unique", len(unique))
	}
	if report.DuplicatesByType[types.ReasonSemantic] != 1 {
		t.Fatalf("semantic_similarity count = %d; want 1", report.DuplicatesByType[types.ReasonSemantic])
	}
}

func TestDeduplicatePrecedenceExactIDWins(t *testing.T) {
	// Second item would match on id, fuzzy title, and content hash alike;
	// the recorded reason must be the highest-precedence check.
	items := []types.Item{
		{"id": "same", "title": "Breaking News Tonight", "text": "shared body", "viral_score": float64(2)},
		{"id": "same", "title": "Breaking News Tonite", "text": "shared body", "viral_score": float64(1)},
	}

	unique, report := New(Options{UseFuzzy: true}).Deduplicate(items)

	if len(unique) != 1 {
		t.Fatalf("expected 1 unique item, got %d", len(unique))
	}
	if report.DuplicatesByType[types.ReasonExactID] != 1 {
		t.Fatalf("exact_id_match count = %d; want 1", report.DuplicatesByType[types.ReasonExactID])
	}
	if report.DuplicatesByType[types.ReasonFuzzyTitle] != 0 || report.DuplicatesByType[types.ReasonContentHash] != 0 {
		t.Fatalf("lower-precedence reasons must stay zero: %+v", report.DuplicatesByType)
	}
}

func TestDeduplicateBestScoreRetention(t *testing.T) {
	items := []types.Item{
		{"id": "low", "title": "Same Story", "quality_score": float64(10)},
		{"id": "high", "title": "same story", "quality_score": float64(50)},
		{"id": "mid", "title": "SAME STORY", "quality_score": float64(30)},
	}

	unique, report := New(basicOptions()).Deduplicate(items)

	if len(unique) != 1 {
		t.Fatalf("expected 1 unique item, got %d", len(unique))
	}
	if unique[0].ID() != "high" {
		t.Fatalf("expected the highest-scoring member to survive, got %q", unique[0].ID())
	}
	if report.DuplicateGroups != 1 {
		t.Fatalf("duplicate_groups = %d; want 1", report.DuplicateGroups)
	}
}

func TestDeduplicateStableTieBreak(t *testing.T) {
	items := []types.Item{
		{"id": "first", "title": "Tied Story"},
		{"id": "second", "title": "tied story"},
	}

	unique, _ := New(basicOptions()).Deduplicate(items)

	if len(unique) != 1 {
		t.Fatalf("expected 1 unique item, got %d", len(unique))
	}
	if unique[0].ID() != "first" {
		t.Fatalf("equal scores must keep input order; survivor = %q", unique[0].ID())
	}
}

func TestDeduplicateRejectedItemAnnotated(t *testing.T) {
	dup := types.Item{"id": "1", "title": "B", "viral_score": float64(1)}
	items := []types.Item{
		{"id": "1", "title": "A", "viral_score": float64(2)},
		dup,
	}

	New(basicOptions()).Deduplicate(items)

	if dup["duplicate_reason"] != types.ReasonExactID {
		t.Fatalf("duplicate_reason = %v; want %s", dup["duplicate_reason"], types.ReasonExactID)
	}
	score, ok := dup["similarity_score"].(float64)
	if !ok || score != 1.0 {
		t.Fatalf("similarity_score = %v; want 1.0", dup["similarity_score"])
	}
}

func TestDeduplicatePreservesUnrelatedFields(t *testing.T) {
	items := []types.Item{
		{"id": "a", "title": "Keep Me", "audio_url": "s3://bucket/a.mp3", "segments": []any{"s1", "s2"}},
	}

	unique, _ := New(basicOptions()).Deduplicate(items)

	if len(unique) != 1 {
		t.Fatalf("expected 1 unique item, got %d", len(unique))
	}
	if unique[0]["audio_url"] != "s3://bucket/a.mp3" {
		t.Fatalf("unrelated field dropped: %v", unique[0]["audio_url"])
	}
	if _, ok := unique[0]["duplicate_reason"]; ok {
		t.Fatalf("unique items must not carry diagnostic fields")
	}
}

func TestDeduplicateMalformedItemsStayUnique(t *testing.T) {
	items := []types.Item{
		{"payload": "no id, title, or text"},
		{"payload": "another shapeless item"},
	}

	unique, report := New(Options{UseFuzzy: true}).Deduplicate(items)

	if len(unique) != 2 {
		t.Fatalf("items with nothing to compare must stay unique, got %d", len(unique))
	}
	checkConservation(t, report)
}

func TestDeduplicatePriorState(t *testing.T) {
	engine := New(Options{
		UseFuzzy: false,
		Prior: &PriorState{
			IDs:    []string{"seen-before"},
			Titles: []string{"Already Accepted Title"},
			Hashes: []string{Fingerprint(types.Item{"text": "archived body"})},
		},
	})

	items := []types.Item{
		{"id": "seen-before", "title": "Fresh Title"},
		{"id": "new-1", "title": "already accepted title"},
		{"id": "new-2", "title": "Unseen", "text": "archived body"},
		{"id": "new-3", "title": "Genuinely New", "text": "genuinely new body"},
	}

	unique, report := engine.Deduplicate(items)

	if len(unique) != 1 || unique[0].ID() != "new-3" {
		t.Fatalf("expected only the genuinely new item to survive, got %v", unique)
	}
	if report.DuplicatesByType[types.ReasonExactID] != 1 ||
		report.DuplicatesByType[types.ReasonTitle] != 1 ||
		report.DuplicatesByType[types.ReasonContentHash] != 1 {
		t.Fatalf("unexpected reason counts: %+v", report.DuplicatesByType)
	}
	checkConservation(t, report)
}

func TestDeduplicateDuplicateGroupsCountClusters(t *testing.T) {
	items := []types.Item{
		{"id": "a", "title": "Cluster One"},
		{"id": "b", "title": "cluster one"},
		{"id": "c", "title": "CLUSTER ONE"},
		{"id": "d", "title": "Cluster Two"},
		{"id": "e", "title": "cluster two"},
	}

	unique, report := New(basicOptions()).Deduplicate(items)

	if len(unique) != 2 {
		t.Fatalf("expected 2 unique items, got %d", len(unique))
	}
	if report.DuplicateGroups != 2 {
		t.Fatalf("duplicate_groups = %d; want 2", report.DuplicateGroups)
	}
	if report.TotalDuplicates != 3 {
		t.Fatalf("total_duplicates = %d; want 3", report.TotalDuplicates)
	}
}
