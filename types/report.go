package types

import "time"

// Duplicate reason codes recorded on rejected items and tallied in the report.
const (
	ReasonExactID      = "exact_id_match"
	ReasonTitle        = "title_match"
	ReasonContentHash  = "content_similarity"
	ReasonFuzzyTitle   = "fuzzy_title_match"
	ReasonFuzzyContent = "fuzzy_content_match"
	ReasonSemantic     = "semantic_similarity"
)

// ReasonCodes lists every duplicate reason; reports zero-fill all of them.
var ReasonCodes = []string{
	ReasonExactID,
	ReasonTitle,
	ReasonContentHash,
	ReasonFuzzyTitle,
	ReasonFuzzyContent,
	ReasonSemantic,
}

// FeaturesUsed records which optional signals were actually active during a
// run, independent of what the caller requested.
type FeaturesUsed struct {
	FuzzyMatching     bool    `json:"fuzzy_matching"`
	SemanticMatching  bool    `json:"semantic_matching"`
	FuzzyThreshold    int     `json:"fuzzy_threshold"`
	SemanticThreshold float64 `json:"semantic_threshold"`
	SemanticModel     string  `json:"semantic_model,omitempty"`
}

// Report summarizes one deduplication run.
type Report struct {
	GeneratedAt      time.Time      `json:"generated_at"`
	TotalInputItems  int            `json:"total_input_items"`
	UniqueItems      int            `json:"unique_items"`
	TotalDuplicates  int            `json:"total_duplicates"`
	DuplicatesByType map[string]int `json:"duplicates_by_type"`
	DuplicateGroups  int            `json:"duplicate_groups"`
	RetentionRate    float64        `json:"retention_rate"`
	FeaturesUsed     FeaturesUsed   `json:"features_used"`
}
