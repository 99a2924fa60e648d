package types

// RunOptions is the wire-level configuration a caller may attach to a batch.
// Pointers distinguish "absent, use the default" from an explicit false.
type RunOptions struct {
	UseFuzzy          *bool   `json:"use_fuzzy,omitempty"`
	UseSemantic       *bool   `json:"use_semantic,omitempty"`
	FuzzyThreshold    int     `json:"fuzzy_threshold,omitempty"`
	SemanticThreshold float64 `json:"semantic_threshold,omitempty"`
	SemanticModelName string  `json:"semantic_model_name,omitempty"`
}
