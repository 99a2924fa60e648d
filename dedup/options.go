package dedup

import "storymill/types"

// ApplyOverrides layers wire-level run options over a base configuration.
// Absent fields keep the base values.
func ApplyOverrides(base Options, o *types.RunOptions) Options {
	if o == nil {
		return base
	}
	if o.UseFuzzy != nil {
		base.UseFuzzy = *o.UseFuzzy
	}
	if o.UseSemantic != nil {
		base.UseSemantic = *o.UseSemantic
	}
	if o.FuzzyThreshold != 0 {
		base.FuzzyThreshold = o.FuzzyThreshold
	}
	if o.SemanticThreshold != 0 {
		base.SemanticThreshold = o.SemanticThreshold
	}
	if o.SemanticModelName != "" {
		base.ModelName = o.SemanticModelName
	}
	return base
}
